package sdmmc

import (
	"errors"
	"testing"

	"github.com/ardnew/softsd/dma"
	dmahal "github.com/ardnew/softsd/dma/hal"
	"github.com/ardnew/softsd/pkg"
	"github.com/ardnew/softsd/pkg/mmio"
	"github.com/ardnew/softsd/sdmmc/hal"
	"github.com/ardnew/softsd/sdmmc/hal/sim"
)

const testBuffer = 0x20000000

// bench is a simulated SDMMC1 with a card inserted and a DMA2 register
// block in RAM.
type bench struct {
	sim   *sim.SDMMC
	regs  *hal.Controller
	mgr   *dma.Manager
	gate  pkg.GateSet
	clock *pkg.StepClock
	h     *Handle
}

func newDMAManager(t *testing.T) *dma.Manager {
	t.Helper()
	ram := mmio.NewRAM(dmahal.DMA2Base, dmahal.BlockSize)
	mgr := dma.NewManager(dmahal.New(ram, dmahal.DMA2Base), nil, pkg.PeripheralDMA2)
	if err := mgr.Init(); err != nil {
		t.Fatalf("dma Init() error = %v", err)
	}
	return mgr
}

func newBench(t *testing.T, card sim.CardConfig, configure ...func(*Config)) *bench {
	t.Helper()
	b := &bench{
		sim:   sim.New(hal.SDMMC1Base, card),
		mgr:   newDMAManager(t),
		gate:  pkg.GateSet{},
		clock: pkg.NewStepClock(),
	}
	b.regs = hal.New(b.sim, hal.SDMMC1Base)

	cfg := DefaultConfig()
	cfg.Clock = b.clock
	cfg.Gate = b.gate
	cfg.CommandTimeout = 100
	cfg.Buffer = testBuffer
	for _, fn := range configure {
		fn(&cfg)
	}

	h, err := NewHandle(b.regs, b.mgr, cfg)
	if err != nil {
		t.Fatalf("NewHandle() error = %v", err)
	}
	t.Cleanup(h.Close)
	b.h = h
	return b
}

func TestNewHandle(t *testing.T) {
	b := newBench(t, sim.DefaultCard())

	if got := b.h.State(); got != StateReset {
		t.Errorf("State() = %v, want %v", got, StateReset)
	}
	if got := b.h.Context(); got != ContextNone {
		t.Errorf("Context() = %v, want %v", got, ContextNone)
	}
	if got := b.mgr.Refs(); got != 2 {
		t.Errorf("Refs() = %d, want 2", got)
	}

	rx, tx := b.h.RxTransfer().Transfer(), b.h.TxTransfer().Transfer()
	checks := []struct {
		name string
		x    dma.Transfer
		s    dma.Stream
		dir  dma.Direction
		mem  uint32
	}{
		{"rx", rx, dma.Stream3, dma.PeripheralToMemory, testBuffer},
		{"tx", tx, dma.Stream6, dma.MemoryToPeripheral, testBuffer + 512},
	}
	for _, c := range checks {
		if c.x.Stream != c.s || c.x.Channel != dma.Channel4 || c.x.Direction != c.dir {
			t.Errorf("%s: %v", c.name, c.x)
		}
		if c.x.Peripheral.Address != 0x40012C80 {
			t.Errorf("%s peripheral = 0x%08X, want the SDMMC1 FIFO", c.name, c.x.Peripheral.Address)
		}
		if c.x.Memory.Address != c.mem {
			t.Errorf("%s memory = 0x%08X, want 0x%08X", c.name, c.x.Memory.Address, c.mem)
		}
		if c.x.Count != 128 || c.x.FlowController != dma.FlowPeripheral || c.x.Priority != dma.PriorityVeryHigh {
			t.Errorf("%s: %v", c.name, c.x)
		}
		if err := c.x.Validate(); err != nil {
			t.Errorf("%s Validate() error = %v", c.name, err)
		}
	}

	b.h.Close()
	if got := b.mgr.Refs(); got != 0 {
		t.Errorf("Refs() after Close = %d, want 0", got)
	}
}

func TestNewHandle_PrepareReceive(t *testing.T) {
	b := newBench(t, sim.DefaultCard())
	rx := b.h.RxTransfer()

	if err := rx.Prepare(); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	got, err := rx.ReadBack()
	if err != nil {
		t.Fatalf("ReadBack() error = %v", err)
	}
	if got != rx.Transfer() {
		t.Errorf("ReadBack() = %v, want %v", got, rx.Transfer())
	}
}

func TestNewHandle_StreamInUse(t *testing.T) {
	mgr := newDMAManager(t)
	regs := hal.New(sim.New(hal.SDMMC1Base, sim.DefaultCard()), hal.SDMMC1Base)

	// Another user holds the transmit stream.
	other, err := mgr.Bind(dma.Transfer{Stream: dma.Stream6})
	if err != nil {
		t.Fatal(err)
	}
	defer other.Release()

	cfg := DefaultConfig()
	cfg.Buffer = testBuffer
	if _, err := NewHandle(regs, mgr, cfg); !errors.Is(err, dma.ErrStreamInUse) {
		t.Fatalf("NewHandle() error = %v, want %v", err, dma.ErrStreamInUse)
	}
	if mgr.Bound(dma.Stream3) {
		t.Error("receive stream should be released after a failed NewHandle")
	}
	if got := mgr.Refs(); got != 1 {
		t.Errorf("Refs() = %d, want 1", got)
	}
}

func TestNewHandle_Buffer(t *testing.T) {
	regs := hal.New(sim.New(hal.SDMMC1Base, sim.DefaultCard()), hal.SDMMC1Base)

	tests := []struct {
		name   string
		buffer uint32
		size   uint32
		want   error
	}{
		{"unaligned", testBuffer + 8, 512, dma.ErrUnalignedMemoryAddress},
		{"short", testBuffer, 256, pkg.ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := newDMAManager(t)
			cfg := DefaultConfig()
			cfg.Buffer, cfg.BufferSize = tt.buffer, tt.size
			if _, err := NewHandle(regs, mgr, cfg); !errors.Is(err, tt.want) {
				t.Errorf("NewHandle() error = %v, want %v", err, tt.want)
			}
			if got := mgr.Refs(); got != 0 {
				t.Errorf("Refs() = %d, want 0", got)
			}
		})
	}
}

func TestHandle_Lock(t *testing.T) {
	b := newBench(t, sim.DefaultCard())

	if err := b.h.Lock(); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if !b.h.Locked() {
		t.Error("Locked() = false after Lock")
	}
	if err := b.h.Lock(); !errors.Is(err, pkg.ErrBusy) {
		t.Errorf("second Lock() error = %v, want %v", err, pkg.ErrBusy)
	}
	b.h.Unlock()
	if err := b.h.Lock(); err != nil {
		t.Errorf("Lock() after Unlock error = %v", err)
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{StateReady.String(), "Ready"},
		{StateError.String(), "Error"},
		{State(9).String(), "Unknown State (9)"},
		{ContextNone.String(), "None"},
		{(ContextReadMultipleBlocks | ContextDMA).String(), "ReadMultipleBlocks|DMA"},
		{(ContextWriteSingleBlock | ContextInterrupt).String(), "WriteSingleBlock|IT"},
		{Context(0x03).String(), "Unknown Context (0x03)"},
		{CardSDHCXC.String(), "SDHC/SDXC"},
		{CardType(2).String(), "Unknown CardType (2)"},
		{CardV2x.String(), "2.x"},
		{BusWide4.String(), "4-bit"},
		{BusMode(3).String(), "Unknown BusMode (3)"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}
