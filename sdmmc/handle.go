package sdmmc

import (
	"fmt"
	"sync"

	"github.com/ardnew/softsd/dma"
	"github.com/ardnew/softsd/pkg"
	"github.com/ardnew/softsd/sdmmc/hal"
)

// Default configuration values.
const (
	DefaultClockDiv         = 0x76   // 48 MHz / (0x76 + 2) = 400 kHz identification clock
	DefaultMaxVoltageTrials = 0xFFFF // ACMD41 attempts before giving up
	DefaultBufferSize       = 512
)

// DMA stream assignment of SDMMC1.
const (
	RxStream   = dma.Stream3
	TxStream   = dma.Stream6
	DMAChannel = dma.Channel4
)

// Config configures a Handle.
type Config struct {
	// Clock supplies the ticks of every deadline and settle delay.
	Clock pkg.Clock

	// Gate enables the bus clocks of Peripheral and Pins during Init.
	// A nil Gate means the clocks are always on.
	Gate       pkg.ClockGate
	Peripheral pkg.Peripheral
	Pins       []pkg.Peripheral

	// CardDetect reports whether a card is inserted. Nil means always.
	CardDetect func() bool

	// DeInitLowLevel releases board resources after the card supply is
	// switched off by DeInit.
	DeInitLowLevel func() error

	// ClockDiv is the CLKCR divider used during identification.
	ClockDiv uint8

	// CommandTimeout is the response deadline of every command in ticks.
	CommandTimeout uint32

	// MaxVoltageTrials bounds the ACMD41 loop.
	MaxVoltageTrials int

	// Buffer is the 16-byte aligned DMA buffer. The receive half starts at
	// Buffer and the transmit half BufferSize bytes later. Each half holds
	// at least one 512-byte block.
	Buffer     uint32
	BufferSize uint32
}

// DefaultConfig returns the SDMMC1 configuration of an STM32F7 board.
func DefaultConfig() Config {
	return Config{
		Clock:            &pkg.SystemClock{},
		Peripheral:       pkg.PeripheralSDMMC1,
		Pins:             []pkg.Peripheral{pkg.PeripheralGPIOC, pkg.PeripheralGPIOD},
		ClockDiv:         DefaultClockDiv,
		CommandTimeout:   DefaultCommandTimeout,
		MaxVoltageTrials: DefaultMaxVoltageTrials,
		BufferSize:       DefaultBufferSize,
	}
}

// withDefaults fills zero durations and limits.
func (c Config) withDefaults() Config {
	if c.Clock == nil {
		c.Clock = &pkg.SystemClock{}
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.MaxVoltageTrials <= 0 {
		c.MaxVoltageTrials = DefaultMaxVoltageTrials
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	return c
}

// Handle drives one SD card through an SDMMC host controller.
//
// Operations on a Handle are serialized. The advisory lock reported by
// Lock and Unlock is independent of that serialization and exists for
// callers coordinating multi-step transfers.
type Handle struct {
	mu   sync.Mutex
	regs *hal.Controller
	cfg  Config
	rx   *dma.Controller
	tx   *dma.Controller

	lock  LockType
	ctx   Context
	state State
	err   ErrorCode
	card  CardInfo
}

// NewHandle binds the receive and transmit DMA streams and returns a
// handle in state Reset. Both transfers are validated before binding.
func NewHandle(regs *hal.Controller, mgr *dma.Manager, cfg Config) (*Handle, error) {
	cfg = cfg.withDefaults()
	if cfg.Buffer%16 != 0 {
		return nil, fmt.Errorf("sdmmc buffer 0x%08X: %w", cfg.Buffer, dma.ErrUnalignedMemoryAddress)
	}
	if cfg.BufferSize < DefaultBufferSize {
		return nil, fmt.Errorf("sdmmc buffer size %d: %w", cfg.BufferSize, pkg.ErrInvalidParameter)
	}

	rxXfer := fifoTransfer(RxStream, dma.PeripheralToMemory, regs.FIFOAddress(), cfg.Buffer)
	txXfer := fifoTransfer(TxStream, dma.MemoryToPeripheral, regs.FIFOAddress(), cfg.Buffer+cfg.BufferSize)
	for _, x := range []dma.Transfer{rxXfer, txXfer} {
		if err := x.Validate(); err != nil {
			return nil, fmt.Errorf("sdmmc %v transfer: %w", x.Stream, err)
		}
	}

	rx, err := mgr.Bind(rxXfer)
	if err != nil {
		return nil, fmt.Errorf("sdmmc rx: %w", err)
	}
	tx, err := mgr.Bind(txXfer)
	if err != nil {
		rx.Release()
		return nil, fmt.Errorf("sdmmc tx: %w", err)
	}

	pkg.LogDebug(pkg.ComponentSDMMC, "handle created", "controller", regs.String(),
		"rx", rxXfer.String(), "tx", txXfer.String())
	return &Handle{regs: regs, cfg: cfg, rx: rx, tx: tx}, nil
}

// fifoTransfer returns the descriptor moving one block between the data
// FIFO and a memory buffer.
func fifoTransfer(s dma.Stream, dir dma.Direction, fifo, buf uint32) dma.Transfer {
	return dma.Transfer{
		Stream:         s,
		Channel:        DMAChannel,
		Priority:       dma.PriorityVeryHigh,
		Direction:      dir,
		FlowController: dma.FlowPeripheral,
		OffsetSize:     dma.UsePSize,
		Peripheral: dma.TransferNode{
			Address:   fifo,
			Increment: dma.Fixed,
			Burst:     dma.BurstIncr4,
			Width:     dma.WidthWord,
		},
		Memory: dma.TransferNode{
			Address:   buf,
			Increment: dma.Increment,
			Burst:     dma.BurstIncr4,
			Width:     dma.WidthWord,
		},
		Count:         DefaultBufferSize / 4,
		DirectMode:    dma.DirectDisable,
		FifoThreshold: dma.FifoFull,
		Interrupts: dma.Interrupts{
			TransferComplete: true,
			TransferError:    true,
			FIFO:             true,
		},
	}
}

// Close releases the DMA streams. The handle must not be used afterwards.
func (h *Handle) Close() {
	h.rx.Release()
	h.tx.Release()
}

// Registers returns the host controller registers.
func (h *Handle) Registers() *hal.Controller { return h.regs }

// Config returns the handle configuration with defaults applied.
func (h *Handle) Config() Config { return h.cfg }

// State returns the lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// ErrorCode returns every error raised since the last Init or ClearError.
func (h *Handle) ErrorCode() ErrorCode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// ClearError resets the accumulated error code.
func (h *Handle) ClearError() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = ErrNone
}

// Card returns the identification of the initialized card.
func (h *Handle) Card() CardInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.card
}

// Context returns the transfer context.
func (h *Handle) Context() Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ctx
}

// Lock takes the advisory lock, failing with pkg.ErrBusy if it is held.
func (h *Handle) Lock() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lock == Locked {
		return fmt.Errorf("sdmmc lock: %w", pkg.ErrBusy)
	}
	h.lock = Locked
	return nil
}

// Unlock releases the advisory lock.
func (h *Handle) Unlock() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lock = Unlocked
}

// Locked reports whether the advisory lock is held.
func (h *Handle) Locked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lock == Locked
}

// RxTransfer returns the controller of the receive stream.
func (h *Handle) RxTransfer() *dma.Controller { return h.rx }

// TxTransfer returns the controller of the transmit stream.
func (h *Handle) TxTransfer() *dma.Controller { return h.tx }

// fail records code and returns it as an error wrapped for op.
func (h *Handle) fail(op string, code ErrorCode) error {
	h.err |= code
	pkg.LogError(pkg.ComponentSDMMC, op+" failed", "error", code.Error())
	return fmt.Errorf("sdmmc %s: %w", op, code)
}
