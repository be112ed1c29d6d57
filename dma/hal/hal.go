package hal

import (
	"fmt"

	"github.com/ardnew/softsd/pkg"
	"github.com/ardnew/softsd/pkg/mmio"
)

// NumStreams is the number of streams per DMA controller.
const NumStreams = 8

// Base addresses of the two DMA controllers.
const (
	DMA1Base uint32 = 0x40026000
	DMA2Base uint32 = 0x40026400
)

// BlockSize is the size of a controller's register block in bytes.
const BlockSize = 0x400

// Register offsets within the controller block.
const (
	offsetLISR   = 0x00 // Low interrupt status (streams 0-3)
	offsetHISR   = 0x04 // High interrupt status (streams 4-7)
	offsetLIFCR  = 0x08 // Low interrupt flag clear
	offsetHIFCR  = 0x0C // High interrupt flag clear
	offsetStream = 0x10 // First stream register set
	streamStride = 0x18
)

// Register offsets within a stream register set.
const (
	offsetCR   = 0x00 // Configuration
	offsetNDTR = 0x04 // Number of data items
	offsetPAR  = 0x08 // Peripheral address
	offsetM0AR = 0x0C // Memory 0 address
	offsetM1AR = 0x10 // Memory 1 address (double buffer)
	offsetFCR  = 0x14 // FIFO control
)

// CR fields.
var (
	CrEN     = mmio.Bit(0)
	CrDMEIE  = mmio.Bit(1)
	CrTEIE   = mmio.Bit(2)
	CrHTIE   = mmio.Bit(3)
	CrTCIE   = mmio.Bit(4)
	CrPFCTRL = mmio.Bit(5)
	CrDIR    = mmio.Field{Shift: 6, Width: 2}
	CrCIRC   = mmio.Bit(8)
	CrPINC   = mmio.Bit(9)
	CrMINC   = mmio.Bit(10)
	CrPSIZE  = mmio.Field{Shift: 11, Width: 2}
	CrMSIZE  = mmio.Field{Shift: 13, Width: 2}
	CrPINCOS = mmio.Bit(15)
	CrPL     = mmio.Field{Shift: 16, Width: 2}
	CrDBM    = mmio.Bit(18)
	CrCT     = mmio.Bit(19)
	CrPBURST = mmio.Field{Shift: 21, Width: 2}
	CrMBURST = mmio.Field{Shift: 23, Width: 2}
	CrCHSEL  = mmio.Field{Shift: 25, Width: 3}
)

// NDTR and FCR fields.
var (
	NdtrNDT  = mmio.Field{Shift: 0, Width: 16}
	FcrFTH   = mmio.Field{Shift: 0, Width: 2}
	FcrDMDIS = mmio.Bit(2)
	FcrFS    = mmio.Field{Shift: 3, Width: 3}
	FcrFEIE  = mmio.Bit(7)
)

// FCR reset value: FIFO threshold half, direct mode enabled, FIFO empty.
const FcrReset uint32 = 0x00000021

// Flag is an interrupt status condition of one stream. The value is the
// bit position relative to the stream's offset in LISR/HISR.
type Flag uint8

// Stream status flags.
const (
	FlagFE  Flag = 0 // FIFO error
	FlagDME Flag = 2 // Direct mode error
	FlagTE  Flag = 3 // Transfer error
	FlagHT  Flag = 4 // Half transfer
	FlagTC  Flag = 5 // Transfer complete
)

// String returns the flag's reference-manual mnemonic.
func (f Flag) String() string {
	switch f {
	case FlagFE:
		return "FEIF"
	case FlagDME:
		return "DMEIF"
	case FlagTE:
		return "TEIF"
	case FlagHT:
		return "HTIF"
	case FlagTC:
		return "TCIF"
	default:
		return fmt.Sprintf("Flag(%d)", uint8(f))
	}
}

// AllFlags lists every stream status flag.
var AllFlags = [...]Flag{FlagFE, FlagDME, FlagTE, FlagHT, FlagTC}

// flagOffsets is the bit offset of each stream's flags within its
// status/clear register; streams 4-7 repeat the pattern in HISR/HIFCR.
var flagOffsets = [4]uint{0, 6, 16, 22}

// FlagBit returns the LISR/HISR (and LIFCR/HIFCR) bit for flag f of
// stream id.
func FlagBit(id int, f Flag) mmio.Flag {
	return mmio.Bit(flagOffsets[id%4] + uint(f))
}

// ClearAllFlags is the LIFCR/HIFCR value that clears every flag of the
// four streams sharing the register.
var ClearAllFlags = func() uint32 {
	var v uint32
	for id := range 4 {
		for _, f := range AllFlags {
			v |= uint32(FlagBit(id, f))
		}
	}
	return v
}()

// StreamOffset returns the offset of stream id's register set within the
// controller block.
func StreamOffset(id int) uint32 {
	return offsetStream + uint32(id)*streamStride
}

// Controller is the register block of one DMA controller.
type Controller struct {
	base    uint32
	lisr    *mmio.Register
	hisr    *mmio.Register
	lifcr   *mmio.Register
	hifcr   *mmio.Register
	streams [NumStreams]Stream
}

// New binds the controller register block at base in mem.
func New(mem mmio.Memory, base uint32) *Controller {
	c := &Controller{
		base:  base,
		lisr:  mmio.NewRegister(mem, base+offsetLISR),
		hisr:  mmio.NewRegister(mem, base+offsetHISR),
		lifcr: mmio.NewRegister(mem, base+offsetLIFCR),
		hifcr: mmio.NewRegister(mem, base+offsetHIFCR),
	}
	for id := range c.streams {
		s := base + StreamOffset(id)
		c.streams[id] = Stream{
			id:   id,
			ctrl: c,
			CR:   mmio.NewRegister(mem, s+offsetCR),
			NDTR: mmio.NewRegister(mem, s+offsetNDTR),
			PAR:  mmio.NewRegister(mem, s+offsetPAR),
			M0AR: mmio.NewRegister(mem, s+offsetM0AR),
			M1AR: mmio.NewRegister(mem, s+offsetM1AR),
			FCR:  mmio.NewRegister(mem, s+offsetFCR),
		}
	}
	return c
}

// Base returns the controller's base address.
func (c *Controller) Base() uint32 { return c.base }

// Stream resolves a logical stream id to its register set.
func (c *Controller) Stream(id int) (*Stream, error) {
	if id < 0 || id >= NumStreams {
		return nil, fmt.Errorf("stream %d: %w", id, pkg.ErrInvalidParameter)
	}
	return &c.streams[id], nil
}

// Reset writes reset values to every stream's register set and clears
// every status flag. Streams must be disabled first; the controller
// ignores configuration writes to an enabled stream.
func (c *Controller) Reset() {
	for i := range c.streams {
		s := &c.streams[i]
		s.CR.Write(0)
		s.NDTR.Write(0)
		s.PAR.Write(0)
		s.M0AR.Write(0)
		s.M1AR.Write(0)
		s.FCR.Write(FcrReset)
	}
	c.lifcr.Write(ClearAllFlags)
	c.hifcr.Write(ClearAllFlags)
	pkg.LogDebug(pkg.ComponentHAL, "dma controller reset", "base", pkg.Hex(c.base))
}

func (c *Controller) status(id int) *mmio.Register {
	if id < 4 {
		return c.lisr
	}
	return c.hisr
}

func (c *Controller) clear(id int) *mmio.Register {
	if id < 4 {
		return c.lifcr
	}
	return c.hifcr
}
