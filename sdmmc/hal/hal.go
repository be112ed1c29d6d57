package hal

import (
	"fmt"

	"github.com/ardnew/softsd/pkg"
	"github.com/ardnew/softsd/pkg/mmio"
)

// Base addresses of the SDMMC host controllers.
const (
	SDMMC1Base uint32 = 0x40012C00
	SDMMC2Base uint32 = 0x40011C00
)

// BlockSize is the size of the register block in bytes.
const BlockSize = 0x400

// Register offsets.
const (
	OffsetPOWER   = 0x00
	OffsetCLKCR   = 0x04
	OffsetARG     = 0x08
	OffsetCMD     = 0x0C
	OffsetRESPCMD = 0x10
	OffsetRESP1   = 0x14 // RESP1-RESP4 follow at 4-byte steps
	OffsetDTIMER  = 0x24
	OffsetDLEN    = 0x28
	OffsetDCTRL   = 0x2C
	OffsetDCOUNT  = 0x30
	OffsetSTA     = 0x34
	OffsetICR     = 0x38
	OffsetMASK    = 0x3C
	OffsetFIFOCNT = 0x48
	OffsetFIFO    = 0x80
)

// POWER fields.
var PowerPWRCTRL = mmio.Field{Shift: 0, Width: 2}

// PWRCTRL values.
const (
	PowerOff uint32 = 0b00
	PowerOn  uint32 = 0b11
)

// CLKCR fields.
var (
	ClkcrCLKDIV  = mmio.Field{Shift: 0, Width: 8}
	ClkcrCLKEN   = mmio.Bit(8)
	ClkcrPWRSAV  = mmio.Bit(9)
	ClkcrBYPASS  = mmio.Bit(10)
	ClkcrWIDBUS  = mmio.Field{Shift: 11, Width: 2}
	ClkcrNEGEDGE = mmio.Bit(13)
	ClkcrHWFCEN  = mmio.Bit(14)
)

// CMD fields.
var (
	CmdCMDINDEX    = mmio.Field{Shift: 0, Width: 6}
	CmdWAITRESP    = mmio.Field{Shift: 6, Width: 2}
	CmdWAITINT     = mmio.Bit(8)
	CmdWAITPEND    = mmio.Bit(9)
	CmdCPSMEN      = mmio.Bit(10)
	CmdSDIOSUSPEND = mmio.Bit(11)
)

// WAITRESP values.
const (
	WaitRespNo    uint32 = 0b00
	WaitRespShort uint32 = 0b01
	WaitRespLong  uint32 = 0b11
)

// RESPCMD fields.
var RespcmdRESPCMD = mmio.Field{Shift: 0, Width: 6}

// STA flags. ICR clear bits share the positions of the static flags.
var (
	StaCCRCFAIL = mmio.Bit(0)
	StaDCRCFAIL = mmio.Bit(1)
	StaCTIMEOUT = mmio.Bit(2)
	StaDTIMEOUT = mmio.Bit(3)
	StaTXUNDERR = mmio.Bit(4)
	StaRXOVERR  = mmio.Bit(5)
	StaCMDREND  = mmio.Bit(6)
	StaCMDSENT  = mmio.Bit(7)
	StaDATAEND  = mmio.Bit(8)
	StaDBCKEND  = mmio.Bit(10)
	StaCMDACT   = mmio.Bit(11)
	StaTXACT    = mmio.Bit(12)
	StaRXACT    = mmio.Bit(13)
	StaTXFIFOE  = mmio.Bit(18)
	StaRXFIFOE  = mmio.Bit(19)
	StaSDIOIT   = mmio.Bit(22)
)

// StaticFlags are the STA flags cleared by software through ICR. SDIOIT
// is excluded.
const StaticFlags uint32 = 0x000005FF

// Controller is the register block of one SDMMC host controller.
type Controller struct {
	base uint32

	POWER   *mmio.Register
	CLKCR   *mmio.Register
	ARG     *mmio.Register
	CMD     *mmio.Register
	RESPCMD *mmio.Register
	RESP    [4]*mmio.Register
	DTIMER  *mmio.Register
	DLEN    *mmio.Register
	DCTRL   *mmio.Register
	DCOUNT  *mmio.Register
	STA     *mmio.Register
	ICR     *mmio.Register
	MASK    *mmio.Register
	FIFOCNT *mmio.Register
	FIFO    *mmio.Register
}

// New binds the register block at base in mem.
func New(mem mmio.Memory, base uint32) *Controller {
	reg := func(off uint32) *mmio.Register {
		return mmio.NewRegister(mem, base+off)
	}
	c := &Controller{
		base:    base,
		POWER:   reg(OffsetPOWER),
		CLKCR:   reg(OffsetCLKCR),
		ARG:     reg(OffsetARG),
		CMD:     reg(OffsetCMD),
		RESPCMD: reg(OffsetRESPCMD),
		DTIMER:  reg(OffsetDTIMER),
		DLEN:    reg(OffsetDLEN),
		DCTRL:   reg(OffsetDCTRL),
		DCOUNT:  reg(OffsetDCOUNT),
		STA:     reg(OffsetSTA),
		ICR:     reg(OffsetICR),
		MASK:    reg(OffsetMASK),
		FIFOCNT: reg(OffsetFIFOCNT),
		FIFO:    reg(OffsetFIFO),
	}
	for i := range c.RESP {
		c.RESP[i] = reg(OffsetRESP1 + uint32(4*i))
	}
	return c
}

// Base returns the controller base address.
func (c *Controller) Base() uint32 { return c.base }

// FIFOAddress returns the bus address of the data FIFO, the peripheral
// side of SDMMC DMA transfers.
func (c *Controller) FIFOAddress() uint32 { return c.base + OffsetFIFO }

// Responses returns RESP1 through RESP4.
func (c *Controller) Responses() [4]uint32 {
	var r [4]uint32
	for i, reg := range c.RESP {
		r[i] = reg.Read()
	}
	return r
}

// ClearStatic clears every static status flag.
func (c *Controller) ClearStatic() {
	c.ICR.Write(StaticFlags)
}

// String describes the controller for logs.
func (c *Controller) String() string {
	return fmt.Sprintf("sdmmc@0x%08X", c.base)
}

// Powered reports whether the card supply is on.
func (c *Controller) Powered() bool {
	return c.POWER.Get(PowerPWRCTRL) != PowerOff
}

// SetPower switches the card supply.
func (c *Controller) SetPower(on bool) {
	v := PowerOff
	if on {
		v = PowerOn
	}
	c.POWER.Set(PowerPWRCTRL, v)
	pkg.LogDebug(pkg.ComponentHAL, "sdmmc power", "on", on)
}
