package sdmmc

import (
	"fmt"

	"github.com/ardnew/softsd/pkg"
	"github.com/ardnew/softsd/sdmmc/hal"
)

// Command indices.
const (
	cmdGoIdleState      = 0
	cmdAllSendCID       = 2
	cmdSendRelativeAddr = 3
	cmdAppSetBusWidth   = 6 // ACMD6
	cmdSelectDeselect   = 7
	cmdSendIfCond       = 8
	cmdSendCSD          = 9
	cmdAppSDSendOpCond  = 41 // ACMD41
	cmdAppCmd           = 55
)

// Command arguments.
const (
	checkPattern    = 0x000001AA // CMD8: 2.7-3.6 V, pattern 0xAA
	voltageWindowSD = 0x80100000 // ACMD41: busy, 3.2-3.3 V
	busWidth1       = 0
	busWidth4       = 2
)

// DefaultCommandTimeout is the response deadline in clock ticks.
const DefaultCommandTimeout = 5000

// send writes argument then command register, starting the command path
// state machine.
func (h *Handle) send(index, arg, wait uint32) {
	h.regs.ARG.Write(arg)
	h.regs.CMD.Update(func(v uint32) uint32 {
		v = hal.CmdCMDINDEX.Put(v, index)
		v = hal.CmdWAITRESP.Put(v, wait)
		v = hal.CmdWAITINT.Put(v, false)
		v = hal.CmdWAITPEND.Put(v, false)
		v = hal.CmdSDIOSUSPEND.Put(v, false)
		return hal.CmdCPSMEN.Put(v, true)
	})
	pkg.LogDebug(pkg.ComponentCard, "command sent",
		"cmd", index, "arg", pkg.Hex(arg))
}

// poll returns the status register once any flag in mask is raised, or
// false when the command deadline passes first.
func (h *Handle) poll(mask uint32) (uint32, bool) {
	start := h.cfg.Clock.Ticks()
	for !pkg.Expired(h.cfg.Clock, start, h.cfg.CommandTimeout) {
		if sta := h.regs.STA.Read(); sta&mask != 0 {
			return sta, true
		}
	}
	pkg.LogWarn(pkg.ComponentCard, "software timeout", "mask", fmt.Sprintf("0x%03X", mask))
	return 0, false
}

// respFlags end the wait for a command response.
var respFlags = uint32(hal.StaCCRCFAIL | hal.StaCMDREND | hal.StaCTIMEOUT)

// clearStaticFlags clears every static status flag.
func (h *Handle) clearStaticFlags() {
	h.regs.ClearStatic()
}

// cmdError waits for a command with no response to be sent.
func (h *Handle) cmdError() ErrorCode {
	if _, ok := h.poll(uint32(hal.StaCMDSENT)); !ok {
		return ErrTimeout
	}
	h.clearStaticFlags()
	return ErrNone
}

// cmdResp1 checks an R1 response to command index.
func (h *Handle) cmdResp1(index uint32) ErrorCode {
	sta, ok := h.poll(respFlags)
	if !ok {
		return ErrTimeout
	}
	switch {
	case hal.StaCTIMEOUT.In(sta):
		h.regs.ICR.Write(uint32(hal.StaCTIMEOUT))
		return ErrCmdRspTimeout
	case hal.StaCCRCFAIL.In(sta):
		h.regs.ICR.Write(uint32(hal.StaCCRCFAIL))
		return ErrCmdCRCFail
	}
	if h.regs.RESPCMD.Get(hal.RespcmdRESPCMD) != index {
		h.clearStaticFlags()
		return ErrCmdCRCFail
	}
	h.clearStaticFlags()
	return CheckOCRErrorBits(h.regs.RESP[0].Read())
}

// cmdResp2 checks an R2 (CID or CSD) response.
func (h *Handle) cmdResp2() ErrorCode {
	sta, ok := h.poll(respFlags)
	if !ok {
		return ErrTimeout
	}
	switch {
	case hal.StaCTIMEOUT.In(sta):
		h.regs.ICR.Write(uint32(hal.StaCTIMEOUT))
		return ErrCmdRspTimeout
	case hal.StaCCRCFAIL.In(sta):
		h.regs.ICR.Write(uint32(hal.StaCCRCFAIL))
		return ErrCmdCRCFail
	}
	h.clearStaticFlags()
	return ErrNone
}

// cmdResp3 checks an R3 (OCR) response. R3 carries no CRC, so a CRC
// failure is expected and accepted.
func (h *Handle) cmdResp3() ErrorCode {
	sta, ok := h.poll(respFlags)
	if !ok {
		return ErrTimeout
	}
	if hal.StaCTIMEOUT.In(sta) {
		h.regs.ICR.Write(uint32(hal.StaCTIMEOUT))
		return ErrCmdRspTimeout
	}
	h.clearStaticFlags()
	return ErrNone
}

// cmdResp6 checks an R6 response to command index and returns the
// published relative card address in the upper half word.
func (h *Handle) cmdResp6(index uint32) (uint32, ErrorCode) {
	sta, ok := h.poll(respFlags)
	if !ok {
		return 0, ErrTimeout
	}
	switch {
	case hal.StaCTIMEOUT.In(sta):
		h.regs.ICR.Write(uint32(hal.StaCTIMEOUT))
		return 0, ErrCmdRspTimeout
	case hal.StaCCRCFAIL.In(sta):
		h.regs.ICR.Write(uint32(hal.StaCCRCFAIL))
		return 0, ErrCmdCRCFail
	}
	if h.regs.RESPCMD.Get(hal.RespcmdRESPCMD) != index {
		h.clearStaticFlags()
		return 0, ErrCmdCRCFail
	}
	h.clearStaticFlags()

	resp := h.regs.RESP[0].Read()
	switch {
	case resp&r6ErrorBits == 0:
		return resp & 0xFFFF0000, ErrNone
	case resp&r6ComCRCFailed != 0:
		return 0, ErrComCRCFailed
	case resp&r6IllegalCmd != 0:
		return 0, ErrIllegalCmd
	default:
		return 0, ErrGeneralUnknown
	}
}

// cmdResp7 checks an R7 (interface condition) response.
func (h *Handle) cmdResp7() ErrorCode {
	sta, ok := h.poll(respFlags)
	if !ok {
		return ErrTimeout
	}
	switch {
	case hal.StaCTIMEOUT.In(sta):
		h.regs.ICR.Write(uint32(hal.StaCTIMEOUT))
		return ErrCmdRspTimeout
	case hal.StaCCRCFAIL.In(sta):
		h.regs.ICR.Write(uint32(hal.StaCCRCFAIL))
	default:
		h.regs.ICR.Write(uint32(hal.StaCMDREND))
	}
	return ErrNone
}

// goIdleState sends CMD0.
func (h *Handle) goIdleState() ErrorCode {
	h.send(cmdGoIdleState, 0, hal.WaitRespNo)
	return h.cmdError()
}

// sendIfCond sends CMD8. Only version 2.00 cards answer it.
func (h *Handle) sendIfCond() ErrorCode {
	h.send(cmdSendIfCond, checkPattern, hal.WaitRespShort)
	return h.cmdResp7()
}

// appCmd sends CMD55, announcing an application-specific command.
func (h *Handle) appCmd(rca uint32) ErrorCode {
	h.send(cmdAppCmd, rca, hal.WaitRespShort)
	return h.cmdResp1(cmdAppCmd)
}

// sdSendOpCond sends ACMD41 with the host capacity support bit.
func (h *Handle) sdSendOpCond(capacity CardCapacity) ErrorCode {
	h.send(cmdAppSDSendOpCond, voltageWindowSD|uint32(capacity), hal.WaitRespShort)
	return h.cmdResp3()
}

// allSendCID sends CMD2.
func (h *Handle) allSendCID() ErrorCode {
	h.send(cmdAllSendCID, 0, hal.WaitRespLong)
	return h.cmdResp2()
}

// sendRelativeAddr sends CMD3 and returns the card's RCA argument.
func (h *Handle) sendRelativeAddr() (uint32, ErrorCode) {
	h.send(cmdSendRelativeAddr, 0, hal.WaitRespShort)
	return h.cmdResp6(cmdSendRelativeAddr)
}

// sendCSD sends CMD9 to the card at rca.
func (h *Handle) sendCSD(rca uint32) ErrorCode {
	h.send(cmdSendCSD, rca, hal.WaitRespLong)
	return h.cmdResp2()
}

// selectDeselect sends CMD7, moving the card at rca to transfer state.
func (h *Handle) selectDeselect(rca uint32) ErrorCode {
	h.send(cmdSelectDeselect, rca, hal.WaitRespShort)
	return h.cmdResp1(cmdSelectDeselect)
}

// appSetBusWidth sends ACMD6.
func (h *Handle) appSetBusWidth(width uint32) ErrorCode {
	h.send(cmdAppSetBusWidth, width, hal.WaitRespShort)
	return h.cmdResp1(cmdAppSetBusWidth)
}

// response1 returns RESP1.
func (h *Handle) response1() uint32 {
	return h.regs.RESP[0].Read()
}
