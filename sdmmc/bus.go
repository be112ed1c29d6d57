package sdmmc

import (
	"github.com/ardnew/softsd/pkg"
	"github.com/ardnew/softsd/sdmmc/hal"
)

// SetBusOperationMode switches the card and the host to the given data
// bus width. The card must be in transfer state. 8-bit buses are not
// supported by SD cards and secured cards are not reconfigured; both fail
// with ErrUnsupportedFeature. On failure the static flags are cleared and
// the bus width is left unchanged. The state is Ready afterwards.
func (h *Handle) SetBusOperationMode(mode BusMode) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.state = StateBusy
	defer func() { h.state = StateReady }()

	var code ErrorCode
	switch {
	case h.card.Type == CardSecured:
		code = ErrUnsupportedFeature
	case mode == BusWide8:
		code = ErrUnsupportedFeature
	case mode == BusWide4:
		code = h.setWideBus(busWidth4)
	case mode == BusDefault:
		code = h.setWideBus(busWidth1)
	default:
		code = ErrInvalidParam
	}
	if code != ErrNone {
		h.clearStaticFlags()
		return h.fail("bus mode", code)
	}

	h.regs.CLKCR.Set(hal.ClkcrWIDBUS, uint32(mode))
	pkg.LogInfo(pkg.ComponentSDMMC, "bus width changed", "mode", mode.String())
	return nil
}

// setWideBus sends ACMD6 to the selected card.
func (h *Handle) setWideBus(width uint32) ErrorCode {
	if code := h.appCmd(h.card.RCA); code != ErrNone {
		return code
	}
	return h.appSetBusWidth(width)
}
