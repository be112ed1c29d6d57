package sdmmc

import (
	"fmt"

	"github.com/ardnew/softsd/pkg"
	"github.com/ardnew/softsd/sdmmc/hal"
)

// Settle delays in ticks around card power-up.
const (
	clockSettle = 500
	powerSettle = 500
	cardSettle  = 2
)

// ocrBusy is set in the ACMD41 response once the card has finished its
// power-up routine.
const ocrBusy = 0x80000000

// Init brings up the host controller and identifies the card.
//
// From state Reset, Init first enables the pin and controller clocks and
// consults Config.CardDetect; an empty slot fails with pkg.ErrNoCard and
// leaves the state at Reset. The accumulated error code is cleared, then
// the state is Busy for the duration of the card sequence and Ready
// afterwards, whether or not the sequence succeeded. A failure is both
// returned and ORed into ErrorCode.
func (h *Handle) Init() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateReset {
		h.lock = Unlocked
		if err := h.initLowLevel(); err != nil {
			return err
		}
		if h.cfg.CardDetect != nil && !h.cfg.CardDetect() {
			pkg.LogWarn(pkg.ComponentSDMMC, "no card detected", "controller", h.regs.String())
			return fmt.Errorf("sdmmc init: %w", pkg.ErrNoCard)
		}
	}

	h.err = ErrNone
	h.state = StateBusy
	err := h.initCard()
	h.ctx = ContextNone
	h.state = StateReady
	if err != nil {
		return err
	}

	pkg.LogInfo(pkg.ComponentSDMMC, "card initialized",
		"type", h.card.Type.String(), "version", h.card.Version.String(),
		"rca", fmt.Sprintf("0x%04X", h.card.RCA>>16), "class", fmt.Sprintf("0x%03X", h.card.Class))
	return nil
}

// InitCard runs the card power-up and identification sequence without
// the low-level bring-up or clearing earlier errors.
func (h *Handle) InitCard() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.state = StateBusy
	err := h.initCard()
	h.state = StateReady
	return err
}

// initLowLevel enables the bus clocks of the pins and the controller.
func (h *Handle) initLowLevel() error {
	if h.cfg.Gate == nil {
		return nil
	}
	clocks := append([]pkg.Peripheral{}, h.cfg.Pins...)
	for _, p := range append(clocks, h.cfg.Peripheral) {
		if p == "" {
			continue
		}
		if err := pkg.EnableClock(h.cfg.Gate, p); err != nil {
			return fmt.Errorf("sdmmc init: %w", err)
		}
	}
	return nil
}

// defaultClock applies the identification clock configuration: rising
// edge, no bypass, no power save, 1-bit bus, no flow control.
func (h *Handle) defaultClock() {
	h.regs.CLKCR.Update(func(v uint32) uint32 {
		v = hal.ClkcrNEGEDGE.Put(v, false)
		v = hal.ClkcrBYPASS.Put(v, false)
		v = hal.ClkcrPWRSAV.Put(v, false)
		v = hal.ClkcrWIDBUS.Put(v, uint32(BusDefault))
		v = hal.ClkcrHWFCEN.Put(v, false)
		return hal.ClkcrCLKDIV.Put(v, uint32(h.cfg.ClockDiv))
	})
}

func (h *Handle) initCard() error {
	h.card = CardInfo{}
	h.defaultClock()
	h.regs.CLKCR.Assign(hal.ClkcrCLKEN, false)
	pkg.Delay(h.cfg.Clock, clockSettle)
	h.regs.SetPower(true)
	pkg.Delay(h.cfg.Clock, powerSettle)
	h.regs.CLKCR.Assign(hal.ClkcrCLKEN, true)
	pkg.Delay(h.cfg.Clock, cardSettle)

	if code := h.powerOn(); code != ErrNone {
		return h.fail("power on", code)
	}
	if code := h.initCardLowLevel(); code != ErrNone {
		return h.fail("identification", code)
	}
	return nil
}

// powerOn resets the card, determines its version and negotiates the
// operating voltage and capacity.
func (h *Handle) powerOn() ErrorCode {
	if code := h.goIdleState(); code != ErrNone {
		return code
	}

	if h.sendIfCond() == ErrNone {
		h.card.Version = CardV2x
		pkg.LogDebug(pkg.ComponentCard, "card version", "version", h.card.Version.String())
		resp, _, code := voltageTrial(h, CapacityHigh, h.cfg.MaxVoltageTrials)
		if code != ErrNone {
			return code
		}
		if resp&uint32(CapacityHigh) != 0 {
			h.card.Type = CardSDHCXC
		} else {
			h.card.Type = CardSDSC
		}
	} else {
		h.card.Version = CardV1x
		pkg.LogDebug(pkg.ComponentCard, "card version", "version", h.card.Version.String())
		if _, _, code := voltageTrial(h, CapacityStandard, h.cfg.MaxVoltageTrials); code != ErrNone {
			return code
		}
		h.card.Type = CardSDSC
	}
	pkg.LogDebug(pkg.ComponentCard, "card type", "type", h.card.Type.String())
	return ErrNone
}

// commander is the part of the command layer used by the voltage trial.
type commander interface {
	appCmd(rca uint32) ErrorCode
	sdSendOpCond(capacity CardCapacity) ErrorCode
	response1() uint32
}

// voltageTrial repeats ACMD41 until the card reports its power-up
// routine finished, at most max times. It returns the final OCR response
// and the number of attempts made.
func voltageTrial(c commander, capacity CardCapacity, max int) (uint32, int, ErrorCode) {
	for n := 1; n <= max; n++ {
		if c.appCmd(0) != ErrNone {
			return 0, n, ErrUnsupportedFeature
		}
		if c.sdSendOpCond(capacity) != ErrNone {
			return 0, n, ErrUnsupportedFeature
		}
		if resp := c.response1(); resp&ocrBusy != 0 {
			pkg.LogDebug(pkg.ComponentCard, "voltage trial done",
				"attempts", n, "ocr", pkg.Hex(resp))
			return resp, n, ErrNone
		}
	}
	return 0, max, ErrInvalidVoltRange
}

// initCardLowLevel identifies the card, decodes its registers and selects
// it, leaving it in transfer state.
func (h *Handle) initCardLowLevel() ErrorCode {
	if !h.regs.Powered() {
		return ErrRequestNotApplicable
	}

	if h.card.Type != CardSecured {
		if code := h.allSendCID(); code != ErrNone {
			return code
		}
		h.card.CID = h.regs.Responses()

		rca, code := h.sendRelativeAddr()
		if code != ErrNone {
			return code
		}
		h.card.RCA = rca

		if code := h.sendCSD(h.card.RCA); code != ErrNone {
			return code
		}
		h.card.CSD = h.regs.Responses()
	}

	h.card.Class = uint16(h.card.CSD[1] >> 20)
	if err := h.card.decodeCSD(); err != nil {
		pkg.LogWarn(pkg.ComponentCard, "csd not decoded", "error", err)
	}

	if code := h.selectDeselect(h.card.RCA); code != ErrNone {
		return code
	}
	h.defaultClock()
	return ErrNone
}

// DeInit switches off the card supply, runs Config.DeInitLowLevel and
// returns the handle to state Reset with the error code cleared.
func (h *Handle) DeInit() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.state = StateBusy
	h.powerOff()

	var err error
	if h.cfg.DeInitLowLevel != nil {
		if err = h.cfg.DeInitLowLevel(); err != nil {
			err = fmt.Errorf("sdmmc deinit: %w", err)
		}
	}

	h.err = ErrNone
	h.state = StateReset
	pkg.LogInfo(pkg.ComponentSDMMC, "deinitialized", "controller", h.regs.String())
	return err
}

func (h *Handle) powerOff() {
	h.regs.SetPower(false)
}
