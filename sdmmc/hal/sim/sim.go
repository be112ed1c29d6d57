package sim

import (
	"fmt"
	"sync"

	"github.com/ardnew/softsd/pkg"
	"github.com/ardnew/softsd/pkg/mmio"
	"github.com/ardnew/softsd/sdmmc/hal"
)

// SDMMC simulates an SDMMC host controller with one card attached. It
// implements [mmio.Memory] for the controller's register block.
//
// Writing CMD with CPSMEN set sends the command to the card model. The
// outcome is posted to STA (CMDSENT, CMDREND, CCRCFAIL or CTIMEOUT) with
// the response in RESPCMD and RESP1-RESP4, after Latency reads of STA.
// Commands go unanswered while the card supply or the card clock is off.
type SDMMC struct {
	mu   sync.Mutex
	base uint32
	regs [hal.BlockSize / 4]uint32
	card *card

	pending bool
	post    func()
	delay   int

	// Latency is the number of STA reads before a command outcome is
	// posted.
	Latency int

	// History records every command sent, as its index (ORed with App for
	// application commands).
	History []int
}

// New returns a simulated controller at base with the card cfg inserted.
func New(base uint32, cfg CardConfig) *SDMMC {
	return &SDMMC{base: base, card: newCard(cfg)}
}

// Base returns the controller base address.
func (s *SDMMC) Base() uint32 { return s.base }

// CardPresent reports whether a card is inserted, as a card-detect switch
// would.
func (s *SDMMC) CardPresent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.card.cfg.Absent
}

// BusWidth returns the data bus width the card was switched to by ACMD6.
func (s *SDMMC) BusWidth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.card.width
}

// CardState returns the card's current state name.
func (s *SDMMC) CardState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.card.state.String()
}

// SetFault injects f into every later occurrence of command key.
func (s *SDMMC) SetFault(key int, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.card.cfg.Faults == nil {
		s.card.cfg.Faults = make(map[int]Fault)
	}
	s.card.cfg.Faults[key] = f
}

func (s *SDMMC) index(addr uint32) (uint32, bool) {
	if addr < s.base || addr-s.base >= hal.BlockSize {
		return 0, false
	}
	return (addr - s.base) / 4, true
}

// Load32 implements mmio.Memory.
func (s *SDMMC) Load32(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.index(addr)
	if !ok {
		return 0
	}
	switch idx * 4 {
	case hal.OffsetSTA:
		s.tickLocked()
	case hal.OffsetICR, hal.OffsetFIFO:
		return 0
	}
	return s.regs[idx]
}

// Store32 implements mmio.Memory.
func (s *SDMMC) Store32(addr uint32, v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.index(addr)
	if !ok {
		return
	}
	switch idx * 4 {
	case hal.OffsetSTA, hal.OffsetRESPCMD, hal.OffsetFIFOCNT,
		hal.OffsetRESP1, hal.OffsetRESP1 + 4, hal.OffsetRESP1 + 8, hal.OffsetRESP1 + 12:
		return // read-only
	case hal.OffsetICR:
		s.regs[hal.OffsetSTA/4] &^= v & hal.StaticFlags
		return
	case hal.OffsetFIFO:
		return
	case hal.OffsetPOWER:
		s.regs[idx] = v
		if hal.PowerPWRCTRL.Get(v) == hal.PowerOff {
			s.card.reset()
		}
		return
	}
	s.regs[idx] = v
	if idx*4 == hal.OffsetCMD && hal.CmdCPSMEN.In(v) {
		s.sendLocked(v)
	}
}

func (s *SDMMC) tickLocked() {
	if !s.pending {
		return
	}
	if s.delay > 0 {
		s.delay--
		return
	}
	s.pending = false
	s.post()
}

func (s *SDMMC) raiseLocked(f mmio.Flag) {
	s.regs[hal.OffsetSTA/4] |= uint32(f)
}

func (s *SDMMC) sendLocked(cmd uint32) {
	idx := hal.CmdCMDINDEX.Get(cmd)
	wait := hal.CmdWAITRESP.Get(cmd)
	arg := s.regs[hal.OffsetARG/4]

	key := int(idx)
	if s.card.app {
		key |= App
	}
	s.History = append(s.History, key)

	clkcr := s.regs[hal.OffsetCLKCR/4]
	powered := hal.PowerPWRCTRL.Get(s.regs[hal.OffsetPOWER/4]) == hal.PowerOn &&
		hal.ClkcrCLKEN.In(clkcr)

	var (
		resp     response
		answered bool
	)
	if powered {
		resp, answered = s.card.execute(idx, arg)
	}
	fault := s.card.cfg.Faults[key]
	pkg.LogDebug(pkg.ComponentSim, "card command",
		"cmd", cmdName(key), "arg", pkg.Hex(arg),
		"answered", answered, "state", s.card.state.String(), "fault", fault.String())

	var post func()
	switch {
	case !powered || fault == FaultSilent:
		// Nothing reaches the card; the host raises nothing for a
		// command without response either.
		if wait != hal.WaitRespNo && !powered {
			post = func() { s.raiseLocked(hal.StaCTIMEOUT) }
		}
	case wait == hal.WaitRespNo:
		if fault != FaultTimeout {
			post = func() { s.raiseLocked(hal.StaCMDSENT) }
		}
	case !answered || fault == FaultTimeout || resp.kind == respNone:
		post = func() { s.raiseLocked(hal.StaCTIMEOUT) }
	default:
		post = func() { s.respondLocked(idx, resp, fault) }
	}
	if post == nil {
		return
	}
	s.pending, s.post, s.delay = true, post, s.Latency
}

func (s *SDMMC) respondLocked(idx uint32, r response, fault Fault) {
	echo := r.index
	if fault == FaultIndex {
		echo = (idx + 1) & 0x3F
	}
	s.regs[hal.OffsetRESPCMD/4] = echo
	for i, w := range r.words {
		s.regs[hal.OffsetRESP1/4+uint32(i)] = w
	}
	if r.kind == respOCR || fault == FaultCRC {
		// R3 carries no CRC; the host always flags it.
		s.raiseLocked(hal.StaCCRCFAIL)
		return
	}
	s.raiseLocked(hal.StaCMDREND)
}

func cmdName(key int) string {
	if key&App != 0 {
		return fmt.Sprintf("ACMD%d", key&^App)
	}
	return fmt.Sprintf("CMD%d", key)
}
