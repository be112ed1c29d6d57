package hal

import "github.com/ardnew/softsd/pkg/mmio"

// Stream is the register set of one DMA stream. Registers of distinct
// streams are disjoint; the interrupt status and clear registers are
// shared, but each stream only reads or writes its own bits.
type Stream struct {
	id   int
	ctrl *Controller

	CR   *mmio.Register
	NDTR *mmio.Register
	PAR  *mmio.Register
	M0AR *mmio.Register
	M1AR *mmio.Register
	FCR  *mmio.Register
}

// ID returns the stream number.
func (s *Stream) ID() int { return s.id }

// Enabled reports whether the stream enable bit is set.
func (s *Stream) Enabled() bool {
	return s.CR.IsSet(CrEN)
}

// SetEnabled sets or clears the stream enable bit.
func (s *Stream) SetEnabled(on bool) {
	s.CR.Assign(CrEN, on)
}

// Raised reports whether status flag f is raised for this stream.
func (s *Stream) Raised(f Flag) bool {
	return s.ctrl.status(s.id).IsSet(FlagBit(s.id, f))
}

// Status returns the stream's raised flags as a bit set indexed by Flag.
func (s *Stream) Status() uint8 {
	v := s.ctrl.status(s.id).Read()
	var out uint8
	for _, f := range AllFlags {
		if FlagBit(s.id, f).In(v) {
			out |= 1 << f
		}
	}
	return out
}

// Clear clears status flag f. The clear registers are write-one-to-clear,
// so writing only this stream's bit leaves other streams untouched.
func (s *Stream) Clear(f Flag) {
	s.ctrl.clear(s.id).Write(uint32(FlagBit(s.id, f)))
}

// ClearAll clears every status flag of the stream.
func (s *Stream) ClearAll() {
	var v uint32
	for _, f := range AllFlags {
		v |= uint32(FlagBit(s.id, f))
	}
	s.ctrl.clear(s.id).Write(v)
}
