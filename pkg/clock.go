package pkg

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock is a monotonic millisecond tick source, such as a SysTick counter.
//
// Ticks wraps around at 2^32; deadline arithmetic uses unsigned
// subtraction so a wrap does not shorten or extend a wait.
type Clock interface {
	Ticks() uint32
}

// Expired reports whether timeout ticks have elapsed since start.
func Expired(c Clock, start, timeout uint32) bool {
	return c.Ticks()-start >= timeout
}

// Delay busy-waits until ms ticks have elapsed on c.
func Delay(c Clock, ms uint32) {
	start := c.Ticks()
	for !Expired(c, start, ms) {
	}
}

// SystemClock derives ticks from the host's monotonic clock.
type SystemClock struct {
	once  sync.Once
	epoch time.Time
}

// Ticks returns the milliseconds elapsed since the first call.
func (c *SystemClock) Ticks() uint32 {
	c.once.Do(func() { c.epoch = time.Now() })
	return uint32(time.Since(c.epoch).Milliseconds())
}

// StepClock advances by a fixed step every time it is read.
// It makes polling loops deterministic in simulation and tests: a loop
// with a 5000-tick deadline performs exactly 5000 polls.
type StepClock struct {
	now  atomic.Uint32
	Step uint32
}

// NewStepClock returns a StepClock that advances one tick per read.
func NewStepClock() *StepClock {
	return &StepClock{Step: 1}
}

// Ticks returns the current tick and advances the clock.
func (c *StepClock) Ticks() uint32 {
	return c.now.Add(c.Step) - c.Step
}

// Advance moves the clock forward by n ticks without a read.
func (c *StepClock) Advance(n uint32) {
	c.now.Add(n)
}
