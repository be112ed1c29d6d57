package dma

import (
	"context"
	"fmt"
	"sync"

	"github.com/ardnew/softsd/dma/hal"
	"github.com/ardnew/softsd/pkg"
)

// Manager owns a DMA controller's register block and arbitrates stream
// ownership among the controllers bound to it.
//
// At most one live Controller is bound to each stream. Bind fails with
// ErrStreamInUse until the holder calls Release.
type Manager struct {
	regs   *hal.Controller
	gate   pkg.ClockGate
	periph pkg.Peripheral

	mu    sync.Mutex
	bound [hal.NumStreams]bool
	refs  int
}

// NewManager returns a manager for the controller registers regs, whose
// bus clock is periph on gate. A nil gate means the clock is always on.
func NewManager(regs *hal.Controller, gate pkg.ClockGate, periph pkg.Peripheral) *Manager {
	return &Manager{regs: regs, gate: gate, periph: periph}
}

// Init enables the controller clock, waits until the enable takes effect
// and resets every register.
func (m *Manager) Init() error {
	if m.gate != nil {
		if err := pkg.EnableClock(m.gate, m.periph); err != nil {
			pkg.LogError(pkg.ComponentDMA, "clock enable failed",
				"peripheral", string(m.periph), "error", err)
			return fmt.Errorf("dma init: %w", err)
		}
	}
	m.regs.Reset()
	pkg.LogInfo(pkg.ComponentDMA, "controller initialized",
		"base", pkg.Hex(m.regs.Base()))
	return nil
}

// Registers returns the controller register block.
func (m *Manager) Registers() *hal.Controller { return m.regs }

// Bind returns a Controller for t, claiming t.Stream. The transfer is not
// validated until Prepare.
func (m *Manager) Bind(t Transfer) (*Controller, error) {
	regs, err := m.regs.Stream(int(t.Stream))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bound[t.Stream] {
		pkg.LogDebug(pkg.ComponentDMA, "stream busy", "stream", t.Stream.String())
		return nil, fmt.Errorf("bind %v: %w", t.Stream, ErrStreamInUse)
	}
	m.bound[t.Stream] = true
	m.refs++

	pkg.LogDebug(pkg.ComponentDMA, "stream bound",
		"stream", t.Stream.String(), "refs", m.refs)
	return &Controller{mgr: m, xfer: t, regs: regs}, nil
}

func (m *Manager) release(s Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.bound[s] {
		return
	}
	m.bound[s] = false
	m.refs--
	pkg.LogDebug(pkg.ComponentDMA, "stream released",
		"stream", s.String(), "refs", m.refs)
}

// Refs returns the number of live controllers.
func (m *Manager) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

// Bound reports whether a live controller holds stream s.
func (m *Manager) Bound(s Stream) bool {
	if s > Stream7 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bound[s]
}

// WaitAll polls every controller in one loop until none is active.
// Errors are reported the same way as [Controller.Wait].
func WaitAll(ctx context.Context, ctrls ...*Controller) error {
	for {
		active := 0
		for _, c := range ctrls {
			if c.IsActive() {
				active++
			}
		}
		if active == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			pkg.LogWarn(pkg.ComponentDMA, "wait interrupted", "active", active)
			return waitError(ctx, ctrls[0].Stream())
		}
	}
}
