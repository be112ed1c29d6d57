package pkg

import "fmt"

// Peripheral names a bus-clocked peripheral gated by the reset and clock
// controller.
type Peripheral string

// Peripherals used by the drivers.
const (
	PeripheralDMA2   Peripheral = "dma2"
	PeripheralSDMMC1 Peripheral = "sdmmc1"
	PeripheralGPIOC  Peripheral = "gpioc"
	PeripheralGPIOD  Peripheral = "gpiod"
)

// ClockGate enables peripheral bus clocks.
//
// Register writes to a peripheral whose clock is still gated are
// silently dropped by the hardware, so callers must observe the enable
// before configuring anything (see [EnableClock]).
type ClockGate interface {
	Enable(p Peripheral)
	Enabled(p Peripheral) bool
}

// maxGateSpins bounds the wait for a clock enable to be observed.
const maxGateSpins = 1 << 16

// EnableClock enables p and busy-waits until the gate reports it enabled.
func EnableClock(g ClockGate, p Peripheral) error {
	g.Enable(p)
	for range maxGateSpins {
		if g.Enabled(p) {
			LogDebug(ComponentHAL, "peripheral clock enabled", "peripheral", string(p))
			return nil
		}
	}
	return fmt.Errorf("enable %s clock: %w", p, ErrTimeout)
}

// GateSet is a ClockGate backed by a set, for simulation.
type GateSet map[Peripheral]bool

// Enable implements ClockGate.
func (g GateSet) Enable(p Peripheral) { g[p] = true }

// Enabled implements ClockGate.
func (g GateSet) Enabled(p Peripheral) bool { return g[p] }
