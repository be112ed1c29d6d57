// Package pkg provides shared utilities for the softsd drivers.
//
// This package contains functionality used by both the DMA and the SDMMC
// drivers, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors and the coarse [Status] outcome
//   - The millisecond tick [Clock] used for polling deadlines
//   - The [ClockGate] peripheral clock enable interface
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component attribute:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentSDMMC, "card selected", "rca", rca)
//
// # Deadlines
//
// Bare-metal code has no scheduler, so every wait is a busy-poll. Polls
// are bounded by tick deadlines rather than iteration counts so that a
// timeout means the same thing at every core clock speed:
//
//	start := clock.Ticks()
//	for !pkg.Expired(clock, start, 5000) {
//	    // poll status
//	}
package pkg
