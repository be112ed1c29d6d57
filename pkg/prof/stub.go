//go:build !profile

package prof

import "errors"

// ErrCPUProfileActive is never returned without the "profile" tag.
var ErrCPUProfileActive = errors.New("cpu profile already active")

// Enabled reports whether profiling support is compiled in.
const Enabled = false

// Session does nothing without the "profile" tag.
type Session struct{}

// Start returns an inert session.
func Start(Config) (*Session, error) { return &Session{}, nil }

// Stop does nothing.
func (*Session) Stop() error { return nil }
