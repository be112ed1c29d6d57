//go:build profile

package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"

	"github.com/ardnew/softsd/pkg"
)

// ErrCPUProfileActive indicates another session is profiling the CPU.
var ErrCPUProfileActive = errors.New("cpu profile already active")

var (
	cpuMu     sync.Mutex
	cpuActive bool
)

// Enabled reports whether profiling support is compiled in.
const Enabled = true

// Session is an active profiling run.
type Session struct {
	cfg     Config
	cpu     *os.File
	stopped bool
}

// Start begins profiling as configured.
func Start(cfg Config) (*Session, error) {
	s := &Session{cfg: cfg}
	if cfg.BlockRate > 0 {
		runtime.SetBlockProfileRate(cfg.BlockRate)
	}
	if cfg.CPU == "" {
		return s, nil
	}

	cpuMu.Lock()
	defer cpuMu.Unlock()
	if cpuActive {
		return nil, ErrCPUProfileActive
	}
	f, err := os.Create(cfg.CPU)
	if err != nil {
		return nil, fmt.Errorf("cpu profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("cpu profile: %w", err)
	}
	cpuActive = true
	s.cpu = f
	pkg.LogDebug(pkg.ComponentSim, "cpu profile started", "path", cfg.CPU)
	return s, nil
}

// Stop ends the CPU profile and writes the heap and block snapshots.
// Calling Stop more than once is a no-op.
func (s *Session) Stop() error {
	if s == nil || s.stopped {
		return nil
	}
	s.stopped = true

	var errs []error
	if s.cpu != nil {
		cpuMu.Lock()
		pprof.StopCPUProfile()
		cpuActive = false
		cpuMu.Unlock()
		errs = append(errs, s.cpu.Close())
	}
	if s.cfg.Heap != "" {
		runtime.GC()
		errs = append(errs, snapshot("heap", s.cfg.Heap))
	}
	if s.cfg.Block != "" {
		errs = append(errs, snapshot("block", s.cfg.Block))
	}
	if s.cfg.BlockRate > 0 {
		runtime.SetBlockProfileRate(0)
	}
	return errors.Join(errs...)
}

func snapshot(name, path string) error {
	p := pprof.Lookup(name)
	if p == nil {
		return fmt.Errorf("%s profile: not found", name)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s profile: %w", name, err)
	}
	defer f.Close()
	if err := p.WriteTo(f, 0); err != nil {
		return fmt.Errorf("%s profile: %w", name, err)
	}
	pkg.LogDebug(pkg.ComponentSim, "profile written", "profile", name, "path", path)
	return nil
}
