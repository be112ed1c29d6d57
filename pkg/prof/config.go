package prof

// Config selects the profiles a session captures. Empty paths are
// skipped.
type Config struct {
	CPU   string // CPU profile, streamed while the session runs
	Heap  string // heap snapshot written on Stop
	Block string // blocking profile written on Stop

	// BlockRate is passed to runtime.SetBlockProfileRate for the
	// session's lifetime. Zero leaves block profiling off.
	BlockRate int
}

// Empty reports whether cfg selects no profile at all.
func (cfg Config) Empty() bool {
	return cfg.CPU == "" && cfg.Heap == "" && cfg.Block == ""
}
