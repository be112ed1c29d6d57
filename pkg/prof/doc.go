// Package prof captures pprof profiles of simulator runs.
//
// Profiling is compiled in only with the "profile" build tag:
//
//	go run -tags profile ./examples/sim-board/sdparty -cpuprofile cpu.prof
//
// Without the tag, [Start] returns a [Session] whose methods do nothing,
// so callers keep their profiling hooks unconditionally.
//
// A session streams CPU samples for its whole lifetime and, when a heap
// path is configured, writes a heap snapshot on [Session.Stop]:
//
//	s, err := prof.Start(prof.Config{CPU: "cpu.prof", Heap: "heap.prof"})
//	if err != nil {
//	    return err
//	}
//	defer s.Stop()
//
// Only one session may profile the CPU at a time; a second [Start] with
// a CPU path returns [ErrCPUProfileActive].
package prof
