package prof

import "testing"

func TestConfig_Empty(t *testing.T) {
	tests := []struct {
		cfg  Config
		want bool
	}{
		{Config{}, true},
		{Config{BlockRate: 1}, true},
		{Config{CPU: "cpu.prof"}, false},
		{Config{Heap: "heap.prof"}, false},
		{Config{Block: "block.prof"}, false},
	}
	for _, tt := range tests {
		if got := tt.cfg.Empty(); got != tt.want {
			t.Errorf("%+v.Empty() = %v, want %v", tt.cfg, got, tt.want)
		}
	}
}

func TestStart_Inert(t *testing.T) {
	if Enabled {
		t.Skip("profiling compiled in")
	}
	s, err := Start(Config{CPU: "/nonexistent/dir/cpu.prof"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
