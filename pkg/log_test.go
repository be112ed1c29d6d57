package pkg

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetLogLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	tests := []struct {
		name  string
		level slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLogLevel(tt.level)
			if got := GetLogLevel(); got != tt.level {
				t.Errorf("GetLogLevel() = %v, want %v", got, tt.level)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, nil)
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}

	logger.Info("test message")
	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("log output missing message: %s", buf.String())
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, nil)
	if logger == nil {
		t.Fatal("NewJSONLogger returned nil")
	}

	logger.Info("test message")
	output := buf.String()
	if !strings.Contains(output, `"msg":"test message"`) {
		t.Errorf("JSON log output missing message: %s", output)
	}
}

func TestLogDebug(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	defer func() { DefaultLogger = original }()

	SetLogLevel(slog.LevelDebug)
	SetLogger(NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	LogDebug(ComponentDMA, "debug message", "key", "value")
	output := buf.String()
	if !strings.Contains(output, "debug message") {
		t.Errorf("debug log missing message: %s", output)
	}
	if !strings.Contains(output, "component=dma") {
		t.Errorf("debug log missing component: %s", output)
	}
}

func TestLogInfo(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	defer func() { DefaultLogger = original }()

	SetLogger(NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	LogInfo(ComponentSDMMC, "info message")
	output := buf.String()
	if !strings.Contains(output, "info message") {
		t.Errorf("info log missing message: %s", output)
	}
	if !strings.Contains(output, "component=sdmmc") {
		t.Errorf("info log missing component: %s", output)
	}
}

func TestLogWarn(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	defer func() { DefaultLogger = original }()

	SetLogger(NewLogger(&buf, nil))

	LogWarn(ComponentStream, "warn message")
	output := buf.String()
	if !strings.Contains(output, "warn message") {
		t.Errorf("warn log missing message: %s", output)
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	defer func() { DefaultLogger = original }()

	SetLogger(NewLogger(&buf, nil))

	LogError(ComponentHAL, "error message")
	output := buf.String()
	if !strings.Contains(output, "error message") {
		t.Errorf("error log missing message: %s", output)
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	defer func() { DefaultLogger = original }()

	customLogger := NewJSONLogger(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	SetLogger(customLogger)

	LogInfo(ComponentCard, "custom logger test", "rca", 0xAAAA0000)
	if !strings.Contains(buf.String(), "custom logger test") {
		t.Error("custom logger not used")
	}
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	defer func() { DefaultLogger = original }()

	SetLogger(NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	Logger(ComponentSim).Debug("beat", "stream", 3)
	output := buf.String()
	if !strings.Contains(output, "component=sim") || !strings.Contains(output, "stream=3") {
		t.Errorf("component logger output = %s", output)
	}
}

func TestSetComponentLevel(t *testing.T) {
	original := DefaultLogger
	level := GetLogLevel()
	defer func() {
		DefaultLogger = original
		SetLogLevel(level)
		ResetComponentLevels()
	}()

	var buf bytes.Buffer
	DefaultLogger = NewLogger(&buf, nil)
	SetLogLevel(slog.LevelDebug)
	SetComponentLevel(ComponentSim, slog.LevelWarn)

	LogDebug(ComponentSim, "beat")
	LogInfo(ComponentSim, "stream enabled")
	LogDebug(ComponentDMA, "bound")
	LogWarn(ComponentSim, "stream fault")

	out := buf.String()
	for _, msg := range []string{"beat", "stream enabled"} {
		if strings.Contains(out, msg) {
			t.Errorf("%q logged below the component level:\n%s", msg, out)
		}
	}
	for _, msg := range []string{"bound", "stream fault"} {
		if !strings.Contains(out, msg) {
			t.Errorf("%q missing:\n%s", msg, out)
		}
	}

	buf.Reset()
	ResetComponentLevels()
	LogDebug(ComponentSim, "beat")
	if !strings.Contains(buf.String(), "beat") {
		t.Error("component level still applied after reset")
	}
}

func TestHex(t *testing.T) {
	original := DefaultLogger
	defer func() { DefaultLogger = original }()

	var buf bytes.Buffer
	DefaultLogger = NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	LogWarn(ComponentHAL, "register", "addr", Hex(0x40026410))

	if !strings.Contains(buf.String(), "addr=0x40026410") {
		t.Errorf("output = %q", buf.String())
	}
	if got := Hex(0x1AA).String(); got != "0x000001AA" {
		t.Errorf("String() = %q", got)
	}
}
