package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConsoleLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithConfig(LogConfig{Level: "warn", Console: true, Out: &buf})

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chartlab.log")
	logger := NewLoggerWithConfig(LogConfig{Level: "debug", File: true, FilePath: path, MaxSize: 1})

	LogRender(WithChart(logger, "trend"), "trend", "out.png", 800, 300)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{`"event":"render"`, `"view":"trend"`, `"width":800`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %s: %s", want, data)
		}
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := WithLogger(context.Background(), WithSymbol(logger, "AAPL"))
	ctxLogger := FromContext(ctx)
	ctxLogger.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"symbol":"AAPL"`) {
		t.Errorf("output = %q", buf.String())
	}

	// No logger attached: Nop, must not panic.
	nop := FromContext(context.Background())
	nop.Info().Msg("dropped")
}

func TestLogAPICall(t *testing.T) {
	var buf bytes.Buffer
	logger := WithOperation(zerolog.New(&buf), "fetch")

	LogAPICall(logger, "GET", "aggs/AAPL", 15*time.Millisecond, nil)
	LogAPICall(logger, "GET", "aggs/I:SPX", time.Millisecond, errors.New("boom"))
	LogCache(logger, "AAPL:history", true, time.Minute)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "API call completed") || !strings.Contains(lines[0], `"operation":"fetch"`) {
		t.Errorf("line 0 = %s", lines[0])
	}
	if !strings.Contains(lines[1], "API call failed") || !strings.Contains(lines[1], "boom") {
		t.Errorf("line 1 = %s", lines[1])
	}
	if !strings.Contains(lines[2], `"hit":true`) {
		t.Errorf("line 2 = %s", lines[2])
	}
}
