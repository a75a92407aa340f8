package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFormats(t *testing.T) {
	for _, format := range []string{"text", "json", "unknown"} {
		logger := New("info", format)
		if logger == nil {
			t.Fatalf("New(info, %s) returned nil", format)
		}
		logger.Info("probe")
	}
}

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		if New(level, "text") == nil {
			t.Errorf("New(%s, text) returned nil", level)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: ParseLevel("warn"),
	}))

	logger.Info("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("info record emitted at warn level")
	}

	logger.Warn("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("warn record missing at warn level")
	}
}
