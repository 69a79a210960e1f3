package logging

import (
	"log/slog"
	"testing"

	"github.com/goveedeck/core/internal/infrastructure/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewDoesNotPanic(t *testing.T) {
	formats := []string{"json", "text", ""}
	outputs := []string{"stdout", "stderr", ""}

	for _, f := range formats {
		for _, o := range outputs {
			log := New(config.LoggingConfig{Level: "debug", Format: f, Output: o}, "test")
			if log == nil {
				t.Fatalf("New(format=%q, output=%q) returned nil", f, o)
			}
		}
	}
}

func TestWithReturnsNewLogger(t *testing.T) {
	base := Default()
	child := base.With("component", "test")

	if child == base {
		t.Error("With() should return a new Logger")
	}
	if child.Logger == nil {
		t.Error("With() returned Logger with nil slog.Logger")
	}
}
