package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestComponentLoggingJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "debug", "json")
	defer Configure(os.Stderr, "info", "text")

	InfoWithComponent(ComponentPalette, "Palette loaded", "entries", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Failed to decode log line %q: %v", buf.String(), err)
	}
	if record["component"] != ComponentPalette {
		t.Errorf("Expected component %q, got %v", ComponentPalette, record["component"])
	}
	if record["msg"] != "Palette loaded" {
		t.Errorf("Unexpected msg: %v", record["msg"])
	}
	if record["entries"] != float64(3) {
		t.Errorf("Expected entries=3, got %v", record["entries"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "warn", "text")
	defer Configure(os.Stderr, "info", "text")

	Info("hidden")
	Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Info message should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("Warn message missing from output: %q", out)
	}
}
