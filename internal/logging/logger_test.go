package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{"DEBUG", LevelDebug, false},
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"WARN", LevelWarn, false},
		{"WARNING", LevelWarn, false},
		{"ERROR", LevelError, false},
		{" error ", LevelError, false},
		{"bogus", LevelInfo, true},
	}

	for _, tt := range tests {
		level, err := ParseLevel(tt.input)
		if tt.wantErr && err == nil {
			t.Errorf("ParseLevel(%q) expected error", tt.input)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("ParseLevel(%q) unexpected error: %v", tt.input, err)
		}
		if level != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, level, tt.expected)
		}
	}
}

func TestLevelString(t *testing.T) {
	if LevelDebug.String() != "DEBUG" {
		t.Error("expected DEBUG")
	}
	if LevelError.String() != "ERROR" {
		t.Error("expected ERROR")
	}
	if Level(99).String() != "UNKNOWN" {
		t.Error("expected UNKNOWN for out-of-range level")
	}
}

func TestLoggerFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("debug message should be filtered at WARN level")
	}
	if strings.Contains(output, "info message") {
		t.Error("info message should be filtered at WARN level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("warn message should appear")
	}
	if !strings.Contains(output, "error message") {
		t.Error("error message should appear")
	}
}

func TestLoggerScope(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo).WithScope("orchestrator")

	logger.Info("environment %s ready", "chromium")

	output := buf.String()
	if !strings.Contains(output, " INFO orchestrator: environment chromium ready") {
		t.Errorf("expected level and scope on the line, got: %s", output)
	}
}

func TestScopedLoggersShareSink(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, LevelError)
	scoped := base.WithScope("runner")

	scoped.Info("hidden")
	base.SetLevel(LevelInfo)
	scoped.Info("visible")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Error("scoped logger must honor the shared sink level")
	}
	if !strings.Contains(output, "runner: visible") {
		t.Error("level change on the base logger must apply to scoped views")
	}
}
