package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"Debug", "debug", LevelDebug, false},
		{"Info", "info", LevelInfo, false},
		{"Warn", "warn", LevelWarn, false},
		{"Warning alias", "warning", LevelWarn, false},
		{"Error", "error", LevelError, false},
		{"Case insensitive", "DEBUG", LevelDebug, false},
		{"Empty defaults to info", "", LevelInfo, false},
		{"Unknown", "verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		debug    string
		level    string
		expected LogLevel
	}{
		{"DEBUG wins", "true", "error", LevelDebug},
		{"DEBUG off falls through", "false", "warn", LevelWarn},
		{"LOG_LEVEL only", "", "error", LevelError},
		{"Garbage level", "", "loud", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DEBUG", tt.debug)
			t.Setenv("LOG_LEVEL", tt.level)
			if got := levelFromEnv(); got != tt.expected {
				t.Errorf("levelFromEnv() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	// Verify log level ordering
	if LevelDebug >= LevelInfo {
		t.Error("LevelDebug should be less than LevelInfo")
	}
	if LevelInfo >= LevelWarn {
		t.Error("LevelInfo should be less than LevelWarn")
	}
	if LevelWarn >= LevelError {
		t.Error("LevelWarn should be less than LevelError")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	original := GetLevel()
	defer SetLevel(original)

	SetLevel(LevelWarn)
	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)
	Printf("always %d", 5)

	out := buf.String()
	for _, hidden := range []string{"debug 1", "info 2"} {
		if strings.Contains(out, hidden) {
			t.Errorf("output should not contain %q:\n%s", hidden, out)
		}
	}
	for _, shown := range []string{"warn 3", "error 4", "always 5"} {
		if !strings.Contains(out, shown) {
			t.Errorf("output should contain %q:\n%s", shown, out)
		}
	}

	if IsDebugEnabled() {
		t.Error("IsDebugEnabled() should be false at warn level")
	}
	SetLevel(LevelDebug)
	if !IsDebugEnabled() {
		t.Error("IsDebugEnabled() should be true at debug level")
	}
}
