package logging

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input  string
		want   LogLevel
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{"DEBUG", LevelDebug, true},
		{"info", LevelInfo, true},
		{"warn", LevelWarn, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{" error ", LevelError, true},
		{"", LevelInfo, false},
		{"verbose", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("DEBUG", "")
	t.Setenv("LOG_LEVEL", "error")
	if got := levelFromEnv(); got != LevelError {
		t.Errorf("levelFromEnv() = %v, want error", got)
	}

	t.Setenv("DEBUG", "true")
	if got := levelFromEnv(); got != LevelDebug {
		t.Errorf("DEBUG=true should force debug, got %v", got)
	}
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	flags := log.Flags()
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)
	original := GetLevel()
	defer SetLevel(original)

	SetLevel(LevelWarn)
	Debug("hidden debug")
	Info("hidden info")
	Warn("shown %s", "warn")
	Error("shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below WARN were logged: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown warn") {
		t.Errorf("missing warn line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown error") {
		t.Errorf("missing error line: %q", out)
	}
}

func TestComponentLogger(t *testing.T) {
	buf := captureOutput(t)
	original := GetLevel()
	defer SetLevel(original)
	SetLevel(LevelDebug)

	l := For("ffmpeg")
	l.Debug("probing %s", "a.mp4")

	if got := strings.TrimSpace(buf.String()); got != "[DEBUG] ffmpeg: probing a.mp4" {
		t.Errorf("unexpected line %q", got)
	}
	if !IsDebugEnabled() {
		t.Error("IsDebugEnabled() = false after SetLevel(LevelDebug)")
	}
}

func TestLogLevelString(t *testing.T) {
	if LevelWarn.String() != "warn" {
		t.Errorf("LevelWarn.String() = %q", LevelWarn.String())
	}
	if LogLevel(42).String() != "unknown(42)" {
		t.Errorf("LogLevel(42).String() = %q", LogLevel(42).String())
	}
}
