// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"strings"
	"testing"
)

func captureOutput(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevLevel := Writer(), GetLevel()
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(prevOut)
		SetLevel(prevLevel)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"fatal", LevelFatal, true},
		{"verbose", LevelInfo, false},
		{"", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = %s, %v; want %s, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t, LevelWarn)

	Debugf("Analyzer: %d", 1)
	Infof("Analyzer: %d", 2)
	Warnf("Analyzer: %d", 3)
	Error("Analyzer: ", 4)

	out := buf.String()
	if strings.Contains(out, "Analyzer: 1") || strings.Contains(out, "Analyzer: 2") {
		t.Errorf("messages below WARN were written:\n%s", out)
	}
	if !strings.Contains(out, "[WARN]  Analyzer: 3") {
		t.Errorf("missing padded WARN line:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR] Analyzer: 4") {
		t.Errorf("missing ERROR line:\n%s", out)
	}
}

func TestFatalExits(t *testing.T) {
	buf := captureOutput(t, LevelError)
	code := -1
	prevExit := exit
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = prevExit })

	Fatalf("Capture: %s", "device lost")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(buf.String(), "[FATAL] Capture: device lost") {
		t.Errorf("missing FATAL line:\n%s", buf.String())
	}
}

func TestEnabled(t *testing.T) {
	captureOutput(t, LevelInfo)
	if Enabled(LevelDebug) {
		t.Error("debug should be disabled at INFO")
	}
	if !Enabled(LevelError) {
		t.Error("error should be enabled at INFO")
	}
}
