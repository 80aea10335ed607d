package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(INFO)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel(INFO)
	})
	return &buf
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := capture(t)

	Debug("hidden")
	Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("DEBUG message logged at INFO level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("INFO message missing")
	}

	SetLevel(DEBUG)
	Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("DEBUG message missing after SetLevel(DEBUG)")
	}
}

func TestLogger_Formatting(t *testing.T) {
	buf := capture(t)

	Info("synced %d transactions", 42)
	if !strings.Contains(buf.String(), "synced 42 transactions") {
		t.Errorf("formatted message missing: %q", buf.String())
	}
}

func TestLogger_Fields(t *testing.T) {
	buf := capture(t)

	WithField("connection", "conn-1").Info("sync complete")
	out := buf.String()
	if !strings.Contains(out, "connection=conn-1") {
		t.Errorf("field missing from output: %q", out)
	}
}

func TestLogger_WithFieldsDoesNotMutateParent(t *testing.T) {
	buf := capture(t)

	child := WithField("a", 1)
	child.WithField("b", 2)

	Info("plain")
	if strings.Contains(buf.String(), "a=1") {
		t.Error("default logger picked up child fields")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"Warning": WARN,
		"error":   ERROR,
		"bogus":   INFO,
		"":        INFO,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
