package xlog

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	SetZapLogger(NewZapLogger(buf))
	defer SetZapLogger(NewZapLogger(nopWriter{}))

	logger := NewLogger("test", INFO)
	logger.Println("Hello World!")
	logger.Debugln("DO NOT PRINT THIS")
	logger.Warningf("index %d", 7)

	txt := buf.String()
	if !strings.Contains(txt, "Hello World!") {
		t.Fatalf("unexpected log %q", txt)
	}
	if !strings.Contains(txt, "test") {
		t.Fatalf("expected pkg name in %q", txt)
	}
	if !strings.Contains(txt, "index 7") {
		t.Fatalf("unexpected log %q", txt)
	}
	if strings.Contains(txt, "DO NOT PRINT THIS") {
		t.Fatalf("unexpected log %q", txt)
	}
}

func TestSetGlobalMaxLogLevel(t *testing.T) {
	buf := new(bytes.Buffer)
	SetZapLogger(NewZapLogger(buf))
	defer SetZapLogger(NewZapLogger(nopWriter{}))

	logger := NewLogger("global", INFO)
	SetGlobalMaxLogLevel(ERROR)
	defer SetGlobalMaxLogLevel(INFO)

	logger.Info("hidden")
	logger.Error("shown")

	txt := buf.String()
	if strings.Contains(txt, "hidden") {
		t.Fatalf("unexpected log %q", txt)
	}
	if !strings.Contains(txt, "shown") {
		t.Fatalf("missing log %q", txt)
	}
}

func TestPanicf(t *testing.T) {
	SetZapLogger(NewZapLogger(nopWriter{}))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic")
		}
	}()
	NewLogger("panic", INFO).Panicf("broken %d", 1)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		s    string
		wlvl LogLevel
		werr bool
	}{
		{"debug", DEBUG, false},
		{"info", INFO, false},
		{"", INFO, false},
		{"warn", WARN, false},
		{"error", ERROR, false},
		{"critical", CRITICAL, false},
		{"loud", INFO, true},
	}
	for i, tt := range tests {
		lvl, err := ParseLogLevel(tt.s)
		if (err != nil) != tt.werr {
			t.Fatalf("#%d: err = %v, want error %v", i, err, tt.werr)
		}
		if lvl != tt.wlvl {
			t.Fatalf("#%d: level = %s, want %s", i, lvl, tt.wlvl)
		}
	}
}

type nopWriter struct{}

func (nopWriter) Write(b []byte) (int, error) { return len(b), nil }
