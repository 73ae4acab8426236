package logger

import (
	"strings"
	"sync"
	"testing"
	"time"
)

type bufWriteCloser struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (w *bufWriteCloser) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}
func (w *bufWriteCloser) Close() error { return nil }
func (w *bufWriteCloser) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func newRunningBackend(t *testing.T, level Level) (*Backend, *bufWriteCloser) {
	t.Helper()
	b := NewBackendWithFlags(0)
	w := &bufWriteCloser{}
	if err := b.AddLogWriter(w, level); err != nil {
		t.Fatalf("AddLogWriter: %v", err)
	}
	if err := b.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	t.Cleanup(b.Close)
	return b, w
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never became true within %v", timeout)
}

func TestLoggerWriteRespectsItsOwnLevel(t *testing.T) {
	b, w := newRunningBackend(t, LevelTrace)
	log := b.Logger("TEST")
	log.SetLevel(LevelWarn)

	log.Debugf("should be dropped")
	log.Warnf("should appear")

	waitFor(t, time.Second, func() bool { return strings.Contains(w.String(), "should appear") })
	if strings.Contains(w.String(), "should be dropped") {
		t.Fatalf("a message below the logger's level reached the backend: %q", w.String())
	}
}

func TestBackendFiltersByWriterLevelNotJustLoggerLevel(t *testing.T) {
	b, w := newRunningBackend(t, LevelError)
	log := b.Logger("TEST")
	log.SetLevel(LevelTrace)

	log.Warnf("below the writer's threshold")
	log.Errorf("at the writer's threshold")

	waitFor(t, time.Second, func() bool { return strings.Contains(w.String(), "at the writer's threshold") })
	if strings.Contains(w.String(), "below the writer's threshold") {
		t.Fatalf("a message below the writer's level was written: %q", w.String())
	}
}

func TestAddLogWriterAfterRunIsRejected(t *testing.T) {
	b, _ := newRunningBackend(t, LevelInfo)
	if err := b.AddLogWriter(&bufWriteCloser{}, LevelInfo); err == nil {
		t.Fatalf("expected an error adding a writer to an already-running backend")
	}
}

func TestSetLevelsRelevelsEveryRegisteredLogger(t *testing.T) {
	prevLevel := defaultLevel
	prevRegistry := registry
	t.Cleanup(func() {
		registryMu.Lock()
		defaultLevel = prevLevel
		registry = prevRegistry
		registryMu.Unlock()
	})
	registryMu.Lock()
	registry = nil
	registryMu.Unlock()

	a, err := Get("AAAA")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, err := Get("BBBB")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a.Level() != LevelInfo || b.Level() != LevelInfo {
		t.Fatalf("new loggers should start at the process default level")
	}

	SetLevels(LevelCritical)
	if a.Level() != LevelCritical || b.Level() != LevelCritical {
		t.Fatalf("SetLevels did not relevel already-registered loggers: a=%v b=%v", a.Level(), b.Level())
	}

	c, err := Get("CCCC")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.Level() != LevelCritical {
		t.Fatalf("a logger registered after SetLevels should inherit the new default, got %v", c.Level())
	}
}

func TestLevelFromStringAcceptsLongAndShortForms(t *testing.T) {
	cases := map[string]Level{
		"trace": LevelTrace, "trc": LevelTrace,
		"debug": LevelDebug, "dbg": LevelDebug,
		"info": LevelInfo, "inf": LevelInfo,
		"warn": LevelWarn, "wrn": LevelWarn,
		"error": LevelError, "err": LevelError,
		"critical": LevelCritical, "crt": LevelCritical,
		"off": LevelOff,
	}
	for s, want := range cases {
		got, ok := LevelFromString(s)
		if !ok || got != want {
			t.Fatalf("LevelFromString(%q) = %v, %v; want %v, true", s, got, ok, want)
		}
	}
}

func TestLevelFromStringRejectsUnknownLevel(t *testing.T) {
	got, ok := LevelFromString("nonsense")
	if ok || got != LevelInfo {
		t.Fatalf("LevelFromString(garbage) = %v, %v; want LevelInfo, false", got, ok)
	}
}

func TestLevelStringClampsAboveOff(t *testing.T) {
	if got := Level(999).String(); got != "OFF" {
		t.Fatalf("String() for an out-of-range level = %q, want OFF", got)
	}
}
