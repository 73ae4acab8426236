package logger

import (
	"fmt"
	"sync"
	"time"
)

// Logger writes log messages for a single subsystem to a Backend's write
// channel. Safe for concurrent use.
type Logger struct {
	level     Level
	tag       string
	writeChan chan logEntry
}

// SetLevel sets the logger's verbosity level; messages below it are dropped
// without being handed to the backend.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

// Level returns the logger's current verbosity level.
func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) write(level Level, s string) {
	if level < l.level {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	line := fmt.Sprintf("%s [%s] %s: %s\n", ts, level, l.tag, s)
	select {
	case l.writeChan <- logEntry{level: level, log: []byte(line)}:
	default:
		// Backend is saturated; drop rather than block the node worker.
	}
}

// Tracef formats and writes a trace-level log message.
func (l *Logger) Tracef(format string, args ...interface{}) { l.write(LevelTrace, fmt.Sprintf(format, args...)) }

// Debugf formats and writes a debug-level log message.
func (l *Logger) Debugf(format string, args ...interface{}) { l.write(LevelDebug, fmt.Sprintf(format, args...)) }

// Infof formats and writes an info-level log message.
func (l *Logger) Infof(format string, args ...interface{}) { l.write(LevelInfo, fmt.Sprintf(format, args...)) }

// Warnf formats and writes a warn-level log message.
func (l *Logger) Warnf(format string, args ...interface{}) { l.write(LevelWarn, fmt.Sprintf(format, args...)) }

// Errorf formats and writes an error-level log message.
func (l *Logger) Errorf(format string, args ...interface{}) { l.write(LevelError, fmt.Sprintf(format, args...)) }

// Criticalf formats and writes a critical-level log message.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.write(LevelCritical, fmt.Sprintf(format, args...))
}

// SubsystemTags enumerates the short tags used by each subsystem's logger,
// following the same fixed-width convention as kaspad's subsystem table.
var SubsystemTags = struct {
	NWRK string // node worker
	TXPL string // tx pool manager
	WLDG string // wallet ledger
	BVAL string // block validator
	MINR string // miner supervisor
	FORK string // fork recoverer
	GSIP string // gossip
	STOR string // store
	WEVD string // weaved (main)
}{
	NWRK: "NWRK",
	TXPL: "TXPL",
	WLDG: "WLDG",
	BVAL: "BVAL",
	MINR: "MINR",
	FORK: "FORK",
	GSIP: "GSIP",
	STOR: "STOR",
	WEVD: "WEVD",
}

// Get returns a new Logger for the given subsystem tag, backed by a
// process-wide default Backend that writes to stderr. Repeated calls with
// the same tag return distinct Loggers that share the same level, kept in
// sync by SetLevels.
func Get(tag string) (*Logger, error) {
	l := defaultBackend.Logger(tag)
	registryMu.Lock()
	l.SetLevel(defaultLevel)
	registry = append(registry, l)
	registryMu.Unlock()
	return l, nil
}

// SetLevels applies level to every Logger returned by Get so far and every
// one returned after, the mechanism infrastructure/config uses to apply a
// single configured log level process-wide at startup.
func SetLevels(level Level) {
	registryMu.Lock()
	defer registryMu.Unlock()
	defaultLevel = level
	for _, l := range registry {
		l.SetLevel(level)
	}
}

var (
	defaultBackend = NewBackend()
	registryMu     sync.Mutex
	registry       []*Logger
	defaultLevel   = LevelInfo
)

func init() {
	_ = defaultBackend.AddLogWriter(stderrWriteCloser{}, LevelTrace)
	_ = defaultBackend.Run()
}

type stderrWriteCloser struct{}

func (stderrWriteCloser) Write(p []byte) (int, error) {
	return fmt.Print(string(p))
}

func (stderrWriteCloser) Close() error { return nil }
