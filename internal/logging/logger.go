// =============================================================================
// Report Consolidator - Logging
// =============================================================================
//
// Levelled logging shared by every package. Components depend on the Logger
// interface only; the command layer decides where the lines go.
//
// OUTPUT FORMAT:
//   2026/10/19 09:51:02 [INFO] stored 3 report(s) in budget_results
//
// =============================================================================

package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Logger is an interface for logging.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a config value into a Level. Unknown values fall back
// to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// =============================================================================
// STANDARD LOGGER
// =============================================================================

// StdLogger writes levelled lines through a log.Logger.
type StdLogger struct {
	out   *log.Logger
	level Level

	mu     sync.Mutex
	closer io.Closer
}

// New creates a logger writing to w at the given minimum level.
func New(w io.Writer, level Level) *StdLogger {
	return &StdLogger{
		out:   log.New(w, "", log.LstdFlags),
		level: level,
	}
}

// Open creates a logger writing to stderr and, when logFile is set, appending
// to that file as well. The caller must Close it.
func Open(logFile string, level Level) (*StdLogger, error) {
	if logFile == "" {
		return New(os.Stderr, level), nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := New(io.MultiWriter(os.Stderr, file), level)
	l.closer = file
	return l, nil
}

// Close releases the log file, if any.
func (l *StdLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

func (l *StdLogger) logf(level Level, msg string, args ...interface{}) {
	if level < l.level {
		return
	}
	l.out.Printf("["+level.String()+"] "+msg, args...)
}

func (l *StdLogger) Debug(msg string, args ...interface{}) { l.logf(LevelDebug, msg, args...) }
func (l *StdLogger) Info(msg string, args ...interface{})  { l.logf(LevelInfo, msg, args...) }
func (l *StdLogger) Warn(msg string, args ...interface{})  { l.logf(LevelWarn, msg, args...) }
func (l *StdLogger) Error(msg string, args ...interface{}) { l.logf(LevelError, msg, args...) }

// =============================================================================
// NOP LOGGER
// =============================================================================

type nopLogger struct{}

// Nop returns a logger that discards everything.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
