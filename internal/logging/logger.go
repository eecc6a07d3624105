// Package logging provides the harness's leveled diagnostic log and the
// append-only run journal. One sink guards each output stream; loggers are
// cheap scoped views onto a sink, so packages tag their lines without
// coordinating.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

// sink serializes writes to one output stream. All loggers sharing a sink
// share its level.
type sink struct {
	mu    sync.Mutex
	level Level
	out   io.Writer
}

func (s *sink) write(level Level, scope, format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if level < s.level {
		return
	}

	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	msg := fmt.Sprintf(format, args...)
	if scope != "" {
		fmt.Fprintf(s.out, "%s %s %s: %s\n", ts, level, scope, msg)
	} else {
		fmt.Fprintf(s.out, "%s %s %s\n", ts, level, msg)
	}
}

// Logger is a scoped view onto a sink.
type Logger struct {
	s     *sink
	scope string
}

func New(w io.Writer, level Level) *Logger {
	return &Logger{s: &sink{level: level, out: w}}
}

// WithScope returns a logger that tags every line with the given scope. The
// returned logger shares the receiver's sink and level.
func (l *Logger) WithScope(scope string) *Logger {
	return &Logger{s: l.s, scope: scope}
}

func (l *Logger) SetLevel(level Level) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.level = level
}

func (l *Logger) SetOutput(w io.Writer) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.out = w
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.s.write(LevelDebug, l.scope, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.s.write(LevelInfo, l.scope, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.s.write(LevelWarn, l.scope, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.s.write(LevelError, l.scope, format, args...)
}

var root = New(os.Stderr, LevelInfo)

func Debug(format string, args ...interface{}) {
	root.Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	root.Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	root.Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	root.Error(format, args...)
}

func SetLevel(level Level) {
	root.SetLevel(level)
}

func SetOutput(w io.Writer) {
	root.SetOutput(w)
}

// WithScope returns a scoped view onto the process-wide sink.
func WithScope(scope string) *Logger {
	return root.WithScope(scope)
}

// InitFromEnv applies the log level from the environment. MODELHARNESS_DEBUG
// wins over MODELHARNESS_LOG_LEVEL.
func InitFromEnv() {
	if s := os.Getenv("MODELHARNESS_LOG_LEVEL"); s != "" {
		if level, err := ParseLevel(s); err == nil {
			root.SetLevel(level)
		}
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("MODELHARNESS_DEBUG"))) {
	case "1", "true", "yes", "on":
		root.SetLevel(LevelDebug)
	}
}
