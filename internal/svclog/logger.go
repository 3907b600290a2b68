// Package svclog provides the service's key/value logger. It writes to
// stderr by default and can be redirected to a file, which keeps stdout
// clean for stdio transports (MCP).
package svclog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Levels in increasing severity.
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger writes timestamped key/value log lines above a severity threshold.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	file  *os.File
	level int
}

// Log is the process-wide logger. Commands may redirect or silence it at
// startup; components receive it implicitly.
var Log = &Logger{out: os.Stderr, level: LevelInfo}

// ParseLevel maps a LOG_LEVEL string to a threshold. Unknown values fall
// back to INFO.
func ParseLevel(s string) int {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevel sets the minimum severity that will be written.
func (l *Logger) SetLevel(level int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// UseFile redirects output to the named file, appending. An empty path
// discards all output (used when stderr must stay quiet too).
func (l *Logger) UseFile(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if path == "" {
		l.out = io.Discard
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	l.file = f
	l.out = f
	return nil
}

// Close closes the log file if output was redirected to one.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Writer returns the underlying writer for libraries that want one.
func (l *Logger) Writer() io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out
}

func (l *Logger) log(level int, label, msg string, keyvals ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level || l.out == nil {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	line := fmt.Sprintf("%s [%s] %s", timestamp, label, msg)
	for i := 0; i < len(keyvals)-1; i += 2 {
		line += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
	}
	fmt.Fprintln(l.out, line)
	if l.file != nil {
		l.file.Sync()
	}
}

// Debug logs a debug message with optional key-value pairs.
func (l *Logger) Debug(msg string, keyvals ...any) {
	l.log(LevelDebug, "DEBUG", msg, keyvals...)
}

// Info logs an info message with optional key-value pairs.
func (l *Logger) Info(msg string, keyvals ...any) {
	l.log(LevelInfo, "INFO", msg, keyvals...)
}

// Warn logs a warning message with optional key-value pairs.
func (l *Logger) Warn(msg string, keyvals ...any) {
	l.log(LevelWarn, "WARN", msg, keyvals...)
}

// Error logs an error message with optional key-value pairs.
func (l *Logger) Error(msg string, keyvals ...any) {
	l.log(LevelError, "ERROR", msg, keyvals...)
}

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...any) {
	l.log(LevelDebug, "DEBUG", fmt.Sprintf(format, args...))
}

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...any) {
	l.log(LevelInfo, "INFO", fmt.Sprintf(format, args...))
}

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(format string, args ...any) {
	l.log(LevelWarn, "WARN", fmt.Sprintf(format, args...))
}

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...any) {
	l.log(LevelError, "ERROR", fmt.Sprintf(format, args...))
}

// Timed logs the duration of an operation at debug level. Usage:
//
//	defer svclog.Log.Timed("ingest file")()
func (l *Logger) Timed(operation string) func() {
	start := time.Now()
	l.Debug(operation, "status", "started")
	return func() {
		l.Debug(operation, "status", "completed", "duration", time.Since(start))
	}
}
