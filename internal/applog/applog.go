// Package applog is the leveled printf logger used by the CLI and the
// storage layer's diagnostics. It stays quiet below Warn unless asked,
// so library callers never see chatter on stderr.
package applog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// LevelFromString maps a config string to a Level. Unknown or empty
// strings fall back to Warn.
func LevelFromString(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelWarn
	}
}

// Logger writes prefixed printf messages at or above its minimum level.
type Logger struct {
	mu       sync.RWMutex
	minLevel Level
	output   io.Writer
}

func New(minLevel Level, output io.Writer) *Logger {
	return &Logger{minLevel: minLevel, output: output}
}

// SetLevel changes the minimum level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// SetOutput changes the output writer.
func (l *Logger) SetOutput(output io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = output
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, "DEBUG", format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, "INFO", format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, "WARN", format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, "ERROR", format, args...)
}

func (l *Logger) log(level Level, prefix string, format string, args ...interface{}) {
	l.mu.RLock()
	minLevel := l.minLevel
	output := l.output
	l.mu.RUnlock()

	if level < minLevel {
		return
	}
	fmt.Fprintf(output, "%s: %s\n", prefix, fmt.Sprintf(format, args...))
}

// defaultLogger backs the package-level functions.
var defaultLogger = New(LevelWarn, os.Stderr)

// Default returns the shared logger the package-level functions write to.
func Default() *Logger {
	return defaultLogger
}

// Init sets the shared logger's level from a config string.
func Init(level string) {
	defaultLogger.SetLevel(LevelFromString(level))
}

func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}
