package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	levelMu      sync.RWMutex
	currentLevel LogLevel
	levelLoaded  bool
)

// ParseLevel converts a level name into a LogLevel. Unknown names map to
// LevelInfo and ok is false.
func ParseLevel(name string) (level LogLevel, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, name != ""
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return LevelInfo, false
}

// levelFromEnv reads DEBUG (takes precedence) and LOG_LEVEL.
func levelFromEnv() LogLevel {
	switch strings.ToLower(os.Getenv("DEBUG")) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}
	level, _ := ParseLevel(os.Getenv("LOG_LEVEL"))
	return level
}

// GetLevel returns the current log level, loading it from the environment
// on first use.
func GetLevel() LogLevel {
	levelMu.RLock()
	if levelLoaded {
		l := currentLevel
		levelMu.RUnlock()
		return l
	}
	levelMu.RUnlock()

	levelMu.Lock()
	defer levelMu.Unlock()
	if !levelLoaded {
		currentLevel = levelFromEnv()
		levelLoaded = true
	}
	return currentLevel
}

// SetLevel overrides the level derived from the environment.
func SetLevel(level LogLevel) {
	levelMu.Lock()
	currentLevel = level
	levelLoaded = true
	levelMu.Unlock()
}

// SetOutput redirects all log output.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func logAt(level LogLevel, tag, format string, args ...interface{}) {
	if GetLevel() <= level {
		log.Printf("["+tag+"] "+format, args...)
	}
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) { logAt(LevelDebug, "DEBUG", format, args...) }

// Info logs an info message
func Info(format string, args ...interface{}) { logAt(LevelInfo, "INFO", format, args...) }

// Warn logs a warning message
func Warn(format string, args ...interface{}) { logAt(LevelWarn, "WARN", format, args...) }

// Error logs an error message
func Error(format string, args ...interface{}) { logAt(LevelError, "ERROR", format, args...) }

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

// Printf always prints, regardless of level.
func Printf(format string, args ...interface{}) {
	log.Printf(format, args...)
}

// Logger prefixes every message with a component name, e.g. "[INFO] ffmpeg: ...".
type Logger struct {
	component string
}

// For returns a Logger for the named component.
func For(component string) Logger {
	return Logger{component: component}
}

func (l Logger) Debug(format string, args ...interface{}) {
	logAt(LevelDebug, "DEBUG", l.component+": "+format, args...)
}

func (l Logger) Info(format string, args ...interface{}) {
	logAt(LevelInfo, "INFO", l.component+": "+format, args...)
}

func (l Logger) Warn(format string, args ...interface{}) {
	logAt(LevelWarn, "WARN", l.component+": "+format, args...)
}

func (l Logger) Error(format string, args ...interface{}) {
	logAt(LevelError, "ERROR", l.component+": "+format, args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
