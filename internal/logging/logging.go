// Package logging provides leveled diagnostic logging for the engine.
// It deliberately stays a thin stderr writer rather than a structured
// logging framework: load-time diagnostics, batcher telemetry, and worker
// lifecycle events are the only consumers, and none of them need more.
package logging

import (
	"fmt"
	"os"
)

// Log levels, ordered from most to least severe.
const (
	Error = iota
	Warn
	Info
	Debug
)

// Level is the global threshold; messages above it are dropped.
var Level = Error

func levelToString(level int) string {
	switch level {
	case Error:
		return "ERROR"
	case Warn:
		return "WARN"
	case Info:
		return "INFO"
	case Debug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Printf logs a message at the given level if it is at or below Level.
func Printf(level int, format string, args ...interface{}) {
	if level <= Level {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", levelToString(level), fmt.Sprintf(format, args...))
	}
}

// Debugf logs at Debug level.
func Debugf(format string, args ...interface{}) { Printf(Debug, format, args...) }

// Warnf logs at Warn level.
func Warnf(format string, args ...interface{}) { Printf(Warn, format, args...) }

// Infof logs at Info level.
func Infof(format string, args ...interface{}) { Printf(Info, format, args...) }

// Errorf logs at Error level.
func Errorf(format string, args ...interface{}) { Printf(Error, format, args...) }
