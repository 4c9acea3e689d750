// Package logger provides leveled logging for the wkyt vault.
// Debug, Info and Warn are only printed in verbose mode (--verbose).
// Error is always printed. Output goes to stderr so command output on
// stdout stays machine-readable.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func write(always bool, level, scope, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !always && !verbose {
		return
	}
	prefix := "[" + level + "] "
	if scope != "" {
		prefix += scope + ": "
	}
	fmt.Fprintf(output, prefix+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) { write(false, "DEBUG", "", format, args...) }

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) { write(false, "INFO", "", format, args...) }

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) { write(false, "WARN", "", format, args...) }

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) { write(true, "ERROR", "", format, args...) }

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Logger prefixes every message with a component scope.
type Logger struct {
	scope string
}

// Named returns a Logger for the given component.
func Named(scope string) Logger {
	return Logger{scope: scope}
}

// Debug prints a scoped message if verbose mode is enabled.
func (l Logger) Debug(format string, args ...any) { write(false, "DEBUG", l.scope, format, args...) }

// Info prints a scoped message if verbose mode is enabled.
func (l Logger) Info(format string, args ...any) { write(false, "INFO", l.scope, format, args...) }

// Warn prints a scoped warning if verbose mode is enabled.
func (l Logger) Warn(format string, args ...any) { write(false, "WARN", l.scope, format, args...) }

// Error prints a scoped error regardless of verbose mode.
func (l Logger) Error(format string, args ...any) { write(true, "ERROR", l.scope, format, args...) }
