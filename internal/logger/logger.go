// Package logger prints pipeline diagnostics to stderr when the CLI
// runs with --verbose. Everything is silent otherwise.
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

// SetVerbose enables or disables diagnostic output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether diagnostics are enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects diagnostics away from stderr, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug logs a low-level diagnostic line.
func Debug(format string, args ...any) { emit("[DEBUG] ", format, args...) }

// Info logs a pipeline progress line.
func Info(format string, args ...any) { emit("[INFO] ", format, args...) }

// Warn logs a degraded-but-continuing condition.
func Warn(format string, args ...any) { emit("[WARN] ", format, args...) }

// Section prints a visual divider between pipeline stages.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

func emit(prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, prefix+format+"\n", args...)
	}
}
