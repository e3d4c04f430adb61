// Package logger provides the process-wide logger for ragindex.
//
// Debug, Info and Section output is only written in verbose mode (--verbose).
// Warnings and errors are always written, because background rebuilds have
// no other way to report a failure.
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

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	write(true, "[DEBUG] ", "", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	write(true, "[INFO] ", "", format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	write(false, "[WARN] ", "", format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	write(false, "[ERROR] ", "", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

func write(verboseOnly bool, level, scope, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verboseOnly && !verbose {
		return
	}
	fmt.Fprintf(output, level+scope+format+"\n", args...)
}

// Scoped prefixes every message with a fixed scope such as a tenant.
type Scoped struct {
	scope string
}

// Tenant returns a logger whose messages carry [tenant=<id>].
func Tenant(id string) *Scoped {
	return &Scoped{scope: "[tenant=" + id + "] "}
}

// Debug prints a scoped message if verbose mode is enabled.
func (s *Scoped) Debug(format string, args ...any) {
	write(true, "[DEBUG] ", s.scope, format, args...)
}

// Info prints a scoped informational message if verbose mode is enabled.
func (s *Scoped) Info(format string, args ...any) {
	write(true, "[INFO] ", s.scope, format, args...)
}

// Warn prints a scoped warning.
func (s *Scoped) Warn(format string, args ...any) {
	write(false, "[WARN] ", s.scope, format, args...)
}

// Error prints a scoped error.
func (s *Scoped) Error(format string, args ...any) {
	write(false, "[ERROR] ", s.scope, format, args...)
}
