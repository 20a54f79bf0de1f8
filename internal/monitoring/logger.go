// Package monitoring routes diagnostics from the core packages (volume,
// accel) to whatever sink the caller installs. The CLI points it at stderr;
// tests capture or mute it.
package monitoring

import (
	"log"
	"sync"
)

// Logger receives one formatted diagnostic line per call.
type Logger func(format string, args ...interface{})

var (
	mu      sync.RWMutex
	current Logger = log.Printf
)

// SetLogger installs l and returns the logger it replaced, so callers can
// restore it with a deferred SetLogger(prev). A nil l mutes output.
func SetLogger(l Logger) Logger {
	if l == nil {
		l = func(string, ...interface{}) {}
	}
	mu.Lock()
	defer mu.Unlock()
	prev := current
	current = l
	return prev
}

// Logf writes a diagnostic line through the installed logger.
func Logf(format string, args ...interface{}) {
	mu.RLock()
	l := current
	mu.RUnlock()
	l(format, args...)
}

// Warnf reports a recoverable problem, prefixed with "Warning: ".
func Warnf(format string, args ...interface{}) {
	Logf("Warning: "+format, args...)
}
