package log

import "sync"

var (
	defaultMu sync.Mutex
	defaultLg *Logger
)

// SetDefaultLogger replaces the process-wide logger used by commands
// that do not carry their own.
func SetDefaultLogger(logger *Logger) {
	defaultMu.Lock()
	defaultLg = logger
	defaultMu.Unlock()
}

// DefaultLogger returns the process-wide logger, creating one with
// standard settings on first use.
func DefaultLogger() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLg == nil {
		defaultLg = Default()
	}
	return defaultLg
}
