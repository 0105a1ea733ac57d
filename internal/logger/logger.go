package logger

import (
	"sync"
)

// Log levels accepted by the log.level config key.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	// consoleLogger is the process-wide logger built on the first Get call.
	consoleLogger *Logger
	once          sync.Once
)

// Get returns the process-wide console logger configured with the provided level.
// Only the first call picks the level; later calls return the same instance.
func Get(level string) *Logger {
	once.Do(func() {
		consoleLogger = newZapLogger(level)
	})
	return consoleLogger
}

// OrNop returns l, or a logger that discards everything when l is nil.
// Components accept a nil *Logger so tests can skip logging setup.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}
