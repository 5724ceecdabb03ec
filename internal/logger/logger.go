// Package logger provides structured logging for regsync.
// It wraps logrus with printf-style helpers so call sites stay terse.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

const timeFormat = "2006-01-02 15:04:05"

var (
	mu    sync.RWMutex
	entry = newEntry()
)

func newEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timeFormat,
	})
	return logrus.NewEntry(l)
}

// Init configures the log level and tags all output with the module
// name.
func Init(module, level string) {
	mu.Lock()
	defer mu.Unlock()

	switch level {
	case "debug":
		entry.Logger.SetLevel(logrus.DebugLevel)
	case "warn":
		entry.Logger.SetLevel(logrus.WarnLevel)
	case "error":
		entry.Logger.SetLevel(logrus.ErrorLevel)
	default:
		entry.Logger.SetLevel(logrus.InfoLevel)
	}
	entry = entry.Logger.WithField("module", module)
}

// SetOutput sets the output writer. Defaults to os.Stderr.
// Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	entry.Logger.SetOutput(w)
}

// WithFields returns an entry carrying extra structured fields.
func WithFields(fields map[string]any) *logrus.Entry {
	mu.RLock()
	defer mu.RUnlock()
	return entry.WithFields(logrus.Fields(fields))
}

// Debug logs a debug message.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	entry.Debugf(format, args...)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	entry.Infof(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	entry.Warnf(format, args...)
}

// Error logs an error message.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	entry.Errorf(format, args...)
}
