// Package debug provides the process-wide diagnostic logger. It is silent
// unless TABTREE_DEBUG is set.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	enabled bool
	logger  = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func init() {
	if os.Getenv("TABTREE_DEBUG") != "" {
		SetEnabled(true)
	}
}

// SetEnabled switches debug output to stderr on or off.
func SetEnabled(on bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = on
	if on {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		return
	}
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Enabled reports whether debug output is on.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Logf logs a formatted debug line.
func Logf(format string, args ...any) {
	if !Enabled() {
		return
	}
	Logger().Debug(fmt.Sprintf(format, args...))
}

// LogTiming logs how long an operation took.
func LogTiming(op string, elapsed time.Duration) {
	if !Enabled() {
		return
	}
	Logger().Debug("timing", "op", op, "elapsed", elapsed)
}
