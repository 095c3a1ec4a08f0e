// Package debug provides conditional debug logging for todosync.
//
// Debug logging is enabled by setting TODOSYNC_DEBUG=1. Messages go to a log
// file rather than stderr because the terminal belongs to the TUI:
//
//	TODOSYNC_DEBUG=1 todosync
//	tail -f /tmp/todosync-debug.log
//
// TODOSYNC_DEBUG_FILE overrides the file path. When disabled, every function
// is a no-op.
package debug

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("TODOSYNC_DEBUG") == "1" {
		path := os.Getenv("TODOSYNC_DEBUG_FILE")
		if path == "" {
			path = filepath.Join(os.TempDir(), "todosync-debug.log")
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return
		}
		SetOutput(f)
	}
}

// SetOutput enables logging to w. A nil writer disables logging.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		enabled = false
		logger = nil
		return
	}
	enabled = true
	logger = log.New(w, "[todosync] ", log.Ltime|log.Lmicroseconds)
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Log writes a printf-style debug message.
func Log(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes how long an operation took.
func LogTiming(name string, d time.Duration) {
	Log("%s took %v", name, d)
}

// LogEnterExit logs function entry and exit with timing.
//
//	defer debug.LogEnterExit("Session.Add")()
func LogEnterExit(name string) func() {
	if !Enabled() {
		return func() {}
	}
	Log("-> %s", name)
	start := time.Now()
	return func() {
		Log("<- %s (%v)", name, time.Since(start))
	}
}
