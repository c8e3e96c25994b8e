// Package orchestrator coordinates the full customer request pipeline and
// multi-step workflows over the capability handlers.
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugLogger writes timestamped trace lines for request processing.
// A zero-valued logger is a no-op.
type DebugLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewDebugLogger creates a logger writing to the given path, creating
// parent directories as needed. An empty path yields a no-op logger.
func NewDebugLogger(logPath string) (*DebugLogger, error) {
	if logPath == "" {
		return &DebugLogger{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := &DebugLogger{file: f}
	logger.Log("=== Quill request log started at %s ===", time.Now().Format(time.RFC3339))
	return logger, nil
}

// NewDebugLoggerForDir creates a logger under dir/.quill/logs, falling
// back to a no-op logger when the directory cannot be created.
func NewDebugLoggerForDir(dir string) *DebugLogger {
	logger, err := NewDebugLogger(filepath.Join(dir, ".quill", "logs", "requests.log"))
	if err != nil {
		return &DebugLogger{}
	}
	return logger
}

// NopLogger returns a no-op logger.
func NopLogger() *DebugLogger {
	return &DebugLogger{}
}

// Log writes a timestamped line. Safe on a nil or no-op logger.
func (l *DebugLogger) Log(format string, args ...interface{}) {
	if l == nil || l.file == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.file, "[%s] %s\n", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
	l.file.Sync()
}

// Close closes the log file. Safe on a nil or no-op logger.
func (l *DebugLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}
