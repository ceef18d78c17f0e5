// Package logging provides a small abstraction over slog so the rest of the
// module depends on a minimal Logger interface while callers can plug any
// structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger is the minimal logging interface used throughout convocore.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config controls construction of the default slog-backed logger.
type Config struct {
	Level  slog.Level
	Format string // json or text
	Output io.Writer
}

// New builds a Logger from cfg. A nil Output defaults to stdout; an empty
// Format defaults to JSON.
func New(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return &SlogAdapter{Logger: slog.New(handler)}
}

// SlogAdapter wraps *slog.Logger to implement Logger.
type SlogAdapter struct {
	*slog.Logger
}

// NewSlogAdapter creates a Logger from an existing *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger { return &SlogAdapter{Logger: logger} }

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NoOpLogger discards all log messages. Useful for tests or when logging is
// disabled.
type NoOpLogger struct{}

// Debug discards the message.
func (NoOpLogger) Debug(string, ...any) {}

// Info discards the message.
func (NoOpLogger) Info(string, ...any) {}

// Warn discards the message.
func (NoOpLogger) Warn(string, ...any) {}

// Error discards the message.
func (NoOpLogger) Error(string, ...any) {}

// OrNoOp returns l, substituting a NoOpLogger when l is nil so callers never
// need nil checks.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}

// LogToolCall records the outcome of one tool invocation.
func LogToolCall(l Logger, sessionID, tool string, dur time.Duration, success bool, errText string) {
	args := []any{"session_id", sessionID, "tool", tool, "duration_ms", dur.Milliseconds(), "success", success}
	if errText != "" {
		args = append(args, "error", errText)
	}
	if success {
		l.Info("tool.executed", args...)
		return
	}
	l.Warn("tool.failed", args...)
}

// LogHandoff records a hand-off leaving the current agent.
func LogHandoff(l Logger, sessionID, fromAgent, targetAgent string) {
	l.Info("handoff.initiated", "session_id", sessionID, "from_agent", fromAgent, "target_agent", targetAgent)
}
