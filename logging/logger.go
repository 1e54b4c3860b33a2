// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing callers to plug any
// structured logger. The agent, registry and orchestrator log through it with
// dotted event names (agent.plan.start, tool.call.success, session.turn.*).
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger defines the minimal structured logging interface used throughout the
// repository. Arguments are slog-style alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from an existing *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// New builds a Logger writing to out with the given level ("debug", "info",
// "warn", "error") and format ("json" or "text"). Unknown values fall back to
// info / json.
func New(level, format string, out io.Writer) Logger {
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return NewSlogAdapter(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithSession returns a logger that attaches the session id to every entry.
func WithSession(l Logger, sessionID string) Logger {
	if sa, ok := l.(*SlogAdapter); ok {
		return NewSlogAdapter(sa.Logger.With(slog.String("session_id", sessionID)))
	}
	return l
}

// LogToolCall records execution details for a tool invocation in a single
// consistent shape regardless of call site.
func LogToolCall(l Logger, tool string, dur time.Duration, success bool, errMsg string) {
	args := []any{"tool_name", tool, "duration_ms", dur.Milliseconds(), "success", success}
	if errMsg != "" {
		args = append(args, "error", errMsg)
	}
	if success {
		l.Info("tool.call.completed", args...)
		return
	}
	l.Error("tool.call.failed", args...)
}

// LogPlannerCall records planner latency and outcome for one loop iteration.
func LogPlannerCall(l Logger, provider, model string, iteration int, dur time.Duration, err error) {
	args := []any{"provider", provider, "model", model, "iteration", iteration, "duration_ms", dur.Milliseconds()}
	if err != nil {
		l.Error("planner.call.failed", append(args, "error", err.Error())...)
		return
	}
	l.Info("planner.call.completed", args...)
}

// NoOpLogger discards all log messages. Useful for tests.
type NoOpLogger struct{}

// Debug discards a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info discards an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn discards a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error discards an error message.
func (NoOpLogger) Error(string, ...any) {}
