// Package logging provides a tiny abstraction over slog so the rest of the
// codebase depends on a minimal interface (Logger) while callers can plug in
// any structured logger. WorkflowLogger adds contextual helpers carrying the
// component and workflow identifiers through the coordinator and transport.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Level is a thin enum for user-friendly level configuration decoupled from slog.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is the minimal logging interface consumed throughout Sochen.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoOpLogger discards all messages. The default for tests and for components
// constructed without an explicit logger.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}

// Config controls construction of a WorkflowLogger.
type Config struct {
	Level     Level
	Format    string // "json" or "text"
	Output    io.Writer
	AddSource bool
}

// WorkflowLogger wraps slog.Logger with cheap contextual cloning so every
// entry carries the component and workflow id it belongs to.
type WorkflowLogger struct {
	logger     *slog.Logger
	level      Level
	component  string
	workflowID string
}

// New builds a WorkflowLogger from cfg.
func New(cfg Config) *WorkflowLogger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &WorkflowLogger{logger: slog.New(handler), level: cfg.Level}
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent returns a clone labeling entries with the logical component
// (engine, server, agent name, etc.).
func (l *WorkflowLogger) WithComponent(c string) *WorkflowLogger {
	nl := *l
	nl.component = c
	return &nl
}

// WithWorkflow returns a clone labeling entries with a workflow id.
func (l *WorkflowLogger) WithWorkflow(id string) *WorkflowLogger {
	nl := *l
	nl.workflowID = id
	return &nl
}

func (l *WorkflowLogger) attrs(args []any) []any {
	out := make([]any, 0, len(args)+4)
	if l.component != "" {
		out = append(out, "component", l.component)
	}
	if l.workflowID != "" {
		out = append(out, "workflow_id", l.workflowID)
	}
	return append(out, args...)
}

// Debug logs at debug level with key/value args.
func (l *WorkflowLogger) Debug(msg string, args ...any) {
	if l.level <= LevelDebug {
		l.logger.Debug(msg, l.attrs(args)...)
	}
}

// Info logs at info level with key/value args.
func (l *WorkflowLogger) Info(msg string, args ...any) {
	if l.level <= LevelInfo {
		l.logger.Info(msg, l.attrs(args)...)
	}
}

// Warn logs at warn level with key/value args.
func (l *WorkflowLogger) Warn(msg string, args ...any) {
	if l.level <= LevelWarn {
		l.logger.Warn(msg, l.attrs(args)...)
	}
}

// Error logs at error level with key/value args.
func (l *WorkflowLogger) Error(msg string, args ...any) {
	if l.level <= LevelError {
		l.logger.Error(msg, l.attrs(args)...)
	}
}
