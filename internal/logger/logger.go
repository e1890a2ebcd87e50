package logger

import (
	"context"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the structured logging interface used across the service.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	With(keyvals ...any) Logger
}

type charmLogger struct {
	l *charmlog.Logger
}

func (c *charmLogger) Debug(msg string, keyvals ...any) { c.l.Debug(msg, keyvals...) }
func (c *charmLogger) Info(msg string, keyvals ...any)  { c.l.Info(msg, keyvals...) }
func (c *charmLogger) Warn(msg string, keyvals ...any)  { c.l.Warn(msg, keyvals...) }
func (c *charmLogger) Error(msg string, keyvals ...any) { c.l.Error(msg, keyvals...) }
func (c *charmLogger) With(keyvals ...any) Logger {
	return &charmLogger{l: c.l.With(keyvals...)}
}

// Config controls output destination and verbosity.
type Config struct {
	Level  string
	Output io.Writer
	JSON   bool
}

// New builds a logger backed by charmbracelet/log.
func New(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	level := charmlog.InfoLevel
	if parsed, err := charmlog.ParseLevel(cfg.Level); err == nil && cfg.Level != "" {
		level = parsed
	}
	l := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           level,
	})
	if cfg.JSON {
		l.SetFormatter(charmlog.JSONFormatter)
	}
	return &charmLogger{l: l}
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() Logger {
	return &charmLogger{l: charmlog.NewWithOptions(io.Discard, charmlog.Options{})}
}

type ctxKey struct{}

// ContextWithLogger attaches a logger to the context for request-scoped fields.
func ContextWithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the context logger, or a default stdout logger when
// none was attached.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return New(Config{})
}
