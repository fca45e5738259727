// Package logging builds the [log/slog] logger for a command run and carries
// it through contexts.
package logging

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/filterchain/internal/config"
)

// New returns a logger writing to w in cfg's format at cfg's effective level.
func New(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.EffectiveLogLevel())}
	if cfg.EffectiveLogLevel() == config.LogLevelDebug {
		opts.AddSource = true
	}

	if cfg.LogFormat == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Install is New followed by slog.SetDefault, so packages that log through
// slog.Default share the command's handler.
func Install(w io.Writer, cfg *config.Config) *slog.Logger {
	logger := New(w, cfg)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a config level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

type ctxKey struct{}

func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// With adds attrs to the logger in ctx and stores the result in a child
// context.
func With(ctx context.Context, args ...any) (context.Context, *slog.Logger) {
	logger := FromContext(ctx).With(args...)
	return NewContext(ctx, logger), logger
}
