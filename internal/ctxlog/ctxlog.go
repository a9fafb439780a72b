// Package ctxlog passes a slog.Logger through a context.Context.
package ctxlog

import (
	"context"
	"log/slog"
)

// LevelTrace is one step more verbose than slog.LevelDebug. Compiler message
// streams log at this level.
const LevelTrace = slog.LevelDebug - 4

// key is an unexported type so context keys from other packages cannot
// collide with ours.
type key struct{}

var loggerKey = key{}

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from the context. When no logger is
// attached it returns a discarding logger, so callers can log
// unconditionally.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return Discard()
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// discardHandler mirrors slog.DiscardHandler, which is unavailable before
// Go 1.24: Enabled reports false for all levels and every record is dropped.
type discardHandler struct{}

func (dh discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (dh discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (dh discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return dh }
func (dh discardHandler) WithGroup(string) slog.Handler             { return dh }
