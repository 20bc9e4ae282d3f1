package logger

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// With stores a child of the request logger carrying fields, so later
// middleware and handlers log trace and user ids without passing them.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, contextKey{}, From(ctx).With(fields...))
}

func From(ctx context.Context) *slog.Logger {
	return FromOr(ctx, LoggerWrapper())
}

// FromOr is From with a caller supplied logger for requests that never
// passed through RequestID.
func FromOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx == nil {
		return fallback
	}
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return l
	}
	return fallback
}
