package internal

import (
	"context"
	"time"
)

type contextKey int

const actorIDKey contextKey = iota

// ContextWithUserID records the id of the authenticated actor. Services read
// it back to attribute lifecycle events.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorIDKey, userID)
}

// UserIDFromContext is "" on public routes.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(actorIDKey).(string)
	return id
}

const defaultQueryTimeout = 5 * time.Second

// WithTimeout bounds a repository call; a non-positive d means the default.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultQueryTimeout
	}
	return context.WithTimeout(ctx, d)
}
