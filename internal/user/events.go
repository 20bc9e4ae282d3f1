package user

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/user-management/internal/core/events"
	"github.com/google/uuid"
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

type LifecycleEvent struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	ActorID  string    `json:"actor_id,omitempty"`
	At       time.Time `json:"at"`
}

func (e LifecycleEvent) EventType() string     { return e.Type }
func (e LifecycleEvent) EventID() string       { return e.ID }
func (e LifecycleEvent) OccurredAt() time.Time { return e.At }

func newLifecycleEvent(kind string, u User, actorID string) LifecycleEvent {
	return LifecycleEvent{
		ID:       uuid.NewString(),
		Type:     kind,
		UserID:   u.ID,
		Username: u.Username,
		ActorID:  actorID,
		At:       time.Now().UTC(),
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
	PublishAsync(ctx context.Context, event events.Event)
}

// RegisterAuditLog writes one structured log line per lifecycle event.
func RegisterAuditLog(bus *events.Bus, logger *slog.Logger) {
	bus.Subscribe(func(ctx context.Context, e events.Event) error {
		le, ok := e.(LifecycleEvent)
		if !ok {
			return nil
		}
		logger.InfoContext(ctx, "audit",
			"event", le.Type,
			"event_id", le.ID,
			"user_id", le.UserID,
			"username", le.Username,
			"actor_id", le.ActorID)
		return nil
	}, EventUserCreated, EventUserUpdated, EventUserDeleted)
}
