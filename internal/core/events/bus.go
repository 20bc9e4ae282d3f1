package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
}

type Handler func(ctx context.Context, event Event) error

// Bus fans events out to subscribers in registration order.
type Bus struct {
	handlers map[string][]Handler
	logger   *slog.Logger
	mu       sync.RWMutex
	inflight sync.WaitGroup
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

func (b *Bus) Subscribe(handler Handler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, t := range eventTypes {
		b.handlers[t] = append(b.handlers[t], handler)
		b.logger.Debug("event handler registered",
			"event_type", t,
			"total_handlers", len(b.handlers[t]))
	}
}

func (b *Bus) handlersFor(eventType string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := b.handlers[eventType]
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}

// Publish runs every handler inline. All handlers run even when one fails;
// the failures are joined into the returned error.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	handlers := b.handlersFor(event.EventType())
	if len(handlers) == 0 {
		b.logger.Debug("no handlers for event type", "event_type", event.EventType())
		return nil
	}

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			b.logger.ErrorContext(ctx, "event handler failed",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("event %s: %w", event.EventType(), errors.Join(errs...))
	}
	return nil
}

// PublishAsync runs handlers on their own goroutines, detached from ctx
// cancellation. Wait blocks until they finish.
func (b *Bus) PublishAsync(ctx context.Context, event Event) {
	detached := context.WithoutCancel(ctx)
	for _, h := range b.handlersFor(event.EventType()) {
		b.inflight.Add(1)
		go func(h Handler) {
			defer b.inflight.Done()
			if err := h(detached, event); err != nil {
				b.logger.Error("async event handler failed",
					"event_type", event.EventType(),
					"event_id", event.EventID(),
					"error", err)
			}
		}(h)
	}
}

func (b *Bus) Wait() {
	b.inflight.Wait()
}
