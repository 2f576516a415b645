package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crosspostme/crosspost-agent/internal/domain"
	"github.com/crosspostme/crosspost-agent/internal/metrics"
)

// EventSchemaVersion is the current event schema version
const EventSchemaVersion = "1.0"

// Type represents the type of an event
type Type string

// Event types published by the connection flow.
const (
	// ConnectionAttemptUpdated fires on every attempt phase transition.
	ConnectionAttemptUpdated Type = "connection.attempt"

	// ConnectionSnapshotUpdated fires whenever the connected-platform
	// snapshot changes (refresh or optimistic apply).
	ConnectionSnapshotUpdated Type = "connection.snapshot"
)

// Event represents a generic event in the system
type Event struct {
	Version string      `json:"version"` // Event schema version (e.g., "1.0")
	Type    Type        `json:"type"`
	Payload interface{} `json:"payload"`
}

// AttemptUpdatedPayloadV1 is the typed payload for attempt transition events.
// Credential values never appear here.
type AttemptUpdatedPayloadV1 struct {
	AttemptID  string               `json:"attempt_id"`
	PlatformID string               `json:"platform_id"`
	Phase      domain.AttemptPhase  `json:"phase"`
	Reason     domain.FailureReason `json:"reason,omitempty"`
	AuthURL    string               `json:"auth_url,omitempty"`
	LastError  string               `json:"last_error,omitempty"`
	Timestamp  int64                `json:"timestamp"`
}

// SnapshotUpdatedPayloadV1 is the typed payload for store snapshot events.
type SnapshotUpdatedPayloadV1 struct {
	Connected []domain.ConnectedPlatform `json:"connected"`
	Timestamp int64                      `json:"timestamp"`
}

// NewAttemptUpdatedEvent builds a ConnectionAttemptUpdated event from an
// attempt snapshot.
func NewAttemptUpdatedEvent(attempt domain.ConnectionAttempt) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    ConnectionAttemptUpdated,
		Payload: AttemptUpdatedPayloadV1{
			AttemptID:  attempt.ID,
			PlatformID: attempt.PlatformID,
			Phase:      attempt.Phase,
			Reason:     attempt.Reason,
			AuthURL:    attempt.AuthURL,
			LastError:  attempt.LastError,
			Timestamp:  time.Now().Unix(),
		},
	}
}

// NewSnapshotUpdatedEvent builds a ConnectionSnapshotUpdated event.
func NewSnapshotUpdatedEvent(connected []domain.ConnectedPlatform) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    ConnectionSnapshotUpdated,
		Payload: SnapshotUpdatedPayloadV1{
			Connected: connected,
			Timestamp: time.Now().Unix(),
		},
	}
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for an event bus
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType Type, handler Handler)
}

// MemoryBus is an in-memory implementation of the Event Bus
type MemoryBus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]Handler),
	}
}

// Publish publishes an event to all subscribers synchronously. Handlers are
// expected to be fast (they hand off to channels); errors are aggregated.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers, ok := b.handlers[event.Type]
	b.mu.RUnlock()

	metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()

	if !ok {
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			metrics.EventHandlerErrors.WithLabelValues(string(event.Type)).Inc()
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("encountered %d errors while handling event %s: %v", len(errs), event.Type, errs)
	}

	return nil
}

// Subscribe subscribes a handler to an event type
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}
