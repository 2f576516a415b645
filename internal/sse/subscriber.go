package sse

import (
	"context"
	"log/slog"

	"github.com/crosspostme/crosspost-agent/internal/event"
)

// Subscriber bridges the internal event bus to the SSE hub
type Subscriber struct {
	hub *Hub
	bus event.Bus
}

// NewSubscriber creates a new SSE subscriber
func NewSubscriber(hub *Hub, bus event.Bus) *Subscriber {
	return &Subscriber{
		hub: hub,
		bus: bus,
	}
}

// Subscribe registers handlers for all relevant event types
func (s *Subscriber) Subscribe() {
	s.bus.Subscribe(event.ConnectionAttemptUpdated, s.handleAttemptUpdated)
	s.bus.Subscribe(event.ConnectionSnapshotUpdated, s.handleSnapshotUpdated)

	slog.Info("SSE subscriber registered for event types",
		"types", []string{
			string(event.ConnectionAttemptUpdated),
			string(event.ConnectionSnapshotUpdated),
		})
}

// handleAttemptUpdated forwards attempt phase transitions to SSE clients. The
// bus payload is already the externally safe snapshot shape, so it is
// broadcast as is.
func (s *Subscriber) handleAttemptUpdated(_ context.Context, evt event.Event) error {
	payload, ok := evt.Payload.(event.AttemptUpdatedPayloadV1)
	if !ok {
		slog.Warn("Invalid attempt updated event payload type")
		return nil
	}

	s.hub.Broadcast(EventTypeAttemptUpdated, payload)

	slog.Debug(LogMsgEventBroadcast,
		"event_type", EventTypeAttemptUpdated,
		"attempt_id", payload.AttemptID,
		"platform", payload.PlatformID,
		"phase", string(payload.Phase))
	return nil
}

// handleSnapshotUpdated forwards connected-platform list changes to SSE clients
func (s *Subscriber) handleSnapshotUpdated(_ context.Context, evt event.Event) error {
	payload, ok := evt.Payload.(event.SnapshotUpdatedPayloadV1)
	if !ok {
		slog.Warn("Invalid snapshot updated event payload type")
		return nil
	}

	s.hub.Broadcast(EventTypeSnapshotUpdated, payload)

	slog.Debug(LogMsgEventBroadcast,
		"event_type", EventTypeSnapshotUpdated,
		"connected_count", len(payload.Connected))
	return nil
}
