package metrics

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType is the kind of a metrics event.
type EventType string

const (
	EventRender      EventType = "render"
	EventInteraction EventType = "interaction"
	EventError       EventType = "error"
	EventRollback    EventType = "rollback"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventRender, EventInteraction, EventError, EventRollback:
		return true
	}
	return false
}

// Event is the schema shared by every sink.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Variant   string         `json:"variant,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewEvent stamps an event with an ID and the current time.
func NewEvent(typ EventType, variant string, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Variant:   variant,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Sink consumes events.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Emit(ctx context.Context, e Event) error { return f(ctx, e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })
