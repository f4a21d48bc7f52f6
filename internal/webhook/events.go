package webhook

import (
	"context"
	"time"
)

// Event types delivered to webhook subscriptions.
const (
	EventQueryExecuted = "query.executed"
	EventTaskCreated   = "task.created"
	EventTaskCompleted = "task.completed"
	EventExportReady   = "export.ready"
)

// AllEventTypes lists every event type a subscription may register for,
// besides the "*" wildcard.
func AllEventTypes() []string {
	return []string{
		EventQueryExecuted,
		EventTaskCreated,
		EventTaskCompleted,
		EventExportReady,
	}
}

// KnownEventType reports whether name is a deliverable event type or the
// wildcard.
func KnownEventType(name string) bool {
	if name == "*" {
		return true
	}
	for _, e := range AllEventTypes() {
		if e == name {
			return true
		}
	}
	return false
}

// Event is a notification produced by the application. UserID scopes
// subscription lookup and is not part of the delivered body.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"-"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// Publisher fans an event out to the matching subscriptions. Implementations
// must not block the caller on delivery.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// NopPublisher discards all events.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) {}
