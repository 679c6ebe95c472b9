// Package events publishes item lifecycle events for downstream
// consumers. Publishing is fire-and-forget from the core's point of
// view: failures are logged by callers, never surfaced to the user.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stashbot/internal/models"
)

// EventType identifies what happened to an item
type EventType string

const (
	EventItemCreated            EventType = "item.created"
	EventClassificationDegraded EventType = "item.classification_degraded"
	EventTaskCompleted          EventType = "task.completed"
	EventItemsDeleted           EventType = "items.deleted"
)

// Event is one item lifecycle occurrence
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Type      EventType      `json:"type"`
	Owner     string         `json:"owner"`
	ItemID    int64          `json:"item_id,omitempty"`
	Kind      models.Kind    `json:"kind,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewEvent creates an event with a fresh id and timestamp
func NewEvent(eventType EventType, owner string, itemID int64, kind models.Kind) *Event {
	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Owner:     owner,
		ItemID:    itemID,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}

// Publisher is the interface for event sinks
type Publisher interface {
	// Publish sends one event
	Publish(ctx context.Context, event *Event) error

	// Close closes the underlying connection
	Close() error
}

// Noop discards events; used when no broker is configured
type Noop struct{}

// Publish discards the event
func (Noop) Publish(ctx context.Context, event *Event) error { return nil }

// Close is a no-op
func (Noop) Close() error { return nil }

var (
	_ Publisher = Noop{}
	_ Publisher = (*RabbitMQPublisher)(nil)
)
