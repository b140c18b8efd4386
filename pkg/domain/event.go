package domain

import "time"

// EventType names a committed workflow change.
type EventType string

// Workflow events emitted after a successful commit.
const (
	EventBookingCreated      EventType = "booking.created"
	EventBookingUpdated      EventType = "booking.updated"
	EventCollectionCreated   EventType = "collection.created"
	EventContainerCollected  EventType = "container.collected"
	EventContainerMoved      EventType = "container.moved"
	EventCollectionCompleted EventType = "collection.completed"
	EventRecordCreated       EventType = "record.created"
	EventRecordUpdated       EventType = "record.updated"
	EventRecordDeleted       EventType = "record.deleted"
	EventRecordRestored      EventType = "record.restored"
)

// Event describes one committed change for downstream consumers.
type Event struct {
	Type EventType  `json:"type"`
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
	At   time.Time  `json:"at"`
	Data Record     `json:"data,omitempty"`
}
