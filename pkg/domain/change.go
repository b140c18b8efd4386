package domain

import "time"

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in a transaction.
const (
	// ActionCreate indicates a record was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates a record was updated.
	ActionUpdate Action = "update"
	// ActionDelete indicates a record was removed.
	ActionDelete Action = "delete"
)

// Change describes a mutation applied to a record during a transaction.
// Before is nil for creates and After is nil for deletes.
type Change struct {
	Kind   EntityKind
	Action Action
	ID     string
	Before Record
	After  Record
}

// ChangedKinds returns the distinct kinds touched by changes, in AllKinds order.
func ChangedKinds(changes []Change) []EntityKind {
	seen := make(map[EntityKind]bool, len(changes))
	for _, c := range changes {
		seen[c.Kind] = true
	}
	var out []EntityKind
	for _, kind := range AllKinds() {
		if seen[kind] {
			out = append(out, kind)
		}
	}
	return out
}

// DeletedItem is the content of the single-slot undo buffer.
type DeletedItem struct {
	Kind      EntityKind
	ID        string
	Original  Record
	DeletedAt time.Time
}
