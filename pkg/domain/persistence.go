package domain

import (
	"context"
	"time"
)

// Transaction exposes the operations a persistence implementation must apply
// atomically. Every call inside one RunInTransaction commits together or not at all.
type Transaction interface {
	Snapshot() TransactionView
	// Create inserts rec. An empty id is replaced by a generated one; an explicit
	// id is kept (used by undo) and must not already exist.
	Create(rec Record) (Record, error)
	Update(kind EntityKind, id string, mutator func(Record) error) (Record, error)
	Delete(kind EntityKind, id string) (Record, error)
	Find(kind EntityKind, id string) (Record, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	List(kind EntityKind) []Record
	Find(kind EntityKind, id string) (Record, bool)
}

// CollectionSnapshot is the full content of one collection after a commit.
// Version increases monotonically per kind.
type CollectionSnapshot struct {
	Kind    EntityKind
	Version uint64
	Records []Record
	At      time.Time
}

// Subscription delivers snapshots for one kind until Unsubscribe is called.
// The current snapshot is delivered immediately after subscribing.
type Subscription interface {
	Snapshots() <-chan CollectionSnapshot
	Unsubscribe()
}

// PersistentStore is the document store abstraction consumed by the workflow
// engine and the state cache.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	Subscribe(kind EntityKind) Subscription
	Close() error
}

// AtomicBatcher is implemented by stores that can report whether multi-record
// transactions are applied atomically.
type AtomicBatcher interface {
	SupportsAtomicBatch() bool
}

// FindAs looks up a record and asserts its concrete type.
func FindAs[T Record](view interface {
	Find(EntityKind, string) (Record, bool)
}, id string) (T, bool) {
	var zero T
	rec, ok := view.Find(zero.Kind(), id)
	if !ok {
		return zero, false
	}
	typed, ok := rec.(T)
	return typed, ok
}

// ListAs returns every record of T's kind from the view.
func ListAs[T Record](view TransactionView) []T {
	var zero T
	records := view.List(zero.Kind())
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if typed, ok := rec.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// UpdateAs applies a typed mutator within a transaction.
func UpdateAs[T Record](tx Transaction, id string, mutator func(T) error) (T, error) {
	var zero T
	rec, err := tx.Update(zero.Kind(), id, func(r Record) error {
		typed, ok := r.(T)
		if !ok {
			return NotFoundError{Kind: zero.Kind(), ID: id}
		}
		return mutator(typed)
	})
	if err != nil {
		return zero, err
	}
	typed, _ := rec.(T)
	return typed, nil
}

// CreateAs inserts a typed record within a transaction.
func CreateAs[T Record](tx Transaction, rec T) (T, error) {
	created, err := tx.Create(rec)
	if err != nil {
		var zero T
		return zero, err
	}
	typed, _ := created.(T)
	return typed, nil
}
