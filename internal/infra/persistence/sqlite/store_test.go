package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"yardops/pkg/domain"
)

func TestSQLiteStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.Create(&domain.Driver{Name: "Persist"}); err != nil {
			return err
		}
		_, err := tx.Create(&domain.Booking{Number: "BK-9", Qty: 2, AssignedContainers: []string{"c1"}})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file missing: %v", err)
	}
	if store.Path() != path {
		t.Fatalf("unexpected path %s", store.Path())
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	if got := len(reloaded.List(domain.KindDriver)); got != 1 {
		t.Fatalf("expected 1 driver, got %d", got)
	}
	bookings := reloaded.List(domain.KindBooking)
	if len(bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(bookings))
	}
	b := bookings[0].(*domain.Booking)
	if b.Number != "BK-9" || len(b.AssignedContainers) != 1 {
		t.Fatalf("unexpected booking %+v", b)
	}
}

func TestSQLiteStoreOnlyWritesChangedBuckets(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), nil)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.Create(&domain.Location{Name: "Yard"})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	var buckets []string
	rows, err := store.DB().Query(`SELECT bucket FROM state`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			t.Fatalf("scan: %v", err)
		}
		buckets = append(buckets, b)
	}
	if len(buckets) != 1 || buckets[0] != string(domain.KindLocation) {
		t.Fatalf("expected only locations bucket, got %v", buckets)
	}
}

func TestSQLiteStoreWriteFailureRollsBackMemory(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), nil)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	_ = store.DB().Close()
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.Create(&domain.Driver{Name: "Lost"})
		return err
	})
	var writeErr domain.StoreWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected store write error, got %v", err)
	}
	if len(store.List(domain.KindDriver)) != 0 {
		t.Fatalf("memory state must not advance when the write fails")
	}
}
