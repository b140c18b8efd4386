package core

import (
	"context"
	"path/filepath"
	"testing"
	"yardops/pkg/domain"
)

func TestOpenPersistentStore(t *testing.T) {
	ctx := context.Background()
	mem, err := OpenPersistentStore(ctx, StorageConfig{Driver: StorageMemory}, nil)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	defer mem.Close()
	if b, ok := mem.(domain.AtomicBatcher); !ok || !b.SupportsAtomicBatch() {
		t.Fatalf("memory store should batch atomically")
	}

	path := filepath.Join(t.TempDir(), "yard.db")
	lite, err := OpenPersistentStore(ctx, StorageConfig{SQLitePath: path}, nil)
	if err != nil {
		t.Fatalf("sqlite default: %v", err)
	}
	if _, err := lite.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.Create(&domain.Location{Name: domain.LocationYard})
		return err
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := lite.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	reopened, err := OpenPersistentStore(ctx, StorageConfig{Driver: StorageSQLite, SQLitePath: path}, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	var n int
	_ = reopened.View(ctx, func(v TransactionView) error {
		n = len(v.List(domain.KindLocation))
		return nil
	})
	if n != 1 {
		t.Fatalf("expected persisted location, got %d", n)
	}

	if _, err := OpenPersistentStore(ctx, StorageConfig{Driver: "cassandra"}, nil); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
