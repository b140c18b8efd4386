package memory

import (
	"context"
	"errors"
	"testing"
	"time"
	"yardops/pkg/domain"
)

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	if len(changes) == 0 {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock, Message: "nope"}}}, nil
}

func fixedClock() func() time.Time {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil, WithClock(fixedClock()))
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.Find(domain.KindDriver, "missing"); ok {
			t.Fatalf("expected missing driver lookup")
		}
		created, err := domain.CreateAs(tx, &domain.Driver{Name: "Sipho"})
		if err != nil {
			return err
		}
		if created.ID == "" {
			t.Fatalf("expected generated ID")
		}
		if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
			t.Fatalf("expected create timestamps, got %+v", created.Base)
		}
		if len(tx.Snapshot().List(domain.KindDriver)) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(store.List(domain.KindDriver)) != 1 {
		t.Fatalf("expected persisted driver")
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.List(domain.KindDriver)) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if len(store.List(domain.KindDriver)) != 1 {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil || store.NowFunc() == nil {
		t.Fatalf("expected engine and clock")
	}
	if !store.SupportsAtomicBatch() {
		t.Fatalf("memory store commits atomically")
	}
}

func TestStoreExplicitIDIsKeptAndUnique(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	create := func() error {
		_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, err := tx.Create(&domain.Location{Base: domain.Base{ID: "loc-1"}, Name: "Yard"})
			return err
		})
		return err
	}
	if err := create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := store.Get(domain.KindLocation, "loc-1"); !ok {
		t.Fatalf("expected explicit id to be kept")
	}
	if err := create(); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestStoreRollsBackOnError(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	boom := errors.New("boom")
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.Create(&domain.Driver{Name: "A"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(store.List(domain.KindDriver)) != 0 {
		t.Fatalf("expected rollback")
	}
}

func TestStoreRuleViolation(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockingRule{})
	store := NewStore(engine)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.Create(&domain.Driver{Name: "Fail"})
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if len(store.List(domain.KindDriver)) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

func TestStoreUpdateAndDelete(t *testing.T) {
	store := NewStore(nil, WithClock(fixedClock()))
	ctx := context.Background()
	var id string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		b, err := domain.CreateAs(tx, &domain.Booking{Number: "BK1", Qty: 2})
		id = b.ID
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		updated, err := domain.UpdateAs(tx, id, func(b *domain.Booking) error {
			b.AssignedContainers = append(b.AssignedContainers, "c1")
			b.ID = "tampered"
			return nil
		})
		if err != nil {
			return err
		}
		if updated.ID != id || !updated.UpdatedAt.After(updated.CreatedAt) {
			t.Fatalf("unexpected update result %+v", updated.Base)
		}
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.Update(domain.KindBooking, "missing", func(domain.Record) error { return nil })
		return err
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		prior, err := tx.Delete(domain.KindBooking, id)
		if err != nil {
			return err
		}
		if len(prior.(*domain.Booking).AssignedContainers) != 1 {
			t.Fatalf("expected prior value returned")
		}
		return nil
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.Get(domain.KindBooking, id); ok {
		t.Fatalf("expected booking removed")
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var id string
	_, _ = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		b, err := domain.CreateAs(tx, &domain.Booking{Number: "BK1", Qty: 1, AssignedContainers: []string{"a"}})
		id = b.ID
		return err
	})
	rec, _ := store.Get(domain.KindBooking, id)
	rec.(*domain.Booking).AssignedContainers[0] = "mutated"
	again, _ := store.Get(domain.KindBooking, id)
	if again.(*domain.Booking).AssignedContainers[0] != "a" {
		t.Fatalf("store leaked internal state")
	}
}

func TestStoreCancelledContext(t *testing.T) {
	store := NewStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.RunInTransaction(ctx, func(domain.Transaction) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancelled, got %v", err)
	}
}

func TestStoreCommitHookAbortsTransaction(t *testing.T) {
	hookErr := errors.New("disk full")
	var seen []domain.EntityKind
	store := NewStore(nil, WithCommitHook(func(_ context.Context, changed []domain.EntityKind, next Snapshot) error {
		seen = changed
		if len(next.Records(domain.KindChassis)) != 1 {
			t.Fatalf("hook should see the pending state")
		}
		return hookErr
	}))
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.Create(&domain.Chassis{Name: "CH-1"})
		return err
	})
	if !errors.Is(err, hookErr) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if len(seen) != 1 || seen[0] != domain.KindChassis {
		t.Fatalf("unexpected changed kinds %v", seen)
	}
	if len(store.List(domain.KindChassis)) != 0 {
		t.Fatalf("hook failure must roll back")
	}
}

func TestStoreListIsSortedByKindKey(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for _, name := range []string{"zulu", "Alpha", "mike"} {
			if _, err := tx.Create(&domain.Driver{Name: name}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	got := store.List(domain.KindDriver)
	want := []string{"Alpha", "mike", "zulu"}
	for i, rec := range got {
		if rec.(*domain.Driver).Name != want[i] {
			t.Fatalf("position %d: got %s want %s", i, rec.(*domain.Driver).Name, want[i])
		}
	}
}

func TestSubscribeDeliversInitialAndLatest(t *testing.T) {
	store := NewStore(nil)
	sub := store.Subscribe(domain.KindDriver)
	defer sub.Unsubscribe()

	initial := <-sub.Snapshots()
	if initial.Kind != domain.KindDriver || initial.Version != 0 || len(initial.Records) != 0 {
		t.Fatalf("unexpected initial snapshot %+v", initial)
	}
	for _, name := range []string{"a", "b"} {
		if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
			_, err := tx.Create(&domain.Driver{Name: name})
			return err
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	latest := <-sub.Snapshots()
	if latest.Version != 2 || len(latest.Records) != 2 {
		t.Fatalf("expected only the latest snapshot, got version %d with %d records", latest.Version, len(latest.Records))
	}
	select {
	case extra := <-sub.Snapshots():
		t.Fatalf("unexpected extra snapshot %+v", extra)
	default:
	}
}

func TestSubscribeIgnoresOtherKinds(t *testing.T) {
	store := NewStore(nil)
	sub := store.Subscribe(domain.KindLocation)
	<-sub.Snapshots()
	_, _ = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.Create(&domain.Driver{Name: "x"})
		return err
	})
	select {
	case snap := <-sub.Snapshots():
		t.Fatalf("unexpected snapshot for %s", snap.Kind)
	default:
	}
	sub.Unsubscribe()
	sub.Unsubscribe()
	if _, ok := <-sub.Snapshots(); ok {
		t.Fatalf("expected closed channel after unsubscribe")
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	store := NewStore(nil)
	sub := store.Subscribe(domain.KindBooking)
	<-sub.Snapshots()
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := <-sub.Snapshots(); ok {
		t.Fatalf("expected closed channel")
	}
	sub.Unsubscribe()
	late := store.Subscribe(domain.KindBooking)
	if _, ok := <-late.Snapshots(); ok {
		t.Fatalf("subscribe after close should be closed")
	}
}

func TestBucketRoundTripKeepsTypes(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	recs := []domain.Record{&domain.Container{
		Base:    domain.Base{ID: "c1"},
		Serial:  "MSKU1234567",
		Tare:    2200,
		Status:  domain.StatusCollectedFromPier,
		History: []domain.HistoryEntry{{Status: domain.StatusCollectedFromPier, Location: "CH-1", Timestamp: at}},
	}}
	payload, err := EncodeBucket(recs)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeBucket(domain.KindContainer, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	c, ok := decoded[0].(*domain.Container)
	if !ok || c.Serial != "MSKU1234567" || len(c.History) != 1 || !c.History[0].Timestamp.Equal(at) {
		t.Fatalf("unexpected decoded container %+v", decoded[0])
	}
	if _, err := DecodeBucket(domain.EntityKind("nope"), payload); err == nil {
		t.Fatalf("expected unknown kind error")
	}
	empty, err := DecodeBucket(domain.KindDriver, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty decode, got %v %v", empty, err)
	}
}

func TestMigrateSnapshotNormalisesAndFilters(t *testing.T) {
	migrated := migrateSnapshot(Snapshot{
		domain.KindBooking:    {&domain.Booking{Base: domain.Base{ID: "b1"}}, &domain.Booking{}},
		domain.KindCollection: {&domain.Collection{Base: domain.Base{ID: "col"}}},
		domain.KindContainer:  {&domain.Driver{Base: domain.Base{ID: "wrong-kind"}}},
	})
	if len(migrated.Records(domain.KindBooking)) != 1 {
		t.Fatalf("expected id-less booking dropped")
	}
	if migrated[domain.KindBooking][0].(*domain.Booking).AssignedContainers == nil {
		t.Fatalf("expected assigned containers initialised")
	}
	col := migrated[domain.KindCollection][0].(*domain.Collection)
	if col.CollectedContainers == nil || col.Status != domain.CollectionCollecting {
		t.Fatalf("expected collection defaults, got %+v", col)
	}
	if len(migrated.Records(domain.KindContainer)) != 0 {
		t.Fatalf("expected mismatched kind dropped")
	}
}
