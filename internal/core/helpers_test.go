package core

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
	"yardops/internal/cache"
	"yardops/internal/infra/persistence/memory"
	"yardops/pkg/domain"
)

// stepClock advances one minute on every read so history timestamps are
// strictly increasing and turnaround math is predictable.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// lister is the read side of a test store, used to wait for the cache.
type lister interface {
	PersistentStore
	List(kind domain.EntityKind) []domain.Record
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	store  lister
	cache  *cache.Cache
	svc    *Service
	clock  *stepClock
	events *eventLog
}

func newHarness(t *testing.T, opts ...ServiceOption) *harness {
	t.Helper()
	return newHarnessOn(t, memory.NewStore(NewDefaultRulesEngine()), opts...)
}

func newHarnessOn(t *testing.T, store lister, opts ...ServiceOption) *harness {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	c := cache.New()
	if err := c.Start(ctx, store); err != nil {
		t.Fatalf("start cache: %v", err)
	}
	t.Cleanup(c.Close)
	h := &harness{t: t, ctx: ctx, store: store, cache: c, clock: newStepClock(), events: &eventLog{}}
	base := []ServiceOption{WithClock(h.clock), WithEventPublisher(h.events)}
	h.svc = NewService(store, c, append(base, opts...)...)
	return h
}

// sync blocks until the cache mirrors the committed store state.
func (h *harness) sync() {
	h.t.Helper()
	for _, kind := range domain.AllKinds() {
		want := h.store.List(kind)
		err := h.cache.Await(h.ctx, kind, func(got []domain.Record) bool { return sameRecords(got, want) })
		if err != nil {
			h.t.Fatalf("cache did not catch up on %s: %v", kind, err)
		}
	}
}

func sameRecords(got, want []domain.Record) bool {
	if len(got) != len(want) {
		return false
	}
	byID := make(map[string]domain.Record, len(want))
	for _, rec := range want {
		byID[rec.GetID()] = rec
	}
	for _, rec := range got {
		w, ok := byID[rec.GetID()]
		if !ok || !reflect.DeepEqual(w, rec) {
			return false
		}
	}
	return true
}

type outcome[T any] struct {
	v   T
	err error
}

func expect[T any](v T, _ Result, err error) outcome[T] { return outcome[T]{v: v, err: err} }

func (o outcome[T]) ok(t *testing.T) T {
	t.Helper()
	if o.err != nil {
		t.Fatalf("unexpected error: %v", o.err)
	}
	return o.v
}

func (h *harness) booking(number string, qty int, size string) *domain.Booking {
	h.t.Helper()
	b := expect(h.svc.CreateBooking(h.ctx, BookingInput{
		Number:        number,
		Qty:           qty,
		Type:          "Dry",
		Deadline:      time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		ContainerSize: size,
	})).ok(h.t)
	h.sync()
	return b
}

func (h *harness) driver(name string) *domain.Driver {
	h.t.Helper()
	d := expect(h.svc.CreateDriver(h.ctx, DriverInput{Name: name, IDNumber: "ID-" + name, Plate: "ca " + name, Weight: 80})).ok(h.t)
	h.sync()
	return d
}

func (h *harness) chassis(name string, is40, is2x20 bool) *domain.Chassis {
	h.t.Helper()
	c := expect(h.svc.CreateChassis(h.ctx, ChassisInput{Name: name, Weight: 3200, Is40ft: is40, Is2x20: is2x20})).ok(h.t)
	h.sync()
	return c
}

func (h *harness) location(name string, tilter bool) *domain.Location {
	h.t.Helper()
	l := expect(h.svc.CreateLocation(h.ctx, LocationInput{Name: name, IsTilter: tilter})).ok(h.t)
	h.sync()
	return l
}

// collection creates a booking-driver-chassis triple and a collection of qty.
func (h *harness) collection(bookingNumber string, bookingQty, qty int) (*domain.Booking, *domain.Collection) {
	h.t.Helper()
	b := h.booking(bookingNumber, bookingQty, domain.Size20ft)
	d := h.driver("Driver " + bookingNumber)
	ch := h.chassis("CH-"+bookingNumber, false, true)
	col := expect(h.svc.CreateCollection(h.ctx, CollectionRequest{DriverID: d.ID, BookingID: b.ID, ChassisID: ch.ID, Qty: qty})).ok(h.t)
	h.sync()
	return b, col
}

func (h *harness) collect(colID, serial string) *domain.Container {
	h.t.Helper()
	c := expect(h.svc.Collect(h.ctx, colID, serial, 2200)).ok(h.t)
	h.sync()
	return c
}

func (h *harness) move(id string, action YardAction, dest string) *domain.Container {
	h.t.Helper()
	c := expect(h.svc.Transition(h.ctx, id, action, dest)).ok(h.t)
	h.sync()
	return c
}

func (h *harness) storedBooking(id string) *domain.Booking {
	h.t.Helper()
	b, ok := h.cache.FindBooking(id)
	if !ok {
		h.t.Fatalf("booking %s missing", id)
	}
	return b
}

func (h *harness) storedCollection(id string) *domain.Collection {
	h.t.Helper()
	c, ok := h.cache.FindCollection(id)
	if !ok {
		h.t.Fatalf("collection %s missing", id)
	}
	return c
}

type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (l *eventLog) Publish(_ context.Context, ev domain.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *eventLog) count(typ domain.EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// flakyStore is a store without atomic batches whose n-th transaction fails.
type flakyStore struct {
	*memory.Store
	mu     sync.Mutex
	calls  int
	failAt int
}

var errDisk = errors.New("disk unavailable")

func (s *flakyStore) SupportsAtomicBatch() bool { return false }

func (s *flakyStore) RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error) {
	s.mu.Lock()
	s.calls++
	fail := s.failAt > 0 && s.calls == s.failAt
	s.mu.Unlock()
	if fail {
		return Result{}, errDisk
	}
	return s.Store.RunInTransaction(ctx, fn)
}

func (s *flakyStore) failNext(n int) {
	s.mu.Lock()
	s.failAt = s.calls + n
	s.mu.Unlock()
}

func newMemoryStore() *memory.Store { return memory.NewStore(NewDefaultRulesEngine()) }
