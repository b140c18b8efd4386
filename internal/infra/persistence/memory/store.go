// Package memory provides an in-memory implementation of the yard document
// store used directly in tests and as the transactional core of the durable
// backends.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
	"yardops/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.AtomicBatcher   = (*Store)(nil)
)

type (
	// Record aliases domain.Record.
	Record = domain.Record
	// EntityKind aliases domain.EntityKind.
	EntityKind = domain.EntityKind
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// CommitHook runs after rules pass and before the new state becomes visible.
// Returning an error aborts the transaction. Durable backends use it to write
// the changed buckets so memory and disk never diverge.
type CommitHook func(ctx context.Context, changed []EntityKind, next Snapshot) error

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// WithCommitHook installs a hook invoked on every successful transaction.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) { s.hook = hook }
}

type memoryState map[EntityKind]map[string]Record

func newMemoryState() memoryState {
	state := make(memoryState, len(domain.AllKinds()))
	for _, kind := range domain.AllKinds() {
		state[kind] = make(map[string]Record)
	}
	return state
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for kind, records := range s {
		for id, rec := range records {
			cloned[kind][id] = rec.Clone()
		}
	}
	return cloned
}

func (s memoryState) list(kind EntityKind) []Record {
	records := s[kind]
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Clone())
	}
	kind.Sort(out)
	return out
}

// Store provides an in-memory transactional document store.
type Store struct {
	mu       sync.RWMutex
	state    memoryState
	engine   *RulesEngine
	nowFn    func() time.Time
	hook     CommitHook
	versions map[EntityKind]uint64

	subMu  sync.Mutex
	subs   map[EntityKind]map[*subscription]struct{}
	closed bool
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:    newMemoryState(),
		engine:   engine,
		nowFn:    func() time.Time { return time.Now().UTC() },
		versions: make(map[EntityKind]uint64),
		subs:     make(map[EntityKind]map[*subscription]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) newID() string {
	var b [10]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// SupportsAtomicBatch reports that every transaction commits all-or-nothing.
func (s *Store) SupportsAtomicBatch() bool { return true }

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces the store state with the provided snapshot and
// notifies subscribers of every kind.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateFromSnapshot(migrateSnapshot(snapshot))
	s.publish(domain.AllKinds())
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// transaction represents a mutation set applied to a private copy of the state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state memoryState
}

func (v transactionView) List(kind EntityKind) []Record {
	return v.state.list(kind)
}

func (v transactionView) Find(kind EntityKind, id string) (Record, bool) {
	rec, ok := v.state[kind][id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Either every write made by fn commits, or none does.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, transactionView{state: tx.state}, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	changed := domain.ChangedKinds(tx.changes)
	if s.hook != nil && len(changed) > 0 {
		if err := s.hook(ctx, changed, snapshotFromState(tx.state)); err != nil {
			return result, err
		}
	}

	s.state = tx.state
	s.publish(changed)
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(transactionView{state: snapshot})
}

// List returns committed records of a kind in canonical order.
func (s *Store) List(kind EntityKind) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.list(kind)
}

// Get returns one committed record.
func (s *Store) Get(kind EntityKind, id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.state[kind][id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return transactionView{state: tx.state}
}

// Find exposes lookup within the transaction scope.
func (tx *transaction) Find(kind EntityKind, id string) (Record, bool) {
	rec, ok := tx.state[kind][id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Create stores a new record within the transaction.
func (tx *transaction) Create(rec Record) (Record, error) {
	if rec == nil {
		return nil, fmt.Errorf("create: nil record")
	}
	kind := rec.Kind()
	records, ok := tx.state[kind]
	if !ok {
		return nil, fmt.Errorf("create: unknown kind %q", kind)
	}
	rec = rec.Clone()
	if rec.GetID() == "" {
		rec.SetID(tx.store.newID())
	}
	if _, exists := records[rec.GetID()]; exists {
		return nil, fmt.Errorf("%s %q already exists", kind.Label(), rec.GetID())
	}
	// Restored records keep their bookkeeping timestamps.
	if rec.Created().IsZero() {
		rec.Touch(tx.now)
	}
	records[rec.GetID()] = rec
	tx.recordChange(Change{Kind: kind, Action: domain.ActionCreate, ID: rec.GetID(), After: rec.Clone()})
	return rec.Clone(), nil
}

// Update mutates a record using the provided mutator function.
func (tx *transaction) Update(kind EntityKind, id string, mutator func(Record) error) (Record, error) {
	current, ok := tx.state[kind][id]
	if !ok {
		return nil, domain.NotFoundError{Kind: kind, ID: id}
	}
	before := current.Clone()
	next := current.Clone()
	if err := mutator(next); err != nil {
		return nil, err
	}
	next.SetID(id)
	next.Touch(tx.now)
	tx.state[kind][id] = next
	tx.recordChange(Change{Kind: kind, Action: domain.ActionUpdate, ID: id, Before: before, After: next.Clone()})
	return next.Clone(), nil
}

// Delete removes a record from the transaction state and returns its last value.
func (tx *transaction) Delete(kind EntityKind, id string) (Record, error) {
	current, ok := tx.state[kind][id]
	if !ok {
		return nil, domain.NotFoundError{Kind: kind, ID: id}
	}
	delete(tx.state[kind], id)
	tx.recordChange(Change{Kind: kind, Action: domain.ActionDelete, ID: id, Before: current.Clone()})
	return current.Clone(), nil
}

// Close drops every subscription. The store stays readable.
func (s *Store) Close() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for kind, subs := range s.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(s.subs, kind)
	}
	s.closed = true
	return nil
}
