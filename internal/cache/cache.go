// Package cache mirrors every yard collection in memory. Each collection is
// replaced wholesale whenever the store delivers a new snapshot, so readers
// always see a complete array for one kind. Ordering across kinds is not
// guaranteed.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"yardops/pkg/domain"

	"go.uber.org/zap"
)

var _ domain.TransactionView = (*Cache)(nil)

// Listener is invoked after a snapshot for kind has been applied.
type Listener func(kind domain.EntityKind, version uint64)

// Option configures a Cache.
type Option func(*Cache)

// WithLogger attaches a zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// Cache is the in-memory mirror of the store.
type Cache struct {
	mu       sync.RWMutex
	records  map[domain.EntityKind][]domain.Record
	index    map[domain.EntityKind]map[string]int
	versions map[domain.EntityKind]uint64
	changed  chan struct{}
	last     *domain.DeletedItem

	lmu       sync.RWMutex
	listeners []Listener

	runMu  sync.Mutex
	subs   []domain.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *zap.Logger
}

// New returns a cache with every collection empty.
func New(opts ...Option) *Cache {
	c := &Cache{
		records:  make(map[domain.EntityKind][]domain.Record),
		index:    make(map[domain.EntityKind]map[string]int),
		versions: make(map[domain.EntityKind]uint64),
		changed:  make(chan struct{}),
		log:      zap.NewNop(),
	}
	for _, kind := range domain.AllKinds() {
		c.records[kind] = []domain.Record{}
		c.index[kind] = map[string]int{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ErrStarted is returned by Start when the cache is already consuming a store.
var ErrStarted = errors.New("cache already started")

// Start subscribes to every kind. The initial snapshot of each kind is applied
// before Start returns; later snapshots are applied by one goroutine per kind.
func (c *Cache) Start(ctx context.Context, store domain.PersistentStore) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil {
		return ErrStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	for _, kind := range domain.AllKinds() {
		sub := store.Subscribe(kind)
		c.subs = append(c.subs, sub)
		select {
		case snap, ok := <-sub.Snapshots():
			if !ok {
				c.stopLocked()
				return fmt.Errorf("subscribe %s: stream closed", kind)
			}
			c.Apply(snap)
		case <-ctx.Done():
			c.stopLocked()
			return ctx.Err()
		}
		c.wg.Add(1)
		go c.consume(runCtx, sub)
	}
	c.log.Debug("cache started", zap.Int("kinds", len(c.subs)))
	return nil
}

func (c *Cache) consume(ctx context.Context, sub domain.Subscription) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			c.Apply(snap)
		}
	}
}

// Close unsubscribes every stream and waits for the consumers to exit.
func (c *Cache) Close() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.stopLocked()
}

func (c *Cache) stopLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.wg.Wait()
	c.subs = nil
	c.cancel = nil
}

// Apply replaces the collection named by the snapshot. Snapshots older than
// the one already applied are ignored.
func (c *Cache) Apply(snap domain.CollectionSnapshot) {
	if !snap.Kind.Valid() {
		return
	}
	records := make([]domain.Record, 0, len(snap.Records))
	for _, rec := range snap.Records {
		if rec == nil || rec.Kind() != snap.Kind {
			continue
		}
		records = append(records, rec.Clone())
	}
	snap.Kind.Sort(records)
	idx := make(map[string]int, len(records))
	for i, rec := range records {
		idx[rec.GetID()] = i
	}

	c.mu.Lock()
	if cur, ok := c.versions[snap.Kind]; ok && snap.Version < cur {
		c.mu.Unlock()
		c.log.Debug("stale snapshot ignored", zap.String("kind", string(snap.Kind)), zap.Uint64("version", snap.Version), zap.Uint64("current", cur))
		return
	}
	c.records[snap.Kind] = records
	c.index[snap.Kind] = idx
	c.versions[snap.Kind] = snap.Version
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()

	c.notify(snap.Kind, snap.Version)
}

func (c *Cache) notify(kind domain.EntityKind, version uint64) {
	c.lmu.RLock()
	listeners := append([]Listener(nil), c.listeners...)
	c.lmu.RUnlock()
	for _, fn := range listeners {
		fn(kind, version)
	}
}

// OnChange registers a listener called after each applied snapshot.
func (c *Cache) OnChange(fn Listener) {
	if fn == nil {
		return
	}
	c.lmu.Lock()
	c.listeners = append(c.listeners, fn)
	c.lmu.Unlock()
}

// Await blocks until pred holds for the current records of kind or ctx ends.
// pred sees the cached slice and must not modify or retain it.
func (c *Cache) Await(ctx context.Context, kind domain.EntityKind, pred func([]domain.Record) bool) error {
	for {
		c.mu.RLock()
		ok := pred(c.records[kind])
		wait := c.changed
		c.mu.RUnlock()
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wait:
		}
	}
}

// AwaitVersion blocks until the applied version of kind is at least v.
func (c *Cache) AwaitVersion(ctx context.Context, kind domain.EntityKind, v uint64) error {
	for {
		c.mu.RLock()
		cur := c.versions[kind]
		wait := c.changed
		c.mu.RUnlock()
		if cur >= v {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wait:
		}
	}
}

// Version reports the last applied snapshot version of kind.
func (c *Cache) Version(kind domain.EntityKind) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.versions[kind]
}

// List returns copies of every record of kind in canonical order.
func (c *Cache) List(kind domain.EntityKind) []domain.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src := c.records[kind]
	out := make([]domain.Record, len(src))
	for i, rec := range src {
		out[i] = rec.Clone()
	}
	return out
}

// Sorted is List under the name the presentation layer uses.
func (c *Cache) Sorted(kind domain.EntityKind) []domain.Record {
	return c.List(kind)
}

// Find returns a copy of one record.
func (c *Cache) Find(kind domain.EntityKind, id string) (domain.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[kind][id]
	if !ok {
		return nil, false
	}
	return c.records[kind][i].Clone(), true
}

// Count reports the number of records of kind.
func (c *Cache) Count(kind domain.EntityKind) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records[kind])
}

// SetLastDeleted overwrites the undo slot.
func (c *Cache) SetLastDeleted(item domain.DeletedItem) {
	if item.Original != nil {
		item.Original = item.Original.Clone()
	}
	c.mu.Lock()
	c.last = &item
	c.mu.Unlock()
}

// LastDeleted returns the undo slot content.
func (c *Cache) LastDeleted() (domain.DeletedItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return domain.DeletedItem{}, false
	}
	item := *c.last
	if item.Original != nil {
		item.Original = item.Original.Clone()
	}
	return item, true
}

// ClearLastDeleted empties the undo slot.
func (c *Cache) ClearLastDeleted() {
	c.mu.Lock()
	c.last = nil
	c.mu.Unlock()
}
