package memory

import (
	"sync"
	"yardops/pkg/domain"
)

// subscription holds a single-slot channel. A newer snapshot replaces an
// unread older one, so slow readers only ever see the latest state.
type subscription struct {
	store *Store
	kind  EntityKind
	ch    chan domain.CollectionSnapshot
	once  sync.Once
}

func (s *subscription) Snapshots() <-chan domain.CollectionSnapshot { return s.ch }

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.store.subMu.Lock()
		defer s.store.subMu.Unlock()
		subs, ok := s.store.subs[s.kind]
		if !ok {
			return
		}
		if _, ok := subs[s]; !ok {
			return
		}
		delete(subs, s)
		close(s.ch)
	})
}

func (s *subscription) offer(snap domain.CollectionSnapshot) {
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- snap:
	default:
	}
}

// Subscribe registers interest in one kind. The current snapshot is queued
// before Subscribe returns. After Close the returned channel is already closed.
func (s *Store) Subscribe(kind EntityKind) domain.Subscription {
	sub := &subscription{store: s, kind: kind, ch: make(chan domain.CollectionSnapshot, 1)}

	s.mu.RLock()
	defer s.mu.RUnlock()
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.closed || !kind.Valid() {
		close(sub.ch)
		sub.once.Do(func() {})
		return sub
	}
	if s.subs[kind] == nil {
		s.subs[kind] = make(map[*subscription]struct{})
	}
	s.subs[kind][sub] = struct{}{}
	sub.offer(s.snapshotLocked(kind))
	return sub
}

// snapshotLocked builds the snapshot for kind. Callers hold s.mu.
func (s *Store) snapshotLocked(kind EntityKind) domain.CollectionSnapshot {
	return domain.CollectionSnapshot{
		Kind:    kind,
		Version: s.versions[kind],
		Records: s.state.list(kind),
		At:      s.nowFn(),
	}
}

// publish bumps versions and fans out snapshots. Callers hold s.mu for writing.
func (s *Store) publish(kinds []EntityKind) {
	for _, kind := range kinds {
		s.versions[kind]++
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, kind := range kinds {
		subs := s.subs[kind]
		if len(subs) == 0 {
			continue
		}
		snap := s.snapshotLocked(kind)
		for sub := range subs {
			out := snap
			out.Records = cloneRecords(snap.Records)
			sub.offer(out)
		}
	}
}

func cloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, rec := range in {
		out[i] = rec.Clone()
	}
	return out
}
