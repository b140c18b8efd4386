package memory

import (
	"encoding/json"
	"fmt"
	"yardops/pkg/domain"
)

// Snapshot captures every collection keyed by kind. Records are deep copies.
type Snapshot map[EntityKind][]Record

// Records returns the records of one kind, never nil.
func (s Snapshot) Records(kind EntityKind) []Record {
	if recs, ok := s[kind]; ok {
		return recs
	}
	return []Record{}
}

func snapshotFromState(state memoryState) Snapshot {
	out := make(Snapshot, len(state))
	for _, kind := range domain.AllKinds() {
		out[kind] = state.list(kind)
	}
	return out
}

func stateFromSnapshot(snapshot Snapshot) memoryState {
	state := newMemoryState()
	for kind, recs := range snapshot {
		if _, ok := state[kind]; !ok {
			continue
		}
		for _, rec := range recs {
			state[kind][rec.GetID()] = rec.Clone()
		}
	}
	return state
}

// migrateSnapshot drops records that cannot be addressed and normalises
// nil collections so encoders emit empty arrays. Dangling references between
// records are kept; reconciliation reports them.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	out := make(Snapshot, len(domain.AllKinds()))
	for _, kind := range domain.AllKinds() {
		recs := snapshot[kind]
		kept := make([]Record, 0, len(recs))
		for _, rec := range recs {
			if rec == nil || rec.GetID() == "" || rec.Kind() != kind {
				continue
			}
			rec = rec.Clone()
			normaliseRecord(rec)
			kept = append(kept, rec)
		}
		out[kind] = kept
	}
	return out
}

func normaliseRecord(rec Record) {
	switch r := rec.(type) {
	case *domain.Booking:
		if r.AssignedContainers == nil {
			r.AssignedContainers = []string{}
		}
	case *domain.Collection:
		if r.CollectedContainers == nil {
			r.CollectedContainers = []domain.CollectedRef{}
		}
		if r.Status == "" {
			r.Status = domain.CollectionCollecting
		}
	case *domain.Container:
		if r.History == nil {
			r.History = []domain.HistoryEntry{}
		}
	}
}

// EncodeBucket marshals the records of one kind as a JSON array.
func EncodeBucket(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}

// DecodeBucket unmarshals a JSON array produced by EncodeBucket into typed records.
func DecodeBucket(kind EntityKind, payload []byte) ([]Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("decode bucket: unknown kind %q", kind)
	}
	if len(payload) == 0 {
		return []Record{}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	out := make([]Record, 0, len(raw))
	for _, item := range raw {
		rec := kind.New()
		if err := json.Unmarshal(item, rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
