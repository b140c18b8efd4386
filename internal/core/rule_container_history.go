package core

import (
	"context"
	"yardops/pkg/domain"
)

// NewContainerHistoryRule keeps container history append-only with
// non-decreasing timestamps.
func NewContainerHistoryRule() domain.Rule {
	return containerHistoryRule{}
}

type containerHistoryRule struct{}

func (containerHistoryRule) Name() string { return "container_history" }

func (r containerHistoryRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		after, ok := change.After.(*domain.Container)
		if !ok {
			continue
		}
		for i := 1; i < len(after.History); i++ {
			if after.History[i].Timestamp.Before(after.History[i-1].Timestamp) {
				res.Violations = append(res.Violations, blockf(r.Name(), domain.KindContainer, after.ID,
					"container %s history goes back in time at entry %d", after.Serial, i))
				break
			}
		}
		before, ok := change.Before.(*domain.Container)
		if !ok || change.Action != domain.ActionUpdate {
			continue
		}
		if !historyPrefix(before.History, after.History) {
			res.Violations = append(res.Violations, blockf(r.Name(), domain.KindContainer, after.ID,
				"container %s history was rewritten", after.Serial))
		}
	}
	return res, nil
}

func historyPrefix(prefix, full []domain.HistoryEntry) bool {
	if len(prefix) > len(full) {
		return false
	}
	for i, entry := range prefix {
		other := full[i]
		if entry.Status != other.Status || entry.Location != other.Location || !entry.Timestamp.Equal(other.Timestamp) {
			return false
		}
	}
	return true
}
