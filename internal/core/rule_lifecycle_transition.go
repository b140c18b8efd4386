package core

import (
	"context"
	"yardops/pkg/domain"
)

// CollectionLifecycleRule blocks unknown collection statuses and any status
// change away from the terminal state.
func CollectionLifecycleRule() domain.Rule {
	return lifecycleTransitionRule{}
}

type lifecycleTransitionRule struct{}

type lifecycleMachine struct {
	label    string
	terminal map[string]struct{}
	valid    map[string]struct{}
	state    func(rec domain.Record) (string, bool)
}

var lifecycleMachines = map[domain.EntityKind]lifecycleMachine{
	domain.KindCollection: {
		label:    "collection",
		terminal: toSet(string(domain.CollectionComplete)),
		valid: toSet(
			string(domain.CollectionCollecting),
			string(domain.CollectionCollected),
			string(domain.CollectionComplete),
		),
		state: func(rec domain.Record) (string, bool) {
			col, ok := rec.(*domain.Collection)
			if !ok || col == nil {
				return "", false
			}
			return string(col.Status), true
		},
	},
}

func (lifecycleTransitionRule) Name() string { return "lifecycle_transition" }

func (r lifecycleTransitionRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		machine, ok := lifecycleMachines[change.Kind]
		if !ok {
			continue
		}
		after, ok := machine.state(change.After)
		if !ok {
			continue
		}
		if _, valid := machine.valid[after]; !valid {
			res.Violations = append(res.Violations, blockf(r.Name(), change.Kind, change.ID,
				"%s %s is set to invalid state %s", machine.label, change.ID, after))
			continue
		}
		before, ok := machine.state(change.Before)
		if !ok {
			continue
		}
		if _, terminal := machine.terminal[before]; terminal && after != before {
			res.Violations = append(res.Violations, blockf(r.Name(), change.Kind, change.ID,
				"cannot move %s %s from terminal state %s to %s", machine.label, change.ID, before, after))
		}
	}
	return res, nil
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
