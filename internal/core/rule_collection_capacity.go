package core

import (
	"context"
	"yardops/pkg/domain"
)

// NewCollectionCapacityRule blocks collections holding more containers than their quantity.
func NewCollectionCapacityRule() domain.Rule {
	return collectionCapacityRule{}
}

type collectionCapacityRule struct{}

func (collectionCapacityRule) Name() string { return "collection_capacity" }

func (r collectionCapacityRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		col, ok := change.After.(*domain.Collection)
		if !ok {
			continue
		}
		if n := len(col.CollectedContainers); n > col.Qty {
			res.Violations = append(res.Violations, blockf(r.Name(), domain.KindCollection, col.ID,
				"collection %s holds %d containers but qty is %d", col.ID, n, col.Qty))
		}
	}
	return res, nil
}
