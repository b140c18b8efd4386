package core

import (
	"context"
	"yardops/pkg/domain"
)

// NewCollectionQuantityRule blocks collections whose combined quantity exceeds
// the booking's quantity. Collections whose booking no longer exists are not
// checked. Only bookings whose collections were created or grew
// in this transaction are checked, so operator edits that shrink a booking do
// not block unrelated writes.
func NewCollectionQuantityRule() domain.Rule {
	return collectionQuantityRule{}
}

type collectionQuantityRule struct{}

func (collectionQuantityRule) Name() string { return "collection_quantity" }

func (r collectionQuantityRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	touched := make(map[string]bool)
	for _, change := range changes {
		if change.Kind != domain.KindCollection {
			continue
		}
		after, ok := change.After.(*domain.Collection)
		if !ok {
			continue
		}
		switch change.Action {
		case domain.ActionCreate:
			touched[after.BookingID] = true
		case domain.ActionUpdate:
			before, _ := change.Before.(*domain.Collection)
			if before == nil || after.Qty > before.Qty || after.BookingID != before.BookingID {
				touched[after.BookingID] = true
			}
		}
	}
	if len(touched) == 0 {
		return domain.Result{}, nil
	}

	allocated := make(map[string]int, len(touched))
	for _, col := range domain.ListAs[*domain.Collection](view) {
		if touched[col.BookingID] {
			allocated[col.BookingID] += col.Qty
		}
	}

	res := domain.Result{}
	for bookingID := range touched {
		booking, ok := domain.FindAs[*domain.Booking](view, bookingID)
		if !ok {
			// A collection restored after its booking was deleted has nothing
			// left to over-allocate.
			continue
		}
		if allocated[bookingID] > booking.Qty {
			res.Violations = append(res.Violations, blockf(r.Name(), domain.KindBooking, bookingID,
				"booking %s over-allocated: %d/%d containers in collections", booking.Number, allocated[bookingID], booking.Qty))
		}
	}
	return res, nil
}
