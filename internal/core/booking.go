package core

import (
	"context"
	"strings"
	"time"
	"yardops/pkg/domain"
)

// BookingInput carries the fields required to create a booking.
type BookingInput struct {
	Number        string
	Qty           int
	Type          string
	Deadline      time.Time
	ContainerSize string
}

// BookingPatch is a partial booking update; nil fields are left unchanged.
type BookingPatch struct {
	Number        *string
	Qty           *int
	Type          *string
	Deadline      *time.Time
	ContainerSize *string
}

func (in BookingInput) validate() error {
	switch {
	case strings.TrimSpace(in.Number) == "":
		return domain.ValidationError{Field: "number", Message: "booking number is required"}
	case in.Qty <= 0:
		return domain.ValidationError{Field: "qty", Message: "quantity must be greater than zero"}
	case strings.TrimSpace(in.Type) == "":
		return domain.ValidationError{Field: "type", Message: "container type is required"}
	case in.Deadline.IsZero():
		return domain.ValidationError{Field: "deadline", Message: "deadline is required"}
	case strings.TrimSpace(in.ContainerSize) == "":
		return domain.ValidationError{Field: "containerSize", Message: "container size is required"}
	}
	return nil
}

// CreateBooking validates and stores a new booking with no assigned containers.
func (s *Service) CreateBooking(ctx context.Context, in BookingInput) (*domain.Booking, Result, error) {
	var created *domain.Booking
	res, err := s.run(ctx, "create_booking", func(ctx context.Context) (Result, error) {
		if err := in.validate(); err != nil {
			return Result{}, err
		}
		return s.write(ctx, "create booking", func(tx Transaction) error {
			var err error
			created, err = domain.CreateAs(tx, &domain.Booking{
				Number:             normaliseCode(in.Number),
				Qty:                in.Qty,
				Type:               strings.TrimSpace(in.Type),
				Deadline:           in.Deadline,
				ContainerSize:      strings.TrimSpace(in.ContainerSize),
				AssignedContainers: []string{},
			})
			return err
		})
	})
	if err != nil {
		return nil, res, err
	}
	s.emit(ctx, domain.EventBookingCreated, created)
	return created, res, nil
}

// UpdateBooking applies a partial update. Quantity is not re-checked against
// existing assignments; keeping them consistent is the operator's call.
func (s *Service) UpdateBooking(ctx context.Context, id string, patch BookingPatch) (*domain.Booking, Result, error) {
	var updated *domain.Booking
	res, err := s.run(ctx, "update_booking", func(ctx context.Context) (Result, error) {
		if _, ok := s.cache.FindBooking(id); !ok {
			return Result{}, domain.NotFoundError{Kind: domain.KindBooking, ID: id}
		}
		if patch.Number != nil && strings.TrimSpace(*patch.Number) == "" {
			return Result{}, domain.ValidationError{Field: "number", Message: "booking number cannot be blank"}
		}
		if patch.Qty != nil && *patch.Qty <= 0 {
			return Result{}, domain.ValidationError{Field: "qty", Message: "quantity must be greater than zero"}
		}
		return s.write(ctx, "update booking", func(tx Transaction) error {
			var err error
			updated, err = domain.UpdateAs(tx, id, func(b *domain.Booking) error {
				if patch.Number != nil {
					b.Number = normaliseCode(*patch.Number)
				}
				if patch.Qty != nil {
					b.Qty = *patch.Qty
				}
				if patch.Type != nil {
					b.Type = strings.TrimSpace(*patch.Type)
				}
				if patch.Deadline != nil {
					b.Deadline = *patch.Deadline
				}
				if patch.ContainerSize != nil {
					b.ContainerSize = strings.TrimSpace(*patch.ContainerSize)
				}
				return nil
			})
			return err
		})
	})
	if err != nil {
		return nil, res, err
	}
	s.emit(ctx, domain.EventBookingUpdated, updated)
	return updated, res, nil
}

// OpenBookings lists bookings that can still receive containers, in deadline order.
func (s *Service) OpenBookings() []*domain.Booking {
	var open []*domain.Booking
	for _, b := range s.cache.Bookings() {
		if b.IsOpen() {
			open = append(open, b)
		}
	}
	return open
}

func normaliseCode(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}
