package core

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"yardops/pkg/domain"
)

// CollectionRequest names the driver, booking and chassis for a new collection.
type CollectionRequest struct {
	DriverID  string
	BookingID string
	ChassisID string
	Qty       int
}

// CollectionPlan is the validated shape of a collection about to be created.
type CollectionPlan struct {
	Qty       int
	Remaining int
	Driver    *domain.Driver
	Booking   *domain.Booking
	Chassis   *domain.Chassis
}

// ValidateCollection checks a request against the cache and returns the plan
// or the first failing rule. A 40ft booking clamps the quantity to one before
// the remaining-quantity check runs.
func (s *Service) ValidateCollection(req CollectionRequest) (CollectionPlan, error) {
	if req.Qty <= 0 {
		return CollectionPlan{}, domain.ValidationError{Field: "qty", Message: "quantity must be greater than zero"}
	}
	booking, ok := s.cache.FindBooking(req.BookingID)
	if !ok {
		return CollectionPlan{}, domain.NotFoundError{Kind: domain.KindBooking, ID: req.BookingID}
	}
	driver, ok := s.cache.FindDriver(req.DriverID)
	if !ok {
		return CollectionPlan{}, domain.NotFoundError{Kind: domain.KindDriver, ID: req.DriverID}
	}
	chassis, ok := s.cache.FindChassis(req.ChassisID)
	if !ok {
		return CollectionPlan{}, domain.NotFoundError{Kind: domain.KindChassis, ID: req.ChassisID}
	}

	plan := CollectionPlan{
		Qty:       req.Qty,
		Remaining: remainingForBooking(booking, s.cache.Collections()),
		Driver:    driver,
		Booking:   booking,
		Chassis:   chassis,
	}
	is40 := booking.ContainerSize == domain.Size40ft
	if is40 {
		plan.Qty = 1
	}
	if plan.Qty > plan.Remaining {
		return plan, domain.QuantityExceededError{BookingID: booking.ID, Requested: plan.Qty, Remaining: max(plan.Remaining, 0)}
	}
	if is40 && !chassis.Is40ft {
		return plan, domain.ChassisCapabilityError{ChassisID: chassis.ID, Message: "This chassis cannot handle a 40ft container."}
	}
	if plan.Qty == 2 && !chassis.Is2x20 {
		return plan, domain.ChassisCapabilityError{ChassisID: chassis.ID, Message: "This chassis cannot handle 2 containers."}
	}
	return plan, nil
}

func remainingForBooking(b *domain.Booking, collections []*domain.Collection) int {
	allocated := 0
	for _, c := range collections {
		if c.BookingID == b.ID {
			allocated += c.Qty
		}
	}
	return b.Qty - allocated
}

// CreateCollection validates the request and writes the collection in one
// transaction. Nothing is written when any rule fails.
func (s *Service) CreateCollection(ctx context.Context, req CollectionRequest) (*domain.Collection, Result, error) {
	var created *domain.Collection
	res, err := s.run(ctx, "create_collection", func(ctx context.Context) (Result, error) {
		plan, err := s.ValidateCollection(req)
		if err != nil {
			return Result{}, err
		}
		return s.write(ctx, "create collection", func(tx Transaction) error {
			var err error
			created, err = domain.CreateAs(tx, &domain.Collection{
				DriverID:            plan.Driver.ID,
				DriverName:          plan.Driver.Name,
				BookingID:           plan.Booking.ID,
				BookingNumber:       plan.Booking.Number,
				ChassisID:           plan.Chassis.ID,
				ChassisName:         plan.Chassis.Name,
				Qty:                 plan.Qty,
				ContainerSize:       plan.Booking.ContainerSize,
				Status:              domain.CollectionCollecting,
				CollectedContainers: []domain.CollectedRef{},
			})
			return err
		})
	})
	if err != nil {
		return nil, res, err
	}
	s.emit(ctx, domain.EventCollectionCreated, created)
	return created, res, nil
}

// Collect steps, in the order they are applied when the store cannot batch.
const (
	stepCreateContainer = "create container"
	stepLinkCollection  = "append to collection"
	stepAssignBooking   = "assign to booking"
)

// Collect records one container picked up from the pier for a collection:
// the container is created, linked into the collection and assigned to the
// booking. On stores without atomic batches a failure after the first step
// returns a PartialWriteError naming the steps that were kept.
func (s *Service) Collect(ctx context.Context, collectionID, serial string, tare float64) (*domain.Container, Result, error) {
	var created *domain.Container
	res, err := s.run(ctx, "collect_container", func(ctx context.Context) (Result, error) {
		col, booking, serial, err := s.checkCollect(collectionID, serial, tare)
		if err != nil {
			return Result{}, err
		}
		now := s.now()
		draft := &domain.Container{
			Serial:        serial,
			Tare:          tare,
			Type:          booking.Type,
			Location:      col.ChassisName,
			Status:        domain.StatusCollectedFromPier,
			Driver:        col.DriverName,
			BookingNumber: col.BookingNumber,
			CollectedAt:   &now,
		}
		draft.AppendHistory(now)

		if s.atomic() {
			return s.write(ctx, "collect container", func(tx Transaction) error {
				c, err := domain.CreateAs(tx, draft)
				if err != nil {
					return err
				}
				created = c
				if err := linkToCollection(tx, col.ID, c); err != nil {
					return err
				}
				return assignToBooking(tx, booking.ID, c.ID)
			})
		}
		var res Result
		created, res, err = s.collectSequential(ctx, draft, col.ID, booking.ID)
		return res, err
	})
	if err != nil {
		return created, res, err
	}
	s.emit(ctx, domain.EventContainerCollected, created)
	return created, res, nil
}

func (s *Service) checkCollect(collectionID, serial string, tare float64) (*domain.Collection, *domain.Booking, string, error) {
	col, ok := s.cache.FindCollection(collectionID)
	if !ok {
		return nil, nil, "", domain.NotFoundError{Kind: domain.KindCollection, ID: collectionID}
	}
	booking, ok := s.cache.FindBooking(col.BookingID)
	if !ok {
		return nil, nil, "", domain.NotFoundError{Kind: domain.KindBooking, ID: col.BookingID}
	}
	if col.IsComplete() || len(col.CollectedContainers) >= col.Qty {
		return nil, nil, "", domain.QuantityExceededError{BookingID: booking.ID, Requested: 1, Remaining: max(col.Qty-len(col.CollectedContainers), 0)}
	}
	serial = normaliseCode(serial)
	if serial == "" {
		return nil, nil, "", domain.ValidationError{Field: "serial", Message: "container serial is required"}
	}
	if tare <= 0 {
		return nil, nil, "", domain.ValidationError{Field: "tare", Message: "tare weight must be greater than zero"}
	}
	for _, c := range s.cache.Containers() {
		if c.Serial == serial && c.BookingNumber == col.BookingNumber {
			return nil, nil, "", domain.ValidationError{Field: "serial", Message: fmt.Sprintf("container %s is already on booking %s", serial, col.BookingNumber)}
		}
	}
	return col, booking, serial, nil
}

func (s *Service) collectSequential(ctx context.Context, draft *domain.Container, collectionID, bookingID string) (*domain.Container, Result, error) {
	var (
		created *domain.Container
		total   Result
	)
	steps := []struct {
		name string
		fn   func(Transaction) error
	}{
		{stepCreateContainer, func(tx Transaction) error {
			c, err := domain.CreateAs(tx, draft)
			created = c
			return err
		}},
		{stepLinkCollection, func(tx Transaction) error { return linkToCollection(tx, collectionID, created) }},
		{stepAssignBooking, func(tx Transaction) error { return assignToBooking(tx, bookingID, created.ID) }},
	}
	var done []string
	for _, step := range steps {
		res, err := s.write(ctx, step.name, step.fn)
		total.Merge(res)
		if err != nil {
			if len(done) == 0 {
				return nil, total, err
			}
			s.logger.Error("collect left partial state", "completed", strings.Join(done, ","), "failed", step.name, "container", created.ID, "error", err)
			return created, total, domain.PartialWriteError{Completed: done, Failed: step.name, Err: err}
		}
		done = append(done, step.name)
	}
	return created, total, nil
}

func linkToCollection(tx Transaction, collectionID string, c *domain.Container) error {
	_, err := domain.UpdateAs(tx, collectionID, func(col *domain.Collection) error {
		if col.IsComplete() || len(col.CollectedContainers) >= col.Qty {
			return domain.QuantityExceededError{BookingID: col.BookingID, Requested: 1, Remaining: 0}
		}
		col.CollectedContainers = append(col.CollectedContainers, domain.CollectedRef{ContainerID: c.ID, ContainerSerial: c.Serial})
		if len(col.CollectedContainers) == col.Qty {
			col.Status = domain.CollectionCollected
		}
		return nil
	})
	return err
}

func assignToBooking(tx Transaction, bookingID, containerID string) error {
	_, err := domain.UpdateAs(tx, bookingID, func(b *domain.Booking) error {
		if !slices.Contains(b.AssignedContainers, containerID) {
			b.AssignedContainers = append(b.AssignedContainers, containerID)
		}
		return nil
	})
	return err
}

// completeIfDelivered marks the collection owning containerID complete when it
// is full and every member has reached the yard. A member counts as delivered
// when it sits at the Yard or has a yard delivery timestamp, so containers
// already moved on to the tilter or an operator still count.
func completeIfDelivered(tx Transaction, containerID string) (*domain.Collection, error) {
	view := tx.Snapshot()
	for _, col := range domain.ListAs[*domain.Collection](view) {
		if col.IndexOf(containerID) < 0 {
			continue
		}
		if col.IsComplete() || len(col.CollectedContainers) != col.Qty {
			return nil, nil
		}
		for _, ref := range col.CollectedContainers {
			c, ok := domain.FindAs[*domain.Container](view, ref.ContainerID)
			if !ok {
				return nil, nil
			}
			if c.Location != domain.LocationYard && c.DeliveredToYardAt == nil {
				return nil, nil
			}
		}
		return domain.UpdateAs(tx, col.ID, func(c *domain.Collection) error {
			c.Status = domain.CollectionComplete
			return nil
		})
	}
	return nil, nil
}
