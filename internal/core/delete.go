package core

import (
	"context"
	"slices"
	"strings"
	"yardops/pkg/domain"
)

// DeleteContainer removes a container and unlinks it in the same batch: its id
// leaves the owning booking's assignments, its entry leaves any collection
// that collected it and that collection's qty drops by one. A collection whose
// qty reaches zero is deleted. The container goes into the undo slot.
//
// On stores without atomic batches the three edits are written in order and a
// failure after the container is gone returns a PartialWriteError. Ids left
// behind on bookings or collections then show up as pending removal.
func (s *Service) DeleteContainer(ctx context.Context, id string) (Result, error) {
	var removed domain.Record
	res, err := s.run(ctx, "delete_container", func(ctx context.Context) (Result, error) {
		if _, ok := s.cache.FindContainer(id); !ok {
			return Result{}, domain.NotFoundError{Kind: domain.KindContainer, ID: id}
		}
		if !s.atomic() {
			var res Result
			var err error
			removed, res, err = s.deleteContainerSequential(ctx, id)
			return res, err
		}
		var prior domain.Record
		res, err := s.write(ctx, "delete container", func(tx Transaction) error {
			var err error
			if prior, err = tx.Delete(domain.KindContainer, id); err != nil {
				return err
			}
			if err := unassignFromBookings(tx, prior.(*domain.Container)); err != nil {
				return err
			}
			return unlinkFromCollections(tx, id)
		})
		if err == nil {
			removed = prior
		}
		return res, err
	})
	if removed == nil {
		return res, err
	}
	s.remember(removed)
	s.emit(ctx, domain.EventRecordDeleted, removed)
	return res, err
}

const (
	stepDeleteContainer   = "delete container"
	stepUnassignBookings  = "unassign from bookings"
	stepUnlinkCollections = "unlink from collections"
)

func (s *Service) deleteContainerSequential(ctx context.Context, id string) (domain.Record, Result, error) {
	var (
		removed *domain.Container
		total   Result
	)
	steps := []struct {
		name string
		fn   func(Transaction) error
	}{
		{stepDeleteContainer, func(tx Transaction) error {
			prior, err := tx.Delete(domain.KindContainer, id)
			if err != nil {
				return err
			}
			removed = prior.(*domain.Container)
			return nil
		}},
		{stepUnassignBookings, func(tx Transaction) error { return unassignFromBookings(tx, removed) }},
		{stepUnlinkCollections, func(tx Transaction) error { return unlinkFromCollections(tx, id) }},
	}
	var done []string
	for _, step := range steps {
		res, err := s.write(ctx, step.name, step.fn)
		total.Merge(res)
		if err != nil {
			if len(done) == 0 {
				return nil, total, err
			}
			s.logger.Error("container delete left partial state", "completed", strings.Join(done, ","), "failed", step.name, "container", id, "error", err)
			return removed, total, domain.PartialWriteError{Completed: done, Failed: step.name, Err: err}
		}
		done = append(done, step.name)
	}
	return removed, total, nil
}

func unassignFromBookings(tx Transaction, c *domain.Container) error {
	for _, b := range domain.ListAs[*domain.Booking](tx.Snapshot()) {
		if !b.HasAssigned(c.ID) {
			continue
		}
		if _, err := domain.UpdateAs(tx, b.ID, func(b *domain.Booking) error {
			b.AssignedContainers = slices.DeleteFunc(b.AssignedContainers, func(v string) bool { return v == c.ID })
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func unlinkFromCollections(tx Transaction, containerID string) error {
	for _, col := range domain.ListAs[*domain.Collection](tx.Snapshot()) {
		if col.IndexOf(containerID) < 0 {
			continue
		}
		if col.Qty <= 1 {
			if _, err := tx.Delete(domain.KindCollection, col.ID); err != nil {
				return err
			}
			continue
		}
		if _, err := domain.UpdateAs(tx, col.ID, func(col *domain.Collection) error {
			col.CollectedContainers = slices.DeleteFunc(col.CollectedContainers, func(ref domain.CollectedRef) bool {
				return ref.ContainerID == containerID
			})
			col.Qty--
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes one record of any kind. Containers take the cascading path;
// other kinds are removed on their own. The record goes into the undo slot,
// replacing whatever was there.
func (s *Service) Delete(ctx context.Context, kind domain.EntityKind, id string) (Result, error) {
	if kind == domain.KindContainer {
		return s.DeleteContainer(ctx, id)
	}
	var removed domain.Record
	res, err := s.run(ctx, "delete_"+string(kind), func(ctx context.Context) (Result, error) {
		if !kind.Valid() {
			return Result{}, domain.ValidationError{Field: "kind", Message: "unknown collection " + string(kind)}
		}
		if _, ok := s.cache.Find(kind, id); !ok {
			return Result{}, domain.NotFoundError{Kind: kind, ID: id}
		}
		return s.write(ctx, "delete "+kind.Label(), func(tx Transaction) error {
			var err error
			removed, err = tx.Delete(kind, id)
			return err
		})
	})
	if err != nil {
		return res, err
	}
	s.remember(removed)
	s.emit(ctx, domain.EventRecordDeleted, removed)
	return res, nil
}

func (s *Service) remember(rec domain.Record) {
	s.cache.SetLastDeleted(domain.DeletedItem{
		Kind:      rec.Kind(),
		ID:        rec.GetID(),
		Original:  rec,
		DeletedAt: s.now(),
	})
}

// Undo restores the last deleted record under its original id and empties the
// undo slot. Relationship edits made by a container cascade stay in place:
// the restored container is not re-linked to its booking or collection.
func (s *Service) Undo(ctx context.Context) (domain.Record, Result, error) {
	var restored domain.Record
	res, err := s.run(ctx, "undo", func(ctx context.Context) (Result, error) {
		item, ok := s.cache.LastDeleted()
		if !ok || item.Original == nil {
			return Result{}, domain.ErrNothingToUndo
		}
		res, err := s.write(ctx, "restore "+item.Kind.Label(), func(tx Transaction) error {
			var err error
			restored, err = tx.Create(item.Original)
			return err
		})
		if err != nil {
			return res, err
		}
		s.cache.ClearLastDeleted()
		return res, nil
	})
	if err != nil {
		return nil, res, err
	}
	s.emit(ctx, domain.EventRecordRestored, restored)
	return restored, res, nil
}
