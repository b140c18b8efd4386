package core

import "yardops/pkg/domain"

// BookingProgress is a booking's assignment list read against the current
// container cache. Snapshots of different collections arrive independently,
// so an id can outlive its container for a moment; such ids are reported as
// PendingRemoval instead of being counted.
type BookingProgress struct {
	BookingID      string   `json:"bookingId"`
	Number         string   `json:"number"`
	Qty            int      `json:"qty"`
	Active         []string `json:"active"`
	PendingRemoval []string `json:"pendingRemoval"`
	InCollections  int      `json:"inCollections"`
	Remaining      int      `json:"remaining"`
}

// CollectionProgress is the same reading for a collection's collected list.
type CollectionProgress struct {
	CollectionID   string                `json:"collectionId"`
	Qty            int                   `json:"qty"`
	Active         []domain.CollectedRef `json:"active"`
	PendingRemoval []domain.CollectedRef `json:"pendingRemoval"`
	AtYard         int                   `json:"atYard"`
}

// BookingProgress reconciles one booking against cached containers and collections.
func (s *Service) BookingProgress(b *domain.Booking) BookingProgress {
	known := s.containerIDs()
	p := BookingProgress{
		BookingID:      b.ID,
		Number:         b.Number,
		Qty:            b.Qty,
		Active:         []string{},
		PendingRemoval: []string{},
	}
	for _, id := range b.AssignedContainers {
		if _, ok := known[id]; ok {
			p.Active = append(p.Active, id)
		} else {
			p.PendingRemoval = append(p.PendingRemoval, id)
		}
	}
	for _, col := range s.cache.Collections() {
		if col.BookingID == b.ID {
			p.InCollections += col.Qty
		}
	}
	p.Remaining = max(b.Qty-p.InCollections, 0)
	return p
}

// CollectionProgress reconciles one collection against cached containers.
func (s *Service) CollectionProgress(col *domain.Collection) CollectionProgress {
	p := CollectionProgress{
		CollectionID:   col.ID,
		Qty:            col.Qty,
		Active:         []domain.CollectedRef{},
		PendingRemoval: []domain.CollectedRef{},
	}
	for _, ref := range col.CollectedContainers {
		c, ok := s.cache.FindContainer(ref.ContainerID)
		if !ok {
			p.PendingRemoval = append(p.PendingRemoval, ref)
			continue
		}
		p.Active = append(p.Active, ref)
		if c.Location == domain.LocationYard || c.DeliveredToYardAt != nil {
			p.AtYard++
		}
	}
	return p
}

func (s *Service) containerIDs() map[string]struct{} {
	containers := s.cache.Containers()
	ids := make(map[string]struct{}, len(containers))
	for _, c := range containers {
		ids[c.ID] = struct{}{}
	}
	return ids
}
