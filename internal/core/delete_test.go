package core

import (
	"errors"
	"reflect"
	"slices"
	"testing"
	"yardops/pkg/domain"
)

func TestDeleteContainerCascades(t *testing.T) {
	h := newHarness(t)
	bk, cl := h.collection("BK1", 2, 2)
	c1 := h.collect(cl.ID, "CONT0000001")
	c2 := h.collect(cl.ID, "CONT0000002")

	if _, err := h.svc.DeleteContainer(h.ctx, c1.ID); err != nil {
		t.Fatalf("delete c1: %v", err)
	}
	h.sync()
	if got := h.storedBooking(bk.ID).AssignedContainers; !slices.Equal(got, []string{c2.ID}) {
		t.Fatalf("booking should keep only c2, got %v", got)
	}
	col := h.storedCollection(cl.ID)
	if col.Qty != 1 || len(col.CollectedContainers) != 1 || col.CollectedContainers[0].ContainerID != c2.ID {
		t.Fatalf("collection should shrink to c2: %+v", col)
	}
	if item, ok := h.cache.LastDeleted(); !ok || item.ID != c1.ID || item.Kind != domain.KindContainer {
		t.Fatalf("undo slot should hold c1, got %+v", item)
	}

	if _, err := h.svc.Delete(h.ctx, domain.KindContainer, c2.ID); err != nil {
		t.Fatalf("delete c2: %v", err)
	}
	h.sync()
	if _, ok := h.cache.FindCollection(cl.ID); ok {
		t.Fatalf("collection with qty 1 must be deleted with its last container")
	}
	if got := h.storedBooking(bk.ID).AssignedContainers; len(got) != 0 {
		t.Fatalf("booking should have no assignments, got %v", got)
	}
	item, ok := h.cache.LastDeleted()
	if !ok || item.ID != c2.ID {
		t.Fatalf("second delete must overwrite the undo slot, got %+v", item)
	}
	if n := h.events.count(domain.EventRecordDeleted); n != 2 {
		t.Fatalf("expected two delete events, got %d", n)
	}
}

func TestUndoRestoresUnderOriginalID(t *testing.T) {
	h := newHarness(t)
	d := h.driver("Undo")
	if _, err := h.svc.Delete(h.ctx, domain.KindDriver, d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	h.sync()
	if _, ok := h.cache.FindDriver(d.ID); ok {
		t.Fatalf("driver should be gone")
	}
	restored := expect(h.svc.Undo(h.ctx)).ok(t)
	h.sync()
	got, ok := h.cache.FindDriver(d.ID)
	if !ok || restored.GetID() != d.ID || got.Name != d.Name || got.Plate != d.Plate {
		t.Fatalf("expected driver restored under %s, got %+v", d.ID, got)
	}
	if _, ok := h.cache.LastDeleted(); ok {
		t.Fatalf("undo must empty the slot")
	}
	if _, _, err := h.svc.Undo(h.ctx); !errors.Is(err, domain.ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
	if h.events.count(domain.EventRecordRestored) != 1 {
		t.Fatalf("expected one restore event")
	}
}

func TestUndoContainerDoesNotRelink(t *testing.T) {
	h := newHarness(t)
	bk, cl := h.collection("BK2", 2, 2)
	c1 := h.collect(cl.ID, "SOFT0000001")
	h.collect(cl.ID, "SOFT0000002")
	if _, err := h.svc.DeleteContainer(h.ctx, c1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	h.sync()
	restored := expect(h.svc.Undo(h.ctx)).ok(t)
	h.sync()
	c, ok := h.cache.FindContainer(c1.ID)
	if !ok || restored.GetID() != c1.ID || c.Serial != "SOFT0000001" || len(c.History) != 1 {
		t.Fatalf("container should come back as it was: %+v", c)
	}
	if h.storedBooking(bk.ID).HasAssigned(c1.ID) {
		t.Fatalf("restored container must not be re-assigned")
	}
	col := h.storedCollection(cl.ID)
	if col.Qty != 1 || col.IndexOf(c1.ID) >= 0 {
		t.Fatalf("collection must keep the cascade edits: %+v", col)
	}
}

func TestUndoRestoresOnlyTheLastDelete(t *testing.T) {
	h := newHarness(t)
	_, cl := h.collection("BK4", 3, 3)
	c1 := h.collect(cl.ID, "LAST0000001")
	c2 := h.collect(cl.ID, "LAST0000002")
	h.collect(cl.ID, "LAST0000003")
	before, ok := h.cache.FindContainer(c2.ID)
	if !ok {
		t.Fatalf("c2 missing before delete")
	}

	for _, id := range []string{c1.ID, c2.ID} {
		if _, err := h.svc.DeleteContainer(h.ctx, id); err != nil {
			t.Fatalf("delete %s: %v", id, err)
		}
		h.sync()
	}
	expect(h.svc.Undo(h.ctx)).ok(t)
	h.sync()

	if _, ok := h.cache.FindContainer(c1.ID); ok {
		t.Fatalf("only the last deleted container may come back")
	}
	after, ok := h.cache.FindContainer(c2.ID)
	if !ok {
		t.Fatalf("c2 should be restored")
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("restored container differs:\nbefore %+v\nafter  %+v", before, after)
	}
	if _, _, err := h.svc.Undo(h.ctx); !errors.Is(err, domain.ErrNothingToUndo) {
		t.Fatalf("second undo must find an empty slot, got %v", err)
	}
}

func TestUndoCollectionOfDeletedBooking(t *testing.T) {
	h := newHarness(t)
	bk, cl := h.collection("BK5", 2, 1)
	if _, err := h.svc.Delete(h.ctx, domain.KindBooking, bk.ID); err != nil {
		t.Fatalf("delete booking: %v", err)
	}
	h.sync()
	if _, err := h.svc.Delete(h.ctx, domain.KindCollection, cl.ID); err != nil {
		t.Fatalf("delete collection: %v", err)
	}
	h.sync()

	restored := expect(h.svc.Undo(h.ctx)).ok(t)
	h.sync()
	got, ok := h.cache.FindCollection(cl.ID)
	if !ok || restored.GetID() != cl.ID || got.BookingID != bk.ID || got.Qty != 1 {
		t.Fatalf("collection should come back under %s, got %+v", cl.ID, got)
	}
}

func TestDeleteContainerSequentialFallback(t *testing.T) {
	store := &flakyStore{Store: newMemoryStore()}
	h := newHarnessOn(t, store)
	bk, cl := h.collection("BK-D", 3, 3)
	c1 := h.collect(cl.ID, "SEQD0000001")
	c2 := h.collect(cl.ID, "SEQD0000002")
	c3 := h.collect(cl.ID, "SEQD0000003")

	store.failNext(1)
	_, err := h.svc.DeleteContainer(h.ctx, c1.ID)
	var pw domain.PartialWriteError
	var sw domain.StoreWriteError
	if errors.As(err, &pw) || !errors.As(err, &sw) {
		t.Fatalf("first-step failure is a plain store error, got %v", err)
	}
	h.sync()
	if _, ok := h.cache.FindContainer(c1.ID); !ok {
		t.Fatalf("container must survive a failed first step")
	}
	if _, ok := h.cache.LastDeleted(); ok {
		t.Fatalf("failed delete must not fill the undo slot")
	}

	store.failNext(2)
	_, err = h.svc.DeleteContainer(h.ctx, c1.ID)
	if !errors.As(err, &pw) {
		t.Fatalf("expected PartialWriteError, got %v", err)
	}
	if !slices.Equal(pw.Completed, []string{stepDeleteContainer}) || pw.Failed != stepUnassignBookings {
		t.Fatalf("unexpected partial detail %+v", pw)
	}
	if !errors.Is(err, errDisk) {
		t.Fatalf("partial write must wrap the store failure")
	}
	h.sync()
	if _, ok := h.cache.FindContainer(c1.ID); ok {
		t.Fatalf("completed step must be kept")
	}
	if item, ok := h.cache.LastDeleted(); !ok || item.ID != c1.ID {
		t.Fatalf("removed container belongs in the undo slot, got %+v", item)
	}
	p := h.svc.BookingProgress(h.storedBooking(bk.ID))
	if !slices.Equal(p.PendingRemoval, []string{c1.ID}) {
		t.Fatalf("left-behind id should be pending removal, got %+v", p)
	}

	if _, err := h.svc.DeleteContainer(h.ctx, c2.ID); err != nil {
		t.Fatalf("sequential delete: %v", err)
	}
	h.sync()
	if h.storedBooking(bk.ID).HasAssigned(c2.ID) {
		t.Fatalf("c2 must leave the booking")
	}
	col := h.storedCollection(cl.ID)
	if col.IndexOf(c2.ID) >= 0 || col.IndexOf(c3.ID) < 0 || col.Qty != 2 {
		t.Fatalf("c2 must leave the collection: %+v", col)
	}
}

func TestDeleteErrors(t *testing.T) {
	h := newHarness(t)
	var ve domain.ValidationError
	if _, err := h.svc.Delete(h.ctx, "trucks", "x"); !errors.As(err, &ve) {
		t.Fatalf("expected validation error for unknown kind, got %v", err)
	}
	if _, err := h.svc.Delete(h.ctx, domain.KindChassis, "missing"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := h.svc.DeleteContainer(h.ctx, "missing"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, ok := h.cache.LastDeleted(); ok {
		t.Fatalf("failed deletes must not touch the undo slot")
	}
}

func TestBookingProgressReportsDanglingIDs(t *testing.T) {
	h := newHarness(t)
	b, col := h.collection("BK3", 3, 2)
	c := h.collect(col.ID, "DANG0000001")
	booking := h.storedBooking(b.ID)
	booking.AssignedContainers = append(booking.AssignedContainers, "gone")

	p := h.svc.BookingProgress(booking)
	if !slices.Equal(p.Active, []string{c.ID}) || !slices.Equal(p.PendingRemoval, []string{"gone"}) {
		t.Fatalf("unexpected progress %+v", p)
	}
	if p.InCollections != 2 || p.Remaining != 1 || p.Number != "BK3" {
		t.Fatalf("unexpected counts %+v", p)
	}
	collection := h.storedCollection(col.ID)
	collection.CollectedContainers = append(collection.CollectedContainers, domain.CollectedRef{ContainerID: "gone"})
	cp := h.svc.CollectionProgress(collection)
	if len(cp.Active) != 1 || len(cp.PendingRemoval) != 1 || cp.AtYard != 0 {
		t.Fatalf("unexpected collection progress %+v", cp)
	}
}
