package domain

import (
	"testing"
	"time"
)

func TestKinds(t *testing.T) {
	for _, kind := range AllKinds() {
		if !kind.Valid() {
			t.Fatalf("%s should be valid", kind)
		}
		rec := kind.New()
		if rec == nil || rec.Kind() != kind {
			t.Fatalf("%s: New returned %#v", kind, rec)
		}
		parsed, err := ParseKind(string(kind))
		if err != nil || parsed != kind {
			t.Fatalf("parse %s: %v", kind, err)
		}
	}
	if _, err := ParseKind("trucks"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
	if EntityKind("trucks").Valid() || EntityKind("trucks").New() != nil {
		t.Fatalf("unknown kind should be invalid")
	}
	if KindContainerType.Label() != "container type" || EntityKind("x").Label() != "x" {
		t.Fatalf("unexpected labels")
	}
}

func TestKindSort(t *testing.T) {
	drivers := []Record{
		&Driver{Base: Base{ID: "3"}, Name: "zola"},
		&Driver{Base: Base{ID: "2"}, Name: "Amos"},
		&Driver{Base: Base{ID: "1"}, Name: "amos"},
	}
	KindDriver.Sort(drivers)
	if ids := recordIDs(drivers); ids != "1,2,3" {
		t.Fatalf("drivers sorted by folded name then id, got %s", ids)
	}

	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	bookings := []Record{
		&Booking{Base: Base{ID: "a"}, Number: "B2", Deadline: day.Add(time.Hour)},
		&Booking{Base: Base{ID: "b"}, Number: "B9", Deadline: day},
		&Booking{Base: Base{ID: "c"}, Number: "B1", Deadline: day},
	}
	KindBooking.Sort(bookings)
	if ids := recordIDs(bookings); ids != "c,b,a" {
		t.Fatalf("bookings sorted by deadline then number, got %s", ids)
	}

	containers := []Record{
		&Container{Base: Base{ID: "old"}, LastUpdated: day},
		&Container{Base: Base{ID: "new"}, LastUpdated: day.Add(time.Minute)},
	}
	KindContainer.Sort(containers)
	if ids := recordIDs(containers); ids != "new,old" {
		t.Fatalf("containers newest first, got %s", ids)
	}
}

func recordIDs(records []Record) string {
	out := ""
	for i, r := range records {
		if i > 0 {
			out += ","
		}
		out += r.GetID()
	}
	return out
}

func TestEntityHelpers(t *testing.T) {
	b := &Booking{Qty: 2, AssignedContainers: []string{"c1"}}
	if !b.IsOpen() || !b.HasAssigned("c1") || b.HasAssigned("c2") {
		t.Fatalf("unexpected booking state %+v", b)
	}
	clone := b.Clone().(*Booking)
	clone.AssignedContainers[0] = "changed"
	if b.AssignedContainers[0] != "c1" {
		t.Fatalf("clone shares assignment slice")
	}

	col := &Collection{CollectedContainers: []CollectedRef{{ContainerID: "c1"}, {ContainerID: "c2"}}}
	if col.IndexOf("c2") != 1 || col.IndexOf("c3") != -1 {
		t.Fatalf("unexpected IndexOf")
	}

	at := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	c := &Container{Status: StatusCollectedFromPier, Location: "CH-1", CollectedAt: &at}
	c.AppendHistory(at)
	if len(c.History) != 1 || c.History[0].Location != "CH-1" || !c.LastUpdated.Equal(at) {
		t.Fatalf("unexpected history %+v", c.History)
	}
	cc := c.Clone().(*Container)
	*cc.CollectedAt = at.Add(time.Hour)
	cc.History[0].Location = "Yard"
	if !c.CollectedAt.Equal(at) || c.History[0].Location != "CH-1" {
		t.Fatalf("container clone is shallow")
	}
}

func TestLocationClassification(t *testing.T) {
	for name, want := range map[string]bool{
		"":         false,
		"Yard":     false,
		"Pier":     false,
		"CH-12":    false,
		"Bay 4":    true,
		"Tilter 1": true,
	} {
		if got := IsOperatorLocation(name); got != want {
			t.Errorf("IsOperatorLocation(%q) = %v, want %v", name, got, want)
		}
	}
	if !IsTilterLocation(&Location{Name: "North TILTER"}) || !IsTilterLocation(&Location{Name: "T2", IsTilter: true}) {
		t.Fatalf("expected tilters")
	}
	if IsTilterLocation(&Location{Name: "Bay 4"}) || IsTilterLocation(nil) {
		t.Fatalf("unexpected tilter")
	}
	if !StatusTempHold.IsHold() || StatusLoaded.IsHold() {
		t.Fatalf("unexpected hold classification")
	}
	changes := []Change{{Kind: KindCollection}, {Kind: KindContainer}, {Kind: KindCollection}}
	if got := ChangedKinds(changes); len(got) != 2 || got[0] != KindContainer || got[1] != KindCollection {
		t.Fatalf("unexpected changed kinds %v", got)
	}
}
