package domain

import (
	"fmt"
	"sort"
	"strings"
)

// EntityKind identifies one of the yard's store collections.
type EntityKind string

// Supported entity kinds. The string value is the store collection name.
const (
	KindContainer     EntityKind = "containers"
	KindDriver        EntityKind = "drivers"
	KindChassis       EntityKind = "chassis"
	KindLocation      EntityKind = "locations"
	KindStatus        EntityKind = "statuses"
	KindContainerType EntityKind = "containerTypes"
	KindBooking       EntityKind = "bookings"
	KindCollection    EntityKind = "collections"
)

type kindSpec struct {
	label   string
	newFn   func() Record
	less    func(a, b Record) bool
	sortKey string
}

var kindSpecs = map[EntityKind]kindSpec{
	KindContainer: {
		label:   "container",
		newFn:   func() Record { return &Container{} },
		sortKey: "lastUpdated",
		less: func(a, b Record) bool {
			return a.(*Container).LastUpdated.After(b.(*Container).LastUpdated)
		},
	},
	KindDriver: {
		label:   "driver",
		newFn:   func() Record { return &Driver{} },
		sortKey: "name",
		less:    func(a, b Record) bool { return foldLess(a.(*Driver).Name, b.(*Driver).Name) },
	},
	KindChassis: {
		label:   "chassis",
		newFn:   func() Record { return &Chassis{} },
		sortKey: "name",
		less:    func(a, b Record) bool { return foldLess(a.(*Chassis).Name, b.(*Chassis).Name) },
	},
	KindLocation: {
		label:   "location",
		newFn:   func() Record { return &Location{} },
		sortKey: "name",
		less:    func(a, b Record) bool { return foldLess(a.(*Location).Name, b.(*Location).Name) },
	},
	KindStatus: {
		label:   "status",
		newFn:   func() Record { return &Status{} },
		sortKey: "description",
		less: func(a, b Record) bool {
			return foldLess(a.(*Status).Description, b.(*Status).Description)
		},
	},
	KindContainerType: {
		label:   "container type",
		newFn:   func() Record { return &ContainerType{} },
		sortKey: "name",
		less: func(a, b Record) bool {
			return foldLess(a.(*ContainerType).Name, b.(*ContainerType).Name)
		},
	},
	KindBooking: {
		label:   "booking",
		newFn:   func() Record { return &Booking{} },
		sortKey: "deadline",
		less: func(a, b Record) bool {
			ba, bb := a.(*Booking), b.(*Booking)
			if !ba.Deadline.Equal(bb.Deadline) {
				return ba.Deadline.Before(bb.Deadline)
			}
			return ba.Number < bb.Number
		},
	},
	KindCollection: {
		label:   "collection",
		newFn:   func() Record { return &Collection{} },
		sortKey: "createdAt",
		less: func(a, b Record) bool {
			return a.(*Collection).CreatedAt.After(b.(*Collection).CreatedAt)
		},
	},
}

// AllKinds lists every kind in a stable order.
func AllKinds() []EntityKind {
	return []EntityKind{
		KindContainer,
		KindDriver,
		KindChassis,
		KindLocation,
		KindStatus,
		KindContainerType,
		KindBooking,
		KindCollection,
	}
}

// ParseKind resolves a collection name into a kind.
func ParseKind(name string) (EntityKind, error) {
	kind := EntityKind(name)
	if _, ok := kindSpecs[kind]; !ok {
		return "", fmt.Errorf("unknown entity kind %q", name)
	}
	return kind, nil
}

// Valid reports whether the kind is registered.
func (k EntityKind) Valid() bool {
	_, ok := kindSpecs[k]
	return ok
}

// Label returns the singular human label for the kind.
func (k EntityKind) Label() string {
	if spec, ok := kindSpecs[k]; ok {
		return spec.label
	}
	return string(k)
}

// SortKey names the field records of this kind are ordered by.
func (k EntityKind) SortKey() string {
	return kindSpecs[k].sortKey
}

// New returns an empty record of this kind, or nil for unknown kinds.
func (k EntityKind) New() Record {
	spec, ok := kindSpecs[k]
	if !ok {
		return nil
	}
	return spec.newFn()
}

// Sort orders records in place by the kind's canonical sort key, breaking ties
// by id. Records of a different kind are left where they are relative to each other.
func (k EntityKind) Sort(records []Record) {
	spec, ok := kindSpecs[k]
	if !ok {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Kind() != k || records[j].Kind() != k {
			return false
		}
		if spec.less(records[i], records[j]) {
			return true
		}
		if spec.less(records[j], records[i]) {
			return false
		}
		return records[i].GetID() < records[j].GetID()
	})
}

func foldLess(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}
