// Package domain defines the yard's persistent entities, value types, and
// rule evaluation primitives shared by the workflow engine and the stores.
package domain

import (
	"slices"
	"time"
)

// Base carries the identity and bookkeeping fields shared by every record.
type Base struct {
	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// GetID returns the record identifier.
func (b *Base) GetID() string { return b.ID }

// SetID assigns the record identifier.
func (b *Base) SetID(id string) { b.ID = id }

// Created returns the creation timestamp, zero for records never stored.
func (b *Base) Created() time.Time { return b.CreatedAt }

// Touch stamps bookkeeping timestamps. CreatedAt is only set once.
func (b *Base) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Record is implemented by every entity stored in a collection.
type Record interface {
	Kind() EntityKind
	GetID() string
	SetID(id string)
	Created() time.Time
	Touch(now time.Time)
	Clone() Record
}

// Booking is a customer order for a quantity of containers of a given type and size.
type Booking struct {
	Base               `bson:",inline"`
	Number             string    `bson:"number" json:"number"`
	Qty                int       `bson:"qty" json:"qty"`
	Type               string    `bson:"type" json:"type"`
	Deadline           time.Time `bson:"deadline" json:"deadline"`
	ContainerSize      string    `bson:"containerSize" json:"containerSize"`
	AssignedContainers []string  `bson:"assignedContainers" json:"assignedContainers"`
}

func (*Booking) Kind() EntityKind { return KindBooking }

func (b *Booking) Clone() Record {
	cp := *b
	cp.AssignedContainers = cloneStrings(b.AssignedContainers)
	return &cp
}

// IsOpen reports whether the booking still has unassigned capacity.
func (b *Booking) IsOpen() bool {
	return len(b.AssignedContainers) < b.Qty
}

// HasAssigned reports whether the container id is in the assignment list.
func (b *Booking) HasAssigned(containerID string) bool {
	return slices.Contains(b.AssignedContainers, containerID)
}

// CollectedRef links a collection to one container it produced.
type CollectedRef struct {
	ContainerID     string `bson:"containerId" json:"containerId"`
	ContainerSerial string `bson:"containerSerial" json:"containerSerial"`
}

// Collection is a driver's active pickup task against one booking.
type Collection struct {
	Base                `bson:",inline"`
	DriverID            string           `bson:"driverId" json:"driverId"`
	DriverName          string           `bson:"driverName" json:"driverName"`
	BookingID           string           `bson:"bookingId" json:"bookingId"`
	BookingNumber       string           `bson:"bookingNumber" json:"bookingNumber"`
	ChassisID           string           `bson:"chassisId" json:"chassisId"`
	ChassisName         string           `bson:"chassisName" json:"chassisName"`
	Qty                 int              `bson:"qty" json:"qty"`
	ContainerSize       string           `bson:"containerSize" json:"containerSize"`
	Status              CollectionStatus `bson:"status" json:"status"`
	CollectedContainers []CollectedRef   `bson:"collectedContainers" json:"collectedContainers"`
}

func (*Collection) Kind() EntityKind { return KindCollection }

func (c *Collection) Clone() Record {
	cp := *c
	if c.CollectedContainers != nil {
		cp.CollectedContainers = append([]CollectedRef{}, c.CollectedContainers...)
	}
	return &cp
}

// IndexOf returns the position of the container in the collected list or -1.
func (c *Collection) IndexOf(containerID string) int {
	return slices.IndexFunc(c.CollectedContainers, func(ref CollectedRef) bool {
		return ref.ContainerID == containerID
	})
}

// IsComplete reports whether the collection reached its terminal status.
func (c *Collection) IsComplete() bool {
	return c.Status == CollectionComplete
}

// HistoryEntry is one immutable step in a container's status/location log.
type HistoryEntry struct {
	Status    ContainerStatus `bson:"status" json:"status"`
	Location  string          `bson:"location" json:"location"`
	Timestamp time.Time       `bson:"timestamp" json:"timestamp"`
}

// Container is a physical box moving through the yard.
type Container struct {
	Base              `bson:",inline"`
	Serial            string          `bson:"serial" json:"serial"`
	Tare              float64         `bson:"tare" json:"tare"`
	Type              string          `bson:"type" json:"type"`
	Location          string          `bson:"location" json:"location"`
	Status            ContainerStatus `bson:"status" json:"status"`
	Driver            string          `bson:"driver" json:"driver"`
	BookingNumber     string          `bson:"bookingNumber,omitempty" json:"bookingNumber,omitempty"`
	History           []HistoryEntry  `bson:"history" json:"history"`
	LastUpdated       time.Time       `bson:"lastUpdated" json:"lastUpdated"`
	CollectedAt       *time.Time      `bson:"collectedAt,omitempty" json:"collectedAt,omitempty"`
	DeliveredToYardAt *time.Time      `bson:"deliveredToYardAt,omitempty" json:"deliveredToYardAt,omitempty"`
	LoadedAt          *time.Time      `bson:"loadedAt,omitempty" json:"loadedAt,omitempty"`
}

func (*Container) Kind() EntityKind { return KindContainer }

func (c *Container) Clone() Record {
	cp := *c
	if c.History != nil {
		cp.History = append([]HistoryEntry{}, c.History...)
	}
	cp.CollectedAt = cloneTime(c.CollectedAt)
	cp.DeliveredToYardAt = cloneTime(c.DeliveredToYardAt)
	cp.LoadedAt = cloneTime(c.LoadedAt)
	return &cp
}

// AppendHistory records the container's current status and location.
func (c *Container) AppendHistory(at time.Time) {
	c.History = append(c.History, HistoryEntry{Status: c.Status, Location: c.Location, Timestamp: at})
	c.LastUpdated = at
}

// Driver is reference data for the people moving containers.
type Driver struct {
	Base     `bson:",inline"`
	Name     string  `bson:"name" json:"name"`
	IDNumber string  `bson:"idNumber" json:"idNumber"`
	Plate    string  `bson:"plate" json:"plate"`
	Weight   float64 `bson:"weight" json:"weight"`
}

func (*Driver) Kind() EntityKind { return KindDriver }

func (d *Driver) Clone() Record { cp := *d; return &cp }

// Chassis is trailer equipment with size capability flags.
type Chassis struct {
	Base   `bson:",inline"`
	Name   string  `bson:"name" json:"name"`
	Weight float64 `bson:"weight" json:"weight"`
	Is40ft bool    `bson:"is40ft" json:"is40ft"`
	Is2x20 bool    `bson:"is2x20" json:"is2x20"`
}

func (*Chassis) Kind() EntityKind { return KindChassis }

func (c *Chassis) Clone() Record { cp := *c; return &cp }

// Location is a named place a container can sit.
type Location struct {
	Base     `bson:",inline"`
	Name     string `bson:"name" json:"name"`
	IsTilter bool   `bson:"isTilter,omitempty" json:"isTilter,omitempty"`
}

func (*Location) Kind() EntityKind { return KindLocation }

func (l *Location) Clone() Record { cp := *l; return &cp }

// Status is an operator-defined status badge.
type Status struct {
	Base        `bson:",inline"`
	Emoji       string `bson:"emoji" json:"emoji"`
	Description string `bson:"description" json:"description"`
}

func (*Status) Kind() EntityKind { return KindStatus }

func (s *Status) Clone() Record { cp := *s; return &cp }

// ContainerType is a named container type such as "Dry" or "Reefer".
type ContainerType struct {
	Base `bson:",inline"`
	Name string `bson:"name" json:"name"`
}

func (*ContainerType) Kind() EntityKind { return KindContainerType }

func (t *ContainerType) Clone() Record { cp := *t; return &cp }

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string{}, values...)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
