package domain

import "strings"

// Well-known location names.
const (
	LocationYard = "Yard"
	LocationPier = "Pier"
	// ChassisLocationPrefix marks locations that are really a chassis on the road.
	ChassisLocationPrefix = "CH-"
)

// Container size classes a booking can request.
const (
	Size20ft = "20ft"
	Size40ft = "40ft"
)

// CollectionStatus tracks a collection through its pickup workflow.
type CollectionStatus string

// Collection workflow states.
const (
	CollectionCollecting CollectionStatus = "📦🚚COLLECTING FROM PIER"
	CollectionCollected  CollectionStatus = "📦🚚COLLECTED FROM PIER"
	CollectionComplete   CollectionStatus = "Collection Complete"
)

// ContainerStatus is the status field of a container as it moves through the yard.
type ContainerStatus string

// Container yard-operation states.
const (
	StatusCollectedFromPier ContainerStatus = "📦🚚COLLECTED FROM PIER"
	StatusDeliveredToYard   ContainerStatus = "📦🚚Delivered to YARD"
	StatusInTilter          ContainerStatus = "In Tilter"
	StatusOutOfTilter       ContainerStatus = "Out of Tilter"
	StatusTempHold          ContainerStatus = "Temp Hold"
	StatusBusyIssueHold     ContainerStatus = "Busy/Issue Hold"
	StatusAwaitingWeighing  ContainerStatus = "Awaiting Weighing"
	StatusMovedToOperator   ContainerStatus = "Moved to Operator"
	StatusLoaded            ContainerStatus = "Loaded"
)

// IsHold reports whether the status is one of the hold sub-states.
func (s ContainerStatus) IsHold() bool {
	return s == StatusTempHold || s == StatusBusyIssueHold
}

// IsOperatorLocation reports whether a location name is an operator drop-off site.
func IsOperatorLocation(name string) bool {
	if name == "" || name == LocationYard || name == LocationPier {
		return false
	}
	return !strings.HasPrefix(name, ChassisLocationPrefix)
}

// IsTilterLocation reports whether a location is a tilter, by flag or by name.
func IsTilterLocation(l *Location) bool {
	if l == nil {
		return false
	}
	return l.IsTilter || strings.Contains(strings.ToLower(l.Name), "tilter")
}
