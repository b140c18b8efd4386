package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNothingToUndo is returned when the undo buffer is empty.
var ErrNothingToUndo = errors.New("nothing to undo")

// ValidationError reports a missing or invalid field on create or update.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ChassisCapabilityError reports a chassis that cannot carry the requested load.
type ChassisCapabilityError struct {
	ChassisID string
	Message   string
}

func (e ChassisCapabilityError) Error() string {
	return e.Message
}

// QuantityExceededError reports a collection quantity above what the booking has left.
type QuantityExceededError struct {
	BookingID string
	Requested int
	Remaining int
}

func (e QuantityExceededError) Error() string {
	return fmt.Sprintf("Only %d container(s) left to assign on this booking.", e.Remaining)
}

// NotFoundError reports a referenced entity missing at action time.
type NotFoundError struct {
	Kind EntityKind
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind.Label(), e.ID)
}

// TransitionError reports a yard action that is not legal from the container's status.
type TransitionError struct {
	ContainerID string
	From        ContainerStatus
	Action      string
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("action %s not allowed for container %s in status %q", e.Action, e.ContainerID, e.From)
}

// StoreWriteError wraps a failed persistence operation.
type StoreWriteError struct {
	Op  string
	Err error
}

func (e StoreWriteError) Error() string {
	return fmt.Sprintf("store write %s: %v", e.Op, e.Err)
}

func (e StoreWriteError) Unwrap() error { return e.Err }

// PartialWriteError reports a multi-step write sequence that stopped midway.
// Completed steps are left in place.
type PartialWriteError struct {
	Completed []string
	Failed    string
	Err       error
}

func (e PartialWriteError) Error() string {
	return fmt.Sprintf("partial write: completed [%s], failed %s: %v", strings.Join(e.Completed, ", "), e.Failed, e.Err)
}

func (e PartialWriteError) Unwrap() error {
	return StoreWriteError{Op: e.Failed, Err: e.Err}
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
