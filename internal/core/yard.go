package core

import (
	"context"
	"strings"
	"yardops/pkg/domain"
)

// YardAction is an operator command that moves a container through the yard.
type YardAction string

// Yard actions. Actions marked with a destination take one from Location
// reference data or, for park_yes, a hold status.
const (
	ActionDeliver   YardAction = "deliver"
	ActionTilterYes YardAction = "tilter_yes" // destination: tilter location
	ActionTilterNo  YardAction = "tilter_no"
	ActionTakeOut   YardAction = "take_out"
	ActionParkYes   YardAction = "park_yes" // destination: hold status
	ActionParkNo    YardAction = "park_no"
	ActionResume    YardAction = "resume" // destination: Awaiting Weighing or a tilter
	ActionComplete  YardAction = "complete" // destination: operator location
	ActionLoaded    YardAction = "loaded"
)

type transition struct {
	from  []domain.ContainerStatus
	apply func(s *Service, c *domain.Container, dest string) error
}

var transitions = map[YardAction]transition{
	ActionDeliver: {
		from: []domain.ContainerStatus{domain.StatusCollectedFromPier},
		apply: func(s *Service, c *domain.Container, _ string) error {
			now := s.now()
			c.Status = domain.StatusDeliveredToYard
			c.Location = domain.LocationYard
			c.DeliveredToYardAt = &now
			return nil
		},
	},
	ActionTilterYes: {
		from: []domain.ContainerStatus{domain.StatusDeliveredToYard},
		apply: func(s *Service, c *domain.Container, dest string) error {
			loc, err := s.tilterDestination(dest)
			if err != nil {
				return err
			}
			c.Status = domain.StatusInTilter
			c.Location = loc
			return nil
		},
	},
	ActionTilterNo: {
		from: []domain.ContainerStatus{domain.StatusDeliveredToYard},
		apply: func(_ *Service, c *domain.Container, _ string) error {
			c.Status = domain.StatusOutOfTilter
			return nil
		},
	},
	ActionTakeOut: {
		from: []domain.ContainerStatus{domain.StatusInTilter},
		apply: func(_ *Service, c *domain.Container, _ string) error {
			c.Status = domain.StatusOutOfTilter
			c.Location = domain.LocationYard
			return nil
		},
	},
	ActionParkYes: {
		from: []domain.ContainerStatus{domain.StatusOutOfTilter},
		apply: func(_ *Service, c *domain.Container, dest string) error {
			hold := domain.ContainerStatus(strings.TrimSpace(dest))
			if !hold.IsHold() {
				return domain.ValidationError{Field: "destination", Message: "hold reason must be Temp Hold or Busy/Issue Hold"}
			}
			c.Status = hold
			return nil
		},
	},
	ActionParkNo: {
		from: []domain.ContainerStatus{domain.StatusOutOfTilter},
		apply: func(_ *Service, c *domain.Container, _ string) error {
			c.Status = domain.StatusAwaitingWeighing
			return nil
		},
	},
	ActionResume: {
		from: []domain.ContainerStatus{domain.StatusTempHold, domain.StatusBusyIssueHold},
		apply: func(s *Service, c *domain.Container, dest string) error {
			if strings.TrimSpace(dest) == string(domain.StatusAwaitingWeighing) {
				c.Status = domain.StatusAwaitingWeighing
				return nil
			}
			loc, err := s.tilterDestination(dest)
			if err != nil {
				return domain.ValidationError{Field: "destination", Message: "resume to Awaiting Weighing or a tilter location"}
			}
			c.Status = domain.StatusInTilter
			c.Location = loc
			return nil
		},
	},
	ActionComplete: {
		from: []domain.ContainerStatus{domain.StatusAwaitingWeighing},
		apply: func(s *Service, c *domain.Container, dest string) error {
			loc, err := s.operatorDestination(dest)
			if err != nil {
				return err
			}
			c.Status = domain.StatusMovedToOperator
			c.Location = loc
			return nil
		},
	},
	ActionLoaded: {
		from: []domain.ContainerStatus{domain.StatusMovedToOperator},
		apply: func(s *Service, c *domain.Container, _ string) error {
			now := s.now()
			c.Status = domain.StatusLoaded
			c.LoadedAt = &now
			return nil
		},
	},
}

// yardActionOrder is the order actions are offered in.
var yardActionOrder = []YardAction{
	ActionDeliver, ActionTilterYes, ActionTilterNo, ActionTakeOut,
	ActionParkYes, ActionParkNo, ActionResume, ActionComplete, ActionLoaded,
}

// AvailableActions lists the actions legal from the container's current status.
func AvailableActions(c *domain.Container) []YardAction {
	if c == nil {
		return nil
	}
	var out []YardAction
	for _, action := range yardActionOrder {
		if allowedFrom(transitions[action], c.Status) {
			out = append(out, action)
		}
	}
	return out
}

func allowedFrom(t transition, status domain.ContainerStatus) bool {
	for _, from := range t.from {
		if from == status {
			return true
		}
	}
	return false
}

// Transition applies one yard action to a container. The new status and
// location are written with exactly one appended history entry. Delivering
// to the yard also re-checks whether the owning collection is complete.
func (s *Service) Transition(ctx context.Context, containerID string, action YardAction, destination string) (*domain.Container, Result, error) {
	var (
		updated   *domain.Container
		completed *domain.Collection
	)
	res, err := s.run(ctx, "yard_"+string(action), func(ctx context.Context) (Result, error) {
		t, ok := transitions[action]
		if !ok {
			return Result{}, domain.ValidationError{Field: "action", Message: "unknown yard action " + string(action)}
		}
		current, ok := s.cache.FindContainer(containerID)
		if !ok {
			return Result{}, domain.NotFoundError{Kind: domain.KindContainer, ID: containerID}
		}
		if !allowedFrom(t, current.Status) {
			return Result{}, domain.TransitionError{ContainerID: containerID, From: current.Status, Action: string(action)}
		}
		return s.write(ctx, "update container", func(tx Transaction) error {
			var err error
			updated, err = domain.UpdateAs(tx, containerID, func(c *domain.Container) error {
				// The cache may lag the store; the stored status decides.
				if !allowedFrom(t, c.Status) {
					return domain.TransitionError{ContainerID: containerID, From: c.Status, Action: string(action)}
				}
				if err := t.apply(s, c, destination); err != nil {
					return err
				}
				c.AppendHistory(s.now())
				return nil
			})
			if err != nil {
				return err
			}
			if action == ActionDeliver {
				completed, err = completeIfDelivered(tx, containerID)
			}
			return err
		})
	})
	if err != nil {
		return nil, res, err
	}
	s.emit(ctx, domain.EventContainerMoved, updated)
	if completed != nil {
		s.logger.Info("collection complete", "collection", completed.ID, "booking", completed.BookingNumber)
		s.emit(ctx, domain.EventCollectionCompleted, completed)
	}
	return updated, res, nil
}

// DeliverToYard moves a container collected from the pier into the yard.
func (s *Service) DeliverToYard(ctx context.Context, id string) (*domain.Container, Result, error) {
	return s.Transition(ctx, id, ActionDeliver, "")
}

// MoveToTilter sends a delivered container into the named tilter.
func (s *Service) MoveToTilter(ctx context.Context, id, tilter string) (*domain.Container, Result, error) {
	return s.Transition(ctx, id, ActionTilterYes, tilter)
}

// SkipTilter marks a delivered container as not needing the tilter.
func (s *Service) SkipTilter(ctx context.Context, id string) (*domain.Container, Result, error) {
	return s.Transition(ctx, id, ActionTilterNo, "")
}

// TakeOutOfTilter returns a container from the tilter to the yard.
func (s *Service) TakeOutOfTilter(ctx context.Context, id string) (*domain.Container, Result, error) {
	return s.Transition(ctx, id, ActionTakeOut, "")
}

// Park puts a container on hold with the given hold status.
func (s *Service) Park(ctx context.Context, id string, reason domain.ContainerStatus) (*domain.Container, Result, error) {
	return s.Transition(ctx, id, ActionParkYes, string(reason))
}

// SendToWeighing queues a container out of the tilter for weighing.
func (s *Service) SendToWeighing(ctx context.Context, id string) (*domain.Container, Result, error) {
	return s.Transition(ctx, id, ActionParkNo, "")
}

// Resume releases a held container to weighing or to a tilter.
func (s *Service) Resume(ctx context.Context, id, destination string) (*domain.Container, Result, error) {
	return s.Transition(ctx, id, ActionResume, destination)
}

// MoveToOperator drops a weighed container at an operator location.
func (s *Service) MoveToOperator(ctx context.Context, id, operator string) (*domain.Container, Result, error) {
	return s.Transition(ctx, id, ActionComplete, operator)
}

// MarkLoaded records that the operator loaded the container.
func (s *Service) MarkLoaded(ctx context.Context, id string) (*domain.Container, Result, error) {
	return s.Transition(ctx, id, ActionLoaded, "")
}

// TilterDestinations lists locations flagged or named as tilters.
func (s *Service) TilterDestinations() []*domain.Location {
	var out []*domain.Location
	for _, l := range s.cache.Locations() {
		if domain.IsTilterLocation(l) {
			out = append(out, l)
		}
	}
	return out
}

// OperatorDestinations lists locations a container can be dropped at for an
// operator: everything except Yard, Pier and chassis locations.
func (s *Service) OperatorDestinations() []*domain.Location {
	var out []*domain.Location
	for _, l := range s.cache.Locations() {
		if domain.IsOperatorLocation(l.Name) {
			out = append(out, l)
		}
	}
	return out
}

func (s *Service) tilterDestination(name string) (string, error) {
	name = strings.TrimSpace(name)
	for _, l := range s.TilterDestinations() {
		if l.Name == name {
			return l.Name, nil
		}
	}
	return "", domain.ValidationError{Field: "destination", Message: "unknown tilter location " + name}
}

func (s *Service) operatorDestination(name string) (string, error) {
	name = strings.TrimSpace(name)
	for _, l := range s.OperatorDestinations() {
		if l.Name == name {
			return l.Name, nil
		}
	}
	return "", domain.ValidationError{Field: "destination", Message: "unknown operator location " + name}
}
