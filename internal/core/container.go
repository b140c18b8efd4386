package core

import (
	"context"
	"strings"
	"yardops/pkg/domain"
)

// ContainerInput is the manual container form. Containers normally come from
// Collect; this path covers boxes registered by hand.
type ContainerInput struct {
	Serial   string
	Type     string
	Location string
	Status   domain.ContainerStatus
	Driver   string
}

// ContainerPatch is a partial manual edit; nil fields are left unchanged.
// The serial cannot be changed.
type ContainerPatch struct {
	Type     *string
	Location *string
	Status   *domain.ContainerStatus
	Driver   *string
}

// CreateContainer registers a container by hand. The serial is upper-cased
// and must not match any existing container.
func (s *Service) CreateContainer(ctx context.Context, in ContainerInput) (*domain.Container, Result, error) {
	var created *domain.Container
	res, err := s.run(ctx, "create_container", func(ctx context.Context) (Result, error) {
		serial := normaliseCode(in.Serial)
		if serial == "" {
			return Result{}, domain.ValidationError{Field: "serial", Message: "container serial is required"}
		}
		for _, c := range s.cache.Containers() {
			if c.Serial == serial {
				return Result{}, domain.ValidationError{Field: "serial", Message: "a container with this serial already exists"}
			}
		}
		return s.write(ctx, "create container", func(tx Transaction) error {
			for _, c := range domain.ListAs[*domain.Container](tx.Snapshot()) {
				if c.Serial == serial {
					return domain.ValidationError{Field: "serial", Message: "a container with this serial already exists"}
				}
			}
			c := &domain.Container{
				Serial:   serial,
				Type:     strings.TrimSpace(in.Type),
				Location: strings.TrimSpace(in.Location),
				Status:   in.Status,
				Driver:   strings.TrimSpace(in.Driver),
			}
			c.AppendHistory(s.now())
			var err error
			created, err = domain.CreateAs(tx, c)
			return err
		})
	})
	if err != nil {
		return nil, res, err
	}
	s.emit(ctx, domain.EventRecordCreated, created)
	return created, res, nil
}

// UpdateContainer edits a container outside the yard state machine and
// appends one history entry with the resulting status and location.
func (s *Service) UpdateContainer(ctx context.Context, id string, patch ContainerPatch) (*domain.Container, Result, error) {
	var updated *domain.Container
	res, err := s.run(ctx, "update_container", func(ctx context.Context) (Result, error) {
		if _, ok := s.cache.FindContainer(id); !ok {
			return Result{}, domain.NotFoundError{Kind: domain.KindContainer, ID: id}
		}
		return s.write(ctx, "update container", func(tx Transaction) error {
			var err error
			updated, err = domain.UpdateAs(tx, id, func(c *domain.Container) error {
				if patch.Type != nil {
					c.Type = strings.TrimSpace(*patch.Type)
				}
				if patch.Location != nil {
					c.Location = strings.TrimSpace(*patch.Location)
				}
				if patch.Status != nil {
					c.Status = *patch.Status
				}
				if patch.Driver != nil {
					c.Driver = strings.TrimSpace(*patch.Driver)
				}
				c.AppendHistory(s.now())
				return nil
			})
			return err
		})
	})
	if err != nil {
		return nil, res, err
	}
	s.emit(ctx, domain.EventRecordUpdated, updated)
	return updated, res, nil
}
