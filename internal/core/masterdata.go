package core

import (
	"context"
	"strings"
	"yardops/pkg/domain"
)

// DriverInput is the driver reference form.
type DriverInput struct {
	Name     string
	IDNumber string
	Plate    string
	Weight   float64
}

func (in DriverInput) record() (*domain.Driver, error) {
	d := &domain.Driver{
		Name:     strings.TrimSpace(in.Name),
		IDNumber: strings.TrimSpace(in.IDNumber),
		Plate:    normaliseCode(in.Plate),
		Weight:   in.Weight,
	}
	if d.Name == "" || d.IDNumber == "" || d.Plate == "" || d.Weight <= 0 {
		return nil, domain.ValidationError{Message: "All driver fields are required."}
	}
	return d, nil
}

// ChassisInput is the chassis reference form.
type ChassisInput struct {
	Name   string
	Weight float64
	Is40ft bool
	Is2x20 bool
}

func (in ChassisInput) record() (*domain.Chassis, error) {
	c := &domain.Chassis{Name: strings.TrimSpace(in.Name), Weight: in.Weight, Is40ft: in.Is40ft, Is2x20: in.Is2x20}
	if c.Name == "" || c.Weight <= 0 {
		return nil, domain.ValidationError{Message: "Chassis name and weight are required."}
	}
	return c, nil
}

// LocationInput is the location reference form.
type LocationInput struct {
	Name     string
	IsTilter bool
}

func (in LocationInput) record() (*domain.Location, error) {
	l := &domain.Location{Name: strings.TrimSpace(in.Name), IsTilter: in.IsTilter}
	if l.Name == "" {
		return nil, domain.ValidationError{Field: "name", Message: "location name is required"}
	}
	return l, nil
}

// StatusInput is the status badge form.
type StatusInput struct {
	Emoji       string
	Description string
}

func (in StatusInput) record() (*domain.Status, error) {
	st := &domain.Status{Emoji: strings.TrimSpace(in.Emoji), Description: strings.TrimSpace(in.Description)}
	if st.Emoji == "" || st.Description == "" {
		return nil, domain.ValidationError{Message: "Emoji and Description are required for statuses."}
	}
	return st, nil
}

// ContainerTypeInput is the container type form.
type ContainerTypeInput struct {
	Name string
}

func (in ContainerTypeInput) record() (*domain.ContainerType, error) {
	t := &domain.ContainerType{Name: strings.TrimSpace(in.Name)}
	if t.Name == "" {
		return nil, domain.ValidationError{Field: "name", Message: "container type name is required"}
	}
	return t, nil
}

// CreateDriver stores a new driver.
func (s *Service) CreateDriver(ctx context.Context, in DriverInput) (*domain.Driver, Result, error) {
	return createReference(ctx, s, "create_driver", in.record)
}

// UpdateDriver replaces the editable fields of a driver.
func (s *Service) UpdateDriver(ctx context.Context, id string, in DriverInput) (*domain.Driver, Result, error) {
	return updateReference(ctx, s, "update_driver", id, in.record, func(dst, src *domain.Driver) {
		dst.Name, dst.IDNumber, dst.Plate, dst.Weight = src.Name, src.IDNumber, src.Plate, src.Weight
	})
}

// CreateChassis stores a new chassis.
func (s *Service) CreateChassis(ctx context.Context, in ChassisInput) (*domain.Chassis, Result, error) {
	return createReference(ctx, s, "create_chassis", in.record)
}

// UpdateChassis replaces the editable fields of a chassis.
func (s *Service) UpdateChassis(ctx context.Context, id string, in ChassisInput) (*domain.Chassis, Result, error) {
	return updateReference(ctx, s, "update_chassis", id, in.record, func(dst, src *domain.Chassis) {
		dst.Name, dst.Weight, dst.Is40ft, dst.Is2x20 = src.Name, src.Weight, src.Is40ft, src.Is2x20
	})
}

// CreateLocation stores a new location.
func (s *Service) CreateLocation(ctx context.Context, in LocationInput) (*domain.Location, Result, error) {
	return createReference(ctx, s, "create_location", in.record)
}

// UpdateLocation renames a location or changes its tilter flag.
func (s *Service) UpdateLocation(ctx context.Context, id string, in LocationInput) (*domain.Location, Result, error) {
	return updateReference(ctx, s, "update_location", id, in.record, func(dst, src *domain.Location) {
		dst.Name, dst.IsTilter = src.Name, src.IsTilter
	})
}

// CreateStatus stores a new status badge.
func (s *Service) CreateStatus(ctx context.Context, in StatusInput) (*domain.Status, Result, error) {
	return createReference(ctx, s, "create_status", in.record)
}

// UpdateStatus replaces a status badge.
func (s *Service) UpdateStatus(ctx context.Context, id string, in StatusInput) (*domain.Status, Result, error) {
	return updateReference(ctx, s, "update_status", id, in.record, func(dst, src *domain.Status) {
		dst.Emoji, dst.Description = src.Emoji, src.Description
	})
}

// CreateContainerType stores a new container type.
func (s *Service) CreateContainerType(ctx context.Context, in ContainerTypeInput) (*domain.ContainerType, Result, error) {
	return createReference(ctx, s, "create_container_type", in.record)
}

// UpdateContainerType renames a container type.
func (s *Service) UpdateContainerType(ctx context.Context, id string, in ContainerTypeInput) (*domain.ContainerType, Result, error) {
	return updateReference(ctx, s, "update_container_type", id, in.record, func(dst, src *domain.ContainerType) {
		dst.Name = src.Name
	})
}

func createReference[T domain.Record](ctx context.Context, s *Service, op string, build func() (T, error)) (T, Result, error) {
	var created T
	res, err := s.run(ctx, op, func(ctx context.Context) (Result, error) {
		rec, err := build()
		if err != nil {
			return Result{}, err
		}
		return s.write(ctx, op, func(tx Transaction) error {
			var err error
			created, err = domain.CreateAs(tx, rec)
			return err
		})
	})
	if err != nil {
		var zero T
		return zero, res, err
	}
	s.emit(ctx, domain.EventRecordCreated, created)
	return created, res, nil
}

func updateReference[T domain.Record](ctx context.Context, s *Service, op, id string, build func() (T, error), assign func(dst, src T)) (T, Result, error) {
	var (
		zero    T
		updated T
	)
	res, err := s.run(ctx, op, func(ctx context.Context) (Result, error) {
		src, err := build()
		if err != nil {
			return Result{}, err
		}
		if _, ok := s.cache.Find(zero.Kind(), id); !ok {
			return Result{}, domain.NotFoundError{Kind: zero.Kind(), ID: id}
		}
		return s.write(ctx, op, func(tx Transaction) error {
			var err error
			updated, err = domain.UpdateAs(tx, id, func(dst T) error {
				assign(dst, src)
				return nil
			})
			return err
		})
	})
	if err != nil {
		return zero, res, err
	}
	s.emit(ctx, domain.EventRecordUpdated, updated)
	return updated, res, nil
}
