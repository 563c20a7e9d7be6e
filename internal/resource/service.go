package resource

import (
	"context"
	"strings"

	"github.com/nekogravitycat/space-reservation-backend/internal/lock"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/money"
)

type CreateRequest struct {
	Name        string
	Description *string
	HourlyRate  money.Cents
	Capacity    *int
}

type UpdateRequest struct {
	Name        *string
	Description *string
	HourlyRate  *money.Cents
	Capacity    *int
}

// UsageChecker reports whether a resource still has active reservations.
type UsageChecker interface {
	HasActiveReservations(ctx context.Context, resourceID string) (bool, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Resource, error)
	GetByID(ctx context.Context, id string) (*Resource, error)
	List(ctx context.Context, filter Filter) ([]*Resource, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Resource, error)
	Delete(ctx context.Context, id string) error
}

type Option func(*service)

// WithLocker makes Delete take the same per-resource lock reservation writers hold,
// so a reservation cannot land between the usage check and the delete.
func WithLocker(locker lock.Locker) Option {
	return func(s *service) { s.locker = locker }
}

type service struct {
	repo   Repository
	usage  UsageChecker
	locker lock.Locker
}

func NewService(repo Repository, usage UsageChecker, opts ...Option) Service {
	s := &service{
		repo:  repo,
		usage: usage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validate(name string, rate money.Cents, capacity *int) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if rate < 0 {
		return ErrNegativeRate
	}
	if capacity != nil && *capacity <= 0 {
		return ErrInvalidCapacity
	}
	return nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Resource, error) {
	if err := validate(req.Name, req.HourlyRate, req.Capacity); err != nil {
		return nil, err
	}

	res := &Resource{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		HourlyRate:  req.HourlyRate,
		Capacity:    req.Capacity,
	}

	if err := s.repo.Create(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Resource, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Resource, int, error) {
	if filter.SortBy != "" {
		if _, ok := sortColumns[filter.SortBy]; !ok {
			return nil, 0, ErrInvalidSortField
		}
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Resource, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		res.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		res.Description = req.Description
	}
	if req.HourlyRate != nil {
		res.HourlyRate = *req.HourlyRate
	}
	if req.Capacity != nil {
		res.Capacity = req.Capacity
	}

	if err := validate(res.Name, res.HourlyRate, res.Capacity); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Delete removes a resource. Resources with pending or confirmed reservations are rejected with ErrInUse.
func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, lock.ResourceKey(id))
		if err != nil {
			return err
		}
		defer unlock()
	}

	if s.usage != nil {
		busy, err := s.usage.HasActiveReservations(ctx, id)
		if err != nil {
			return err
		}
		if busy {
			return ErrInUse
		}
	}

	return s.repo.Delete(ctx, id)
}
