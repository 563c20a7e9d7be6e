package reservation

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nekogravitycat/space-reservation-backend/internal/lock"
	"github.com/nekogravitycat/space-reservation-backend/internal/metrics"
	"github.com/nekogravitycat/space-reservation-backend/internal/resource"
)

type CreateRequest struct {
	HolderID   string
	ResourceID string
	StartTime  time.Time
	EndTime    time.Time
}

// RescheduleRequest moves a pending reservation. A nil side keeps its current value.
type RescheduleRequest struct {
	StartTime *time.Time
	EndTime   *time.Time
}

// Catalog is the read side of the resource catalog the scheduler depends on.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*resource.Resource, error)
}

// StatusHook observes committed status changes. from is empty for newly created reservations.
// Hooks run after the unit of work commits and outside the resource lock; a failing hook is
// logged and never rolls the change back.
type StatusHook func(ctx context.Context, r Reservation, from Status) error

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Reservation, error)
	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)
	Reschedule(ctx context.Context, id string, req RescheduleRequest) (*Reservation, error)
	Transition(ctx context.Context, id string, to Status) (*Reservation, error)
	Cancel(ctx context.Context, id string) (*Reservation, error)

	// BusySlots lists active reservations intersecting window, ordered by start.
	BusySlots(ctx context.Context, resourceID string, window Interval) (iter.Seq[BusySlot], error)
	HasActiveReservations(ctx context.Context, resourceID string) (bool, error)

	OnStatusChange(hook StatusHook)
}

type Option func(*service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	repo    Repository
	catalog Catalog
	locker  lock.Locker
	now     func() time.Time

	hooksMu sync.RWMutex
	hooks   []StatusHook
}

func NewService(repo Repository, catalog Catalog, locker lock.Locker, opts ...Option) Service {
	s := &service{
		repo:    repo,
		catalog: catalog,
		locker:  locker,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) OnStatusChange(hook StatusHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, hook)
}

func (s *service) notify(ctx context.Context, r *Reservation, from Status) {
	s.hooksMu.RLock()
	hooks := s.hooks
	s.hooksMu.RUnlock()

	// The change is committed; a cancelled request must not skip refunds or events.
	ctx = context.WithoutCancel(ctx)
	for _, hook := range hooks {
		if err := hook(ctx, *r, from); err != nil {
			log.Ctx(ctx).Error().Err(err).
				Str("reservation_id", r.ID).
				Str("resource_id", r.ResourceID).
				Str("status", string(r.Status)).
				Msg("reservation status hook failed")
		}
	}
}

func (s *service) lookupResource(ctx context.Context, id string) (*resource.Resource, error) {
	res, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return res, nil
}

// validateWindow applies the creation rules to a requested interval.
func (s *service) validateWindow(start, end time.Time, checkPast bool) (Interval, error) {
	iv, err := NewInterval(start, end)
	if err != nil {
		return Interval{}, err
	}
	if checkPast && iv.Start.Before(s.now()) {
		return Interval{}, ErrStartTimePast
	}
	return iv, nil
}

// withResource runs fn inside the resource's critical section and storage unit of work.
func (s *service) withResource(ctx context.Context, resourceID string, fn func(tx Tx) error) error {
	unlock, err := s.locker.Lock(ctx, lock.ResourceKey(resourceID))
	if err != nil {
		return err
	}
	defer unlock()

	err = s.repo.WithinResource(ctx, resourceID, fn)
	if errors.Is(err, ErrSlotUnavailable) {
		metrics.IncSlotConflict()
	}
	return err
}

func checkConflicts(ctx context.Context, tx Tx, iv Interval, excludeID string) error {
	active, err := tx.ListActiveInRange(ctx, iv, excludeID)
	if err != nil {
		return err
	}
	for _, other := range active {
		if other.Interval().Overlaps(iv) {
			return ErrSlotUnavailable
		}
	}
	return nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Reservation, error) {
	iv, err := s.validateWindow(req.StartTime, req.EndTime, true)
	if err != nil {
		return nil, err
	}

	r := &Reservation{
		ResourceID: req.ResourceID,
		HolderID:   req.HolderID,
		StartTime:  iv.Start,
		EndTime:    iv.End,
		Status:     StatusPending,
	}

	// The resource is read under its lock so a concurrent catalog delete cannot slip in.
	err = s.withResource(ctx, req.ResourceID, func(tx Tx) error {
		res, err := s.lookupResource(ctx, req.ResourceID)
		if err != nil {
			return err
		}
		r.TotalPrice = Price(res.HourlyRate, iv)

		if err := checkConflicts(ctx, tx, iv, ""); err != nil {
			return err
		}
		return tx.Insert(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncReservationCreated()
	log.Ctx(ctx).Info().
		Str("reservation_id", r.ID).
		Str("resource_id", r.ResourceID).
		Str("holder_id", r.HolderID).
		Msg("reservation created")

	s.notify(ctx, r, "")
	return r, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Reservation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	if filter.SortBy != "" {
		if _, ok := sortColumns[filter.SortBy]; !ok {
			return nil, 0, ErrInvalidSortField
		}
	}
	if filter.Status != "" {
		if _, err := ParseStatus(string(filter.Status)); err != nil {
			return nil, 0, err
		}
	}
	return s.repo.List(ctx, filter)
}

// Reschedule changes the interval of a pending reservation and reprices it.
// The start time is only checked against the clock when it actually moves.
func (s *service) Reschedule(ctx context.Context, id string, req RescheduleRequest) (*Reservation, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var updated *Reservation
	err = s.withResource(ctx, current.ResourceID, func(tx Tx) error {
		res, err := s.lookupResource(ctx, current.ResourceID)
		if err != nil {
			return err
		}

		r, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != StatusPending {
			return ErrInvalidTransition
		}

		start, end := r.StartTime, r.EndTime
		if req.StartTime != nil {
			start = *req.StartTime
		}
		if req.EndTime != nil {
			end = *req.EndTime
		}

		iv, err := s.validateWindow(start, end, !start.Equal(r.StartTime))
		if err != nil {
			return err
		}
		if err := checkConflicts(ctx, tx, iv, r.ID); err != nil {
			return err
		}

		r.StartTime = iv.Start
		r.EndTime = iv.End
		r.TotalPrice = Price(res.HourlyRate, iv)
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("reservation_id", updated.ID).
		Time("start_time", updated.StartTime).
		Time("end_time", updated.EndTime).
		Msg("reservation rescheduled")
	return updated, nil
}

func (s *service) Transition(ctx context.Context, id string, to Status) (*Reservation, error) {
	if _, err := ParseStatus(string(to)); err != nil {
		return nil, err
	}
	return s.changeStatus(ctx, id, to, ValidateTransition)
}

func (s *service) Cancel(ctx context.Context, id string) (*Reservation, error) {
	return s.changeStatus(ctx, id, StatusCancelled, func(from, to Status) error {
		if from == StatusCancelled {
			return ErrAlreadyCancelled
		}
		return ValidateTransition(from, to)
	})
}

func (s *service) changeStatus(ctx context.Context, id string, to Status, check func(from, to Status) error) (*Reservation, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		updated *Reservation
		from    Status
	)
	err = s.withResource(ctx, current.ResourceID, func(tx Tx) error {
		r, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := check(r.Status, to); err != nil {
			return err
		}

		from = r.Status
		r.Status = to
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncTransition(string(to))
	log.Ctx(ctx).Info().
		Str("reservation_id", updated.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("reservation status changed")

	s.notify(ctx, updated, from)
	return updated, nil
}

func (s *service) BusySlots(ctx context.Context, resourceID string, window Interval) (iter.Seq[BusySlot], error) {
	if !window.Start.Before(window.End) {
		return nil, ErrInvalidInterval
	}
	if _, err := s.lookupResource(ctx, resourceID); err != nil {
		return nil, err
	}

	active, err := s.repo.ListActiveInRange(ctx, resourceID, window)
	if err != nil {
		return nil, err
	}

	slots := make([]BusySlot, 0, len(active))
	for _, r := range active {
		slots = append(slots, BusySlot{
			ReservationID: r.ID,
			Start:         r.StartTime,
			End:           r.EndTime,
			Status:        r.Status,
		})
	}
	return slices.Values(slots), nil
}

func (s *service) HasActiveReservations(ctx context.Context, resourceID string) (bool, error) {
	return s.repo.HasActiveReservations(ctx, resourceID)
}
