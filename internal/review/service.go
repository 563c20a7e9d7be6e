package review

import (
	"context"
	"errors"
	"time"

	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
	"github.com/nekogravitycat/space-reservation-backend/internal/resource"
)

type CreateRequest struct {
	ReservationID string
	AuthorID      string
	Rating        int
	Comment       *string
}

type UpdateRequest struct {
	Rating  *int
	Comment *string
}

// Reservations is the lookup the review service needs from the scheduler.
type Reservations interface {
	GetByID(ctx context.Context, id string) (*reservation.Reservation, error)
}

// Resources resolves the resource a review listing is for.
type Resources interface {
	GetByID(ctx context.Context, id string) (*resource.Resource, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Review, error)
	GetByID(ctx context.Context, id string) (*Review, error)
	Update(ctx context.Context, id, callerID string, req UpdateRequest) (*Review, error)
	Delete(ctx context.Context, id, callerID string, isAdmin bool) error
	ListByResource(ctx context.Context, filter Filter) ([]*Review, int, Summary, error)
	ListByHolder(ctx context.Context, filter Filter) ([]*Review, int, error)
}

type service struct {
	repo         Repository
	reservations Reservations
	resources    Resources
	now          func() time.Time
}

func NewService(repo Repository, reservations Reservations, resources Resources, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:         repo,
		reservations: reservations,
		resources:    resources,
		now:          now,
	}
}

func validateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// Create records the holder's review of a finished reservation. One review per reservation.
func (s *service) Create(ctx context.Context, req CreateRequest) (*Review, error) {
	if err := validateRating(req.Rating); err != nil {
		return nil, err
	}

	r, err := s.reservations.GetByID(ctx, req.ReservationID)
	if err != nil {
		if errors.Is(err, reservation.ErrNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	if r.HolderID != req.AuthorID {
		return nil, ErrPermissionDenied
	}
	if r.Status == reservation.StatusCancelled || r.EndTime.After(s.now()) {
		return nil, ErrReservationNotCompleted
	}

	rv := &Review{
		ReservationID: r.ID,
		ResourceID:    r.ResourceID,
		HolderID:      r.HolderID,
		Rating:        req.Rating,
		Comment:       req.Comment,
	}
	if err := s.repo.Create(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Review, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Update(ctx context.Context, id, callerID string, req UpdateRequest) (*Review, error) {
	rv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rv.HolderID != callerID {
		return nil, ErrPermissionDenied
	}

	if req.Rating != nil {
		if err := validateRating(*req.Rating); err != nil {
			return nil, err
		}
		rv.Rating = *req.Rating
	}
	if req.Comment != nil {
		rv.Comment = req.Comment
	}

	if err := s.repo.Update(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *service) Delete(ctx context.Context, id, callerID string, isAdmin bool) error {
	rv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rv.HolderID != callerID && !isAdmin {
		return ErrPermissionDenied
	}
	return s.repo.Delete(ctx, id)
}

// ListByResource pages a resource's reviews with its rating summary. Unknown resources are ErrResourceNotFound.
func (s *service) ListByResource(ctx context.Context, filter Filter) ([]*Review, int, Summary, error) {
	if _, err := s.resources.GetByID(ctx, filter.ResourceID); err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			return nil, 0, Summary{}, ErrResourceNotFound
		}
		return nil, 0, Summary{}, err
	}

	reviews, total, err := s.repo.List(ctx, Filter{
		ResourceID: filter.ResourceID,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	})
	if err != nil {
		return nil, 0, Summary{}, err
	}

	summary, err := s.repo.Summarize(ctx, filter.ResourceID)
	if err != nil {
		return nil, 0, Summary{}, err
	}
	return reviews, total, summary, nil
}

func (s *service) ListByHolder(ctx context.Context, filter Filter) ([]*Review, int, error) {
	return s.repo.List(ctx, Filter{
		HolderID: filter.HolderID,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}
