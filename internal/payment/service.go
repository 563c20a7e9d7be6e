package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
)

// Scheduler is the subset of the reservation service payments drive.
type Scheduler interface {
	GetByID(ctx context.Context, id string) (*reservation.Reservation, error)
	Transition(ctx context.Context, id string, to reservation.Status) (*reservation.Reservation, error)
}

type OpenRequest struct {
	ReservationID string
	ExternalRef   string
	CallerID      string
	IsAdmin       bool
}

type Service interface {
	Open(ctx context.Context, req OpenRequest) (*Payment, error)
	GetByID(ctx context.Context, id string) (*Payment, error)
	ListByReservation(ctx context.Context, reservationID, callerID string, isAdmin bool) ([]*Payment, error)

	// Succeed settles the payment and confirms its reservation.
	Succeed(ctx context.Context, id string) (*Payment, error)
	// Fail marks the payment failed and releases the reservation's slot.
	Fail(ctx context.Context, id string) (*Payment, error)
	// Refund returns a settled payment and cancels its reservation.
	Refund(ctx context.Context, id string) (*Payment, error)

	// HandleReservationStatus is registered as a scheduler status hook.
	HandleReservationStatus(ctx context.Context, r reservation.Reservation, from reservation.Status) error
}

type service struct {
	repo      Repository
	scheduler Scheduler
	gateway   Gateway
}

func NewService(repo Repository, scheduler Scheduler, gateway Gateway) Service {
	if gateway == nil {
		gateway = LogGateway{}
	}
	return &service{
		repo:      repo,
		scheduler: scheduler,
		gateway:   gateway,
	}
}

func (s *service) loadReservation(ctx context.Context, id, callerID string, isAdmin bool) (*reservation.Reservation, error) {
	r, err := s.scheduler.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservation.ErrNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	if r.HolderID != callerID && !isAdmin {
		return nil, ErrPermissionDenied
	}
	return r, nil
}

func (s *service) Open(ctx context.Context, req OpenRequest) (*Payment, error) {
	r, err := s.loadReservation(ctx, req.ReservationID, req.CallerID, req.IsAdmin)
	if err != nil {
		return nil, err
	}
	if r.Status != reservation.StatusPending {
		return nil, ErrReservationNotPending
	}

	p := &Payment{
		ReservationID: r.ID,
		Amount:        r.TotalPrice,
		ExternalRef:   req.ExternalRef,
		Status:        StatusPending,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Payment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByReservation(ctx context.Context, reservationID, callerID string, isAdmin bool) ([]*Payment, error) {
	if _, err := s.loadReservation(ctx, reservationID, callerID, isAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListByReservation(ctx, reservationID)
}

func (s *service) Succeed(ctx context.Context, id string) (*Payment, error) {
	p, err := s.repo.UpdateStatus(ctx, id, StatusPending, StatusSucceeded)
	if err != nil {
		return nil, err
	}

	if _, err := s.scheduler.Transition(ctx, p.ReservationID, reservation.StatusConfirmed); err != nil {
		// Money was captured for a reservation that can no longer be confirmed.
		if _, refundErr := s.refund(ctx, p); refundErr != nil {
			return nil, fmt.Errorf("confirm reservation: %w; refund: %w", err, refundErr)
		}
		log.Ctx(ctx).Warn().Err(err).
			Str("payment_id", p.ID).
			Str("reservation_id", p.ReservationID).
			Msg("reservation not confirmable, payment refunded")
		return nil, ErrReservationNotConfirmable
	}
	return p, nil
}

func (s *service) Fail(ctx context.Context, id string) (*Payment, error) {
	p, err := s.repo.UpdateStatus(ctx, id, StatusPending, StatusFailed)
	if err != nil {
		return nil, err
	}

	if err := s.cancelReservation(ctx, p.ReservationID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Refund(ctx context.Context, id string) (*Payment, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p, err := s.refund(ctx, current)
	if err != nil {
		return nil, err
	}

	if err := s.cancelReservation(ctx, p.ReservationID); err != nil {
		return nil, err
	}
	return p, nil
}

// refund marks the payment refunded before asking the gateway, so a concurrent
// cancellation hook cannot refund it twice. A gateway failure reverts the mark.
func (s *service) refund(ctx context.Context, p *Payment) (*Payment, error) {
	refunded, err := s.repo.UpdateStatus(ctx, p.ID, StatusSucceeded, StatusRefunded)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.Refund(ctx, *refunded); err != nil {
		if _, revertErr := s.repo.UpdateStatus(ctx, p.ID, StatusRefunded, StatusSucceeded); revertErr != nil {
			log.Ctx(ctx).Error().Err(revertErr).Str("payment_id", p.ID).Msg("revert refunded payment failed")
		}
		return nil, fmt.Errorf("gateway refund failed: %w", err)
	}
	return refunded, nil
}

// cancelReservation cancels unless the reservation is already cancelled.
func (s *service) cancelReservation(ctx context.Context, reservationID string) error {
	_, err := s.scheduler.Transition(ctx, reservationID, reservation.StatusCancelled)
	if err == nil || errors.Is(err, reservation.ErrInvalidTransition) {
		return nil
	}
	return err
}

func (s *service) HandleReservationStatus(ctx context.Context, r reservation.Reservation, from reservation.Status) error {
	if r.Status != reservation.StatusCancelled {
		return nil
	}

	payments, err := s.repo.ListByReservation(ctx, r.ID)
	if err != nil {
		return err
	}

	var errs []error
	for _, p := range payments {
		switch p.Status {
		case StatusSucceeded:
			if _, err := s.refund(ctx, p); err != nil && !errors.Is(err, ErrInvalidState) {
				errs = append(errs, err)
			}
		case StatusPending:
			if _, err := s.repo.UpdateStatus(ctx, p.ID, StatusPending, StatusFailed); err != nil && !errors.Is(err, ErrInvalidState) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
