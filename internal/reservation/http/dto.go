package http

import (
	"time"

	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/money"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/request"
	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
)

// ListReservationsRequest defines query parameters for listing reservations.
type ListReservationsRequest struct {
	request.ListParams
	ResourceID string     `form:"resource_id" binding:"omitempty,uuid"`
	HolderID   string     `form:"holder_id"`
	Status     string     `form:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	SortBy     string     `form:"sort_by" binding:"omitempty,oneof=start_time end_time created_at status"`
}

// Validate performs custom validation for ListReservationsRequest.
func (r *ListReservationsRequest) Validate() error {
	if r.From != nil && r.To != nil && !r.From.Before(*r.To) {
		return reservation.ErrInvalidInterval
	}
	return nil
}

type ReservationResponse struct {
	ID         string      `json:"id"`
	ResourceID string      `json:"resource_id"`
	HolderID   string      `json:"holder_id"`
	StartTime  time.Time   `json:"start_time"`
	EndTime    time.Time   `json:"end_time"`
	TotalPrice money.Cents `json:"total_price"`
	Status     string      `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func NewReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:         r.ID,
		ResourceID: r.ResourceID,
		HolderID:   r.HolderID,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		TotalPrice: r.TotalPrice,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type CreateReservationRequest struct {
	ResourceID string    `json:"resource_id" binding:"required,uuid"`
	StartTime  time.Time `json:"start_time" binding:"required"`
	EndTime    time.Time `json:"end_time" binding:"required"`
}

type RescheduleRequest struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// AvailabilityRequest defines the window queried for busy slots.
type AvailabilityRequest struct {
	Start time.Time `form:"start" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	End   time.Time `form:"end" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

type SlotResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type BusySlotResponse struct {
	ReservationID string    `json:"reservation_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Status        string    `json:"status"`
}

type AvailabilityResponse struct {
	ResourceID string             `json:"resource_id"`
	Start      time.Time          `json:"start"`
	End        time.Time          `json:"end"`
	Busy       []BusySlotResponse `json:"busy"`
	Free       []SlotResponse     `json:"free"`
}
