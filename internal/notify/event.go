package notify

import (
	"time"

	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/money"
	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
)

// Event is the message published for every committed reservation status change.
type Event struct {
	Type           string      `json:"type"` // reservation.<status>
	ReservationID  string      `json:"reservation_id"`
	ResourceID     string      `json:"resource_id"`
	HolderID       string      `json:"holder_id"`
	Status         string      `json:"status"`
	PreviousStatus string      `json:"previous_status,omitempty"`
	StartTime      time.Time   `json:"start_time"`
	EndTime        time.Time   `json:"end_time"`
	TotalPrice     money.Cents `json:"total_price"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

func NewEvent(r reservation.Reservation, from reservation.Status, at time.Time) Event {
	return Event{
		Type:           "reservation." + string(r.Status),
		ReservationID:  r.ID,
		ResourceID:     r.ResourceID,
		HolderID:       r.HolderID,
		Status:         string(r.Status),
		PreviousStatus: string(from),
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		TotalPrice:     r.TotalPrice,
		OccurredAt:     at.UTC(),
	}
}
