package reservation

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/money"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "reservation not found")
	ErrResourceNotFound  = apperror.New(http.StatusNotFound, "resource not found")
	ErrInvalidInterval   = apperror.New(http.StatusBadRequest, "start time must be before end time")
	ErrStartTimePast     = apperror.Wrap(ErrInvalidInterval, http.StatusBadRequest, "cannot create reservation in the past")
	ErrSlotUnavailable   = apperror.New(http.StatusConflict, "time slot already reserved")
	ErrInvalidTransition = apperror.New(http.StatusConflict, "invalid status transition")
	ErrAlreadyCancelled  = apperror.New(http.StatusConflict, "reservation already cancelled")
	ErrInvalidStatus     = apperror.New(http.StatusBadRequest, "invalid reservation status")
	ErrInvalidSortField  = apperror.New(http.StatusBadRequest, "invalid sort field")
	ErrPermissionDenied  = apperror.New(http.StatusForbidden, "permission denied")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus accepts only the three known statuses.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Active reports whether the reservation still occupies its slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Reservation struct {
	ID         string
	ResourceID string
	HolderID   string
	StartTime  time.Time
	EndTime    time.Time
	TotalPrice money.Cents
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r *Reservation) Interval() Interval {
	return Interval{Start: r.StartTime, End: r.EndTime}
}

type Filter struct {
	HolderID   string
	ResourceID string
	Status     Status
	From       *time.Time // reservations ending after this instant
	To         *time.Time // reservations starting before this instant
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

var sortColumns = map[string]string{
	"start_time": "start_time",
	"end_time":   "end_time",
	"created_at": "created_at",
	"status":     "status",
}
