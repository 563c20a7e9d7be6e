package review

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/apperror"
)

var (
	ErrNotFound                = apperror.New(http.StatusNotFound, "review not found")
	ErrReservationNotFound     = apperror.New(http.StatusNotFound, "reservation not found")
	ErrResourceNotFound        = apperror.New(http.StatusNotFound, "resource not found")
	ErrReservationNotCompleted = apperror.New(http.StatusConflict, "reservation has not been completed")
	ErrAlreadyExists           = apperror.New(http.StatusConflict, "reservation already has a review")
	ErrInvalidRating           = apperror.New(http.StatusBadRequest, "rating must be between 1 and 5")
	ErrPermissionDenied        = apperror.New(http.StatusForbidden, "permission denied")
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID            string
	ReservationID string
	ResourceID    string
	HolderID      string
	Rating        int
	Comment       *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Filter struct {
	ResourceID string
	HolderID   string
	Page       int
	PageSize   int
}

// Summary aggregates the ratings of one resource.
type Summary struct {
	Total        int
	Average      float64
	Distribution [MaxRating + 1]int // index is the rating; index 0 is unused
}
