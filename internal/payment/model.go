package payment

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/money"
)

var (
	ErrNotFound                  = apperror.New(http.StatusNotFound, "payment not found")
	ErrReservationNotFound       = apperror.New(http.StatusNotFound, "reservation not found")
	ErrReservationNotPending     = apperror.New(http.StatusConflict, "only pending reservations can be paid")
	ErrAlreadyOpen               = apperror.New(http.StatusConflict, "reservation already has an open or settled payment")
	ErrInvalidState              = apperror.New(http.StatusConflict, "payment is not in a state that allows this operation")
	ErrPermissionDenied          = apperror.New(http.StatusForbidden, "permission denied")
	ErrReservationNotConfirmable = apperror.New(http.StatusConflict, "payment captured but reservation could not be confirmed; payment refunded")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Open reports whether the payment still blocks opening another one for the same reservation.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusSucceeded
}

type Payment struct {
	ID            string
	ReservationID string
	Amount        money.Cents
	ExternalRef   string // gateway intent id, opaque to us
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
