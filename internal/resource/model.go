package resource

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/money"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "resource not found")
	ErrEmptyName        = apperror.New(http.StatusBadRequest, "name cannot be empty")
	ErrNegativeRate     = apperror.New(http.StatusBadRequest, "hourly rate cannot be negative")
	ErrInvalidCapacity  = apperror.New(http.StatusBadRequest, "capacity must be a positive integer")
	ErrInUse            = apperror.New(http.StatusConflict, "resource has reservations and cannot be deleted")
	ErrInvalidSortField = apperror.New(http.StatusBadRequest, "invalid sort field")
)

// Resource represents a bookable space (e.g., Hall A, Meeting Room 101, Field 2).
type Resource struct {
	ID          string
	Name        string
	Description *string
	HourlyRate  money.Cents
	Capacity    *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Filter defines parameters for listing resources.
type Filter struct {
	Keyword   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// sortColumns maps accepted sort fields to their column names.
var sortColumns = map[string]string{
	"name":        "name",
	"hourly_rate": "hourly_rate_cents",
	"capacity":    "capacity",
	"created_at":  "created_at",
}
