package http

import (
	"time"

	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/money"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/request"
	"github.com/nekogravitycat/space-reservation-backend/internal/resource"
)

type ResourceResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	HourlyRate  money.Cents `json:"hourly_rate"`
	Capacity    *int        `json:"capacity,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func NewResponse(r *resource.Resource) ResourceResponse {
	return ResourceResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		HourlyRate:  r.HourlyRate,
		Capacity:    r.Capacity,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// ListResourcesRequest defines query parameters for listing resources.
type ListResourcesRequest struct {
	request.ListParams
	Keyword string `form:"q"`
	SortBy  string `form:"sort_by" binding:"omitempty,oneof=name hourly_rate capacity created_at"`
}

type CreateRequest struct {
	Name        string      `json:"name" binding:"required"`
	Description *string     `json:"description"`
	HourlyRate  money.Cents `json:"hourly_rate"`
	Capacity    *int        `json:"capacity" binding:"omitempty,min=1"`
}

type UpdateRequest struct {
	Name        *string      `json:"name" binding:"omitempty,min=1"`
	Description *string      `json:"description"`
	HourlyRate  *money.Cents `json:"hourly_rate"`
	Capacity    *int         `json:"capacity" binding:"omitempty,min=1"`
}
