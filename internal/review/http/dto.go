package http

import (
	"strconv"
	"time"

	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/request"
	"github.com/nekogravitycat/space-reservation-backend/internal/review"
)

type ReviewResponse struct {
	ID            string    `json:"id"`
	ReservationID string    `json:"reservation_id"`
	ResourceID    string    `json:"resource_id"`
	HolderID      string    `json:"holder_id"`
	Rating        int       `json:"rating"`
	Comment       *string   `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewReviewResponse(rv *review.Review) ReviewResponse {
	return ReviewResponse{
		ID:            rv.ID,
		ReservationID: rv.ReservationID,
		ResourceID:    rv.ResourceID,
		HolderID:      rv.HolderID,
		Rating:        rv.Rating,
		Comment:       rv.Comment,
		CreatedAt:     rv.CreatedAt,
		UpdatedAt:     rv.UpdatedAt,
	}
}

type SummaryResponse struct {
	Total        int            `json:"total"`
	Average      float64        `json:"average"`
	Distribution map[string]int `json:"distribution"`
}

func NewSummaryResponse(s review.Summary) SummaryResponse {
	dist := make(map[string]int, review.MaxRating)
	for rating := review.MinRating; rating <= review.MaxRating; rating++ {
		dist[strconv.Itoa(rating)] = s.Distribution[rating]
	}
	return SummaryResponse{
		Total:        s.Total,
		Average:      s.Average,
		Distribution: dist,
	}
}

// ResourceReviewsResponse is a page of reviews plus the resource-wide rating summary.
type ResourceReviewsResponse struct {
	Items    []ReviewResponse `json:"items"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Total    int              `json:"total"`
	Summary  SummaryResponse  `json:"summary"`
}

type ListReviewsRequest struct {
	request.ListParams
}

type CreateReviewRequest struct {
	ReservationID string  `json:"reservation_id" binding:"required,uuid"`
	Rating        int     `json:"rating" binding:"required"`
	Comment       *string `json:"comment"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}
