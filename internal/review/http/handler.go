package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/space-reservation-backend/internal/auth"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/request"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/response"
	"github.com/nekogravitycat/space-reservation-backend/internal/review"
)

type Handler struct {
	service review.Service
}

func NewHandler(service review.Service) *Handler {
	return &Handler{service: service}
}

func toResponses(reviews []*review.Review) []ReviewResponse {
	items := make([]ReviewResponse, len(reviews))
	for i, rv := range reviews {
		items[i] = NewReviewResponse(rv)
	}
	return items
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateReviewRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	rv, err := h.service.Create(c.Request.Context(), review.CreateRequest{
		ReservationID: body.ReservationID,
		AuthorID:      auth.GetUserID(c),
		Rating:        body.Rating,
		Comment:       body.Comment,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewReviewResponse(rv))
}

func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid review id", err)
		return
	}

	var body UpdateReviewRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	rv, err := h.service.Update(c.Request.Context(), uri.ID, auth.GetUserID(c), review.UpdateRequest{
		Rating:  body.Rating,
		Comment: body.Comment,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReviewResponse(rv))
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid review id", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), uri.ID, auth.GetUserID(c), auth.IsAdmin(c)); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListByResource returns a page of a resource's reviews with its rating summary.
func (h *Handler) ListByResource(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid resource id", err)
		return
	}

	var req ListReviewsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	req.Normalize()

	reviews, total, summary, err := h.service.ListByResource(c.Request.Context(), review.Filter{
		ResourceID: uri.ID,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, ResourceReviewsResponse{
		Items:    toResponses(reviews),
		Page:     req.Page,
		PageSize: req.PageSize,
		Total:    total,
		Summary:  NewSummaryResponse(summary),
	})
}

// ListByHolder returns the reviews written by one holder. Holder ids come from the identity provider.
func (h *Handler) ListByHolder(c *gin.Context) {
	holderID := c.Param("id")

	var req ListReviewsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	req.Normalize()

	reviews, total, err := h.service.ListByHolder(c.Request.Context(), review.Filter{
		HolderID: holderID,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPageResponse(toResponses(reviews), req.Page, req.PageSize, total))
}
