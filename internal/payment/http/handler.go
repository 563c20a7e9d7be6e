package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/space-reservation-backend/internal/auth"
	"github.com/nekogravitycat/space-reservation-backend/internal/payment"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/request"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/response"
)

type Handler struct {
	service payment.Service
}

func NewHandler(service payment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Open(c *gin.Context) {
	var body OpenPaymentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	p, err := h.service.Open(c.Request.Context(), payment.OpenRequest{
		ReservationID: body.ReservationID,
		ExternalRef:   body.ExternalRef,
		CallerID:      auth.GetUserID(c),
		IsAdmin:       auth.IsAdmin(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewPaymentResponse(p))
}

func (h *Handler) List(c *gin.Context) {
	var req ListPaymentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	payments, err := h.service.ListByReservation(c.Request.Context(), req.ReservationID, auth.GetUserID(c), auth.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		items[i] = NewPaymentResponse(p)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// outcome adapts a gateway notification (succeed, fail, refund) to a handler.
func (h *Handler) outcome(apply func(ctx context.Context, id string) (*payment.Payment, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri request.ByIDRequest
		if err := c.ShouldBindUri(&uri); err != nil {
			response.BadRequest(c, "invalid payment id", err)
			return
		}

		p, err := apply(c.Request.Context(), uri.ID)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.JSON(http.StatusOK, NewPaymentResponse(p))
	}
}
