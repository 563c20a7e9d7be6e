package http

import (
	"time"

	"github.com/nekogravitycat/space-reservation-backend/internal/payment"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/money"
)

type PaymentResponse struct {
	ID            string      `json:"id"`
	ReservationID string      `json:"reservation_id"`
	Amount        money.Cents `json:"amount"`
	ExternalRef   string      `json:"external_ref,omitempty"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func NewPaymentResponse(p *payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		ReservationID: p.ReservationID,
		Amount:        p.Amount,
		ExternalRef:   p.ExternalRef,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type OpenPaymentRequest struct {
	ReservationID string `json:"reservation_id" binding:"required,uuid"`
	ExternalRef   string `json:"external_ref" binding:"max=255"`
}

type ListPaymentsRequest struct {
	ReservationID string `form:"reservation_id" binding:"required,uuid"`
}
