package payment

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Gateway is the outbound side of the payment processor.
type Gateway interface {
	Refund(ctx context.Context, p Payment) error
}

// LogGateway records refund requests in the log for an operator to settle with the processor.
type LogGateway struct{}

func (LogGateway) Refund(ctx context.Context, p Payment) error {
	log.Ctx(ctx).Warn().
		Str("payment_id", p.ID).
		Str("reservation_id", p.ReservationID).
		Str("external_ref", p.ExternalRef).
		Str("amount", p.Amount.String()).
		Msg("refund requested")
	return nil
}
