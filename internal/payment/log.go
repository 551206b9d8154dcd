package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LogEmitter records triggers in the log only. Used in memory-store mode.
type LogEmitter struct {
	log zerolog.Logger
}

func NewLogEmitter(log zerolog.Logger) *LogEmitter {
	return &LogEmitter{log: log}
}

func (e *LogEmitter) RequestCharge(ctx context.Context, appointmentID, requesterID uuid.UUID, amount decimal.Decimal) error {
	e.log.Info().
		Str("appointment_id", appointmentID.String()).
		Str("requester_id", requesterID.String()).
		Str("amount", amount.StringFixed(2)).
		Msg("charge requested")
	return nil
}

func (e *LogEmitter) RequestRefund(ctx context.Context, appointmentID uuid.UUID, amount decimal.Decimal) error {
	e.log.Info().
		Str("appointment_id", appointmentID.String()).
		Str("amount", amount.StringFixed(2)).
		Msg("refund requested")
	return nil
}
