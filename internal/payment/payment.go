// Package payment emits charge and refund triggers toward the external
// payment system. Execution (capture, refund) happens there; this side only
// announces what is owed. The completion callback arrives over the API as a
// webhook and drives the pending-to-confirmed transition.
package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Emitter interface {
	RequestCharge(ctx context.Context, appointmentID, requesterID uuid.UUID, amount decimal.Decimal) error
	RequestRefund(ctx context.Context, appointmentID uuid.UUID, amount decimal.Decimal) error
}

// Result is the asynchronous outcome reported back by the payment system.
type Result struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Succeeded     bool      `json:"succeeded"`
	Reference     string    `json:"reference,omitempty"`
}
