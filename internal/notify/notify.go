// Package notify carries booking lifecycle events to the external delivery
// system. Delivery is best-effort: callers log failures and never let them
// fail the ledger mutation that produced the event.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventBookingCreated      EventType = "booking_created"
	EventBookingCancelled    EventType = "booking_cancelled"
	EventRescheduleRequested EventType = "reschedule_requested"
	EventRescheduled         EventType = "rescheduled"
	EventPaymentConfirmed    EventType = "payment_confirmed"
)

// Event is addressed to both parties of an appointment. Old* fields are set
// only on rescheduled events so the consumer can render before/after times.
type Event struct {
	Type          EventType `json:"type"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	ProviderID    uuid.UUID `json:"provider_id"`
	RequesterID   uuid.UUID `json:"requester_id"`
	Date          string    `json:"date,omitempty"`
	StartTime     string    `json:"start_time,omitempty"`
	EndTime       string    `json:"end_time,omitempty"`
	OldDate       string    `json:"old_date,omitempty"`
	OldStartTime  string    `json:"old_start_time,omitempty"`
	OldEndTime    string    `json:"old_end_time,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}
