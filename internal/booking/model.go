package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending             Status = "pending"
	StatusConfirmed           Status = "confirmed"
	StatusScheduled           Status = "scheduled"
	StatusRescheduleRequested Status = "reschedule_requested"
	StatusCompleted           Status = "completed"
	StatusCancelled           Status = "cancelled"
	StatusRejected            Status = "rejected"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// AvailabilityBlock is a provider-declared open window on a calendar day.
// Date is "2006-01-02", StartTime/EndTime are wall-clock "HH:MM" strings.
// Booked is a cached hint only; slot freedom is always re-derived from the
// appointments bound to the block.
type AvailabilityBlock struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	Date       string
	StartTime  string
	EndTime    string
	Booked     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Slot is a derived view value, never persisted. Free means no active
// appointment binds (BlockID, StartTime).
type Slot struct {
	BlockID   uuid.UUID `json:"block_id"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Free      bool      `json:"free"`
}

type Appointment struct {
	ID              uuid.UUID
	ProviderID      uuid.UUID
	RequesterID     uuid.UUID
	BlockID         uuid.UUID
	SlotStartTime   string
	SlotEndTime     string
	DurationMinutes int
	Price           decimal.Decimal
	Status          Status
	PaymentStatus   PaymentStatus
	MeetingLink     *string

	CancellationReason    *string
	CancelledBy           *uuid.UUID
	CancelledAt           *time.Time
	RescheduleReason      *string
	RescheduleRequestedBy *uuid.UUID
	RescheduleRequestedAt *time.Time
	CompletedAt           *time.Time

	// ExpiresAt bounds how long an unpaid pending appointment holds its
	// slot; cleared once payment completes.
	ExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the appointment occupies its slot. Payment state is
// deliberately not consulted: an unpaid pending booking holds its slot until
// the expiry worker reclaims it.
func (a *Appointment) Active() bool {
	return a.Status != StatusCancelled && a.Status != StatusRejected
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
