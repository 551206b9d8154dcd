package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all storage interactions needed by the service.
//
// "Active" in method names always means status outside {cancelled, rejected}.
// Status-changing methods are compare-and-set: they require the current
// status and return ErrAppointmentNotFound when no row matches, so a lost
// race surfaces instead of silently overwriting.
type Repository interface {
	// Availability blocks
	CreateBlock(ctx context.Context, b *AvailabilityBlock) error
	GetBlockByID(ctx context.Context, id uuid.UUID) (*AvailabilityBlock, error)
	ListBlocksByProviderDate(ctx context.Context, providerID uuid.UUID, date string) ([]AvailabilityBlock, error)
	UpdateBlockTimes(ctx context.Context, id uuid.UUID, date, start, end string) (*AvailabilityBlock, error)
	DeleteBlock(ctx context.Context, id uuid.UUID) error
	SetBlockBooked(ctx context.Context, id uuid.UUID, booked bool) error

	// Ledger reads
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetActiveForSlot(ctx context.Context, blockID uuid.UUID, slotStart string) (*Appointment, error)
	ListActiveForBlocks(ctx context.Context, blockIDs []uuid.UUID) ([]Appointment, error)
	CountForBlock(ctx context.Context, blockID uuid.UUID, activeOnly bool) (int, error)
	ListAppointmentsByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]Appointment, error)

	// Ledger writes. CreateAppointment has insert-or-fail semantics: it
	// returns ErrSlotAlreadyBooked when an active appointment already
	// binds (BlockID, SlotStartTime).
	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, from Status, reason string, by *uuid.UUID, at time.Time) (*Appointment, error)
	MarkRescheduleRequested(ctx context.Context, id uuid.UUID, from Status, reason string, by uuid.UUID, at time.Time) (*Appointment, error)
	CompleteAppointment(ctx context.Context, id uuid.UUID, from Status, at time.Time) (*Appointment, error)
	SetMeetingLink(ctx context.Context, id uuid.UUID, link string) (*Appointment, error)
	ConfirmPaid(ctx context.Context, id uuid.UUID) (*Appointment, error)
	SetPaymentStatus(ctx context.Context, id uuid.UUID, ps PaymentStatus) (*Appointment, error)

	// MoveSlot atomically rebinds the appointment to a new slot, sets its
	// status to confirmed and clears any reschedule-request metadata. A
	// conflicting active appointment on the target slot yields
	// ErrSlotAlreadyBooked with the original binding untouched.
	MoveSlot(ctx context.Context, id uuid.UUID, newBlockID uuid.UUID, newStart, newEnd string) (*Appointment, error)

	// Expiry worker
	FindExpiredPending(ctx context.Context, now time.Time) ([]Appointment, error)

	// Audit log
	InsertEvent(ctx context.Context, ev EventLog) error
}
