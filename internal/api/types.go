package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/booking"
)

type CreateBookingRequest struct {
	BlockID         string `json:"block_id"`
	ProviderID      string `json:"provider_id"`
	RequesterID     string `json:"requester_id"`
	SlotStartTime   string `json:"slot_start_time"`
	SlotEndTime     string `json:"slot_end_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

type ChangeStatusRequest struct {
	ActorID string `json:"actor_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

type RescheduleRequest struct {
	ActorID      string `json:"actor_id"`
	NewBlockID   string `json:"new_block_id"`
	NewStartTime string `json:"new_start_time"`
	NewEndTime   string `json:"new_end_time"`
}

type MeetingLinkRequest struct {
	ActorID string `json:"actor_id"`
}

type PaymentCallbackRequest struct {
	AppointmentID string `json:"appointment_id"`
	Succeeded     bool   `json:"succeeded"`
	Reference     string `json:"reference,omitempty"`
}

type BlockRequest struct {
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

type PushTokenRequest struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	ProviderID         uuid.UUID  `json:"provider_id"`
	RequesterID        uuid.UUID  `json:"requester_id"`
	BlockID            uuid.UUID  `json:"block_id"`
	SlotStartTime      string     `json:"slot_start_time"`
	SlotEndTime        string     `json:"slot_end_time"`
	DurationMinutes    int        `json:"duration_minutes"`
	Price              string     `json:"price"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"payment_status"`
	MeetingLink        *string    `json:"meeting_link,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	RescheduleReason   *string    `json:"reschedule_reason,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		ProviderID:         a.ProviderID,
		RequesterID:        a.RequesterID,
		BlockID:            a.BlockID,
		SlotStartTime:      a.SlotStartTime,
		SlotEndTime:        a.SlotEndTime,
		DurationMinutes:    a.DurationMinutes,
		Price:              a.Price.StringFixed(2),
		Status:             string(a.Status),
		PaymentStatus:      string(a.PaymentStatus),
		MeetingLink:        a.MeetingLink,
		CancellationReason: a.CancellationReason,
		CancelledAt:        a.CancelledAt,
		RescheduleReason:   a.RescheduleReason,
		CompletedAt:        a.CompletedAt,
		ExpiresAt:          a.ExpiresAt,
		CreatedAt:          a.CreatedAt,
	}
}

type BlockResponse struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Booked     bool      `json:"booked"`
	CreatedAt  time.Time `json:"created_at"`
}

func toBlockResponse(b *booking.AvailabilityBlock) BlockResponse {
	return BlockResponse{
		ID:         b.ID,
		ProviderID: b.ProviderID,
		Date:       b.Date,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Booked:     b.Booked,
		CreatedAt:  b.CreatedAt,
	}
}
