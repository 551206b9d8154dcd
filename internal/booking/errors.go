package booking

import "errors"

var (
	ErrValidation              = errors.New("invalid input")
	ErrBlockNotFound           = errors.New("availability block not found")
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrUnauthorized            = errors.New("actor is not a party to this appointment")
	ErrSlotAlreadyBooked       = errors.New("slot already has an active appointment")
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrDuplicateSameDayBooking = errors.New("requester already has an appointment with this provider on this day")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrNotReschedulable        = errors.New("appointment cannot be rescheduled in its current status")
	ErrProviderMismatch        = errors.New("new block belongs to a different provider")
	ErrPricingUnavailable      = errors.New("pricing unavailable")
	ErrBlockOverlap            = errors.New("block overlaps an existing block for this provider and day")
	ErrBlockHasBookings        = errors.New("block has active appointments")
)
