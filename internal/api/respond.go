package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/booking"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps the booking error taxonomy onto HTTP statuses.
// Every taxonomy error is recoverable at the caller; only unknown errors
// become a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, booking.ErrBlockNotFound):
		writeError(w, http.StatusNotFound, "block_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "not_a_party", err.Error())
	case errors.Is(err, booking.ErrSlotAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked), errors.Is(err, booking.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrDuplicateSameDayBooking):
		writeError(w, http.StatusConflict, "duplicate_same_day_booking", err.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrNotReschedulable):
		writeError(w, http.StatusConflict, "not_reschedulable", err.Error())
	case errors.Is(err, booking.ErrProviderMismatch):
		writeError(w, http.StatusUnprocessableEntity, "provider_mismatch", err.Error())
	case errors.Is(err, booking.ErrBlockOverlap):
		writeError(w, http.StatusConflict, "block_overlap", err.Error())
	case errors.Is(err, booking.ErrBlockHasBookings):
		writeError(w, http.StatusConflict, "block_has_bookings", err.Error())
	case errors.Is(err, booking.ErrPricingUnavailable):
		writeError(w, http.StatusBadGateway, "pricing_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
