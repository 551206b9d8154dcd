package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/notify"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/payment"
)

// ChangeStatus moves an appointment through the state machine. Anything not
// in the transition table fails with ErrInvalidTransition and leaves the
// status untouched; terminal states have no outgoing transitions at all.
func (s *Service) ChangeStatus(ctx context.Context, appointmentID, actorID uuid.UUID, newStatus Status, reason string) (*Appointment, error) {
	if !ValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actorID != appt.ProviderID && actorID != appt.RequesterID {
		return nil, ErrUnauthorized
	}
	if !CanTransition(appt.Status, newStatus) {
		return nil, transitionError(appt.Status, newStatus)
	}

	switch newStatus {
	case StatusCancelled:
		return s.cancel(ctx, appt, reason, &actorID)

	case StatusRescheduleRequested:
		if actorID != appt.ProviderID {
			return nil, ErrUnauthorized
		}
		if strings.TrimSpace(reason) == "" {
			return nil, fmt.Errorf("%w: a reason is required to request a reschedule", ErrValidation)
		}
		updated, err := s.repo.MarkRescheduleRequested(ctx, appointmentID, appt.Status, reason, actorID, time.Now())
		if err != nil {
			return nil, err
		}
		s.logEvent(ctx, updated.ID, EventStatusChanged, map[string]any{
			"from": appt.Status, "to": updated.Status, "reason": reason,
		})
		s.notifyWithDate(ctx, updated, notify.Event{
			Type:          notify.EventRescheduleRequested,
			AppointmentID: updated.ID,
			ProviderID:    updated.ProviderID,
			RequesterID:   updated.RequesterID,
			StartTime:     updated.SlotStartTime,
			EndTime:       updated.SlotEndTime,
			Reason:        reason,
		})
		return updated, nil

	case StatusCompleted:
		if actorID != appt.ProviderID {
			return nil, ErrUnauthorized
		}
		updated, err := s.repo.CompleteAppointment(ctx, appointmentID, appt.Status, time.Now())
		if err != nil {
			return nil, err
		}
		s.logEvent(ctx, updated.ID, EventStatusChanged, map[string]any{
			"from": appt.Status, "to": updated.Status,
		})
		return updated, nil

	case StatusRejected:
		if actorID != appt.ProviderID {
			return nil, ErrUnauthorized
		}
		fallthrough

	default:
		updated, err := s.repo.UpdateStatus(ctx, appointmentID, appt.Status, newStatus)
		if err != nil {
			return nil, err
		}
		s.logEvent(ctx, updated.ID, EventStatusChanged, map[string]any{
			"from": appt.Status, "to": updated.Status,
		})
		return updated, nil
	}
}

// cancel is shared by ChangeStatus and the expiry worker. by is nil when the
// system cancels. Refund and notification triggers fire after the ledger
// mutation and never roll it back.
func (s *Service) cancel(ctx context.Context, appt *Appointment, reason string, by *uuid.UUID) (*Appointment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: a reason is required to cancel", ErrValidation)
	}

	updated, err := s.repo.CancelAppointment(ctx, appt.ID, appt.Status, reason, by, time.Now())
	if err != nil {
		return nil, err
	}

	sideCtx := context.WithoutCancel(ctx)
	s.releaseBlockHint(sideCtx, updated.BlockID)

	if updated.PaymentStatus == PaymentCompleted {
		if err := s.payments.RequestRefund(sideCtx, updated.ID, updated.Price); err != nil {
			s.log.Warn().Err(err).Str("appointment_id", updated.ID.String()).Msg("refund trigger failed")
		}
	}

	s.logEvent(sideCtx, updated.ID, EventStatusChanged, map[string]any{
		"from": appt.Status, "to": StatusCancelled, "reason": reason,
	})
	s.notifyWithDate(sideCtx, updated, notify.Event{
		Type:          notify.EventBookingCancelled,
		AppointmentID: updated.ID,
		ProviderID:    updated.ProviderID,
		RequesterID:   updated.RequesterID,
		StartTime:     updated.SlotStartTime,
		EndTime:       updated.SlotEndTime,
		Reason:        reason,
	})
	return updated, nil
}

// HandlePaymentResult processes the asynchronous callback from the payment
// system. Success on a pending appointment auto-advances it to confirmed and
// clears the reservation expiry.
func (s *Service) HandlePaymentResult(ctx context.Context, res payment.Result) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, res.AppointmentID)
	if err != nil {
		return nil, err
	}

	if !res.Succeeded {
		updated, err := s.repo.SetPaymentStatus(ctx, appt.ID, PaymentFailed)
		if err != nil {
			return nil, err
		}
		s.logEvent(ctx, updated.ID, EventPaymentFailed, map[string]any{"reference": res.Reference})
		return updated, nil
	}

	var updated *Appointment
	switch {
	case appt.Status == StatusPending:
		updated, err = s.repo.ConfirmPaid(ctx, appt.ID)
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost the race with the expiry worker or a cancellation;
			// the money is owed back.
			if refundErr := s.payments.RequestRefund(context.WithoutCancel(ctx), appt.ID, appt.Price); refundErr != nil {
				s.log.Warn().Err(refundErr).Str("appointment_id", appt.ID.String()).Msg("refund trigger failed")
			}
			return nil, ErrInvalidTransition
		}
		if err != nil {
			return nil, err
		}

	case appt.Active():
		updated, err = s.repo.SetPaymentStatus(ctx, appt.ID, PaymentCompleted)
		if err != nil {
			return nil, err
		}

	default:
		// Payment landed on a cancelled or rejected booking.
		if refundErr := s.payments.RequestRefund(context.WithoutCancel(ctx), appt.ID, appt.Price); refundErr != nil {
			s.log.Warn().Err(refundErr).Str("appointment_id", appt.ID.String()).Msg("refund trigger failed")
		}
		return nil, ErrInvalidTransition
	}

	sideCtx := context.WithoutCancel(ctx)
	s.logEvent(sideCtx, updated.ID, EventPaymentConfirmed, map[string]any{"reference": res.Reference})
	s.notifyWithDate(sideCtx, updated, notify.Event{
		Type:          notify.EventPaymentConfirmed,
		AppointmentID: updated.ID,
		ProviderID:    updated.ProviderID,
		RequesterID:   updated.RequesterID,
		StartTime:     updated.SlotStartTime,
		EndTime:       updated.SlotEndTime,
	})
	return updated, nil
}

// GenerateMeetingLink issues a meeting URL for the appointment. Allowed only
// from confirmed or scheduled; issuing the link forces scheduled.
func (s *Service) GenerateMeetingLink(ctx context.Context, appointmentID, actorID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actorID != appt.ProviderID {
		return nil, ErrUnauthorized
	}

	link := fmt.Sprintf("%s/%s", strings.TrimRight(s.cfg.MeetingBaseURL, "/"), uuid.NewString())
	updated, err := s.repo.SetMeetingLink(ctx, appointmentID, link)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventMeetingLinkIssued, map[string]any{"meeting_link": link})
	return updated, nil
}

// ExpireUnpaidPending cancels pending appointments whose payment window has
// elapsed, releasing their slots. Run periodically by the expiry worker.
func (s *Service) ExpireUnpaidPending(ctx context.Context) (int, error) {
	candidates, err := s.repo.FindExpiredPending(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("find expired pending appointments: %w", err)
	}

	expired := 0
	for i := range candidates {
		appt := &candidates[i]
		updated, err := s.repo.CancelAppointment(ctx, appt.ID, StatusPending, "payment not completed in time", nil, time.Now())
		if err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.log.Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to expire appointment")
			}
			continue
		}
		expired++

		s.releaseBlockHint(ctx, updated.BlockID)
		s.logEvent(ctx, updated.ID, EventBookingExpired, map[string]any{"expired_at": time.Now()})
		s.notifyWithDate(ctx, updated, notify.Event{
			Type:          notify.EventBookingCancelled,
			AppointmentID: updated.ID,
			ProviderID:    updated.ProviderID,
			RequesterID:   updated.RequesterID,
			StartTime:     updated.SlotStartTime,
			EndTime:       updated.SlotEndTime,
			Reason:        "payment not completed in time",
		})
	}
	return expired, nil
}

func transitionError(from, to Status) error {
	targets := ValidTargets(from)
	if len(targets) == 0 {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
	}
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = string(t)
	}
	return fmt.Errorf("%w: %s -> %s (valid: %s)", ErrInvalidTransition, from, to, strings.Join(names, ", "))
}

// notifyWithDate resolves the appointment's calendar day from its block
// before emitting, so every event carries a displayable date.
func (s *Service) notifyWithDate(ctx context.Context, appt *Appointment, ev notify.Event) {
	if block, err := s.repo.GetBlockByID(ctx, appt.BlockID); err == nil {
		ev.Date = block.Date
	}
	s.emit(ctx, ev)
}
