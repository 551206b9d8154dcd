package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/notify"
)

type RescheduleInput struct {
	AppointmentID uuid.UUID
	NewBlockID    uuid.UUID
	NewStartTime  string
	NewEndTime    string
	ActorID       uuid.UUID
}

// Reschedule atomically moves an appointment to a new slot. The freedom
// check, the cross-day duplicate check and the rebind run under the new
// slot's lock; the rebind itself is a single guarded update, so a failure at
// any step leaves the original binding reserved and the status unchanged.
func (s *Service) Reschedule(ctx context.Context, in RescheduleInput) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	if in.ActorID != appt.ProviderID && in.ActorID != appt.RequesterID {
		return nil, ErrUnauthorized
	}
	if !reschedulable(appt.Status) {
		return nil, fmt.Errorf("%w: status is %s", ErrNotReschedulable, appt.Status)
	}

	oldBlock, err := s.repo.GetBlockByID(ctx, appt.BlockID)
	if err != nil {
		return nil, fmt.Errorf("load current block: %w", err)
	}

	newBlock, err := s.repo.GetBlockByID(ctx, in.NewBlockID)
	if err != nil {
		return nil, err
	}
	if newBlock.ProviderID != appt.ProviderID {
		return nil, ErrProviderMismatch
	}

	start, err := parseClock(in.NewStartTime)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(in.NewEndTime)
	if err != nil {
		return nil, err
	}
	if end-start != appt.DurationMinutes {
		return nil, fmt.Errorf("%w: new slot %s-%s does not match duration %d", ErrValidation, in.NewStartTime, in.NewEndTime, appt.DurationMinutes)
	}
	if err := s.slotWithinBlock(newBlock, in.NewStartTime, in.NewEndTime); err != nil {
		return nil, err
	}

	var moved *Appointment

	err = s.locker.WithLock(ctx, SlotLockKey(in.NewBlockID, in.NewStartTime), func(lockCtx context.Context) error {
		existing, err := s.repo.GetActiveForSlot(lockCtx, in.NewBlockID, in.NewStartTime)
		if err == nil && existing.ID != appt.ID {
			return ErrSlotAlreadyBooked
		}
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check new slot: %w", err)
		}

		if newBlock.Date != oldBlock.Date {
			dup, err := s.hasSameDayBooking(lockCtx, appt.ProviderID, appt.RequesterID, newBlock.Date, appt.ID)
			if err != nil {
				return err
			}
			if dup {
				return ErrDuplicateSameDayBooking
			}
		}

		moved, err = s.repo.MoveSlot(lockCtx, appt.ID, in.NewBlockID, in.NewStartTime, in.NewEndTime)
		if err != nil {
			return err
		}

		if err := s.repo.SetBlockBooked(lockCtx, in.NewBlockID, true); err != nil {
			s.log.Warn().Err(err).Str("block_id", in.NewBlockID.String()).Msg("failed to set block booked hint")
		}

		s.logEvent(lockCtx, moved.ID, EventBookingRescheduled, map[string]any{
			"old_block_id": appt.BlockID.String(),
			"old_start":    appt.SlotStartTime,
			"new_block_id": in.NewBlockID.String(),
			"new_start":    in.NewStartTime,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	sideCtx := context.WithoutCancel(ctx)
	if appt.BlockID != in.NewBlockID {
		s.releaseBlockHint(sideCtx, appt.BlockID)
	}
	s.emit(sideCtx, notify.Event{
		Type:          notify.EventRescheduled,
		AppointmentID: moved.ID,
		ProviderID:    moved.ProviderID,
		RequesterID:   moved.RequesterID,
		Date:          newBlock.Date,
		StartTime:     moved.SlotStartTime,
		EndTime:       moved.SlotEndTime,
		OldDate:       oldBlock.Date,
		OldStartTime:  appt.SlotStartTime,
		OldEndTime:    appt.SlotEndTime,
	})

	return moved, nil
}
