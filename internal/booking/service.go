package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/config"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/notify"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/payment"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/pricing"
)

// Audit log event types.
const (
	EventBookingCreated     = "BOOKING_CREATED"
	EventStatusChanged      = "STATUS_CHANGED"
	EventBookingExpired     = "BOOKING_EXPIRED"
	EventBookingRescheduled = "BOOKING_RESCHEDULED"
	EventPaymentConfirmed   = "PAYMENT_CONFIRMED"
	EventPaymentFailed      = "PAYMENT_FAILED"
	EventMeetingLinkIssued  = "MEETING_LINK_ISSUED"
	EventBlockCreated       = "BLOCK_CREATED"
	EventBlockCorrected     = "BLOCK_CORRECTED"
	EventBlockDeleted       = "BLOCK_DELETED"
)

type Service struct {
	repo     Repository
	locker   Locker
	notifier notify.Notifier
	pricer   pricing.Service
	payments payment.Emitter
	cfg      config.Config
	log      zerolog.Logger
}

func NewService(repo Repository, locker Locker, notifier notify.Notifier, pricer pricing.Service, payments payment.Emitter, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		pricer:   pricer,
		payments: payments,
		cfg:      cfg,
		log:      log.With().Str("component", "booking").Logger(),
	}
}

// ListFreeSlots expands the provider's blocks for the given date into
// fixed-duration slots and marks each one free or taken against the current
// ledger. Recomputed on every call; the block-level booked flag is never
// consulted.
func (s *Service) ListFreeSlots(ctx context.Context, providerID uuid.UUID, date string) ([]Slot, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}

	blocks, err := s.repo.ListBlocksByProviderDate(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	if len(blocks) == 0 {
		return []Slot{}, nil
	}

	blockIDs := make([]uuid.UUID, len(blocks))
	for i, b := range blocks {
		blockIDs[i] = b.ID
	}

	active, err := s.repo.ListActiveForBlocks(ctx, blockIDs)
	if err != nil {
		return nil, fmt.Errorf("list active appointments: %w", err)
	}

	taken := make(map[string]bool, len(active))
	for _, a := range active {
		taken[a.BlockID.String()+"|"+a.SlotStartTime] = true
	}

	var slots []Slot
	for i := range blocks {
		blockSlots, err := slotsForBlock(&blocks[i], s.cfg.SlotMinutes())
		if err != nil {
			return nil, err
		}
		for j := range blockSlots {
			if taken[blockSlots[j].BlockID.String()+"|"+blockSlots[j].StartTime] {
				blockSlots[j].Free = false
			}
		}
		slots = append(slots, blockSlots...)
	}

	sortSlots(slots)
	return slots, nil
}

type CreateBookingInput struct {
	BlockID         uuid.UUID
	ProviderID      uuid.UUID
	RequesterID     uuid.UUID
	SlotStartTime   string
	SlotEndTime     string
	DurationMinutes int
}

func (in CreateBookingInput) validate() error {
	if in.BlockID == uuid.Nil || in.ProviderID == uuid.Nil || in.RequesterID == uuid.Nil {
		return fmt.Errorf("%w: block, provider and requester ids are required", ErrValidation)
	}
	start, err := parseClock(in.SlotStartTime)
	if err != nil {
		return err
	}
	end, err := parseClock(in.SlotEndTime)
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("%w: slot start %s is not before end %s", ErrValidation, in.SlotStartTime, in.SlotEndTime)
	}
	if in.DurationMinutes != end-start {
		return fmt.Errorf("%w: duration %d does not match slot %s-%s", ErrValidation, in.DurationMinutes, in.SlotStartTime, in.SlotEndTime)
	}
	return nil
}

// CreateBooking reserves a slot for the requester. The freedom re-check, the
// same-day duplicate check and the insert run inside a per-slot lock; the
// partial unique index in the ledger backstops the lock, so two racing
// requests can never both commit.
func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (*Appointment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	block, err := s.repo.GetBlockByID(ctx, in.BlockID)
	if err != nil {
		return nil, err
	}
	if block.ProviderID != in.ProviderID {
		return nil, ErrBlockNotFound
	}
	if err := s.slotWithinBlock(block, in.SlotStartTime, in.SlotEndTime); err != nil {
		return nil, err
	}

	var created *Appointment

	err = s.locker.WithLock(ctx, SlotLockKey(in.BlockID, in.SlotStartTime), func(lockCtx context.Context) error {
		_, err := s.repo.GetActiveForSlot(lockCtx, in.BlockID, in.SlotStartTime)
		if err == nil {
			return ErrSlotAlreadyBooked
		}
		if !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check slot: %w", err)
		}

		dup, err := s.hasSameDayBooking(lockCtx, in.ProviderID, in.RequesterID, block.Date, uuid.Nil)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateSameDayBooking
		}

		price, err := s.pricer.Price(lockCtx, in.ProviderID, in.DurationMinutes)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPricingUnavailable, err)
		}

		expiresAt := time.Now().Add(s.cfg.PendingTTL)
		appt, err := s.repo.CreateAppointment(lockCtx, &Appointment{
			ProviderID:      in.ProviderID,
			RequesterID:     in.RequesterID,
			BlockID:         in.BlockID,
			SlotStartTime:   in.SlotStartTime,
			SlotEndTime:     in.SlotEndTime,
			DurationMinutes: in.DurationMinutes,
			Price:           price,
			Status:          StatusPending,
			PaymentStatus:   PaymentPending,
			ExpiresAt:       &expiresAt,
		})
		if err != nil {
			return err
		}
		created = appt

		if err := s.repo.SetBlockBooked(lockCtx, in.BlockID, true); err != nil {
			s.log.Warn().Err(err).Str("block_id", in.BlockID.String()).Msg("failed to set block booked hint")
		}

		s.logEvent(lockCtx, appt.ID, EventBookingCreated, map[string]any{
			"block_id":     in.BlockID.String(),
			"requester_id": in.RequesterID.String(),
			"slot_start":   in.SlotStartTime,
			"expires_at":   expiresAt,
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
	s.emit(sideCtx, notify.Event{
		Type:          notify.EventBookingCreated,
		AppointmentID: created.ID,
		ProviderID:    created.ProviderID,
		RequesterID:   created.RequesterID,
		Date:          block.Date,
		StartTime:     created.SlotStartTime,
		EndTime:       created.SlotEndTime,
	})
	if err := s.payments.RequestCharge(sideCtx, created.ID, created.RequesterID, created.Price); err != nil {
		s.log.Warn().Err(err).Str("appointment_id", created.ID.String()).Msg("charge trigger failed")
	}

	return created, nil
}

// GetAppointment returns the appointment by id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// ListAppointmentsByRequester returns the requester's appointments, newest
// first.
func (s *Service) ListAppointmentsByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListAppointmentsByRequester(ctx, requesterID, limit, offset)
}

func (s *Service) slotWithinBlock(block *AvailabilityBlock, slotStart, slotEnd string) error {
	blockStart, err := parseClock(block.StartTime)
	if err != nil {
		return err
	}
	blockEnd, err := parseClock(block.EndTime)
	if err != nil {
		return err
	}
	start, err := parseClock(slotStart)
	if err != nil {
		return err
	}
	end, err := parseClock(slotEnd)
	if err != nil {
		return err
	}
	if start < blockStart || end > blockEnd {
		return fmt.Errorf("%w: slot %s-%s is outside block %s-%s", ErrValidation, slotStart, slotEnd, block.StartTime, block.EndTime)
	}
	return nil
}

// hasSameDayBooking enumerates all blocks for the provider on the given day
// and scans appointments bound to any of them for one held by the requester.
func (s *Service) hasSameDayBooking(ctx context.Context, providerID, requesterID uuid.UUID, date string, exclude uuid.UUID) (bool, error) {
	blocks, err := s.repo.ListBlocksByProviderDate(ctx, providerID, date)
	if err != nil {
		return false, fmt.Errorf("list provider blocks: %w", err)
	}
	if len(blocks) == 0 {
		return false, nil
	}

	blockIDs := make([]uuid.UUID, len(blocks))
	for i, b := range blocks {
		blockIDs[i] = b.ID
	}

	appts, err := s.repo.ListActiveForBlocks(ctx, blockIDs)
	if err != nil {
		return false, fmt.Errorf("list active appointments: %w", err)
	}
	for _, a := range appts {
		if a.RequesterID == requesterID && a.ID != exclude {
			return true, nil
		}
	}
	return false, nil
}

// releaseBlockHint clears the coarse booked flag once a block has no active
// appointments left. Best effort; freedom is derived from the ledger anyway.
func (s *Service) releaseBlockHint(ctx context.Context, blockID uuid.UUID) {
	n, err := s.repo.CountForBlock(ctx, blockID, true)
	if err != nil {
		s.log.Warn().Err(err).Str("block_id", blockID.String()).Msg("failed to count active appointments for block")
		return
	}
	if n == 0 {
		if err := s.repo.SetBlockBooked(ctx, blockID, false); err != nil {
			s.log.Warn().Err(err).Str("block_id", blockID.String()).Msg("failed to clear block booked hint")
		}
	}
}

func (s *Service) emit(ctx context.Context, ev notify.Event) {
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", string(ev.Type)).Msg("notification delivery failed")
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Str("appointment_id", appointmentID.String()).Msg("failed to insert event log")
	}
}
