package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateBlock declares a new open window for the provider. Blocks for one
// provider and day must not overlap; overlapping declarations would surface
// the same wall-clock slot twice.
func (s *Service) CreateBlock(ctx context.Context, providerID uuid.UUID, date, start, end string) (*AvailabilityBlock, error) {
	if providerID == uuid.Nil {
		return nil, fmt.Errorf("%w: provider id is required", ErrValidation)
	}
	if err := s.validateBlockTimes(ctx, providerID, uuid.Nil, date, start, end); err != nil {
		return nil, err
	}

	block := &AvailabilityBlock{
		ID:         uuid.New(),
		ProviderID: providerID,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
	}
	if err := s.repo.CreateBlock(ctx, block); err != nil {
		return nil, err
	}

	s.logBlockEvent(ctx, EventBlockCreated, block)
	return block, nil
}

// CorrectBlock adjusts a block's date or times. Only allowed while no
// booking has ever been made against the block.
func (s *Service) CorrectBlock(ctx context.Context, blockID, providerID uuid.UUID, date, start, end string) (*AvailabilityBlock, error) {
	block, err := s.repo.GetBlockByID(ctx, blockID)
	if err != nil {
		return nil, err
	}
	if block.ProviderID != providerID {
		return nil, ErrUnauthorized
	}

	n, err := s.repo.CountForBlock(ctx, blockID, false)
	if err != nil {
		return nil, fmt.Errorf("count block appointments: %w", err)
	}
	if n > 0 {
		return nil, ErrBlockHasBookings
	}

	if err := s.validateBlockTimes(ctx, providerID, blockID, date, start, end); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateBlockTimes(ctx, blockID, date, start, end)
	if err != nil {
		return nil, err
	}

	s.logBlockEvent(ctx, EventBlockCorrected, updated)
	return updated, nil
}

// DeleteBlock removes a block that has no active appointments.
func (s *Service) DeleteBlock(ctx context.Context, blockID, providerID uuid.UUID) error {
	block, err := s.repo.GetBlockByID(ctx, blockID)
	if err != nil {
		return err
	}
	if block.ProviderID != providerID {
		return ErrUnauthorized
	}

	n, err := s.repo.CountForBlock(ctx, blockID, true)
	if err != nil {
		return fmt.Errorf("count active appointments: %w", err)
	}
	if n > 0 {
		return ErrBlockHasBookings
	}

	if err := s.repo.DeleteBlock(ctx, blockID); err != nil {
		return err
	}

	s.logBlockEvent(ctx, EventBlockDeleted, block)
	return nil
}

// ListBlocks returns the provider's blocks for a date, earliest first.
func (s *Service) ListBlocks(ctx context.Context, providerID uuid.UUID, date string) ([]AvailabilityBlock, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	return s.repo.ListBlocksByProviderDate(ctx, providerID, date)
}

func (s *Service) validateBlockTimes(ctx context.Context, providerID, selfID uuid.UUID, date, start, end string) error {
	if err := validDate(date); err != nil {
		return err
	}
	startMin, err := parseClock(start)
	if err != nil {
		return err
	}
	endMin, err := parseClock(end)
	if err != nil {
		return err
	}
	if startMin >= endMin {
		return fmt.Errorf("%w: block start %s is not before end %s", ErrValidation, start, end)
	}

	existing, err := s.repo.ListBlocksByProviderDate(ctx, providerID, date)
	if err != nil {
		return fmt.Errorf("list provider blocks: %w", err)
	}
	for _, b := range existing {
		if b.ID == selfID {
			continue
		}
		exStart, err := parseClock(b.StartTime)
		if err != nil {
			return err
		}
		exEnd, err := parseClock(b.EndTime)
		if err != nil {
			return err
		}
		if startMin < exEnd && exStart < endMin {
			return fmt.Errorf("%w: %s-%s collides with block %s (%s-%s)", ErrBlockOverlap, start, end, b.ID, b.StartTime, b.EndTime)
		}
	}
	return nil
}

func (s *Service) logBlockEvent(ctx context.Context, eventType string, block *AvailabilityBlock) {
	payload, err := json.Marshal(map[string]any{
		"block_id":    block.ID.String(),
		"provider_id": block.ProviderID.String(),
		"date":        block.Date,
		"start_time":  block.StartTime,
		"end_time":    block.EndTime,
	})
	if err != nil {
		payload = nil
	}
	ev := EventLog{
		EventType: eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Str("block_id", block.ID.String()).Msg("failed to insert event log")
	}
}
