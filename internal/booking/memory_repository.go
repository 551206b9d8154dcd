package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded in-memory ledger. It backs unit tests
// and local development (STORE=memory); the single mutex gives every method
// the same atomicity the Postgres statements have.
type MemoryRepository struct {
	mu     sync.Mutex
	blocks map[uuid.UUID]*AvailabilityBlock
	appts  map[uuid.UUID]*Appointment
	events []EventLog
	nextEv int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		blocks: make(map[uuid.UUID]*AvailabilityBlock),
		appts:  make(map[uuid.UUID]*Appointment),
	}
}

func cloneBlock(b *AvailabilityBlock) *AvailabilityBlock {
	c := *b
	return &c
}

func cloneAppt(a *Appointment) *Appointment {
	c := *a
	return &c
}

func (r *MemoryRepository) activeForSlot(blockID uuid.UUID, slotStart string, exclude uuid.UUID) *Appointment {
	for _, a := range r.appts {
		if a.ID != exclude && a.BlockID == blockID && a.SlotStartTime == slotStart && a.Active() {
			return a
		}
	}
	return nil
}

// Availability blocks

func (r *MemoryRepository) CreateBlock(ctx context.Context, b *AvailabilityBlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := cloneBlock(b)
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	r.blocks[c.ID] = c
	return nil
}

func (r *MemoryRepository) GetBlockByID(ctx context.Context, id uuid.UUID) (*AvailabilityBlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.blocks[id]
	if !ok {
		return nil, ErrBlockNotFound
	}
	return cloneBlock(b), nil
}

func (r *MemoryRepository) ListBlocksByProviderDate(ctx context.Context, providerID uuid.UUID, date string) ([]AvailabilityBlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []AvailabilityBlock
	for _, b := range r.blocks {
		if b.ProviderID == providerID && b.Date == date {
			result = append(result, *b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime < result[j].StartTime })
	return result, nil
}

func (r *MemoryRepository) UpdateBlockTimes(ctx context.Context, id uuid.UUID, date, start, end string) (*AvailabilityBlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.blocks[id]
	if !ok {
		return nil, ErrBlockNotFound
	}
	b.Date = date
	b.StartTime = start
	b.EndTime = end
	b.UpdatedAt = time.Now()
	return cloneBlock(b), nil
}

func (r *MemoryRepository) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.blocks[id]; !ok {
		return ErrBlockNotFound
	}
	delete(r.blocks, id)
	return nil
}

func (r *MemoryRepository) SetBlockBooked(ctx context.Context, id uuid.UUID, booked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.blocks[id]; ok {
		b.Booked = booked
		b.UpdatedAt = time.Now()
	}
	return nil
}

// Ledger reads

func (r *MemoryRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return cloneAppt(a), nil
}

func (r *MemoryRepository) GetActiveForSlot(ctx context.Context, blockID uuid.UUID, slotStart string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a := r.activeForSlot(blockID, slotStart, uuid.Nil); a != nil {
		return cloneAppt(a), nil
	}
	return nil, ErrAppointmentNotFound
}

func (r *MemoryRepository) ListActiveForBlocks(ctx context.Context, blockIDs []uuid.UUID) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make(map[uuid.UUID]bool, len(blockIDs))
	for _, id := range blockIDs {
		ids[id] = true
	}

	var result []Appointment
	for _, a := range r.appts {
		if ids[a.BlockID] && a.Active() {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SlotStartTime < result[j].SlotStartTime })
	return result, nil
}

func (r *MemoryRepository) CountForBlock(ctx context.Context, blockID uuid.UUID, activeOnly bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, a := range r.appts {
		if a.BlockID == blockID && (!activeOnly || a.Active()) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) ListAppointmentsByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.appts {
		if a.RequesterID == requesterID {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// Ledger writes

func (r *MemoryRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeForSlot(a.BlockID, a.SlotStartTime, uuid.Nil) != nil {
		return nil, ErrSlotAlreadyBooked
	}

	c := cloneAppt(a)
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	r.appts[c.ID] = c
	return cloneAppt(c), nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	return cloneAppt(a), nil
}

func (r *MemoryRepository) CancelAppointment(ctx context.Context, id uuid.UUID, from Status, reason string, by *uuid.UUID, at time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusCancelled
	a.CancellationReason = &reason
	a.CancelledBy = by
	cancelledAt := at
	a.CancelledAt = &cancelledAt
	a.UpdatedAt = time.Now()
	return cloneAppt(a), nil
}

func (r *MemoryRepository) MarkRescheduleRequested(ctx context.Context, id uuid.UUID, from Status, reason string, by uuid.UUID, at time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusRescheduleRequested
	a.RescheduleReason = &reason
	requestedBy := by
	a.RescheduleRequestedBy = &requestedBy
	requestedAt := at
	a.RescheduleRequestedAt = &requestedAt
	a.UpdatedAt = time.Now()
	return cloneAppt(a), nil
}

func (r *MemoryRepository) CompleteAppointment(ctx context.Context, id uuid.UUID, from Status, at time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusCompleted
	completedAt := at
	a.CompletedAt = &completedAt
	a.UpdatedAt = time.Now()
	return cloneAppt(a), nil
}

func (r *MemoryRepository) SetMeetingLink(ctx context.Context, id uuid.UUID, link string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || (a.Status != StatusConfirmed && a.Status != StatusScheduled) {
		return nil, ErrInvalidTransition
	}
	l := link
	a.MeetingLink = &l
	a.Status = StatusScheduled
	a.UpdatedAt = time.Now()
	return cloneAppt(a), nil
}

func (r *MemoryRepository) ConfirmPaid(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.Status != StatusPending {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusConfirmed
	a.PaymentStatus = PaymentCompleted
	a.ExpiresAt = nil
	a.UpdatedAt = time.Now()
	return cloneAppt(a), nil
}

func (r *MemoryRepository) SetPaymentStatus(ctx context.Context, id uuid.UUID, ps PaymentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.PaymentStatus = ps
	if ps == PaymentCompleted {
		a.ExpiresAt = nil
	}
	a.UpdatedAt = time.Now()
	return cloneAppt(a), nil
}

func (r *MemoryRepository) MoveSlot(ctx context.Context, id uuid.UUID, newBlockID uuid.UUID, newStart, newEnd string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || !reschedulable(a.Status) {
		return nil, ErrNotReschedulable
	}
	if r.activeForSlot(newBlockID, newStart, id) != nil {
		return nil, ErrSlotAlreadyBooked
	}

	a.BlockID = newBlockID
	a.SlotStartTime = newStart
	a.SlotEndTime = newEnd
	a.Status = StatusConfirmed
	a.RescheduleReason = nil
	a.RescheduleRequestedBy = nil
	a.RescheduleRequestedAt = nil
	a.UpdatedAt = time.Now()
	return cloneAppt(a), nil
}

// Expiry worker

func (r *MemoryRepository) FindExpiredPending(ctx context.Context, now time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.appts {
		if a.Status == StatusPending && a.PaymentStatus != PaymentCompleted &&
			a.ExpiresAt != nil && a.ExpiresAt.Before(now) {
			result = append(result, *a)
		}
	}
	return result, nil
}

// Audit log

func (r *MemoryRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextEv++
	ev.ID = r.nextEv
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the audit log, oldest first.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}
