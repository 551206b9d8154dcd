package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/notify"
)

func TestRescheduleToLaterSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	requesterID := uuid.New()
	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")
	appt := env.mustBooking(t, block, requesterID, "09:00", "09:30")

	moved, err := env.svc.Reschedule(ctx, RescheduleInput{
		AppointmentID: appt.ID,
		NewBlockID:    block.ID,
		NewStartTime:  "09:30",
		NewEndTime:    "10:00",
		ActorID:       requesterID,
	})
	require.NoError(t, err)

	assert.Equal(t, "09:30", moved.SlotStartTime)
	assert.Equal(t, "10:00", moved.SlotEndTime)
	assert.Equal(t, StatusConfirmed, moved.Status)

	slots, err := env.svc.ListFreeSlots(ctx, providerID, "2026-09-10")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].Free, "the old slot opens up")
	assert.False(t, slots[1].Free)

	events := env.notifier.byType(notify.EventRescheduled)
	require.Len(t, events, 1)
	assert.Equal(t, "09:00", events[0].OldStartTime)
	assert.Equal(t, "09:30", events[0].StartTime)
	assert.Equal(t, "2026-09-10", events[0].Date)
}

func TestRescheduleAcrossBlocksReleasesOldHint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	requesterID := uuid.New()
	oldBlock := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")
	newBlock := env.mustBlock(t, providerID, "2026-09-11", "14:00", "15:00")
	appt := env.mustBooking(t, oldBlock, requesterID, "09:00", "09:30")

	moved, err := env.svc.Reschedule(ctx, RescheduleInput{
		AppointmentID: appt.ID,
		NewBlockID:    newBlock.ID,
		NewStartTime:  "14:00",
		NewEndTime:    "14:30",
		ActorID:       providerID,
	})
	require.NoError(t, err)
	assert.Equal(t, newBlock.ID, moved.BlockID)

	old, err := env.repo.GetBlockByID(ctx, oldBlock.ID)
	require.NoError(t, err)
	assert.False(t, old.Booked)

	fresh, err := env.repo.GetBlockByID(ctx, newBlock.ID)
	require.NoError(t, err)
	assert.True(t, fresh.Booked)
}

func TestRescheduleRejectsNonParty(t *testing.T) {
	env := newTestEnv(t)
	block := env.mustBlock(t, uuid.New(), "2026-09-10", "09:00", "10:00")
	appt := env.mustBooking(t, block, uuid.New(), "09:00", "09:30")

	_, err := env.svc.Reschedule(context.Background(), RescheduleInput{
		AppointmentID: appt.ID,
		NewBlockID:    block.ID,
		NewStartTime:  "09:30",
		NewEndTime:    "10:00",
		ActorID:       uuid.New(),
	})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRescheduleRejectsSettledStatuses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")
	appt := env.mustBooking(t, block, uuid.New(), "09:00", "09:30")

	for _, status := range []Status{StatusScheduled, StatusCompleted, StatusCancelled, StatusRejected} {
		env.forceStatus(t, appt.ID, status)
		_, err := env.svc.Reschedule(ctx, RescheduleInput{
			AppointmentID: appt.ID,
			NewBlockID:    block.ID,
			NewStartTime:  "09:30",
			NewEndTime:    "10:00",
			ActorID:       providerID,
		})
		require.ErrorIs(t, err, ErrNotReschedulable, "status %s", status)
	}
}

func TestRescheduleRejectsForeignProviderBlock(t *testing.T) {
	env := newTestEnv(t)
	block := env.mustBlock(t, uuid.New(), "2026-09-10", "09:00", "10:00")
	foreign := env.mustBlock(t, uuid.New(), "2026-09-10", "09:00", "10:00")
	appt := env.mustBooking(t, block, uuid.New(), "09:00", "09:30")

	_, err := env.svc.Reschedule(context.Background(), RescheduleInput{
		AppointmentID: appt.ID,
		NewBlockID:    foreign.ID,
		NewStartTime:  "09:00",
		NewEndTime:    "09:30",
		ActorID:       appt.RequesterID,
	})
	require.ErrorIs(t, err, ErrProviderMismatch)
}

func TestRescheduleRejectsDurationChange(t *testing.T) {
	env := newTestEnv(t)
	block := env.mustBlock(t, uuid.New(), "2026-09-10", "09:00", "10:00")
	appt := env.mustBooking(t, block, uuid.New(), "09:00", "09:30")

	_, err := env.svc.Reschedule(context.Background(), RescheduleInput{
		AppointmentID: appt.ID,
		NewBlockID:    block.ID,
		NewStartTime:  "09:30",
		NewEndTime:    "10:15",
		ActorID:       appt.RequesterID,
	})
	require.ErrorIs(t, err, ErrValidation)
}

// A failed reschedule must leave the original binding fully intact: same
// slot, same status, old reservation still blocking other requesters.
func TestRescheduleTargetTakenLeavesOriginalBinding(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")
	appt := env.mustBooking(t, block, uuid.New(), "09:00", "09:30")
	env.mustBooking(t, block, uuid.New(), "09:30", "10:00")

	_, err := env.svc.Reschedule(ctx, RescheduleInput{
		AppointmentID: appt.ID,
		NewBlockID:    block.ID,
		NewStartTime:  "09:30",
		NewEndTime:    "10:00",
		ActorID:       appt.RequesterID,
	})
	require.ErrorIs(t, err, ErrSlotAlreadyBooked)

	stored, err := env.repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "09:00", stored.SlotStartTime)
	assert.Equal(t, StatusPending, stored.Status)

	holder, err := env.repo.GetActiveForSlot(ctx, block.ID, "09:00")
	require.NoError(t, err)
	assert.Equal(t, appt.ID, holder.ID, "the original slot stays reserved")
}

func TestRescheduleOntoOwnSlotIsAllowed(t *testing.T) {
	env := newTestEnv(t)
	block := env.mustBlock(t, uuid.New(), "2026-09-10", "09:00", "10:00")
	appt := env.mustBooking(t, block, uuid.New(), "09:00", "09:30")

	moved, err := env.svc.Reschedule(context.Background(), RescheduleInput{
		AppointmentID: appt.ID,
		NewBlockID:    block.ID,
		NewStartTime:  "09:00",
		NewEndTime:    "09:30",
		ActorID:       appt.RequesterID,
	})
	require.NoError(t, err)
	assert.Equal(t, "09:00", moved.SlotStartTime)
	assert.Equal(t, StatusConfirmed, moved.Status)
}

func TestRescheduleDateChangeChecksSameDayDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	requesterID := uuid.New()
	day1 := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")
	day2 := env.mustBlock(t, providerID, "2026-09-11", "09:00", "10:00")

	appt := env.mustBooking(t, day1, requesterID, "09:00", "09:30")
	env.mustBooking(t, day2, requesterID, "09:30", "10:00")

	_, err := env.svc.Reschedule(ctx, RescheduleInput{
		AppointmentID: appt.ID,
		NewBlockID:    day2.ID,
		NewStartTime:  "09:00",
		NewEndTime:    "09:30",
		ActorID:       requesterID,
	})
	require.ErrorIs(t, err, ErrDuplicateSameDayBooking)
}

func TestRescheduleSettlesRescheduleRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	requesterID := uuid.New()
	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")
	appt := env.mustBooking(t, block, requesterID, "09:00", "09:30")
	env.forceStatus(t, appt.ID, StatusConfirmed)

	_, err := env.svc.ChangeStatus(ctx, appt.ID, providerID, StatusRescheduleRequested, "double booked")
	require.NoError(t, err)

	moved, err := env.svc.Reschedule(ctx, RescheduleInput{
		AppointmentID: appt.ID,
		NewBlockID:    block.ID,
		NewStartTime:  "09:30",
		NewEndTime:    "10:00",
		ActorID:       requesterID,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, moved.Status)
	assert.Nil(t, moved.RescheduleReason)
	assert.Nil(t, moved.RescheduleRequestedBy)
	assert.Nil(t, moved.RescheduleRequestedAt)
}
