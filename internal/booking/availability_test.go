package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBlockValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()

	cases := []struct {
		name             string
		date, start, end string
	}{
		{"bad date", "10.09.2026", "09:00", "10:00"},
		{"bad start", "2026-09-10", "nine", "10:00"},
		{"bad end", "2026-09-10", "09:00", "10:75"},
		{"inverted", "2026-09-10", "10:00", "09:00"},
		{"zero length", "2026-09-10", "09:00", "09:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.CreateBlock(ctx, providerID, tc.date, tc.start, tc.end)
			require.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := env.svc.CreateBlock(ctx, uuid.Nil, "2026-09-10", "09:00", "10:00")
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateBlockRejectsOverlap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()

	env.mustBlock(t, providerID, "2026-09-10", "09:00", "11:00")

	_, err := env.svc.CreateBlock(ctx, providerID, "2026-09-10", "10:00", "12:00")
	require.ErrorIs(t, err, ErrBlockOverlap)

	_, err = env.svc.CreateBlock(ctx, providerID, "2026-09-10", "08:00", "09:30")
	require.ErrorIs(t, err, ErrBlockOverlap)

	// Back to back is not an overlap.
	env.mustBlock(t, providerID, "2026-09-10", "11:00", "12:00")

	// Another provider may share the window.
	env.mustBlock(t, uuid.New(), "2026-09-10", "09:00", "11:00")

	// Same window on another day is fine too.
	env.mustBlock(t, providerID, "2026-09-11", "09:00", "11:00")
}

func TestCorrectBlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")

	_, err := env.svc.CorrectBlock(ctx, block.ID, uuid.New(), "2026-09-10", "10:00", "11:00")
	require.ErrorIs(t, err, ErrUnauthorized)

	updated, err := env.svc.CorrectBlock(ctx, block.ID, providerID, "2026-09-10", "10:00", "11:00")
	require.NoError(t, err)
	assert.Equal(t, "10:00", updated.StartTime)
	assert.Equal(t, "11:00", updated.EndTime)
}

// Once any booking has been made against a block, even one since cancelled,
// the block is frozen: history refers to its original window.
func TestCorrectBlockFrozenAfterBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")
	appt := env.mustBooking(t, block, uuid.New(), "09:00", "09:30")

	_, err := env.svc.CorrectBlock(ctx, block.ID, providerID, "2026-09-10", "10:00", "11:00")
	require.ErrorIs(t, err, ErrBlockHasBookings)

	_, err = env.svc.ChangeStatus(ctx, appt.ID, appt.RequesterID, StatusCancelled, "freeing up")
	require.NoError(t, err)

	_, err = env.svc.CorrectBlock(ctx, block.ID, providerID, "2026-09-10", "10:00", "11:00")
	require.ErrorIs(t, err, ErrBlockHasBookings)
}

func TestCorrectBlockCannotCreateOverlap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")
	second := env.mustBlock(t, providerID, "2026-09-10", "10:00", "11:00")

	_, err := env.svc.CorrectBlock(ctx, second.ID, providerID, "2026-09-10", "09:30", "11:00")
	require.ErrorIs(t, err, ErrBlockOverlap)

	// Re-declaring its own window does not collide with itself.
	_, err = env.svc.CorrectBlock(ctx, second.ID, providerID, "2026-09-10", "10:00", "11:30")
	require.NoError(t, err)
}

func TestDeleteBlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")

	err := env.svc.DeleteBlock(ctx, block.ID, uuid.New())
	require.ErrorIs(t, err, ErrUnauthorized)

	err = env.svc.DeleteBlock(ctx, block.ID, providerID)
	require.NoError(t, err)

	_, err = env.repo.GetBlockByID(ctx, block.ID)
	require.ErrorIs(t, err, ErrBlockNotFound)
}

func TestDeleteBlockWithActiveBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")
	appt := env.mustBooking(t, block, uuid.New(), "09:00", "09:30")

	err := env.svc.DeleteBlock(ctx, block.ID, providerID)
	require.ErrorIs(t, err, ErrBlockHasBookings)

	// Cancelled bookings no longer block deletion.
	_, err = env.svc.ChangeStatus(ctx, appt.ID, appt.RequesterID, StatusCancelled, "freeing up")
	require.NoError(t, err)

	err = env.svc.DeleteBlock(ctx, block.ID, providerID)
	require.NoError(t, err)
}

func TestBlockLifecycleIsAudited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()

	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")
	_, err := env.svc.CorrectBlock(ctx, block.ID, providerID, "2026-09-10", "09:00", "11:00")
	require.NoError(t, err)
	require.NoError(t, env.svc.DeleteBlock(ctx, block.ID, providerID))

	var types []string
	for _, ev := range env.repo.Events() {
		types = append(types, ev.EventType)
	}
	assert.Equal(t, []string{EventBlockCreated, EventBlockCorrected, EventBlockDeleted}, types)
}
