package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		minutes int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"9:30", 0, true},
		{"09-30", 0, true},
		{"", 0, true},
		{"noon", 0, true},
	}
	for _, tc := range cases {
		got, err := parseClock(tc.in)
		if tc.wantErr {
			require.ErrorIs(t, err, ErrValidation, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.minutes, got, "input %q", tc.in)
	}
}

func TestSlotsForBlockFullSlotsOnly(t *testing.T) {
	b := &AvailabilityBlock{ID: uuid.New(), StartTime: "09:00", EndTime: "09:45"}

	slots, err := slotsForBlock(b, 30)
	require.NoError(t, err)
	require.Len(t, slots, 1, "the trailing 15 minutes do not make a slot")
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, "09:30", slots[0].EndTime)
	assert.True(t, slots[0].Free)
}

func TestSlotsForBlockRejectsInvertedTimes(t *testing.T) {
	b := &AvailabilityBlock{ID: uuid.New(), StartTime: "10:00", EndTime: "09:00"}
	_, err := slotsForBlock(b, 30)
	require.ErrorIs(t, err, ErrValidation)
}

func TestListFreeSlotsMarksBookedSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()

	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")
	env.mustBooking(t, block, uuid.New(), "09:00", "09:30")

	slots, err := env.svc.ListFreeSlots(ctx, providerID, "2026-09-10")
	require.NoError(t, err)
	require.Len(t, slots, 2)

	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.False(t, slots[0].Free)
	assert.Equal(t, "09:30", slots[1].StartTime)
	assert.True(t, slots[1].Free)
}

func TestListFreeSlotsIsDeterministic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()

	env.mustBlock(t, providerID, "2026-09-10", "14:00", "15:30")
	env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")

	first, err := env.svc.ListFreeSlots(ctx, providerID, "2026-09-10")
	require.NoError(t, err)
	second, err := env.svc.ListFreeSlots(ctx, providerID, "2026-09-10")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 5)
	assert.Equal(t, "09:00", first[0].StartTime)
	assert.Equal(t, "14:00", first[2].StartTime)
}

func TestListFreeSlotsEmptyWithoutBlocks(t *testing.T) {
	env := newTestEnv(t)

	slots, err := env.svc.ListFreeSlots(context.Background(), uuid.New(), "2026-09-10")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestListFreeSlotsRejectsMalformedDate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ListFreeSlots(context.Background(), uuid.New(), "10/09/2026")
	require.ErrorIs(t, err, ErrValidation)
}

func TestCancelledBookingFreesItsSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	requesterID := uuid.New()

	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")
	appt := env.mustBooking(t, block, requesterID, "09:00", "09:30")

	_, err := env.svc.ChangeStatus(ctx, appt.ID, requesterID, StatusCancelled, "schedule conflict")
	require.NoError(t, err)

	slots, err := env.svc.ListFreeSlots(ctx, providerID, "2026-09-10")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].Free, "cancelled booking must free the slot")
	assert.True(t, slots[1].Free)
}
