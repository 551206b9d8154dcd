package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/notify"
)

func TestCreateBookingSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	requesterID := uuid.New()

	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")

	appt, err := env.svc.CreateBooking(ctx, CreateBookingInput{
		BlockID:         block.ID,
		ProviderID:      providerID,
		RequesterID:     requesterID,
		SlotStartTime:   "09:00",
		SlotEndTime:     "09:30",
		DurationMinutes: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, PaymentPending, appt.PaymentStatus)
	require.NotNil(t, appt.ExpiresAt)
	assert.True(t, appt.Price.Equal(decimal.NewFromInt(30)), "30 minutes at 60/hour, got %s", appt.Price)

	stored, err := env.repo.GetBlockByID(ctx, block.ID)
	require.NoError(t, err)
	assert.True(t, stored.Booked)

	created := env.notifier.byType(notify.EventBookingCreated)
	require.Len(t, created, 1)
	assert.Equal(t, appt.ID, created[0].AppointmentID)
	assert.Equal(t, "2026-09-10", created[0].Date)

	require.Len(t, env.payments.charges, 1)
	assert.Equal(t, appt.ID, env.payments.charges[0])
}

func TestCreateBookingValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")

	base := CreateBookingInput{
		BlockID:         block.ID,
		ProviderID:      providerID,
		RequesterID:     uuid.New(),
		SlotStartTime:   "09:00",
		SlotEndTime:     "09:30",
		DurationMinutes: 30,
	}

	cases := map[string]func(in *CreateBookingInput){
		"missing requester":  func(in *CreateBookingInput) { in.RequesterID = uuid.Nil },
		"malformed start":    func(in *CreateBookingInput) { in.SlotStartTime = "9am" },
		"malformed end":      func(in *CreateBookingInput) { in.SlotEndTime = "25:00" },
		"inverted slot":      func(in *CreateBookingInput) { in.SlotStartTime, in.SlotEndTime = "09:30", "09:00" },
		"duration mismatch":  func(in *CreateBookingInput) { in.DurationMinutes = 45 },
		"slot outside block": func(in *CreateBookingInput) { in.SlotStartTime, in.SlotEndTime = "10:00", "10:30" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := base
			mutate(&in)
			_, err := env.svc.CreateBooking(ctx, in)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateBookingUnknownBlock(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateBooking(context.Background(), CreateBookingInput{
		BlockID:         uuid.New(),
		ProviderID:      uuid.New(),
		RequesterID:     uuid.New(),
		SlotStartTime:   "09:00",
		SlotEndTime:     "09:30",
		DurationMinutes: 30,
	})
	require.ErrorIs(t, err, ErrBlockNotFound)
}

func TestCreateBookingWrongProvider(t *testing.T) {
	env := newTestEnv(t)
	block := env.mustBlock(t, uuid.New(), "2026-09-10", "09:00", "10:00")

	_, err := env.svc.CreateBooking(context.Background(), CreateBookingInput{
		BlockID:         block.ID,
		ProviderID:      uuid.New(),
		RequesterID:     uuid.New(),
		SlotStartTime:   "09:00",
		SlotEndTime:     "09:30",
		DurationMinutes: 30,
	})
	require.ErrorIs(t, err, ErrBlockNotFound)
}

func TestCreateBookingSlotAlreadyTaken(t *testing.T) {
	env := newTestEnv(t)
	providerID := uuid.New()
	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")
	env.mustBooking(t, block, uuid.New(), "09:00", "09:30")

	_, err := env.svc.CreateBooking(context.Background(), CreateBookingInput{
		BlockID:         block.ID,
		ProviderID:      providerID,
		RequesterID:     uuid.New(),
		SlotStartTime:   "09:00",
		SlotEndTime:     "09:30",
		DurationMinutes: 30,
	})
	require.ErrorIs(t, err, ErrSlotAlreadyBooked)
}

func TestCreateBookingSameDayDuplicate(t *testing.T) {
	env := newTestEnv(t)
	providerID := uuid.New()
	requesterID := uuid.New()

	morning := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")
	afternoon := env.mustBlock(t, providerID, "2026-09-10", "14:00", "15:00")
	env.mustBooking(t, morning, requesterID, "09:00", "09:30")

	_, err := env.svc.CreateBooking(context.Background(), CreateBookingInput{
		BlockID:         afternoon.ID,
		ProviderID:      providerID,
		RequesterID:     requesterID,
		SlotStartTime:   "14:00",
		SlotEndTime:     "14:30",
		DurationMinutes: 30,
	})
	require.ErrorIs(t, err, ErrDuplicateSameDayBooking)

	// A different day with the same provider is fine.
	nextDay := env.mustBlock(t, providerID, "2026-09-11", "09:00", "10:00")
	env.mustBooking(t, nextDay, requesterID, "09:00", "09:30")
}

func TestCreateBookingPricingUnavailable(t *testing.T) {
	env := newTestEnvWithPricer(t, failingPricer{})
	providerID := uuid.New()
	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")

	_, err := env.svc.CreateBooking(context.Background(), CreateBookingInput{
		BlockID:         block.ID,
		ProviderID:      providerID,
		RequesterID:     uuid.New(),
		SlotStartTime:   "09:00",
		SlotEndTime:     "09:30",
		DurationMinutes: 30,
	})
	require.ErrorIs(t, err, ErrPricingUnavailable)

	// The failed attempt must not hold the slot.
	_, err = env.repo.GetActiveForSlot(context.Background(), block.ID, "09:00")
	require.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCreateBookingConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	providerID := uuid.New()
	block := env.mustBlock(t, providerID, "2026-09-10", "09:00", "10:00")

	const workers = 32
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.CreateBooking(context.Background(), CreateBookingInput{
				BlockID:         block.ID,
				ProviderID:      providerID,
				RequesterID:     uuid.New(),
				SlotStartTime:   "09:00",
				SlotEndTime:     "09:30",
				DurationMinutes: 30,
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		require.True(t, errors.Is(err, ErrSlotAlreadyBooked) || errors.Is(err, ErrSlotBeingBooked),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, winners, "exactly one concurrent booking must win the slot")
	require.Len(t, env.payments.charges, 1, "only the winner is charged")
}

func TestListAppointmentsByRequesterPaging(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	providerID := uuid.New()
	requesterID := uuid.New()

	for day := 10; day < 14; day++ {
		block := env.mustBlock(t, providerID, fmt.Sprintf("2026-09-%02d", day), "09:00", "10:00")
		env.mustBooking(t, block, requesterID, "09:00", "09:30")
	}

	page, err := env.svc.ListAppointmentsByRequester(ctx, requesterID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := env.svc.ListAppointmentsByRequester(ctx, requesterID, 10, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	none, err := env.svc.ListAppointmentsByRequester(ctx, uuid.New(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
