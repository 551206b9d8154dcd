package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/config"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/notify"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/pricing"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) byType(t notify.EventType) []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Event
	for _, ev := range n.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type recordingEmitter struct {
	mu      sync.Mutex
	charges []uuid.UUID
	refunds []uuid.UUID
}

func (e *recordingEmitter) RequestCharge(ctx context.Context, appointmentID, requesterID uuid.UUID, amount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.charges = append(e.charges, appointmentID)
	return nil
}

func (e *recordingEmitter) RequestRefund(ctx context.Context, appointmentID uuid.UUID, amount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refunds = append(e.refunds, appointmentID)
	return nil
}

func (e *recordingEmitter) refundCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.refunds)
}

type failingPricer struct{}

func (failingPricer) Price(ctx context.Context, providerID uuid.UUID, durationMinutes int) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("rate service down")
}

type testEnv struct {
	svc      *Service
	repo     *MemoryRepository
	notifier *recordingNotifier
	payments *recordingEmitter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithPricer(t, pricing.Fixed{HourlyRate: decimal.NewFromInt(60)})
}

func newTestEnvWithPricer(t *testing.T, pricer pricing.Service) *testEnv {
	t.Helper()

	repo := NewMemoryRepository()
	notifier := &recordingNotifier{}
	payments := &recordingEmitter{}
	cfg := config.Config{
		SlotDuration:   30 * time.Minute,
		PendingTTL:     15 * time.Minute,
		MeetingBaseURL: "https://meet.test",
	}
	svc := NewService(repo, NewKeyedMutexLocker(), notifier, pricer, payments, cfg, zerolog.Nop())

	return &testEnv{svc: svc, repo: repo, notifier: notifier, payments: payments}
}

func (e *testEnv) mustBlock(t *testing.T, providerID uuid.UUID, date, start, end string) *AvailabilityBlock {
	t.Helper()
	block, err := e.svc.CreateBlock(context.Background(), providerID, date, start, end)
	require.NoError(t, err)
	return block
}

func (e *testEnv) mustBooking(t *testing.T, block *AvailabilityBlock, requesterID uuid.UUID, start, end string) *Appointment {
	t.Helper()
	appt, err := e.svc.CreateBooking(context.Background(), CreateBookingInput{
		BlockID:         block.ID,
		ProviderID:      block.ProviderID,
		RequesterID:     requesterID,
		SlotStartTime:   start,
		SlotEndTime:     end,
		DurationMinutes: clockDiff(t, start, end),
	})
	require.NoError(t, err)
	return appt
}

// forceStatus writes a status directly into the memory ledger, bypassing the
// state machine, for closure tests that need arbitrary starting states.
func (e *testEnv) forceStatus(t *testing.T, id uuid.UUID, status Status) {
	t.Helper()
	e.repo.mu.Lock()
	defer e.repo.mu.Unlock()
	a, ok := e.repo.appts[id]
	require.True(t, ok)
	a.Status = status
}

func (e *testEnv) forceExpiry(t *testing.T, id uuid.UUID, at time.Time) {
	t.Helper()
	e.repo.mu.Lock()
	defer e.repo.mu.Unlock()
	a, ok := e.repo.appts[id]
	require.True(t, ok)
	a.ExpiresAt = &at
}

func clockDiff(t *testing.T, start, end string) int {
	t.Helper()
	s, err := parseClock(start)
	require.NoError(t, err)
	en, err := parseClock(end)
	require.NoError(t, err)
	return en - s
}
