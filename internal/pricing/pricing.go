// Package pricing resolves the price of a booking from the provider's
// declared hourly rate.
package pricing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrUnavailable = errors.New("no rate available for provider")

type Service interface {
	// Price returns rate x duration for the provider, rounded to cents.
	Price(ctx context.Context, providerID uuid.UUID, durationMinutes int) (decimal.Decimal, error)
}

// Fixed prices every booking from a single hourly rate. Used in memory-store
// mode and tests.
type Fixed struct {
	HourlyRate decimal.Decimal
}

func (f Fixed) Price(ctx context.Context, providerID uuid.UUID, durationMinutes int) (decimal.Decimal, error) {
	return forRate(f.HourlyRate, durationMinutes), nil
}

func forRate(hourlyRate decimal.Decimal, durationMinutes int) decimal.Decimal {
	return hourlyRate.
		Mul(decimal.NewFromInt(int64(durationMinutes))).
		Div(decimal.NewFromInt(60)).
		Round(2)
}
