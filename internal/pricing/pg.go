package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgService reads hourly rates from the providers table.
type PgService struct {
	pool *pgxpool.Pool
}

func NewPgService(pool *pgxpool.Pool) *PgService {
	return &PgService{pool: pool}
}

func (s *PgService) Price(ctx context.Context, providerID uuid.UUID, durationMinutes int) (decimal.Decimal, error) {
	var rate string
	err := s.pool.QueryRow(ctx, `
		SELECT hourly_rate::text
		FROM providers
		WHERE id = $1
	`, providerID).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrUnavailable
		}
		return decimal.Zero, fmt.Errorf("load provider rate: %w", err)
	}

	hourly, err := decimal.NewFromString(rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse provider rate %q: %w", rate, err)
	}

	return forRate(hourly, durationMinutes), nil
}
