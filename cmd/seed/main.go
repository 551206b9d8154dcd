package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/db"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/logging"
)

// Seeds providers with rates and a week of availability blocks per provider.
func main() {
	log := logging.New("seed", "dev")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	providerIDs, err := seedProviders(context.Background(), pool, 50)
	if err != nil {
		log.Fatal().Err(err).Msg("seed providers")
	}
	log.Info().Int("providers", len(providerIDs)).Msg("providers seeded")

	blocks, err := seedBlocks(context.Background(), pool, providerIDs, 7)
	if err != nil {
		log.Fatal().Err(err).Msg("seed availability blocks")
	}
	log.Info().Int("blocks", blocks).Msg("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		rate := gofakeit.Number(40, 200)

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name, specialty, hourly_rate, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, rate)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// seedBlocks declares a morning and an afternoon block per provider per day.
func seedBlocks(ctx context.Context, pool *pgxpool.Pool, providerIDs []uuid.UUID, days int) (int, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	windows := [][2]string{
		{"09:00", "12:00"},
		{"14:00", "17:00"},
	}

	count := 0
	for _, providerID := range providerIDs {
		for d := 1; d <= days; d++ {
			date := time.Now().AddDate(0, 0, d).Format("2006-01-02")
			for _, w := range windows {
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_blocks (id, provider_id, date, start_time, end_time, booked, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, false, now(), now())
				`, uuid.New(), providerID, date, w[0], w[1])
				if err != nil {
					return 0, fmt.Errorf("insert block: %w", err)
				}
				count++
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return count, nil
}
