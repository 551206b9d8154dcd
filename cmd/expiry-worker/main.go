package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/booking"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/config"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/db"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/logging"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/notify"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/payment"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/pricing"
	redisclient "github.com/DANGHARIB/webTABEEBOU-sub000/internal/redis"
)

// The expiry worker cancels unpaid pending bookings whose payment window
// has elapsed, releasing their slots for other requesters.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("expiry-worker", "dev")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New("expiry-worker", cfg.Env)
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("expiry-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewSlotLocker(rdb, cfg.LockTTL)
	notifier := notify.NewRedisPublisher(rdb, cfg.NotifyChannel)
	payments := payment.NewRedisEmitter(rdb, cfg.PaymentChannel)
	// The worker never prices anything; the fixed rate is a placeholder.
	svc := booking.NewService(repo, locker, notifier, pricing.Fixed{HourlyRate: decimal.Zero}, payments, cfg, log)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping expiry worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	expired, err := svc.ExpireUnpaidPending(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("expiry run error")
		return
	}
	log.Info().Int("expired", expired).Dur("took", time.Since(start)).Msg("expiry run complete")
}
