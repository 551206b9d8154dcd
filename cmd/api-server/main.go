package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/api"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/booking"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/config"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/db"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/logging"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/notify"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/payment"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/pricing"
	redisclient "github.com/DANGHARIB/webTABEEBOU-sub000/internal/redis"
	"github.com/shopspring/decimal"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("api-server", "dev")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New("api-server", cfg.Env)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Str("store", cfg.Store).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo     booking.Repository
		locker   booking.Locker
		notifier notify.Notifier
		pricer   pricing.Service
		payments payment.Emitter
		tokens   notify.TokenStore
		pgPool   *pgxpool.Pool
		rdb      *redis.Client
	)

	if cfg.Store == config.StorePostgres {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatal().Err(err).Msg("postgres connection error")
		}
		defer pgPool.Close()
		log.Info().Msg("connected to Postgres")

		rdb, err = redisclient.NewClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing redis")
			}
		}()
		log.Info().Msg("connected to Redis")

		repo = booking.NewPgRepository(pgPool)
		locker = redisclient.NewSlotLocker(rdb, cfg.LockTTL)
		notifier = notify.NewRedisPublisher(rdb, cfg.NotifyChannel)
		pricer = pricing.NewPgService(pgPool)
		payments = payment.NewRedisEmitter(rdb, cfg.PaymentChannel)
		tokens = notify.NewRedisTokenStore(rdb)
	} else {
		// Memory store: single-process dev mode, no external dependencies.
		repo = booking.NewMemoryRepository()
		locker = booking.NewKeyedMutexLocker()
		notifier = notify.NewLogNotifier(log)
		pricer = pricing.Fixed{HourlyRate: decimal.NewFromInt(60)}
		payments = payment.NewLogEmitter(log)
		tokens = notify.NewMemoryTokenStore()
	}

	svc := booking.NewService(repo, locker, notifier, pricer, payments, cfg, log)

	router := api.NewRouter(api.RouterConfig{
		Service:    svc,
		TokenStore: tokens,
		PgPool:     pgPool,
		Redis:      rdb,
		Env:        cfg.Env,
		Version:    version,
		Logger:     log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
	log.Info().Msg("api-server stopped")
}
