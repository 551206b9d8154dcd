package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/booking"
	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/notify"
)

type RouterConfig struct {
	Service    *booking.Service
	TokenStore notify.TokenStore
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	Env        string
	Version    string
	Logger     zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(chimw.Recoverer)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Provider availability
	r.Post("/availability", createBlockHandler(cfg.Service))
	r.Patch("/availability/{id}", correctBlockHandler(cfg.Service))
	r.Delete("/availability/{id}", deleteBlockHandler(cfg.Service))
	r.Get("/providers/{providerID}/availability", listBlocksHandler(cfg.Service))
	r.Get("/providers/{providerID}/slots", listFreeSlotsHandler(cfg.Service))

	// Appointments
	r.Post("/appointments", createBookingHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/status", changeStatusHandler(cfg.Service))
	r.Post("/appointments/{id}/reschedule", rescheduleHandler(cfg.Service))
	r.Post("/appointments/{id}/meeting-link", meetingLinkHandler(cfg.Service))
	r.Get("/requesters/{requesterID}/appointments", listAppointmentsByRequesterHandler(cfg.Service))

	// External collaborator callbacks
	r.Post("/payments/callback", paymentCallbackHandler(cfg.Service))

	// Push token registry
	r.Post("/notifications/tokens", registerPushTokenHandler(cfg.TokenStore))
	r.Delete("/notifications/tokens", removePushTokenHandler(cfg.TokenStore))

	return r
}
