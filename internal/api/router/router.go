package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medbridge-ai/intake-pipeline/internal/http/handlers"
	httpmiddleware "github.com/medbridge-ai/intake-pipeline/internal/http/middleware"
	"github.com/medbridge-ai/intake-pipeline/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Intake             *handlers.IntakeHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	OpsAuthSecret      string

	// Webhook rate limit, requests per second per IP. Zero disables.
	EventRateLimit float64
	EventRateBurst int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.Intake.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/intake", func(r chi.Router) {
		r.Group(func(events chi.Router) {
			if cfg.EventRateLimit > 0 {
				events.Use(httpmiddleware.RateLimit(cfg.EventRateLimit, cfg.EventRateBurst))
			}
			events.Post("/events/message", cfg.Intake.HandleMessage)
			events.Post("/events/confirm", cfg.Intake.HandleConfirm)
		})
		r.With(httpmiddleware.OpsJWT(cfg.OpsAuthSecret)).
			Post("/consultations/{consultationID}/reset", cfg.Intake.HandleReset)
	})

	return r
}
