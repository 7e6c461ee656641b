package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/doctorhome/internal/appointments"
	"github.com/wolfman30/doctorhome/internal/directory"
	httpmiddleware "github.com/wolfman30/doctorhome/internal/http/middleware"
	"github.com/wolfman30/doctorhome/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	DirectoryHandler    *directory.Handler
	MetricsHandler      http.Handler
	JWTSecret           string
	CORSAllowedOrigins  []string
	// BookingLimiter throttles appointment writes per caller. Optional.
	BookingLimiter *httpmiddleware.RateLimiter
	// HealthChecks are probed by GET /health; any failure reports 503.
	HealthChecks map[string]HealthCheck
}

// New creates the chi router with all routes configured
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

	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks, cfg.Logger))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(httpmiddleware.UserJWT(cfg.JWTSecret))
		if cfg.DirectoryHandler != nil {
			v1.Mount("/doctors", cfg.DirectoryHandler.Routes())
		}
		if cfg.AppointmentsHandler != nil {
			appts := chi.Router(v1)
			if cfg.BookingLimiter != nil {
				appts = v1.With(limitWrites(cfg.BookingLimiter))
			}
			appts.Mount("/appointments", cfg.AppointmentsHandler.Routes())
		}
	})

	return r
}

// limitWrites applies the limiter to POST requests only; reads stay unthrottled.
func limitWrites(limiter *httpmiddleware.RateLimiter) func(http.Handler) http.Handler {
	limit := httpmiddleware.RateLimit(limiter)
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
