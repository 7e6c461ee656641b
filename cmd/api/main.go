package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/doctorhome/internal/api/router"
	"github.com/wolfman30/doctorhome/internal/app/bootstrap"
	"github.com/wolfman30/doctorhome/internal/appointments"
	"github.com/wolfman30/doctorhome/internal/clock"
	appconfig "github.com/wolfman30/doctorhome/internal/config"
	"github.com/wolfman30/doctorhome/internal/directory"
	httpmiddleware "github.com/wolfman30/doctorhome/internal/http/middleware"
	"github.com/wolfman30/doctorhome/internal/observability/metrics"
	"github.com/wolfman30/doctorhome/pkg/logging"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting doctorhome API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var awsCfg *aws.Config
	if bootstrap.NeedsAWS(cfg) {
		loaded, err := bootstrap.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return err
		}
		awsCfg = &loaded
	}

	sysClock := clock.System()
	store, err := bootstrap.BuildAppointmentStore(cfg, pool, awsCfg, sysClock)
	if err != nil {
		return err
	}
	dir, err := bootstrap.BuildDirectory(ctx, cfg, redisClient, logger)
	if err != nil {
		return err
	}
	publisher, deliverer := bootstrap.BuildEventPublisher(cfg, pool, awsCfg, logger)
	if deliverer != nil {
		go deliverer.Start(ctx)
	}

	metricsHandler, bookingMetrics := setupBookingMetrics()
	svc := appointments.NewService(store, dir, sysClock, bootstrap.BuildBookingConfig(cfg), logger).
		WithPublisher(publisher).
		WithMetrics(bookingMetrics)

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go pruneLimiter(ctx, limiter)

	handler := router.New(&router.Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(svc, logger),
		DirectoryHandler:    directory.NewHandler(dir, logger),
		MetricsHandler:      metricsHandler,
		JWTSecret:           cfg.APIJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		BookingLimiter:      limiter,
		HealthChecks:        bootstrap.HealthChecks(pool, redisClient),
	})
	if cfg.APIJWTSecret == "" {
		logger.Warn("API_JWT_SECRET not set; /v1 routes will reject every request")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupBookingMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

func pruneLimiter(ctx context.Context, limiter *httpmiddleware.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune(10 * time.Minute)
		}
	}
}
