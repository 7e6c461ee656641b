package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appconfig "github.com/wolfman30/doctorhome/internal/config"
	httpmiddleware "github.com/wolfman30/doctorhome/internal/http/middleware"
	"github.com/wolfman30/doctorhome/pkg/logging"
)

func TestSetupBookingMetricsExposesMetrics(t *testing.T) {
	handler, m := setupBookingMetrics()
	if handler == nil || m == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	m.ObserveBooking("ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "doctorhome_booking_created_total") {
		t.Fatalf("expected booking counter to be exported")
	}
}

func TestRunRejectsUnknownBackend(t *testing.T) {
	cfg := &appconfig.Config{StoreBackend: "cassandra", Port: "0"}
	if err := run(context.Background(), cfg, logging.New("error")); err == nil {
		t.Fatalf("expected error for unknown store backend")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := &appconfig.Config{StoreBackend: appconfig.StoreBackendMemory, Port: "0", RateLimitRPS: 1, RateLimitBurst: 1}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logging.New("error")) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}

func TestPruneLimiterStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pruneLimiter(ctx, httpmiddleware.NewRateLimiter(1, 1))
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("pruneLimiter did not stop")
	}
}
