package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveBooking("ok")
	m.ObserveBooking("ok")
	m.ObserveBooking("validation")
	m.ObserveTransition("requested", "accepted", "ok")
	m.ObserveOperation("create", 0.01)

	if got := counterValue(t, m.createdTotal.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok bookings, got %v", got)
	}
	if got := counterValue(t, m.transitionsTotal.WithLabelValues("requested", "accepted", "ok")); got != 1 {
		t.Fatalf("expected 1 transition, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 3 {
		t.Fatalf("expected 3 metric families, got %d", len(families))
	}
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveBooking("ok")
	m.ObserveTransition("a", "b", "ok")
	m.ObserveOperation("list", 0.1)
}
