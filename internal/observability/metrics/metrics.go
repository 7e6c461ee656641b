package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for booking and lifecycle flows.
type BookingMetrics struct {
	createdTotal      *prometheus.CounterVec
	transitionsTotal  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewBookingMetrics registers the booking collectors on reg (default registerer when nil).
func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		createdTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "doctorhome",
			Subsystem: "booking",
			Name:      "created_total",
			Help:      "Appointment booking attempts by result",
		}, []string{"result"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "doctorhome",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Appointment status transition attempts",
		}, []string{"from", "to", "result"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "doctorhome",
			Subsystem: "booking",
			Name:      "operation_seconds",
			Help:      "Latency of booking core operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.createdTotal, m.transitionsTotal, m.operationDuration)
	return m
}

// ObserveBooking counts one booking attempt by result.
func (m *BookingMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.createdTotal.WithLabelValues(result).Inc()
}

// ObserveTransition counts one transition attempt. Callers pass bounded labels.
func (m *BookingMetrics) ObserveTransition(from, to, result string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to, result).Inc()
}

// ObserveOperation records how long a core operation took.
func (m *BookingMetrics) ObserveOperation(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}
