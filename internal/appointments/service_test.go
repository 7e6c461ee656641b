package appointments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/doctorhome/internal/directory"
	"github.com/wolfman30/doctorhome/internal/events"
	"github.com/wolfman30/doctorhome/internal/identity"
	"github.com/wolfman30/doctorhome/internal/observability/metrics"
	"github.com/wolfman30/doctorhome/pkg/logging"
)

type capturedEvent struct {
	aggregate string
	evt       events.CanonicalEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, aggregate string, evt events.CanonicalEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{aggregate: aggregate, evt: evt})
	return p.err
}

var (
	patientP1 = identity.Principal{UserID: "p1", Role: directory.RolePatient}
	doctorD1  = identity.Principal{UserID: "d1", Role: directory.RoleDoctor}
	doctorD2  = identity.Principal{UserID: "d2", Role: directory.RoleDoctor}
)

func newTestService(t *testing.T) (*Service, *fixture, *fakePublisher, *prometheus.Registry) {
	t.Helper()
	f := newFixture(t)
	pub := &fakePublisher{}
	reg := prometheus.NewRegistry()
	svc := NewService(f.store, f.dir, f.clock, DefaultBookingConfig(), logging.NewWithWriter("debug", &bytes.Buffer{})).
		WithPublisher(pub).
		WithMetrics(metrics.NewBookingMetrics(reg))
	return svc, f, pub, reg
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
	metricLoop:
		for _, m := range fam.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metricLoop
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func bookTomorrow(svc *Service, symptoms string) (*Appointment, error) {
	date, tod := tomorrowAt(10, 0)
	return svc.CreateAppointment(context.Background(), BookingRequest{
		PatientID: "p1", DoctorID: "d1", Date: date, TimeOfDay: tod, Symptoms: symptoms,
	})
}

func TestServiceCreatePublishesAndCounts(t *testing.T) {
	svc, _, pub, reg := newTestService(t)

	appt, err := bookTomorrow(svc, "back pain")
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "appointment:"+appt.ID, pub.events[0].aggregate)
	evt, ok := pub.events[0].evt.(events.AppointmentRequestedV1)
	require.True(t, ok)
	assert.Equal(t, appt.ID, evt.AppointmentID)
	assert.Equal(t, 150.0, evt.Fee)

	_, err = bookTomorrow(svc, "")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Len(t, pub.events, 1)

	assert.Equal(t, 1.0, counterValue(t, reg, "doctorhome_booking_created_total", map[string]string{"result": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "doctorhome_booking_created_total", map[string]string{"result": "validation"}))
}

func TestServicePublishFailureDoesNotFailBooking(t *testing.T) {
	svc, f, pub, _ := newTestService(t)
	pub.err = errors.New("outbox unavailable")

	appt, err := bookTomorrow(svc, "back pain")
	require.NoError(t, err)
	_, err = f.store.Get(context.Background(), appt.ID)
	assert.NoError(t, err)
}

func TestServiceTransitionRules(t *testing.T) {
	svc, f, pub, reg := newTestService(t)
	ctx := context.Background()
	appt, err := bookTomorrow(svc, "back pain")
	require.NoError(t, err)

	_, err = svc.TransitionAppointment(ctx, patientP1, appt.ID, StatusAccepted)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.TransitionAppointment(ctx, doctorD2, appt.ID, StatusAccepted)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.TransitionAppointment(ctx, doctorD1, "missing", StatusAccepted)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.TransitionAppointment(ctx, doctorD1, appt.ID, StatusInProgress)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	f.clock.Advance(time.Minute)
	updated, err := svc.TransitionAppointment(ctx, doctorD1, appt.ID, StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, updated.Status)

	updated, err = svc.TransitionAppointment(ctx, patientP1, appt.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, updated.Status)

	require.Len(t, pub.events, 3)
	changed, ok := pub.events[1].evt.(events.AppointmentStatusChangedV1)
	require.True(t, ok)
	assert.Equal(t, "requested", changed.FromStatus)
	assert.Equal(t, "accepted", changed.ToStatus)
	assert.Equal(t, baseNow.Add(time.Minute), changed.OccurredAt)
	changed = pub.events[2].evt.(events.AppointmentStatusChangedV1)
	assert.Equal(t, "accepted", changed.FromStatus)
	assert.Equal(t, "cancelled", changed.ToStatus)

	assert.Equal(t, 1.0, counterValue(t, reg, "doctorhome_booking_transitions_total",
		map[string]string{"from": "requested", "to": "inProgress", "result": "invalid_transition"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "doctorhome_booking_transitions_total",
		map[string]string{"from": "requested", "to": "accepted", "result": "ok"}))
}

func seriesCount(t *testing.T, reg *prometheus.Registry, name string) int {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() == name {
			return len(fam.GetMetric())
		}
	}
	return 0
}

func TestServiceTransitionLabelsStayBounded(t *testing.T) {
	svc, _, _, reg := newTestService(t)
	ctx := context.Background()
	appt, err := bookTomorrow(svc, "back pain")
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		junk := Status(fmt.Sprintf("junk-%d", i))
		_, err := svc.TransitionAppointment(ctx, doctorD1, appt.ID, junk)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = svc.TransitionAppointment(ctx, doctorD1, fmt.Sprintf("missing-%d", i), junk)
		assert.ErrorIs(t, err, ErrNotFound)
	}

	assert.Equal(t, 2, seriesCount(t, reg, "doctorhome_booking_transitions_total"))
	assert.Equal(t, 50.0, counterValue(t, reg, "doctorhome_booking_transitions_total",
		map[string]string{"from": "requested", "to": "invalid", "result": "invalid_transition"}))
	assert.Equal(t, 50.0, counterValue(t, reg, "doctorhome_booking_transitions_total",
		map[string]string{"from": "unknown", "to": "invalid", "result": "not_found"}))
}

func TestServiceInvalidTargetIsConflictForPatients(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	appt, err := bookTomorrow(svc, "back pain")
	require.NoError(t, err)

	_, err = svc.TransitionAppointment(ctx, patientP1, appt.ID, Status("bogus"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.TransitionAppointment(ctx, patientP1, appt.ID, StatusCancelled)
	require.NoError(t, err)

	_, err = svc.TransitionAppointment(ctx, patientP1, appt.ID, StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrForbidden)
}

func TestServiceGetAppointmentRequiresParticipant(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	appt, err := bookTomorrow(svc, "back pain")
	require.NoError(t, err)

	got, err := svc.GetAppointment(ctx, patientP1, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)

	_, err = svc.GetAppointment(ctx, doctorD1, appt.ID)
	assert.NoError(t, err)

	_, err = svc.GetAppointment(ctx, identity.Principal{UserID: "p2", Role: directory.RolePatient}, appt.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetAppointment(ctx, identity.Principal{UserID: "d1", Role: directory.RolePatient}, appt.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestServiceListBuckets(t *testing.T) {
	svc, f, _, _ := newTestService(t)
	ctx := context.Background()
	appt, err := bookTomorrow(svc, "back pain")
	require.NoError(t, err)

	b, err := svc.ListBuckets(ctx, patientP1)
	require.NoError(t, err)
	assert.Len(t, b.Pending, 1)

	_, err = svc.TransitionAppointment(ctx, doctorD1, appt.ID, StatusAccepted)
	require.NoError(t, err)
	f.clock.Advance(72 * time.Hour)

	b, err = svc.ListBuckets(ctx, doctorD1)
	require.NoError(t, err)
	assert.Empty(t, b.Pending)
	assert.Empty(t, b.Upcoming)
	require.Len(t, b.Past, 1)
	assert.Equal(t, StatusAccepted, b.Past[0].Status)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrValidation, "validation"},
		{ErrInvalidSchedule, "invalid_schedule"},
		{ErrMissingDoctor, "missing_doctor"},
		{ErrNotFound, "not_found"},
		{ErrInvalidTransition, "invalid_transition"},
		{ErrForbidden, "forbidden"},
		{errors.New("db down"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorKind(tt.err))
	}
}
