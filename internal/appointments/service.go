package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/doctorhome/internal/clock"
	"github.com/wolfman30/doctorhome/internal/directory"
	"github.com/wolfman30/doctorhome/internal/events"
	"github.com/wolfman30/doctorhome/internal/identity"
	"github.com/wolfman30/doctorhome/internal/observability/metrics"
	"github.com/wolfman30/doctorhome/pkg/logging"
)

var appointmentsTracer = otel.Tracer("doctorhome.internal.appointments")

// ErrForbidden is returned when the caller is not a participant of the
// appointment, or their role may not perform the requested action.
var ErrForbidden = errors.New("appointments: forbidden")

// EventPublisher receives domain events after a change is committed.
type EventPublisher interface {
	Publish(ctx context.Context, aggregate string, evt events.CanonicalEvent) error
}

// Service ties the booking engine, lifecycle controller and bucket view
// together for the API layer.
type Service struct {
	store      Store
	engine     *Engine
	controller *Controller
	view       *BucketView
	clock      clock.Clock
	publisher  EventPublisher
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger
}

// NewService constructs an appointments service.
func NewService(store Store, dir directory.Directory, c clock.Clock, cfg BookingConfig, logger *logging.Logger) *Service {
	if c == nil {
		c = clock.System()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:      store,
		engine:     NewEngine(store, dir, c, cfg),
		controller: NewController(store),
		view:       NewBucketView(store, c),
		clock:      c,
		logger:     logger,
	}
}

// WithPublisher sets where committed changes are announced.
func (s *Service) WithPublisher(p EventPublisher) *Service {
	s.publisher = p
	return s
}

// WithMetrics attaches booking counters; nil disables them.
func (s *Service) WithMetrics(m *metrics.BookingMetrics) *Service {
	s.metrics = m
	return s
}

// CreateAppointment books a visit for the patient in req.
func (s *Service) CreateAppointment(ctx context.Context, req BookingRequest) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("doctorhome.patient_id", req.PatientID),
		attribute.String("doctorhome.doctor_id", req.DoctorID),
	)
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("create", time.Since(start).Seconds()) }()

	appt, err := s.engine.Create(ctx, req)
	s.metrics.ObserveBooking(errorKind(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("appointment booking rejected", "patient_id", req.PatientID, "doctor_id", req.DoctorID, "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("doctorhome.appointment_id", appt.ID))
	s.logger.Info("appointment requested", "appointment_id", appt.ID, "patient_id", appt.PatientID, "doctor_id", appt.DoctorID, "fee", appt.Fee)

	s.publish(ctx, appt.ID, events.AppointmentRequestedV1{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		DoctorID:      appt.DoctorID,
		ScheduledTime: appt.ScheduledTime,
		Fee:           appt.Fee,
		OccurredAt:    appt.CreatedAt,
	})
	return appt, nil
}

// GetAppointment returns the appointment if caller takes part in it.
func (s *Service) GetAppointment(ctx context.Context, caller identity.Principal, id string) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.get")
	defer span.End()
	span.SetAttributes(attribute.String("doctorhome.appointment_id", id))

	appt, err := s.store.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !appt.involves(caller.UserID, caller.Role) {
		return nil, fmt.Errorf("%w: %s is not a participant", ErrForbidden, caller.UserID)
	}
	return appt, nil
}

// TransitionAppointment applies a status change requested by caller. Only
// the doctor may accept, start or complete a visit; either participant may
// cancel.
func (s *Service) TransitionAppointment(ctx context.Context, caller identity.Principal, id string, target Status) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("doctorhome.appointment_id", id),
		attribute.String("doctorhome.target_status", statusLabel(target)),
	)
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("transition", time.Since(start).Seconds()) }()

	current, err := s.GetAppointment(ctx, caller, id)
	if err != nil {
		s.metrics.ObserveTransition("unknown", statusLabel(target), errorKind(err))
		span.RecordError(err)
		return nil, err
	}
	// A move the table rejects is a conflict whoever asks for it.
	if !CanTransition(current.Status, target) {
		err := fmt.Errorf("%w: %s -> %q", ErrInvalidTransition, current.Status, target)
		s.metrics.ObserveTransition(statusLabel(current.Status), statusLabel(target), errorKind(err))
		span.RecordError(err)
		return nil, err
	}
	if target != StatusCancelled && caller.Role != directory.RoleDoctor {
		err := fmt.Errorf("%w: only the doctor may move to %s", ErrForbidden, target)
		s.metrics.ObserveTransition(statusLabel(current.Status), statusLabel(target), errorKind(err))
		return nil, err
	}

	updated, from, err := s.controller.transition(ctx, id, target)
	if from == "" {
		from = current.Status
	}
	s.metrics.ObserveTransition(statusLabel(from), statusLabel(target), errorKind(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("appointment transition rejected", "appointment_id", id, "from", from, "to", target, "error", err)
		return nil, err
	}
	s.logger.Info("appointment transitioned", "appointment_id", id, "from", from, "to", updated.Status, "actor", caller.UserID)

	s.publish(ctx, updated.ID, events.AppointmentStatusChangedV1{
		AppointmentID: updated.ID,
		PatientID:     updated.PatientID,
		DoctorID:      updated.DoctorID,
		FromStatus:    string(from),
		ToStatus:      string(updated.Status),
		ScheduledTime: updated.ScheduledTime,
		OccurredAt:    updated.UpdatedAt,
	})
	return updated, nil
}

// ListBuckets returns the caller's pending, upcoming and past appointments.
func (s *Service) ListBuckets(ctx context.Context, caller identity.Principal) (Buckets, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.list_buckets")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("list_buckets", time.Since(start).Seconds()) }()

	b, err := s.view.List(ctx, caller.UserID, caller.Role)
	if err != nil {
		span.RecordError(err)
		return Buckets{}, err
	}
	span.SetAttributes(
		attribute.Int("doctorhome.pending", len(b.Pending)),
		attribute.Int("doctorhome.upcoming", len(b.Upcoming)),
		attribute.Int("doctorhome.past", len(b.Past)),
	)
	return b, nil
}

// statusLabel keeps metric and span values to the known statuses.
func statusLabel(st Status) string {
	if !st.Valid() {
		return "invalid"
	}
	return string(st)
}

func (s *Service) publish(ctx context.Context, appointmentID string, evt events.CanonicalEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, "appointment:"+appointmentID, evt); err != nil {
		s.logger.Error("failed to publish appointment event", "appointment_id", appointmentID, "type", evt.EventType(), "error", err)
	}
}

// errorKind maps an error to a low-cardinality metric label.
func errorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidSchedule):
		return "invalid_schedule"
	case errors.Is(err, ErrMissingDoctor):
		return "missing_doctor"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "error"
	}
}

// ParseStatus converts wire input into a Status without judging whether it
// is known; unknown values fail later as invalid transitions.
func ParseStatus(raw string) Status {
	return Status(strings.TrimSpace(raw))
}
