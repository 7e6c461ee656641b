package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/doctorhome/internal/clock"
	"github.com/wolfman30/doctorhome/internal/directory"
)

// BookingConfig holds the defaults applied when the caller leaves a field out.
type BookingConfig struct {
	DefaultFee             float64
	DefaultDurationMinutes int
	Location               *time.Location
	DefaultVisitLocation   GeoPoint
	DefaultVisitAddress    string
}

// DefaultBookingConfig returns the prototype's defaults: a flat 100.0 fee,
// 30 minute visits, UTC scheduling.
func DefaultBookingConfig() BookingConfig {
	return BookingConfig{
		DefaultFee:             100.0,
		DefaultDurationMinutes: 30,
		Location:               time.UTC,
	}
}

// Engine validates booking requests and creates appointments in the
// requested state.
type Engine struct {
	store     Store
	directory directory.Directory
	clock     clock.Clock
	cfg       BookingConfig
}

// NewEngine creates a booking engine.
func NewEngine(store Store, dir directory.Directory, c clock.Clock, cfg BookingConfig) *Engine {
	if store == nil {
		panic("appointments: store required")
	}
	if dir == nil {
		panic("appointments: directory required")
	}
	if c == nil {
		c = clock.System()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DefaultDurationMinutes <= 0 {
		cfg.DefaultDurationMinutes = 30
	}
	if cfg.DefaultFee < 0 {
		cfg.DefaultFee = 0
	}
	return &Engine{store: store, directory: dir, clock: c, cfg: cfg}
}

// CombineSchedule merges a calendar date and a time of day into one instant in
// loc. Parts that are out of range, or that the calendar would silently
// normalise (Feb 30, a skipped DST hour), are rejected.
func CombineSchedule(date CivilDate, tod TimeOfDay, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if date.Year < 1 || date.Month < time.January || date.Month > time.December || date.Day < 1 || date.Day > 31 {
		return time.Time{}, fmt.Errorf("%w: date %04d-%02d-%02d out of range", ErrInvalidSchedule, date.Year, int(date.Month), date.Day)
	}
	if tod.Hour < 0 || tod.Hour > 23 || tod.Minute < 0 || tod.Minute > 59 {
		return time.Time{}, fmt.Errorf("%w: time %02d:%02d out of range", ErrInvalidSchedule, tod.Hour, tod.Minute)
	}

	t := time.Date(date.Year, date.Month, date.Day, tod.Hour, tod.Minute, 0, 0, loc)
	y, m, d := t.Date()
	if y != date.Year || m != date.Month || d != date.Day || t.Hour() != tod.Hour || t.Minute() != tod.Minute {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d %02d:%02d does not exist in %s",
			ErrInvalidSchedule, date.Year, int(date.Month), date.Day, tod.Hour, tod.Minute, loc)
	}
	return t, nil
}

// Create books a new appointment. The doctor lookup happens before the store
// is touched.
func (e *Engine) Create(ctx context.Context, req BookingRequest) (*Appointment, error) {
	scheduled, err := CombineSchedule(req.Date, req.TimeOfDay, e.cfg.Location)
	if err != nil {
		return nil, err
	}

	doctor, err := e.lookupDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	symptoms := strings.TrimSpace(req.Symptoms)
	if symptoms == "" {
		return nil, fmt.Errorf("%w: symptoms are required", ErrValidation)
	}
	if strings.TrimSpace(req.PatientID) == "" {
		return nil, fmt.Errorf("%w: patient id is required", ErrValidation)
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = e.cfg.DefaultDurationMinutes
	}

	location := e.cfg.DefaultVisitLocation
	address := e.cfg.DefaultVisitAddress
	if req.Location != nil {
		location = *req.Location
		address = ""
	}
	if a := strings.TrimSpace(req.Address); a != "" {
		address = a
	}

	now := e.clock.Now()
	record := &Appointment{
		PatientID:                req.PatientID,
		DoctorID:                 doctor.ID,
		ScheduledTime:            scheduled,
		EstimatedDurationMinutes: duration,
		Status:                   StatusRequested,
		Symptoms:                 symptoms,
		Notes:                    req.Notes,
		Location:                 location,
		Address:                  address,
		Fee:                      e.feeFor(doctor),
		CreatedAt:                now,
		UpdatedAt:                now,
		PaymentCompleted:         false,
	}
	return e.store.Insert(ctx, record)
}

// feeFor is a flat per-visit fee: the doctor's hourly rate when set, the
// configured default otherwise. It is not scaled by duration.
func (e *Engine) feeFor(doctor *directory.Profile) float64 {
	if doctor.HourlyRate != nil {
		return *doctor.HourlyRate
	}
	return e.cfg.DefaultFee
}

func (e *Engine) lookupDoctor(ctx context.Context, doctorID string) (*directory.Profile, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, fmt.Errorf("%w: doctor id is required", ErrMissingDoctor)
	}
	profile, err := e.directory.GetProfile(ctx, doctorID)
	if errors.Is(err, directory.ErrProfileNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMissingDoctor, doctorID)
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: lookup doctor: %w", err)
	}
	if !profile.IsDoctor() {
		return nil, fmt.Errorf("%w: %s is not a doctor", ErrMissingDoctor, doctorID)
	}
	return profile, nil
}
