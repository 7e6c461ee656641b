package appointments

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/doctorhome/internal/directory"
)

// Mutator edits a copy of a stored appointment. Returning an error aborts the
// update and leaves the stored record unchanged.
type Mutator func(*Appointment) error

// Store is the authoritative collection of appointments.
type Store interface {
	Insert(ctx context.Context, record *Appointment) (*Appointment, error)
	Get(ctx context.Context, id string) (*Appointment, error)
	Update(ctx context.Context, id string, mutate Mutator) (*Appointment, error)
	ListByUser(ctx context.Context, userID string, role directory.Role) ([]*Appointment, error)
}

// validateRecord enforces the field rules every stored record must satisfy.
func validateRecord(a *Appointment) error {
	if a == nil {
		return fmt.Errorf("%w: record is nil", ErrValidation)
	}
	if strings.TrimSpace(a.PatientID) == "" {
		return fmt.Errorf("%w: patient id is required", ErrValidation)
	}
	if strings.TrimSpace(a.DoctorID) == "" {
		return fmt.Errorf("%w: doctor id is required", ErrValidation)
	}
	if strings.TrimSpace(a.Symptoms) == "" {
		return fmt.Errorf("%w: symptoms are required", ErrValidation)
	}
	if a.EstimatedDurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrValidation, a.EstimatedDurationMinutes)
	}
	if a.Fee < 0 {
		return fmt.Errorf("%w: fee must not be negative, got %.2f", ErrValidation, a.Fee)
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, a.Status)
	}
	if a.UpdatedAt.Before(a.CreatedAt) {
		return fmt.Errorf("%w: updated_at precedes created_at", ErrValidation)
	}
	return nil
}

// prepareInsert fills defaults on a copy of record and validates it.
func prepareInsert(record *Appointment, now time.Time) (*Appointment, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: record is nil", ErrValidation)
	}
	a := record.Clone()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusRequested
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	if err := validateRecord(a); err != nil {
		return nil, err
	}
	return a, nil
}

// applyMutation runs mutate against a copy of current. Identity, creation
// time and fee are restored afterwards so a mutator cannot rewrite them.
func applyMutation(current *Appointment, mutate Mutator, now time.Time) (*Appointment, error) {
	next := current.Clone()
	if mutate != nil {
		if err := mutate(next); err != nil {
			return nil, err
		}
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.Fee = current.Fee
	next.UpdatedAt = now
	if next.UpdatedAt.Before(next.CreatedAt) {
		next.UpdatedAt = next.CreatedAt
	}
	if err := validateRecord(next); err != nil {
		return nil, err
	}
	return next, nil
}

func validateListArgs(userID string, role directory.Role) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	return nil
}

// sortBySchedule orders records by scheduled time, then creation time, then id.
func sortBySchedule(records []*Appointment) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.ScheduledTime.Equal(b.ScheduledTime) {
			return a.ScheduledTime.Before(b.ScheduledTime)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
