package appointments

import "errors"

var (
	// ErrValidation is returned when a field has an invalid shape or value.
	ErrValidation = errors.New("appointments: validation failed")

	// ErrNotFound is returned when no appointment exists for an id.
	ErrNotFound = errors.New("appointments: not found")

	// ErrInvalidSchedule is returned when date and time do not form a valid instant.
	ErrInvalidSchedule = errors.New("appointments: invalid schedule")

	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("appointments: invalid status transition")

	// ErrMissingDoctor is returned when the doctor profile cannot be resolved.
	ErrMissingDoctor = errors.New("appointments: doctor not found")

	// errConflict signals a lost optimistic-concurrency race inside a store.
	errConflict = errors.New("appointments: concurrent update")
)
