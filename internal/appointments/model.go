// Package appointments implements the booking engine, the appointment
// lifecycle state machine, and the pending/upcoming/past projection.
package appointments

import (
	"time"

	"github.com/wolfman30/doctorhome/internal/directory"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusRequested  Status = "requested"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	next, ok := allowedTransitions[s]
	return ok && len(next) == 0
}

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" dynamodbav:"latitude"`
	Longitude float64 `json:"longitude" dynamodbav:"longitude"`
}

// Appointment is a booking between one patient and one doctor.
type Appointment struct {
	ID                       string    `json:"id" dynamodbav:"id"`
	PatientID                string    `json:"patient_id" dynamodbav:"patientId"`
	DoctorID                 string    `json:"doctor_id" dynamodbav:"doctorId"`
	ScheduledTime            time.Time `json:"scheduled_time" dynamodbav:"scheduledTime"`
	EstimatedDurationMinutes int       `json:"estimated_duration_minutes" dynamodbav:"estimatedDurationMinutes"`
	Status                   Status    `json:"status" dynamodbav:"status"`
	Symptoms                 string    `json:"symptoms" dynamodbav:"symptoms"`
	Notes                    *string   `json:"notes,omitempty" dynamodbav:"notes,omitempty"`
	Location                 GeoPoint  `json:"location" dynamodbav:"location"`
	Address                  string    `json:"address" dynamodbav:"address"`
	Fee                      float64   `json:"fee" dynamodbav:"fee"`
	CreatedAt                time.Time `json:"created_at" dynamodbav:"createdAt"`
	UpdatedAt                time.Time `json:"updated_at" dynamodbav:"updatedAt"`
	PaymentCompleted         bool      `json:"payment_completed" dynamodbav:"paymentCompleted"`
}

// EndTime is the scheduled time plus the estimated duration.
func (a *Appointment) EndTime() time.Time {
	return a.ScheduledTime.Add(time.Duration(a.EstimatedDurationMinutes) * time.Minute)
}

// Clone returns a deep copy so callers never share the stored record.
func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Notes != nil {
		notes := *a.Notes
		cp.Notes = &notes
	}
	return &cp
}

// involves reports whether userID is the patient or doctor for the given role.
func (a *Appointment) involves(userID string, role directory.Role) bool {
	switch role {
	case directory.RolePatient:
		return a.PatientID == userID
	case directory.RoleDoctor:
		return a.DoctorID == userID
	default:
		return false
	}
}

// CivilDate is a calendar date without a time zone.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// TimeOfDay is a wall-clock hour and minute.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// BookingRequest carries everything the caller supplies to book a visit.
type BookingRequest struct {
	PatientID       string
	DoctorID        string
	Date            CivilDate
	TimeOfDay       TimeOfDay
	Symptoms        string
	DurationMinutes int
	Notes           *string
	Location        *GeoPoint
	Address         string
}

// Buckets is the derived pending/upcoming/past projection.
type Buckets struct {
	Pending  []*Appointment `json:"pending"`
	Upcoming []*Appointment `json:"upcoming"`
	Past     []*Appointment `json:"past"`
}
