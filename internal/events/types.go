package events

import "time"

const (
	TypeAppointmentRequested     = "appointment.requested.v1"
	TypeAppointmentStatusChanged = "appointment.status_changed.v1"
)

// AppointmentRequestedV1 is emitted once a booking is stored.
type AppointmentRequestedV1 struct {
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	DoctorID      string    `json:"doctor_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Fee           float64   `json:"fee"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (AppointmentRequestedV1) EventType() string { return TypeAppointmentRequested }

// AppointmentStatusChangedV1 is emitted after every committed transition.
type AppointmentStatusChangedV1 struct {
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	DoctorID      string    `json:"doctor_id"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	ScheduledTime time.Time `json:"scheduled_time"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (AppointmentStatusChangedV1) EventType() string { return TypeAppointmentStatusChanged }
