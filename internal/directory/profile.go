// Package directory exposes patient and doctor profiles to the booking core.
package directory

import (
	"context"
	"errors"
	"time"
)

// Role distinguishes patients from doctors.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// ErrProfileNotFound is returned when no profile exists for an id.
var ErrProfileNotFound = errors.New("directory: profile not found")

// Profile is a patient or doctor account record. Doctor-only fields are nil
// for patients.
type Profile struct {
	ID              string     `json:"id"`
	FullName        string     `json:"full_name"`
	Email           string     `json:"email"`
	PhoneNumber     string     `json:"phone_number"`
	Role            Role       `json:"role"`
	ProfileImageURL string     `json:"profile_image_url,omitempty"`
	Address         string     `json:"address,omitempty"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty"`

	Specialization    *string  `json:"specialization,omitempty"`
	LicenseNumber     *string  `json:"license_number,omitempty"`
	YearsOfExperience *int     `json:"years_of_experience,omitempty"`
	HourlyRate        *float64 `json:"hourly_rate,omitempty"`
	Bio               *string  `json:"bio,omitempty"`
	Rating            *float64 `json:"rating,omitempty"`
	IsAvailable       *bool    `json:"is_available,omitempty"`
}

// IsDoctor reports whether the profile belongs to a doctor.
func (p *Profile) IsDoctor() bool {
	return p != nil && p.Role == RoleDoctor
}

// Directory resolves profiles by id.
type Directory interface {
	GetProfile(ctx context.Context, id string) (*Profile, error)
}

// DoctorLister lists every doctor profile.
type DoctorLister interface {
	ListDoctors(ctx context.Context) ([]*Profile, error)
}
