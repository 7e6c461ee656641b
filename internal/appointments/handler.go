package appointments

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/doctorhome/internal/directory"
	"github.com/wolfman30/doctorhome/internal/identity"
	"github.com/wolfman30/doctorhome/pkg/logging"
)

// Handler serves the appointment endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates an appointments handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if svc == nil {
		panic("appointments: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the appointment endpoints. Callers must already carry a
// principal in the request context.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateAppointment)
	r.Get("/", h.ListAppointments)
	r.Get("/{appointmentID}", h.GetAppointment)
	r.Post("/{appointmentID}/transitions", h.TransitionAppointment)
	return r
}

// CreateAppointmentRequest is the body of POST /appointments.
type CreateAppointmentRequest struct {
	DoctorID        string    `json:"doctor_id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Symptoms        string    `json:"symptoms"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	Location        *GeoPoint `json:"location,omitempty"`
	Address         string    `json:"address,omitempty"`
}

// TransitionRequest is the body of POST /appointments/{id}/transitions.
type TransitionRequest struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateAppointment handles POST /appointments
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}
	if caller.Role != directory.RolePatient {
		writeError(w, http.StatusForbidden, "only patients may book appointments")
		return
	}

	var body CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Warn("failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := parseCivilDate(body.Date)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	tod, err := parseTimeOfDay(body.Time)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	appt, err := h.svc.CreateAppointment(r.Context(), BookingRequest{
		PatientID:       caller.UserID,
		DoctorID:        body.DoctorID,
		Date:            date,
		TimeOfDay:       tod,
		Symptoms:        body.Symptoms,
		DurationMinutes: body.DurationMinutes,
		Notes:           body.Notes,
		Location:        body.Location,
		Address:         body.Address,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// GetAppointment handles GET /appointments/{appointmentID}
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}
	appt, err := h.svc.GetAppointment(r.Context(), caller, chi.URLParam(r, "appointmentID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// TransitionAppointment handles POST /appointments/{appointmentID}/transitions
func (h *Handler) TransitionAppointment(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}
	var body TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	appt, err := h.svc.TransitionAppointment(r.Context(), caller, chi.URLParam(r, "appointmentID"), ParseStatus(body.Status))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ListAppointments handles GET /appointments
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}
	buckets, err := h.svc.ListBuckets(r.Context(), caller)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("appointment request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidSchedule):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingDoctor):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, errConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// parseCivilDate reads YYYY-MM-DD. Range checks are left to CombineSchedule.
func parseCivilDate(raw string) (CivilDate, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return CivilDate{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidSchedule, raw)
	}
	nums, err := atoiAll(parts)
	if err != nil {
		return CivilDate{}, fmt.Errorf("%w: date %q: %v", ErrInvalidSchedule, raw, err)
	}
	return CivilDate{Year: nums[0], Month: time.Month(nums[1]), Day: nums[2]}, nil
}

// parseTimeOfDay reads HH:MM in 24-hour form.
func parseTimeOfDay(raw string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidSchedule, raw)
	}
	nums, err := atoiAll(parts)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: time %q: %v", ErrInvalidSchedule, raw, err)
	}
	return TimeOfDay{Hour: nums[0], Minute: nums[1]}, nil
}

func atoiAll(parts []string) ([]int, error) {
	out := make([]int, len(parts))
	for i, p := range parts {
		if !allDigits(p) {
			return nil, fmt.Errorf("invalid number %q", p)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p)
		}
		out[i] = n
	}
	return out, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
