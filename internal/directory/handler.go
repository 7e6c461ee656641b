package directory

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/doctorhome/pkg/logging"
)

// Store is what the HTTP handler needs from a directory backend.
type Store interface {
	Directory
	DoctorLister
}

// Handler serves doctor browsing endpoints.
type Handler struct {
	store  Store
	logger *logging.Logger
}

// NewHandler creates a directory handler.
func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Routes mounts the doctor endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListDoctors)
	r.Get("/{doctorID}", h.GetDoctor)
	return r
}

// ListDoctorsResponse is the body of GET /doctors.
type ListDoctorsResponse struct {
	Doctors []*Profile `json:"doctors"`
	Count   int        `json:"count"`
}

// ListDoctors handles GET /doctors?q=&specialization=
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.store.ListDoctors(r.Context())
	if err != nil {
		h.logger.Error("failed to list doctors", "error", err)
		http.Error(w, "failed to list doctors", http.StatusInternalServerError)
		return
	}
	q := r.URL.Query()
	filtered := SearchDoctors(doctors, q.Get("q"), q.Get("specialization"))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListDoctorsResponse{Doctors: filtered, Count: len(filtered)})
}

// GetDoctor handles GET /doctors/{doctorID}
func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "doctorID")
	profile, err := h.store.GetProfile(r.Context(), id)
	if errors.Is(err, ErrProfileNotFound) || (err == nil && !profile.IsDoctor()) {
		http.Error(w, "doctor not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load doctor", "error", err, "doctor_id", id)
		http.Error(w, "failed to load doctor", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}
