package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/store"
)

// ProfileHandler serves the tuning profiles.
type ProfileHandler struct {
	store *store.Store
	// onChange is called after any write that may change the active
	// thresholds.
	onChange func()
}

// NewProfileHandler creates a ProfileHandler. onChange may be nil.
func NewProfileHandler(s *store.Store, onChange func()) *ProfileHandler {
	if onChange == nil {
		onChange = func() {}
	}
	return &ProfileHandler{store: s, onChange: onChange}
}

// Register adds the profile routes to r.
func (h *ProfileHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/profiles", h.HandleList).Methods("GET")
	r.HandleFunc("/api/profiles", h.HandleCreate).Methods("POST")
	r.HandleFunc("/api/profiles/{id}", h.HandleGet).Methods("GET")
	r.HandleFunc("/api/profiles/{id}", h.HandleUpdate).Methods("PUT")
	r.HandleFunc("/api/profiles/{id}", h.HandleDelete).Methods("DELETE")
	r.HandleFunc("/api/profiles/{id}/activate", h.HandleActivate).Methods("POST")
	r.HandleFunc("/api/profiles/{id}/deactivate", h.HandleDeactivate).Methods("POST")
}

type profileRequest struct {
	Name       string          `json:"name"`
	Exercise   string          `json:"exercise"`
	Thresholds json.RawMessage `json:"thresholds"`
	Active     bool            `json:"active"`
}

type profileResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Exercise   string          `json:"exercise"`
	Thresholds json.RawMessage `json:"thresholds"`
	Active     bool            `json:"active"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

func toProfileResponse(p *store.Profile) profileResponse {
	thresholds := p.Thresholds
	if len(thresholds) == 0 {
		thresholds = json.RawMessage("{}")
	}
	return profileResponse{
		ID:         p.ID,
		Name:       p.Name,
		Exercise:   p.Exercise,
		Thresholds: thresholds,
		Active:     p.Active,
		CreatedAt:  p.CreatedAt.Format(timeFormat),
		UpdatedAt:  p.UpdatedAt.Format(timeFormat),
	}
}

// validateProfile checks the name, exercise and that the thresholds decode
// onto the exercise's configuration.
func validateProfile(name, ex string, thresholds json.RawMessage) (string, bool) {
	if strings.TrimSpace(name) == "" {
		return "name is required", false
	}
	kind, err := exercise.ParseKind(ex)
	if err != nil {
		return "exercise must be 'squat' or 'deadlift'", false
	}
	if _, err := exercise.DefaultConfig().WithOverrides(kind, thresholds); err != nil {
		return err.Error(), false
	}
	return "", true
}

// HandleList handles GET /api/profiles.
func (h *ProfileHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	response := listProfilesResponse{
		Profiles: make([]profileResponse, 0, len(profiles)),
	}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, toProfileResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// HandleGet handles GET /api/profiles/{id}.
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// HandleCreate handles POST /api/profiles.
func (h *ProfileHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if msg, ok := validateProfile(req.Name, req.Exercise, req.Thresholds); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if existing, err := h.store.Profiles().GetByName(req.Name); err == nil && existing != nil {
		writeError(w, http.StatusConflict, "Profile with this name already exists")
		return
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to check existing profile")
		return
	}

	p := &store.Profile{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Exercise:   req.Exercise,
		Thresholds: req.Thresholds,
		Active:     req.Active,
	}
	if err := h.store.Profiles().Create(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}

	log.WithFields(log.Fields{"profile": p.Name, "exercise": p.Exercise, "active": p.Active}).Info("profile created")
	if p.Active {
		h.onChange()
	}
	writeJSON(w, http.StatusCreated, toProfileResponse(p))
}

// HandleUpdate handles PUT /api/profiles/{id}. Omitted fields keep their value.
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Exercise != "" && req.Exercise != p.Exercise {
		if p.Active {
			writeError(w, http.StatusConflict, "Deactivate the profile before changing its exercise")
			return
		}
		p.Exercise = req.Exercise
	}
	if req.Thresholds != nil {
		p.Thresholds = req.Thresholds
	}
	if msg, ok := validateProfile(p.Name, p.Exercise, p.Thresholds); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.Profiles().Update(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	if p.Active {
		h.onChange()
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// HandleDelete handles DELETE /api/profiles/{id}.
func (h *ProfileHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	if err := h.store.Profiles().Delete(p.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}

	if p.Active {
		h.onChange()
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleActivate handles POST /api/profiles/{id}/activate.
func (h *ProfileHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, mux.Vars(r)["id"], true)
}

// HandleDeactivate handles POST /api/profiles/{id}/deactivate.
func (h *ProfileHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, mux.Vars(r)["id"], false)
}

func (h *ProfileHandler) setActive(w http.ResponseWriter, id string, active bool) {
	var err error
	if active {
		err = h.store.Profiles().Activate(id)
	} else {
		err = h.store.Profiles().Deactivate(id)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to change profile")
		return
	}

	p, ok := h.load(w, id)
	if !ok {
		return
	}

	log.WithFields(log.Fields{"profile": p.Name, "active": active}).Info("profile switched")
	h.onChange()
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *ProfileHandler) load(w http.ResponseWriter, id string) (*store.Profile, bool) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return nil, false
	}
	return p, true
}
