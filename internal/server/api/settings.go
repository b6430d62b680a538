package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/feedback"
	"github.com/ayusman/formcheck/internal/store"
)

// SettingHandler serves the application settings.
type SettingHandler struct {
	store    *store.Store
	catalog  *feedback.Catalog
	onChange func(key, value string)
}

// NewSettingHandler creates a SettingHandler. onChange, when non-nil, is
// called after a setting is stored.
func NewSettingHandler(s *store.Store, catalog *feedback.Catalog, onChange func(key, value string)) *SettingHandler {
	if catalog == nil {
		catalog = feedback.Default()
	}
	if onChange == nil {
		onChange = func(string, string) {}
	}
	return &SettingHandler{store: s, catalog: catalog, onChange: onChange}
}

// Register adds the settings routes to r.
func (h *SettingHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/settings", h.HandleList).Methods("GET")
	r.HandleFunc("/api/settings/{key}", h.HandleGet).Methods("GET")
	r.HandleFunc("/api/settings/{key}", h.HandlePut).Methods("PUT")
	r.HandleFunc("/api/settings/{key}", h.HandleDelete).Methods("DELETE")
}

type settingRequest struct {
	Value string `json:"value"`
}

type settingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// validateSetting checks a value for one of the known keys.
func (h *SettingHandler) validateSetting(key, value string) error {
	switch key {
	case store.SettingLanguage:
		if !h.catalog.Supports(value) {
			return fmt.Errorf("unsupported language %q", value)
		}
	case store.SettingExercise:
		if _, err := exercise.ParseKind(value); err != nil {
			return err
		}
	case store.SettingEnabled:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("enabled must be true or false")
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// HandleList handles GET /api/settings.
func (h *SettingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Settings().All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// HandleGet handles GET /api/settings/{key}.
func (h *SettingHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	value, err := h.store.Settings().Get(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Setting not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get setting")
		return
	}
	writeJSON(w, http.StatusOK, settingResponse{Key: key, Value: value})
}

// HandlePut handles PUT /api/settings/{key}.
func (h *SettingHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req settingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validateSetting(key, req.Value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Settings().Set(key, req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store setting")
		return
	}

	log.WithFields(log.Fields{"key": key, "value": req.Value}).Info("setting changed")
	h.onChange(key, req.Value)
	writeJSON(w, http.StatusOK, settingResponse{Key: key, Value: req.Value})
}

// HandleDelete handles DELETE /api/settings/{key}.
func (h *SettingHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if err := h.store.Settings().Delete(key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Setting not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete setting")
		return
	}

	h.onChange(key, "")
	w.WriteHeader(http.StatusNoContent)
}
