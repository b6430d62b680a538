package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/plugin"
	"github.com/ayusman/formcheck/internal/store"
)

// ActionHandler serves the event-to-plugin bindings.
type ActionHandler struct {
	store   *store.Store
	plugins *plugin.Manager
}

// NewActionHandler creates a new ActionHandler. When plugins is non-nil,
// bindings are checked against the discovered plugins.
func NewActionHandler(s *store.Store, plugins *plugin.Manager) *ActionHandler {
	return &ActionHandler{store: s, plugins: plugins}
}

// Register adds the action routes to r.
func (h *ActionHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/actions", h.HandleList).Methods("GET")
	r.HandleFunc("/api/actions", h.HandleCreate).Methods("POST")
	r.HandleFunc("/api/actions/{id}", h.HandleGet).Methods("GET")
	r.HandleFunc("/api/actions/{id}", h.HandleUpdate).Methods("PUT")
	r.HandleFunc("/api/actions/{id}", h.HandleDelete).Methods("DELETE")
}

type createActionRequest struct {
	Event      string          `json:"event"`
	Exercise   string          `json:"exercise"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type updateActionRequest struct {
	Event      string          `json:"event"`
	Exercise   *string         `json:"exercise"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type actionResponse struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	Exercise   string          `json:"exercise"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listActionsResponse struct {
	Actions []actionResponse `json:"actions"`
}

func toActionResponse(a *store.Action) actionResponse {
	config := a.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return actionResponse{
		ID:         a.ID,
		Event:      a.Event,
		Exercise:   a.Exercise,
		PluginName: a.PluginName,
		ActionName: a.ActionName,
		Config:     config,
		Enabled:    a.Enabled,
		CreatedAt:  a.CreatedAt.Format(timeFormat),
	}
}

// validate checks a binding before it is stored.
func (h *ActionHandler) validate(a *store.Action) error {
	if !plugin.IsEvent(a.Event) {
		return fmt.Errorf("unknown event %q", a.Event)
	}
	if a.Exercise != "" {
		if _, err := exercise.ParseKind(a.Exercise); err != nil {
			return err
		}
	}
	if a.PluginName == "" {
		return errors.New("plugin_name is required")
	}
	if a.ActionName == "" {
		return errors.New("action_name is required")
	}
	if len(a.Config) > 0 && !json.Valid(a.Config) {
		return errors.New("config must be valid JSON")
	}

	if h.plugins == nil {
		return nil
	}
	p, err := h.plugins.Get(a.PluginName)
	if err != nil {
		return fmt.Errorf("plugin %q not found", a.PluginName)
	}
	if len(p.Manifest.Actions) > 0 && !p.Manifest.Supports(a.ActionName) {
		return fmt.Errorf("plugin %q has no action %q", a.PluginName, a.ActionName)
	}
	return nil
}

// HandleList handles GET /api/actions.
func (h *ActionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	actions, err := h.store.Actions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}

	response := listActionsResponse{
		Actions: make([]actionResponse, 0, len(actions)),
	}
	for _, a := range actions {
		response.Actions = append(response.Actions, toActionResponse(a))
	}

	writeJSON(w, http.StatusOK, response)
}

// HandleGet handles GET /api/actions/{id}.
func (h *ActionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	action, err := h.store.Actions().GetByID(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get action")
		return
	}

	writeJSON(w, http.StatusOK, toActionResponse(action))
}

// HandleCreate handles POST /api/actions.
func (h *ActionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	action := &store.Action{
		ID:         uuid.New().String(),
		Event:      req.Event,
		Exercise:   req.Exercise,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     req.Config,
		Enabled:    req.Enabled == nil || *req.Enabled,
	}
	if action.Config == nil {
		action.Config = json.RawMessage("{}")
	}

	if err := h.validate(action); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Actions().Create(action); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create action")
		return
	}

	writeJSON(w, http.StatusCreated, toActionResponse(action))
}

// HandleUpdate handles PUT /api/actions/{id}. Omitted fields keep their value.
func (h *ActionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	action, err := h.store.Actions().GetByID(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get action")
		return
	}

	var req updateActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Event != "" {
		action.Event = req.Event
	}
	if req.Exercise != nil {
		action.Exercise = *req.Exercise
	}
	if req.PluginName != "" {
		action.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		action.ActionName = req.ActionName
	}
	if req.Config != nil {
		action.Config = req.Config
	}
	if req.Enabled != nil {
		action.Enabled = *req.Enabled
	}

	if err := h.validate(action); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Actions().Update(action); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update action")
		return
	}

	writeJSON(w, http.StatusOK, toActionResponse(action))
}

// HandleDelete handles DELETE /api/actions/{id}.
func (h *ActionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.store.Actions().Delete(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete action")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
