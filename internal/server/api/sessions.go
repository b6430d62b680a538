package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/session"
)

// SessionHandler serves the tracked exercise sessions of clients that run
// pose estimation themselves and post landmarks.
type SessionHandler struct {
	sessions *session.Manager
	onClose  func(id string)
}

// NewSessionHandler creates a SessionHandler. onClose, when non-nil, is
// called after a session is deleted.
func NewSessionHandler(sessions *session.Manager, onClose func(id string)) *SessionHandler {
	if onClose == nil {
		onClose = func(string) {}
	}
	return &SessionHandler{sessions: sessions, onClose: onClose}
}

// Register adds the session routes to r.
func (h *SessionHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/sessions", h.HandleList).Methods("GET")
	r.HandleFunc("/api/sessions", h.HandleCreate).Methods("POST")
	r.HandleFunc("/api/sessions/{id}", h.HandleGet).Methods("GET")
	r.HandleFunc("/api/sessions/{id}", h.HandleDelete).Methods("DELETE")
	r.HandleFunc("/api/sessions/{id}/frames", h.HandleFrame).Methods("POST")
	r.HandleFunc("/api/sessions/{id}/reset", h.HandleReset).Methods("POST")
}

type createSessionRequest struct {
	Exercise string `json:"exercise"`
	Language string `json:"language"`
}

type listSessionsResponse struct {
	Sessions []session.Snapshot `json:"sessions"`
}

// frameRequest carries one pose. An empty landmark list means nobody was
// detected in the frame.
type frameRequest struct {
	Landmarks []detector.Landmark `json:"landmarks"`
	Width     int                 `json:"width"`
	Height    int                 `json:"height"`
	Timestamp int64               `json:"timestamp"`
}

func (req frameRequest) frame() (*detector.PoseFrame, error) {
	if len(req.Landmarks) == 0 {
		return nil, nil
	}
	if len(req.Landmarks) != detector.NumLandmarks {
		return nil, fmt.Errorf("expected %d landmarks, got %d", detector.NumLandmarks, len(req.Landmarks))
	}
	if req.Width < 0 || req.Height < 0 {
		return nil, errors.New("width and height must not be negative")
	}

	f := &detector.PoseFrame{
		Width:     req.Width,
		Height:    req.Height,
		Timestamp: req.Timestamp,
	}
	copy(f.Points[:], req.Landmarks)
	return f, nil
}

// HandleList handles GET /api/sessions.
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: h.sessions.List()})
}

// HandleCreate handles POST /api/sessions.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	lang := req.Language
	if lang == "" {
		lang = r.Header.Get("Accept-Language")
	}

	s, err := h.sessions.Create(req.Exercise, lang)
	if err != nil {
		if errors.Is(err, exercise.ErrUnknownExercise) {
			writeError(w, http.StatusBadRequest, "exercise must be 'squat' or 'deadlift'")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// HandleGet handles GET /api/sessions/{id}.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// HandleDelete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.sessions.Delete(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	h.onClose(id)
	w.WriteHeader(http.StatusNoContent)
}

// HandleFrame handles POST /api/sessions/{id}/frames and returns the
// tracker result for the frame.
func (h *SessionHandler) HandleFrame(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.load(w, id); !ok {
		return
	}

	var req frameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	frame, err := req.frame()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.sessions.Process(id, frame)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to process frame")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// HandleReset handles POST /api/sessions/{id}/reset.
func (h *SessionHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	s.Reset()
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) load(w http.ResponseWriter, id string) (*session.Session, bool) {
	s, err := h.sessions.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return nil, false
	}
	return s, true
}
