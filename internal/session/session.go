// Package session keeps the per-person exercise trackers that outlive a
// single request: one Session per person and exercise.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/feedback"
	"github.com/ayusman/formcheck/internal/metrics"
)

// ErrNotFound is returned for an unknown session ID.
var ErrNotFound = errors.New("session not found")

// Session is one tracked exercise set. Frames are processed one at a time.
type Session struct {
	ID        string
	Exercise  exercise.Kind
	Language  string
	CreatedAt time.Time

	mu       sync.Mutex
	machine  exercise.Machine
	frames   int
	lastSeen time.Time
	last     *exercise.Result
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID        string           `json:"id"`
	Exercise  exercise.Kind    `json:"exercise"`
	Language  string           `json:"language"`
	Phase     exercise.Phase   `json:"phase"`
	Reps      int              `json:"reps"`
	Valid     bool             `json:"valid"`
	Frames    int              `json:"frames"`
	CreatedAt time.Time        `json:"created_at"`
	LastSeen  time.Time        `json:"last_seen"`
	Last      *exercise.Result `json:"last,omitempty"`
}

func (s *Session) process(frame *detector.PoseFrame, now time.Time) exercise.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.machine.Process(frame)
	s.frames++
	s.lastSeen = now
	s.last = &res
	return res
}

// Snapshot returns the current state of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.machine.State()
	snap := Snapshot{
		ID:        s.ID,
		Exercise:  s.Exercise,
		Language:  s.Language,
		Phase:     st.Phase,
		Reps:      st.Reps,
		Valid:     st.Valid,
		Frames:    s.frames,
		CreatedAt: s.CreatedAt,
		LastSeen:  s.lastSeen,
	}
	if s.last != nil {
		last := *s.last
		snap.Last = &last
	}
	return snap
}

// Reset clears the repetition count and returns the tracker to IDLE.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.machine.Reset()
	s.last = nil
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Listener is called after every processed frame, outside the session lock.
type Listener func(id string, res exercise.Result)

// Manager owns every open session.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	cfg       exercise.Config
	catalog   *feedback.Catalog
	metrics   *metrics.Manager
	listeners []Listener
	now       func() time.Time
}

// NewManager creates a Manager. A nil catalog uses the embedded default and
// a nil metrics manager disables instrumentation.
func NewManager(cfg exercise.Config, catalog *feedback.Catalog, m *metrics.Manager) *Manager {
	if catalog == nil {
		catalog = feedback.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		catalog:  catalog,
		metrics:  m,
		now:      time.Now,
	}
}

// SetConfig replaces the thresholds used by sessions created afterwards.
func (m *Manager) SetConfig(cfg exercise.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

// Config returns the thresholds new sessions are created with.
func (m *Manager) Config() exercise.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Subscribe registers l for every processed frame of every session.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Create opens a session for the named exercise. lang selects the feedback
// language; empty means the default.
func (m *Manager) Create(exerciseName, lang string) (*Session, error) {
	return m.CreateWithID(uuid.New().String(), exerciseName, lang)
}

// CreateWithID opens a session under a caller-chosen ID, replacing any
// session already registered under it.
func (m *Manager) CreateWithID(id, exerciseName, lang string) (*Session, error) {
	kind, err := exercise.ParseKind(exerciseName)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	machine, err := exercise.NewMachine(kind, m.cfg, m.catalog.Translator(lang))
	if err != nil {
		return nil, fmt.Errorf("create %s tracker: %w", kind, err)
	}

	now := m.now()
	s := &Session{
		ID:        id,
		Exercise:  kind,
		Language:  lang,
		CreatedAt: now,
		machine:   machine,
		lastSeen:  now,
	}
	m.sessions[id] = s
	m.updateGauge()

	log.WithFields(log.Fields{"session": id, "exercise": kind, "lang": lang}).Info("session opened")
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete closes the session with the given ID.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	m.updateGauge()

	log.WithField("session", id).Info("session closed")
	return nil
}

// List returns a snapshot of every session, oldest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]Snapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Process feeds one frame to the session with the given ID.
// A nil frame means nobody was detected.
func (m *Manager) Process(id string, frame *detector.PoseFrame) (exercise.Result, error) {
	s, err := m.Get(id)
	if err != nil {
		return exercise.Result{}, err
	}

	res := s.process(frame, m.now())
	m.observe(s, res)
	return res, nil
}

func (m *Manager) observe(s *Session, res exercise.Result) {
	if m.metrics != nil {
		kind := string(s.Exercise)
		m.metrics.CounterFrames.WithLabelValues(kind, string(res.Phase)).Inc()
		for _, f := range res.Faults {
			m.metrics.CounterFaults.WithLabelValues(kind, string(f)).Inc()
		}
		switch {
		case res.RepCounted:
			m.metrics.CounterReps.WithLabelValues(kind, "valid").Inc()
		case res.RepRejected:
			m.metrics.CounterReps.WithLabelValues(kind, "invalid").Inc()
		}
	}

	if res.RepCounted {
		log.WithFields(log.Fields{"session": s.ID, "exercise": s.Exercise, "reps": res.Reps}).Info("rep counted")
	}

	m.mu.RLock()
	listeners := m.listeners
	m.mu.RUnlock()
	for _, l := range listeners {
		l(s.ID, res)
	}
}

// Prune closes sessions that have not seen a frame for longer than maxIdle
// and returns how many were closed.
func (m *Manager) Prune(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	if n > 0 {
		m.updateGauge()
		log.WithField("count", n).Info("pruned idle sessions")
	}
	return n
}

func (m *Manager) updateGauge() {
	if m.metrics != nil {
		m.metrics.GaugeSessions.Set(float64(len(m.sessions)))
	}
}
