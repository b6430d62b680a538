// Package exercise turns a stream of pose frames into repetition counts and
// coaching feedback using one phase state machine per exercise.
package exercise

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/feedback"
	"github.com/ayusman/formcheck/internal/motion"
)

var (
	// ErrUnknownExercise is returned for an exercise name that is not supported.
	ErrUnknownExercise = errors.New("unknown exercise")

	// ErrNoPerson is reported when a frame contains nobody.
	ErrNoPerson = errors.New("no person detected")

	// ErrComputation is returned when joint angles cannot be computed.
	ErrComputation = errors.New("angle computation failed")
)

// Kind identifies an exercise.
type Kind string

const (
	Squat    Kind = "squat"
	Deadlift Kind = "deadlift"
)

// Kinds returns every supported exercise.
func Kinds() []Kind {
	return []Kind{Squat, Deadlift}
}

// Valid reports whether k names a supported exercise exactly.
func (k Kind) Valid() bool {
	return k == Squat || k == Deadlift
}

// ParseKind parses an exercise name, ignoring case and surrounding space.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Squat:
		return Squat, nil
	case Deadlift:
		return Deadlift, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExercise, s)
	}
}

// Phase is a state of a repetition state machine.
type Phase string

const (
	PhaseIdle         Phase = "IDLE"
	PhaseStartingPose Phase = "STARTING_POSE"
	PhaseLifting      Phase = "LIFTING_PHASE"
	PhaseLockout      Phase = "LOCKOUT"
	PhaseDownward     Phase = "DOWNWARD_PHASE"
	PhaseReady        Phase = "READY_TO_SQUAT"
	PhaseBottom       Phase = "BOTTOM_POSITION"
	PhaseUpward       Phase = "UPWARD_PHASE"
)

// State is the persistent part of a tracker, carried from frame to frame.
type State struct {
	Phase   Phase            `json:"phase"`
	Reps    int              `json:"reps"`
	Valid   bool             `json:"valid"`
	Message feedback.Message `json:"message"`
}

// Result is the outcome of processing one frame.
type Result struct {
	Exercise Kind              `json:"exercise"`
	Phase    Phase             `json:"phase"`
	Reps     int               `json:"reps"`
	Valid    bool              `json:"valid"`
	Feedback string            `json:"feedback"`
	Severity feedback.Severity `json:"severity"`
	Message  feedback.Message  `json:"message"`

	// Faults lists the faults detected on this frame, in detection order.
	Faults []Fault `json:"faults,omitempty"`

	// Angles is nil when the frame could not be measured.
	Angles    *Angles          `json:"angles,omitempty"`
	Side      detector.Side    `json:"side,omitempty"`
	Direction motion.Direction `json:"direction"`

	// RepCounted is set on the frame that incremented Reps.
	RepCounted bool `json:"rep_counted,omitempty"`
	// RepRejected is set on the frame an invalid attempt returned to the start.
	RepRejected bool `json:"rep_rejected,omitempty"`
}

// Machine tracks repetitions of one exercise for one person.
// A Machine is not safe for concurrent use.
type Machine interface {
	// Kind returns the tracked exercise.
	Kind() Kind

	// Process consumes one frame. A nil frame means nobody was detected.
	Process(frame *detector.PoseFrame) Result

	// Reset returns the machine to IDLE with zero repetitions.
	Reset()

	// State returns the current persistent state.
	State() State
}

// Config holds the thresholds for every exercise.
type Config struct {
	Squat    SquatConfig    `toml:"squat"`
	Deadlift DeadliftConfig `toml:"deadlift"`
}

// DefaultConfig returns the default thresholds for every exercise.
func DefaultConfig() Config {
	return Config{
		Squat:    DefaultSquatConfig(),
		Deadlift: DefaultDeadliftConfig(),
	}
}

// NewMachine creates a state machine for kind. A nil translator renders
// English feedback.
func NewMachine(kind Kind, cfg Config, text *feedback.Translator) (Machine, error) {
	switch kind {
	case Squat:
		return NewSquatMachine(cfg.Squat, text), nil
	case Deadlift:
		return NewDeadliftMachine(cfg.Deadlift, text), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExercise, kind)
	}
}
