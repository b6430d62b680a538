package exercise

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/feedback"
	"github.com/ayusman/formcheck/internal/motion"
)

// base holds the per-frame pipeline shared by the exercise machines:
// landmark selection, angle extraction and hip motion tracking.
type base struct {
	kind     Kind
	selector detector.Selector
	measure  Measure
	motion   *motion.Tracker
	text     *feedback.Translator
	idle     string

	state State

	// Per-frame outputs, cleared by begin.
	faults   []Fault
	counted  bool
	rejected bool
}

func newBase(kind Kind, visibility float64, mc motion.Config, measure Measure, text *feedback.Translator, idle string) base {
	if text == nil {
		text = feedback.Default().Translator(feedback.DefaultLanguage.String())
	}
	b := base{
		kind:     kind,
		selector: detector.NewSelector(visibility),
		measure:  measure,
		motion:   motion.NewTracker(mc),
		text:     text,
		idle:     idle,
	}
	b.reset()
	return b
}

// Kind returns the tracked exercise.
func (b *base) Kind() Kind {
	return b.kind
}

// State returns the current persistent state.
func (b *base) State() State {
	return b.state
}

func (b *base) reset() {
	b.state = State{
		Phase:   PhaseIdle,
		Valid:   true,
		Message: feedback.New(b.idle, feedback.SeverityInfo),
	}
	b.motion.Reset()
}

func (b *base) begin() {
	b.faults = nil
	b.counted = false
	b.rejected = false
}

// observe measures a frame and records the hip height for motion tracking.
func (b *base) observe(frame *detector.PoseFrame) (observation, error) {
	if frame == nil {
		return observation{}, ErrNoPerson
	}

	sel, err := b.selector.Select(frame)
	if err != nil {
		return observation{}, err
	}

	angles, err := Extract(sel, b.measure)
	if err != nil {
		return observation{}, err
	}

	return observation{
		sel:    sel,
		angles: angles,
		dir:    b.motion.Observe(sel.Hip.Y),
	}, nil
}

// abort abandons the current attempt after an unusable frame.
func (b *base) abort(err error) {
	id := feedback.DetectionError
	switch {
	case errors.Is(err, ErrNoPerson):
		id = feedback.NoPerson
	case errors.Is(err, detector.ErrInsufficientLandmarks):
		id = feedback.InsufficientLandmarks
	default:
		log.WithError(err).WithField("exercise", b.kind).Warn("frame processing failed")
	}

	b.enter(PhaseIdle)
	b.state.Valid = false
	b.say(id, feedback.SeverityError)
	b.motion.Reset()
}

func (b *base) enter(p Phase) {
	if b.state.Phase == p {
		return
	}
	log.WithFields(log.Fields{
		"exercise": b.kind,
		"from":     b.state.Phase,
		"to":       p,
		"reps":     b.state.Reps,
	}).Debug("phase transition")
	b.state.Phase = p
}

func (b *base) say(id string, severity feedback.Severity) {
	b.state.Message = feedback.New(id, severity)
}

// fail records a fault and invalidates the current repetition.
func (b *base) fail(f Fault, id string) {
	b.state.Valid = false
	b.faults = append(b.faults, f)
	b.say(id, feedback.SeverityError)
}

// finish closes a repetition. The count only increases for a valid attempt.
func (b *base) finish(successID, invalidID string) {
	if b.state.Valid {
		b.state.Reps++
		b.counted = true
		b.say(successID, feedback.SeveritySuccess)
	} else {
		b.rejected = true
		b.say(invalidID, feedback.SeverityError)
	}
	b.enter(PhaseIdle)
}

func (b *base) result(o *observation) Result {
	r := Result{
		Exercise:    b.kind,
		Phase:       b.state.Phase,
		Reps:        b.state.Reps,
		Valid:       b.state.Valid,
		Message:     b.state.Message,
		Severity:    b.state.Message.Severity,
		Feedback:    b.text.Text(b.state.Message),
		Faults:      b.faults,
		RepCounted:  b.counted,
		RepRejected: b.rejected,
	}
	if o != nil {
		angles := o.angles
		r.Angles = &angles
		r.Side = o.sel.Side
		r.Direction = o.dir
	}
	return r
}
