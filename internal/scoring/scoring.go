// Package scoring grades a single pose frame for an exercise without keeping
// any state between calls.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/feedback"
)

// Result is the outcome of grading one frame.
type Result struct {
	// Score is in [0, 100], rounded to one decimal.
	Score    float64            `json:"score"`
	Feedback string             `json:"feedback"`
	Messages []feedback.Message `json:"messages,omitempty"`
	Angles   *exercise.Angles   `json:"angles,omitempty"`
	Side     detector.Side      `json:"side,omitempty"`
}

// Scorer grades pose frames. It is safe for concurrent use.
type Scorer struct {
	cfg  Config
	text *feedback.Translator
}

// New creates a Scorer. A nil translator renders English text.
func New(cfg Config, text *feedback.Translator) *Scorer {
	if text == nil {
		text = feedback.Default().Translator()
	}
	return &Scorer{cfg: cfg, text: text}
}

// component is one graded aspect of the form: its weight in [0, 1] and the
// message it contributes, if any.
type component struct {
	weight  float64
	message feedback.Message
	// fault marks a component whose message counts against the form.
	fault bool
}

// measure grades every angle on normalized coordinates.
var measure = exercise.Measure{
	Trunk:            exercise.TrunkFromVertical,
	NormalizedJoints: true,
	NormalizedTrunk:  true,
}

// Score grades frame for the named exercise. The name must match an
// exercise exactly; anything else scores 0.
func (s *Scorer) Score(frame *detector.PoseFrame, exerciseName string) (res Result) {
	kind := exercise.Kind(exerciseName)
	if !kind.Valid() {
		return s.fail(feedback.New(feedback.ScoreInvalidExercise, feedback.SeverityError))
	}
	name := string(kind)

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"exercise": name, "panic": r}).Error("scoring failed")
			res = s.fail(feedback.New(feedback.ScoreError, feedback.SeverityError).With("Exercise", name))
		}
	}()

	if frame == nil {
		return s.fail(feedback.New(feedback.ScoreNoPerson, feedback.SeverityError).With("Exercise", name))
	}

	rules := s.cfg.rules(kind)
	picked, err := detector.NewSelector(rules.Visibility).Select(frame)
	if err != nil {
		return s.fail(feedback.New(feedback.ScoreInsufficient, feedback.SeverityWarning).With("Exercise", name))
	}

	sel := picked.Normalized()
	angles, err := exercise.Extract(picked, measure)
	if err != nil {
		if !errors.Is(err, exercise.ErrComputation) {
			log.WithError(err).Warn("unexpected feature error")
		}
		return s.fail(feedback.New(feedback.ScoreError, feedback.SeverityError).With("Exercise", name))
	}

	var parts []component
	switch kind {
	case exercise.Squat:
		parts = s.squatComponents(sel, angles)
	default:
		parts = s.deadliftComponents(angles)
	}

	res = s.grade(kind, parts)
	res.Angles = &angles
	res.Side = sel.Side
	return res
}

func (s *Scorer) squatComponents(sel detector.Selection, a exercise.Angles) []component {
	c := s.cfg.Squat
	parts := make([]component, 0, 4)

	switch {
	case a.Knee <= c.DepthGood:
		parts = append(parts, component{weight: 1, message: feedback.New(feedback.ScoreDepthGood, feedback.SeveritySuccess)})
	case a.Knee <= c.DepthDeeper:
		parts = append(parts, component{weight: 0.5, fault: true, message: feedback.New(feedback.ScoreDepthDeeper, feedback.SeverityWarning)})
	default:
		parts = append(parts, component{weight: 0, fault: true, message: feedback.New(feedback.ScoreDepthShallow, feedback.SeverityWarning)})
	}

	parts = append(parts, within(a.Hip, c.Hip, feedback.ScoreHipAngle))
	parts = append(parts, within(a.Trunk, c.TrunkLean, feedback.ScoreTrunkLean))

	// Knees closer than ValgusRatio x hip width read as valgus. Both knees and
	// both hips must be visible; otherwise the component passes.
	valgus := component{weight: 1}
	kd, okKnees := sel.KneeDistance()
	hw, okHips := sel.HipWidth()
	if okKnees && okHips && kd < c.ValgusRatio*hw {
		valgus = component{weight: 0, fault: true, message: feedback.New(feedback.ScoreKneeValgus, feedback.SeverityWarning)}
	}
	parts = append(parts, valgus)

	return parts
}

func (s *Scorer) deadliftComponents(a exercise.Angles) []component {
	c := s.cfg.Deadlift
	parts := []component{
		within(a.Knee, c.Knee, feedback.ScoreKneeAngle),
		within(a.Hip, c.Hip, feedback.ScoreHipAngle),
	}

	trunk := component{weight: 1}
	if !c.TrunkSetup.Contains(a.Trunk) && !c.TrunkLockout.Contains(a.Trunk) {
		trunk = angleFault(feedback.ScoreTrunkAngle, a.Trunk)
	}
	return append(parts, trunk)
}

func within(v float64, r exercise.Range, id string) component {
	if r.Contains(v) {
		return component{weight: 1}
	}
	return angleFault(id, v)
}

func angleFault(id string, v float64) component {
	return component{
		weight:  0,
		fault:   true,
		message: feedback.New(id, feedback.SeverityWarning).With("Angle", int(v)),
	}
}

// grade turns the components into a score and feedback text.
func (s *Scorer) grade(kind exercise.Kind, parts []component) Result {
	name := string(kind)
	rules := s.cfg.rules(kind)

	var (
		sum      float64
		faults   int
		messages []feedback.Message
		seen     = make(map[string]bool)
	)
	for _, p := range parts {
		sum += p.weight
		if p.fault {
			faults++
		}
		if p.message.IsZero() || seen[p.message.ID] {
			continue
		}
		seen[p.message.ID] = true
		messages = append(messages, p.message)
	}

	if faults == 0 {
		perfect := feedback.New(feedback.ScorePerfect, feedback.SeveritySuccess).With("Exercise", name)
		return Result{
			Score:    100.0,
			Feedback: s.text.Text(perfect),
			Messages: []feedback.Message{perfect},
		}
	}

	score := 100 * sum / float64(len(parts))

	if kind == exercise.Squat {
		switch {
		case seen[feedback.ScoreDepthShallow]:
			score = math.Max(score, s.cfg.Squat.ShallowFloor)
		case seen[feedback.ScoreDepthDeeper]:
			score = math.Max(score, s.cfg.Squat.DeeperFloor)
		}
		score = math.Max(score, s.cfg.Squat.MinimumScore)
	}

	var text string
	if rules.GenericWhenAllFail && faults == len(parts) {
		generic := feedback.New(feedback.ScoreGeneric, feedback.SeverityError).With("Exercise", name)
		messages = []feedback.Message{generic}
		text = s.text.Text(generic)
	} else {
		lines := make([]string, 0, len(messages)+1)
		lines = append(lines, s.text.Text(feedback.New(feedback.ScoreNeedsWork, feedback.SeverityWarning)))
		for _, m := range messages {
			lines = append(lines, s.text.Text(m))
		}
		text = strings.Join(lines, " ")
	}

	return Result{
		Score:    round1(clamp(score)),
		Feedback: text,
		Messages: messages,
	}
}

func (s *Scorer) fail(m feedback.Message) Result {
	return Result{
		Score:    0.0,
		Feedback: s.text.Text(m),
		Messages: []feedback.Message{m},
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// String describes a result for logs.
func (r Result) String() string {
	return fmt.Sprintf("%.1f %q", r.Score, r.Feedback)
}
