package exercise

import (
	"fmt"

	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/feedback"
	"github.com/ayusman/formcheck/internal/motion"
)

// DeadliftMachine counts deadlift repetitions:
// IDLE -> STARTING_POSE -> LIFTING_PHASE -> LOCKOUT -> DOWNWARD_PHASE -> IDLE.
type DeadliftMachine struct {
	base
	cfg DeadliftConfig

	liftingRules  []faultRule
	loweringRules []faultRule
}

// deadliftMeasure takes the knee and hip angles from normalized coordinates
// and the trunk angle from pixels.
var deadliftMeasure = Measure{Trunk: TrunkFromVertical, NormalizedJoints: true}

// NewDeadliftMachine creates a deadlift tracker.
func NewDeadliftMachine(cfg DeadliftConfig, text *feedback.Translator) *DeadliftMachine {
	m := &DeadliftMachine{
		base: newBase(Deadlift, cfg.Visibility, cfg.Motion, deadliftMeasure, text, feedback.DeadliftIdle),
		cfg:  cfg,
	}

	// Rounding has the higher trunk limit and must precede the early back rise.
	m.liftingRules = []faultRule{
		{FaultBackRounding, feedback.DeadliftBackRounding, func(o observation) bool {
			return o.angles.Trunk > cfg.StartTrunk.Max+cfg.RoundingMargin
		}},
		{FaultBackRisingEarly, feedback.DeadliftBackRisingEarly, func(o observation) bool {
			return o.angles.Trunk > cfg.StartTrunk.Max+cfg.BackRiseMargin
		}},
		{FaultHipsRisingEarly, feedback.DeadliftHipsRisingEarly, func(o observation) bool {
			return o.angles.Hip > o.angles.Knee+cfg.HipRiseMargin &&
				o.angles.Hip > cfg.StartHip.Max+cfg.HipRiseMargin
		}},
		{FaultKneesExtendingEarly, feedback.DeadliftKneesExtendingEarly, func(o observation) bool {
			return o.angles.Knee > cfg.StartKnee.Max+cfg.KneeExtendMargin &&
				o.angles.Hip < cfg.StartHip.Min+cfg.KneeExtendMargin
		}},
	}

	m.loweringRules = []faultRule{
		{FaultBackRounding, feedback.DeadliftLoweringRounding, func(o observation) bool {
			return o.angles.Trunk > cfg.StartTrunk.Max+cfg.LoweringRoundingMargin
		}},
		{FaultHipsDroppingEarly, feedback.DeadliftHipsDroppingEarly, func(o observation) bool {
			return o.angles.Hip > o.angles.Knee+cfg.HipDropMargin &&
				o.dir == motion.Down &&
				o.angles.Knee > cfg.LockoutKneeMin-cfg.HipDropKneeMargin
		}},
	}

	return m
}

// Reset returns the machine to IDLE with zero repetitions.
func (m *DeadliftMachine) Reset() {
	m.reset()
}

// Process consumes one frame.
func (m *DeadliftMachine) Process(frame *detector.PoseFrame) (res Result) {
	m.begin()

	defer func() {
		if r := recover(); r != nil {
			m.abort(fmt.Errorf("%w: %v", ErrComputation, r))
			res = m.result(nil)
		}
	}()

	o, err := m.observe(frame)
	if err != nil {
		m.abort(err)
		return m.result(nil)
	}

	switch m.state.Phase {
	case PhaseIdle:
		m.idle(o)
	case PhaseStartingPose:
		m.startingPose(o)
	case PhaseLifting:
		m.lifting(o)
	case PhaseLockout:
		m.lockout(o)
	case PhaseDownward:
		m.downward(o)
	default:
		m.enter(PhaseIdle)
	}

	return m.result(&o)
}

func (m *DeadliftMachine) inStartBand(a Angles) bool {
	return m.cfg.StartKnee.Contains(a.Knee) &&
		m.cfg.StartHip.Contains(a.Hip) &&
		m.cfg.StartTrunk.Contains(a.Trunk)
}

func (m *DeadliftMachine) inLockout(a Angles) bool {
	return a.Knee > m.cfg.LockoutKneeMin &&
		a.Hip > m.cfg.LockoutHipMin &&
		a.Trunk < m.cfg.LockoutTrunkMax
}

func (m *DeadliftMachine) atStickingPoint(a Angles) bool {
	return m.cfg.StickingTrunk.Contains(a.Trunk) &&
		m.cfg.StickingHip.Contains(a.Hip) &&
		m.cfg.StickingKnee.Contains(a.Knee)
}

func (m *DeadliftMachine) idle(o observation) {
	m.state.Valid = true
	m.say(feedback.DeadliftIdle, feedback.SeverityInfo)

	if m.inStartBand(o.angles) {
		m.say(feedback.DeadliftStartPose, feedback.SeveritySuccess)
		m.enter(PhaseStartingPose)
		m.motion.Reset()
	}
}

func (m *DeadliftMachine) startingPose(o observation) {
	switch o.dir {
	case motion.Up:
		m.say(feedback.DeadliftLifting, feedback.SeverityProgress)
		m.enter(PhaseLifting)
	case motion.Down:
		m.fail(FaultWrongDirection, feedback.DeadliftWrongDirection)
		m.enter(PhaseIdle)
	}
}

func (m *DeadliftMachine) lifting(o observation) {
	if m.state.Valid {
		m.say(feedback.DeadliftLifting, feedback.SeverityProgress)
	}

	if rule, ok := firstFault(m.liftingRules, o); ok {
		m.fail(rule.fault, rule.message)
	} else if m.state.Valid && m.atStickingPoint(o.angles) {
		m.say(feedback.DeadliftStickingPoint, feedback.SeverityWarning)
	}

	switch {
	case m.state.Valid && m.inLockout(o.angles):
		m.say(feedback.DeadliftLockoutReached, feedback.SeveritySuccess)
		m.enter(PhaseLockout)
		m.motion.Reset()
	case !m.state.Valid && o.dir == motion.Down && m.inStartBand(o.angles):
		// A failed pull that is set back down ends the attempt.
		m.finish(feedback.DeadliftRepComplete, feedback.DeadliftRepInvalid)
		m.motion.Reset()
	}
}

func (m *DeadliftMachine) lockout(o observation) {
	if o.angles.Trunk > m.cfg.LockoutTrunkMax+m.cfg.LockoutRoundingMargin {
		m.fail(FaultLockoutRounding, feedback.DeadliftLockoutRounding)
	}

	if m.state.Valid {
		m.say(feedback.DeadliftLockoutHold, feedback.SeveritySuccess)
	}

	if o.dir == motion.Down {
		m.say(feedback.DeadliftLoweringStarted, feedback.SeverityProgress)
		m.enter(PhaseDownward)
	}
}

func (m *DeadliftMachine) downward(o observation) {
	if m.state.Valid {
		m.say(feedback.DeadliftLowering, feedback.SeverityProgress)
	}

	if rule, ok := firstFault(m.loweringRules, o); ok {
		m.fail(rule.fault, rule.message)
	}

	if m.inStartBand(o.angles) {
		m.finish(feedback.DeadliftRepComplete, feedback.DeadliftRepInvalid)
		m.motion.Reset()
	}
}
