package exercise

import (
	"fmt"
	"math"

	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/feedback"
	"github.com/ayusman/formcheck/internal/motion"
)

// SquatMachine counts squat repetitions:
// IDLE -> READY_TO_SQUAT -> DOWNWARD_PHASE -> BOTTOM_POSITION -> UPWARD_PHASE -> IDLE.
type SquatMachine struct {
	base
	cfg SquatConfig

	trunkHistory *motion.Window

	// Knee distance captured when the lifter stood ready.
	baseline    float64
	hasBaseline bool

	descentRules []faultRule
}

// NewSquatMachine creates a squat tracker.
func NewSquatMachine(cfg SquatConfig, text *feedback.Translator) *SquatMachine {
	m := &SquatMachine{
		base:         newBase(Squat, cfg.Visibility, cfg.Motion, Measure{Trunk: TrunkFromHorizontal}, text, feedback.SquatIdle),
		cfg:          cfg,
		trunkHistory: motion.NewWindow(cfg.TrunkHistory),
	}

	m.descentRules = []faultRule{
		{FaultOverLean, feedback.SquatOverLean, m.overLean},
		{FaultButtWink, feedback.SquatButtWinkHip, func(o observation) bool {
			return o.angles.Hip < cfg.ButtWinkHipMin
		}},
		{FaultButtWinkTrend, feedback.SquatButtWinkTrunk, m.trunkOpening},
		{FaultKneeValgus, feedback.SquatKneeValgus, m.kneesCaving},
	}

	return m
}

// Reset returns the machine to IDLE with zero repetitions.
func (m *SquatMachine) Reset() {
	m.reset()
	m.clearHistory()
}

// Process consumes one frame.
func (m *SquatMachine) Process(frame *detector.PoseFrame) (res Result) {
	m.begin()

	defer func() {
		if r := recover(); r != nil {
			m.abort(fmt.Errorf("%w: %v", ErrComputation, r))
			m.clearHistory()
			res = m.result(nil)
		}
	}()

	o, err := m.observe(frame)
	if err != nil {
		m.abort(err)
		m.clearHistory()
		return m.result(nil)
	}

	m.trunkHistory.Push(o.angles.Trunk)

	switch m.state.Phase {
	case PhaseIdle:
		m.idle(o)
	case PhaseReady:
		m.ready(o)
	case PhaseDownward:
		m.downward(o)
	case PhaseBottom:
		m.bottom(o)
	case PhaseUpward:
		m.upward(o)
	default:
		m.enter(PhaseIdle)
	}

	return m.result(&o)
}

func (m *SquatMachine) clearHistory() {
	m.motion.Reset()
	m.trunkHistory.Reset()
	m.baseline = 0
	m.hasBaseline = false
}

func (m *SquatMachine) upright(a Angles) bool {
	return a.Hip > m.cfg.UprightHipMin &&
		a.Knee > m.cfg.UprightKneeMin &&
		a.Trunk > m.cfg.UprightTrunkMin
}

func (m *SquatMachine) overLean(o observation) bool {
	return o.angles.Trunk < m.cfg.OverLeanTrunkMax
}

// trunkOpening reports a sharp rise of the trunk angle across the history.
func (m *SquatMachine) trunkOpening(o observation) bool {
	if m.trunkHistory.Len() < m.cfg.TrendMinSamples {
		return false
	}
	n := m.cfg.TrendSampleSize
	return m.trunkHistory.MeanLast(n)-m.trunkHistory.MeanFirst(n) > m.cfg.ButtWinkTrendMin
}

func (m *SquatMachine) kneesCaving(o observation) bool {
	if !m.hasBaseline {
		return false
	}
	current, ok := o.sel.KneeDistance()
	if !ok {
		return false
	}
	return current < m.baseline*(1-m.cfg.ValgusRatio)
}

func (m *SquatMachine) idle(o observation) {
	m.state.Valid = true
	m.say(feedback.SquatIdle, feedback.SeverityInfo)

	if m.upright(o.angles) {
		m.say(feedback.SquatReady, feedback.SeveritySuccess)
		m.enter(PhaseReady)
		m.clearHistory()
		m.baseline, m.hasBaseline = o.sel.KneeDistance()
	}
}

func (m *SquatMachine) ready(o observation) {
	switch o.dir {
	case motion.Down:
		m.say(feedback.SquatDescentStarted, feedback.SeverityProgress)
		m.enter(PhaseDownward)
	case motion.Up:
		m.fail(FaultEarlyRise, feedback.SquatEarlyRise)
		m.enter(PhaseIdle)
	}
}

func (m *SquatMachine) downward(o observation) {
	if rule, ok := firstFault(m.descentRules, o); ok {
		m.fail(rule.fault, rule.message)
		return
	}

	knee := o.angles.Knee
	switch {
	case o.dir == motion.Down:
		if knee > m.cfg.PartialKneeMax {
			m.say(feedback.SquatKeepGoing, feedback.SeveritySuccess)
		} else {
			m.say(feedback.SquatDescending, feedback.SeverityProgress)
		}
	case o.dir == motion.Up || knee < m.cfg.BottomKneeMax:
		m.classifyDepth(knee)
	default:
		m.say(feedback.SquatDescending, feedback.SeverityProgress)
	}
}

// classifyDepth settles the bottom of the descent by knee angle.
func (m *SquatMachine) classifyDepth(knee float64) {
	degrees := int(math.Round(knee))

	switch {
	case knee <= m.cfg.DeepKneeMax:
		m.state.Message = feedback.New(feedback.SquatBottomDeep, feedback.SeveritySuccess).With("Knee", degrees)
	case knee <= m.cfg.ParallelKneeMax:
		m.state.Message = feedback.New(feedback.SquatBottomParallel, feedback.SeveritySuccess).With("Knee", degrees)
	case knee <= m.cfg.PartialKneeMax:
		m.state.Message = feedback.New(feedback.SquatBottomPartial, feedback.SeverityWarning).With("Knee", degrees)
	default:
		m.fail(FaultInsufficientDepth, feedback.SquatInsufficientDepth)
		m.enter(PhaseUpward)
		return
	}

	m.enter(PhaseBottom)
}

func (m *SquatMachine) bottom(o observation) {
	switch o.dir {
	case motion.Up:
		m.say(feedback.SquatRising, feedback.SeverityProgress)
		m.enter(PhaseUpward)
	case motion.Down:
		if m.state.Valid {
			m.say(feedback.SquatAtBottom, feedback.SeveritySuccess)
		} else {
			m.say(feedback.SquatAtBottomInvalid, feedback.SeverityError)
		}
	}
}

func (m *SquatMachine) upward(o observation) {
	faulted := false
	if m.overLean(o) {
		m.fail(FaultOverLean, feedback.SquatRiseOverLean)
		faulted = true
	}
	if m.kneesCaving(o) {
		m.fail(FaultKneeValgus, feedback.SquatRiseValgus)
		faulted = true
	}

	if m.upright(o.angles) {
		m.finish(feedback.SquatRepComplete, feedback.SquatRepInvalid)
		m.clearHistory()
		return
	}

	if !faulted {
		m.say(feedback.SquatRisingExtend, feedback.SeverityProgress)
	}
}
