package exercise

import (
	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/motion"
)

// Fault is a form error that invalidates the current repetition.
type Fault string

const (
	FaultWrongDirection      Fault = "wrong_direction"
	FaultBackRounding        Fault = "back_rounding"
	FaultBackRisingEarly     Fault = "back_rising_early"
	FaultHipsRisingEarly     Fault = "hips_rising_early"
	FaultKneesExtendingEarly Fault = "knees_extending_early"
	FaultLockoutRounding     Fault = "lockout_rounding"
	FaultHipsDroppingEarly   Fault = "hips_dropping_early"

	FaultEarlyRise         Fault = "early_rise"
	FaultOverLean          Fault = "over_lean"
	FaultButtWink          Fault = "butt_wink"
	FaultButtWinkTrend     Fault = "butt_wink_trend"
	FaultKneeValgus        Fault = "knee_valgus"
	FaultInsufficientDepth Fault = "insufficient_depth"
)

// observation is everything measured on one usable frame.
type observation struct {
	sel    detector.Selection
	angles Angles
	dir    motion.Direction
}

// faultRule is one fault check. Rules are evaluated in order and the first
// match wins.
type faultRule struct {
	fault   Fault
	message string
	check   func(o observation) bool
}

func firstFault(rules []faultRule, o observation) (faultRule, bool) {
	for _, r := range rules {
		if r.check(o) {
			return r, true
		}
	}
	return faultRule{}, false
}
