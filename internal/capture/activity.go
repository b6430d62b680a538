package capture

import "time"

// Activity switches the capture loop between an idle and an active rate.
// Motion makes it active at once; it turns idle again after idleAfter
// without motion. It is not safe for concurrent use.
type Activity struct {
	idleAfter  time.Duration
	active     bool
	lastMotion time.Time
}

// NewActivity creates an idle Activity.
func NewActivity(idleAfter time.Duration) *Activity {
	return &Activity{idleAfter: idleAfter}
}

// Observe records whether the latest frame moved. It returns the new state
// and whether it differs from the previous one.
func (a *Activity) Observe(moved bool, now time.Time) (active, changed bool) {
	switch {
	case moved:
		a.lastMotion = now
		if !a.active {
			a.active = true
			return true, true
		}
	case a.active && now.Sub(a.lastMotion) > a.idleAfter:
		a.active = false
		return false, true
	}
	return a.active, false
}

// Active reports the current state.
func (a *Activity) Active() bool {
	return a.active
}

// Interval returns the frame interval for the current state.
func (a *Activity) Interval(idleFPS, activeFPS int) time.Duration {
	fps := idleFPS
	if a.active {
		fps = activeFPS
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}
