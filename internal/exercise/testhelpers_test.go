package exercise

import (
	"testing"

	"github.com/ayusman/formcheck/internal/detector"
)

// step is one synthesized frame: a posture placed at a hip height.
type step struct {
	spec detector.PoseSpec
	y    float64
}

// run feeds steps to m and returns every result.
func run(m Machine, steps ...step) []Result {
	results := make([]Result, 0, len(steps))
	for _, s := range steps {
		results = append(results, m.Process(s.spec.AtHipY(s.y).Frame()))
	}
	return results
}

// at places the same posture at each of ys.
func at(spec detector.PoseSpec, ys ...float64) []step {
	steps := make([]step, len(ys))
	for i, y := range ys {
		steps[i] = step{spec: spec, y: y}
	}
	return steps
}

// ramp returns n values starting at from+delta, stepping by delta.
func ramp(from, delta float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + delta*float64(i+1)
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// until feeds frames produced by next until done returns true, failing the
// test after limit frames.
func until(t *testing.T, m Machine, limit int, next func(i int) *detector.PoseFrame, done func(Result) bool) Result {
	t.Helper()
	var r Result
	for i := 0; i < limit; i++ {
		r = m.Process(next(i))
		if done(r) {
			return r
		}
	}
	t.Fatalf("condition not reached after %d frames; last phase %s, feedback %q", limit, r.Phase, r.Feedback)
	return r
}

func last(results []Result) Result {
	return results[len(results)-1]
}

func hasFault(results []Result, f Fault) bool {
	for _, r := range results {
		for _, got := range r.Faults {
			if got == f {
				return true
			}
		}
	}
	return false
}
