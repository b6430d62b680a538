package exercise

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/feedback"
)

var (
	deadliftStart   = detector.DeadliftPose(100, 90, 60)
	deadliftLockout = detector.DeadliftPose(170, 170, 10)
)

func newDeadlift() *DeadliftMachine {
	return NewDeadliftMachine(DefaultDeadliftConfig(), nil)
}

// deadliftToLifting sets up and pulls until the machine reports LIFTING_PHASE.
// The hip ends at y=230.
func deadliftToLifting(t *testing.T, m *DeadliftMachine) {
	t.Helper()

	r := m.Process(deadliftStart.AtHipY(300).Frame())
	require.Equal(t, PhaseStartingPose, r.Phase)
	require.Equal(t, feedback.DeadliftStartPose, r.Message.ID)

	results := run(m, at(deadliftStart, ramp(300, -10, 7)...)...)
	require.Equal(t, PhaseStartingPose, results[5].Phase, "six samples are not enough to see the lift")
	require.Equal(t, PhaseLifting, last(results).Phase)
	require.Equal(t, feedback.DeadliftLifting, last(results).Message.ID)
}

// deadliftToLockout continues from LIFTING_PHASE to LOCKOUT at y=200.
func deadliftToLockout(t *testing.T, m *DeadliftMachine) {
	t.Helper()
	deadliftToLifting(t, m)

	r := m.Process(deadliftLockout.AtHipY(200).Frame())
	require.Equal(t, PhaseLockout, r.Phase)
	require.Equal(t, feedback.DeadliftLockoutReached, r.Message.ID)
}

// deadliftToDownward lowers from LOCKOUT until DOWNWARD_PHASE, ending at y=270.
func deadliftToDownward(t *testing.T, m *DeadliftMachine) {
	t.Helper()
	deadliftToLockout(t, m)

	results := run(m, at(deadliftLockout, ramp(200, 10, 7)...)...)
	for _, r := range results[:6] {
		require.Equal(t, PhaseLockout, r.Phase)
		require.Equal(t, feedback.DeadliftLockoutHold, r.Message.ID)
	}
	require.Equal(t, PhaseDownward, last(results).Phase)
	require.Equal(t, feedback.DeadliftLoweringStarted, last(results).Message.ID)
}

func TestDeadlift_HappyPath(t *testing.T) {
	m := newDeadlift()
	deadliftToDownward(t, m)

	r := m.Process(deadliftStart.AtHipY(300).Frame())

	assert.Equal(t, PhaseIdle, r.Phase)
	assert.Equal(t, 1, r.Reps)
	assert.True(t, r.RepCounted)
	assert.True(t, r.Valid)
	assert.Equal(t, feedback.DeadliftRepComplete, r.Message.ID)
	assert.Equal(t, feedback.SeveritySuccess, r.Severity)
	assert.Empty(t, r.Faults)
	assert.Equal(t, "Back at the starting position. Ready for the next rep.", r.Feedback)
}

func TestDeadlift_SecondRepStartsImmediately(t *testing.T) {
	m := newDeadlift()
	deadliftToDownward(t, m)
	m.Process(deadliftStart.AtHipY(300).Frame())

	deadliftToDownward(t, m)
	r := m.Process(deadliftStart.AtHipY(300).Frame())

	assert.Equal(t, 2, r.Reps)
}

func TestDeadlift_IdleWaitsForStartBand(t *testing.T) {
	m := newDeadlift()

	r := m.Process(detector.StandingPose().Frame())

	assert.Equal(t, PhaseIdle, r.Phase)
	assert.True(t, r.Valid)
	assert.Equal(t, feedback.DeadliftIdle, r.Message.ID)
	assert.Equal(t, feedback.SeverityInfo, r.Severity)
	require.NotNil(t, r.Angles)
	assert.InDelta(t, 180, r.Angles.Knee, 1e-6)
	assert.Equal(t, detector.SideLeft, r.Side)
}

func TestDeadlift_WrongDirection(t *testing.T) {
	m := newDeadlift()
	m.Process(deadliftStart.AtHipY(300).Frame())

	r := last(run(m, at(deadliftStart, ramp(300, 10, 7)...)...))

	assert.Equal(t, PhaseIdle, r.Phase)
	assert.False(t, r.Valid)
	assert.Equal(t, []Fault{FaultWrongDirection}, r.Faults)
	assert.Equal(t, feedback.DeadliftWrongDirection, r.Message.ID)
	assert.Equal(t, 0, r.Reps)

	// The next frame in the start band begins a fresh, valid attempt.
	r = m.Process(deadliftStart.AtHipY(370).Frame())
	assert.Equal(t, PhaseStartingPose, r.Phase)
	assert.True(t, r.Valid)
}

func TestDeadlift_LiftingFaults(t *testing.T) {
	tests := []struct {
		name  string
		pose  detector.PoseSpec
		fault Fault
		msg   string
	}{
		{
			name:  "back rounding wins over early back rise",
			pose:  detector.DeadliftPose(100, 90, 125),
			fault: FaultBackRounding,
			msg:   feedback.DeadliftBackRounding,
		},
		{
			name:  "back rising early",
			pose:  detector.DeadliftPose(100, 90, 90),
			fault: FaultBackRisingEarly,
			msg:   feedback.DeadliftBackRisingEarly,
		},
		{
			name:  "hips rising early",
			pose:  detector.DeadliftPose(110, 150, 60),
			fault: FaultHipsRisingEarly,
			msg:   feedback.DeadliftHipsRisingEarly,
		},
		{
			name:  "knees extending early",
			pose:  detector.DeadliftPose(150, 30, 60),
			fault: FaultKneesExtendingEarly,
			msg:   feedback.DeadliftKneesExtendingEarly,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newDeadlift()
			deadliftToLifting(t, m)

			r := m.Process(tt.pose.AtHipY(220).Frame())

			assert.Equal(t, PhaseLifting, r.Phase)
			assert.False(t, r.Valid)
			assert.Equal(t, []Fault{tt.fault}, r.Faults)
			assert.Equal(t, tt.msg, r.Message.ID)
			assert.Equal(t, feedback.SeverityError, r.Severity)
		})
	}
}

func TestDeadlift_StickingPoint(t *testing.T) {
	m := newDeadlift()
	deadliftToLifting(t, m)

	r := m.Process(detector.DeadliftPose(150, 95, 58).AtHipY(220).Frame())

	assert.Equal(t, PhaseLifting, r.Phase)
	assert.True(t, r.Valid)
	assert.Empty(t, r.Faults)
	assert.Equal(t, feedback.DeadliftStickingPoint, r.Message.ID)
	assert.Equal(t, feedback.SeverityWarning, r.Severity)
}

func TestDeadlift_InvalidLiftCannotLockOut(t *testing.T) {
	m := newDeadlift()
	deadliftToLifting(t, m)
	m.Process(detector.DeadliftPose(110, 150, 60).AtHipY(220).Frame())

	r := m.Process(deadliftLockout.AtHipY(200).Frame())
	assert.Equal(t, PhaseLifting, r.Phase)
	assert.False(t, r.Valid)
	assert.Equal(t, feedback.DeadliftHipsRisingEarly, r.Message.ID, "fault message is kept")

	r = until(t, m, 40, func(i int) *detector.PoseFrame {
		return deadliftStart.AtHipY(200 + 10*float64(i+1)).Frame()
	}, func(r Result) bool { return r.Phase == PhaseIdle })

	assert.Equal(t, 0, r.Reps)
	assert.True(t, r.RepRejected)
	assert.False(t, r.RepCounted)
	assert.Equal(t, feedback.DeadliftRepInvalid, r.Message.ID)
}

func TestDeadlift_LockoutRounding(t *testing.T) {
	m := newDeadlift()
	deadliftToLockout(t, m)

	r := m.Process(detector.DeadliftPose(170, 170, 35).AtHipY(200).Frame())
	assert.Equal(t, PhaseLockout, r.Phase)
	assert.False(t, r.Valid)
	assert.Equal(t, []Fault{FaultLockoutRounding}, r.Faults)
	assert.Equal(t, feedback.DeadliftLockoutRounding, r.Message.ID)

	results := run(m, at(deadliftLockout, ramp(200, 10, 7)...)...)
	require.Equal(t, PhaseDownward, last(results).Phase)

	r = m.Process(deadliftStart.AtHipY(300).Frame())
	assert.Equal(t, PhaseIdle, r.Phase)
	assert.Equal(t, 0, r.Reps)
	assert.True(t, r.RepRejected)
	assert.Equal(t, feedback.DeadliftRepInvalid, r.Message.ID)
}

func TestDeadlift_LoweringFaults(t *testing.T) {
	t.Run("hips dropping before knees", func(t *testing.T) {
		m := newDeadlift()
		deadliftToDownward(t, m)

		r := m.Process(detector.DeadliftPose(145, 170, 10).AtHipY(280).Frame())
		assert.Equal(t, PhaseDownward, r.Phase)
		assert.Equal(t, []Fault{FaultHipsDroppingEarly}, r.Faults)
		assert.Equal(t, feedback.DeadliftHipsDroppingEarly, r.Message.ID)

		r = m.Process(deadliftStart.AtHipY(300).Frame())
		assert.Equal(t, 0, r.Reps)
		assert.True(t, r.RepRejected)
	})

	t.Run("rounding while lowering", func(t *testing.T) {
		m := newDeadlift()
		deadliftToDownward(t, m)

		r := m.Process(detector.DeadliftPose(150, 150, 95).AtHipY(280).Frame())
		assert.Equal(t, []Fault{FaultBackRounding}, r.Faults)
		assert.Equal(t, feedback.DeadliftLoweringRounding, r.Message.ID)
	})

	t.Run("lowering message while valid", func(t *testing.T) {
		m := newDeadlift()
		deadliftToDownward(t, m)

		r := m.Process(deadliftLockout.AtHipY(280).Frame())
		assert.Empty(t, r.Faults)
		assert.Equal(t, feedback.DeadliftLowering, r.Message.ID)
	})
}

func TestDeadlift_UnusableFramesReset(t *testing.T) {
	nanFrame := deadliftStart.AtHipY(230).Frame()
	nanFrame.Points[detector.LeftKnee].X = math.NaN()

	tests := []struct {
		name  string
		frame *detector.PoseFrame
		msg   string
	}{
		{name: "no person", frame: nil, msg: feedback.NoPerson},
		{
			name:  "insufficient landmarks",
			frame: deadliftStart.Hiding(detector.LeftAnkle, detector.RightAnkle).Frame(),
			msg:   feedback.InsufficientLandmarks,
		},
		{
			name:  "low visibility",
			frame: deadliftStart.WithVisibility(0.4).Frame(),
			msg:   feedback.InsufficientLandmarks,
		},
		{name: "computation error", frame: nanFrame, msg: feedback.DetectionError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newDeadlift()
			deadliftToLifting(t, m)
			require.NotZero(t, m.motion.Len())

			r := m.Process(tt.frame)

			assert.Equal(t, PhaseIdle, r.Phase)
			assert.False(t, r.Valid)
			assert.Equal(t, tt.msg, r.Message.ID)
			assert.Equal(t, feedback.SeverityError, r.Severity)
			assert.Nil(t, r.Angles)
			assert.Zero(t, m.motion.Len(), "motion history is cleared")
		})
	}
}

func TestDeadlift_NeverUsableStaysIdle(t *testing.T) {
	m := newDeadlift()
	for i := 0; i < 50; i++ {
		r := m.Process(nil)
		require.Equal(t, PhaseIdle, r.Phase)
		require.Equal(t, 0, r.Reps)
	}
}

func TestDeadlift_Reset(t *testing.T) {
	m := newDeadlift()
	deadliftToDownward(t, m)
	m.Process(deadliftStart.AtHipY(300).Frame())
	require.Equal(t, 1, m.State().Reps)

	m.Reset()

	s := m.State()
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, 0, s.Reps)
	assert.True(t, s.Valid)
	assert.Equal(t, feedback.DeadliftIdle, s.Message.ID)
}

func TestDeadlift_RepInvariants(t *testing.T) {
	poses := []detector.PoseSpec{
		deadliftStart,
		deadliftLockout,
		detector.DeadliftPose(150, 95, 58),
		detector.DeadliftPose(110, 150, 60),
		detector.DeadliftPose(145, 170, 10),
		deadliftStart.Hiding(detector.LeftHip, detector.RightHip),
	}

	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		m := newDeadlift()
		y := 300.0
		prev := m.State()

		for i := 0; i < 500; i++ {
			y += float64(rng.Intn(41) - 20)

			var frame *detector.PoseFrame
			if rng.Intn(20) > 0 {
				frame = poses[rng.Intn(len(poses))].AtHipY(y).Frame()
			}

			r := m.Process(frame)

			switch r.Reps - prev.Reps {
			case 0:
				require.False(t, r.RepCounted, "seed %d frame %d", seed, i)
			case 1:
				require.True(t, r.RepCounted, "seed %d frame %d", seed, i)
				require.True(t, prev.Valid, "rep counted after invalid attempt: seed %d frame %d", seed, i)
			default:
				t.Fatalf("reps jumped from %d to %d: seed %d frame %d", prev.Reps, r.Reps, seed, i)
			}

			// Validity only comes back by re-entering IDLE.
			if !prev.Valid && r.Valid {
				require.NotEqual(t, PhaseLifting, r.Phase)
				require.NotEqual(t, PhaseLockout, r.Phase)
				require.NotEqual(t, PhaseDownward, r.Phase)
			}

			prev = m.State()
		}
	}
}
