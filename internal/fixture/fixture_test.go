package fixture

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/capture"
	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/exercise"
)

func count(m exercise.Machine, frames []*detector.PoseFrame) (reps int, rejected bool) {
	for _, f := range frames {
		r := m.Process(f)
		reps = r.Reps
		rejected = rejected || r.RepRejected
	}
	return reps, rejected
}

func TestSquatRep_CountsOnce(t *testing.T) {
	m := exercise.NewSquatMachine(exercise.DefaultSquatConfig(), nil)

	reps, rejected := count(m, SquatRep())
	assert.Equal(t, 1, reps)
	assert.False(t, rejected)
	assert.Equal(t, exercise.PhaseReady, m.State().Phase)
}

func TestDeadliftRep_CountsOnce(t *testing.T) {
	m := exercise.NewDeadliftMachine(exercise.DefaultDeadliftConfig(), nil)

	reps, rejected := count(m, DeadliftRep())
	assert.Equal(t, 1, reps)
	assert.False(t, rejected)
}

func TestMotionFrames(t *testing.T) {
	frames := MotionFrames(3, 64, 48)
	defer Close(frames)

	md := capture.NewMotionDetector(1.0)
	defer md.Close()

	moved, _ := md.Detect(frames[0])
	assert.False(t, moved, "first frame is the baseline")
	for _, f := range frames[1:] {
		moved, _ = md.Detect(f)
		assert.True(t, moved)
	}
}

func TestStillFrames(t *testing.T) {
	frames := StillFrames(3, 64, 48)
	defer Close(frames)

	md := capture.NewMotionDetector(1.0)
	defer md.Close()

	for _, f := range frames {
		moved, _ := md.Detect(f)
		assert.False(t, moved)
	}
}

func TestJPEG(t *testing.T) {
	data, err := JPEG(320, 240)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xFF, 0xD8}))

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	require.NoError(t, err)
	defer img.Close()
	assert.Equal(t, 320, img.Cols())
	assert.Equal(t, 240, img.Rows())
}
