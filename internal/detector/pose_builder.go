package detector

import (
	"math"

	"github.com/ayusman/formcheck/internal/geometry"
)

// PoseSpec describes a side-view body posture by its joint angles so that
// frames with exact knee, hip and trunk angles can be synthesized. The subject
// faces the +x direction of the image. Positions and lengths are in pixels.
type PoseSpec struct {
	// Hip is the pixel position of the left hip.
	Hip geometry.Point

	// Lean is the trunk's forward lean from vertical in degrees.
	Lean float64
	// HipAngle is the shoulder-hip-knee angle in degrees.
	HipAngle float64
	// KneeAngle is the hip-knee-ankle angle in degrees.
	KneeAngle float64

	TrunkLength float64
	ThighLength float64
	ShinLength  float64

	// HipSpread offsets the right shoulder, hip and ankle along x.
	HipSpread float64
	// KneeSpread offsets the right knee along x.
	KneeSpread float64

	Visibility float64
	// Hidden landmarks get zero visibility.
	Hidden []LandmarkID

	Width, Height int
}

// PoseFrameSize is the side of the square frame postures are rendered into.
// On a square frame pixel and normalized coordinates give the same angles.
const PoseFrameSize = DefaultHeight

// StandingPose returns an upright posture in a square frame.
func StandingPose() PoseSpec {
	return PoseSpec{
		Hip:         geometry.Point{X: PoseFrameSize / 2, Y: 240},
		Lean:        0,
		HipAngle:    180,
		KneeAngle:   180,
		TrunkLength: 120,
		ThighLength: 100,
		ShinLength:  100,
		HipSpread:   40,
		KneeSpread:  40,
		Visibility:  0.95,
		Width:       PoseFrameSize,
		Height:      PoseFrameSize,
	}
}

// DeadliftPose returns a posture whose deadlift trunk angle (hip to shoulder
// against the downward vertical) equals trunk.
func DeadliftPose(knee, hip, trunk float64) PoseSpec {
	s := StandingPose()
	s.KneeAngle = knee
	s.HipAngle = hip
	s.Lean = trunk
	return s
}

// SquatPose returns a posture whose squat trunk angle (shoulder above hip
// against the horizontal) equals trunk.
func SquatPose(knee, hip, trunk float64) PoseSpec {
	s := StandingPose()
	s.KneeAngle = knee
	s.HipAngle = hip
	s.Lean = 90 - trunk
	return s
}

// AtHipY returns a copy of s with the hip moved to pixel row y.
func (s PoseSpec) AtHipY(y float64) PoseSpec {
	s.Hip.Y = y
	return s
}

// WithKneeSpread returns a copy of s with the right knee offset by spread.
func (s PoseSpec) WithKneeSpread(spread float64) PoseSpec {
	s.KneeSpread = spread
	return s
}

// WithVisibility returns a copy of s with every key landmark at visibility v.
func (s PoseSpec) WithVisibility(v float64) PoseSpec {
	s.Visibility = v
	return s
}

// Hiding returns a copy of s with the given landmarks made invisible.
func (s PoseSpec) Hiding(ids ...LandmarkID) PoseSpec {
	s.Hidden = append(append([]LandmarkID(nil), s.Hidden...), ids...)
	return s
}

// Frame renders the posture into a PoseFrame with normalized coordinates.
func (s PoseSpec) Frame() *PoseFrame {
	w, h := s.Width, s.Height
	if w <= 0 || h <= 0 {
		w, h = PoseFrameSize, PoseFrameSize
	}

	rad := math.Pi / 180
	trunkDir := s.Lean*rad - math.Pi/2
	thighDir := trunkDir + s.HipAngle*rad
	shinDir := thighDir + math.Pi - s.KneeAngle*rad

	hip := s.Hip
	shoulder := geometry.Polar(hip, trunkDir, s.TrunkLength)
	knee := geometry.Polar(hip, thighDir, s.ThighLength)
	ankle := geometry.Polar(knee, shinDir, s.ShinLength)

	spread := geometry.Point{X: s.HipSpread}
	kneeSpread := geometry.Point{X: s.KneeSpread}

	frame := &PoseFrame{Width: w, Height: h}
	set := func(id LandmarkID, p geometry.Point) {
		frame.Points[id] = Landmark{
			X:          p.X / float64(w),
			Y:          p.Y / float64(h),
			Visibility: s.Visibility,
		}
	}

	set(LeftShoulder, shoulder)
	set(LeftHip, hip)
	set(LeftKnee, knee)
	set(LeftAnkle, ankle)
	set(RightShoulder, shoulder.Add(spread))
	set(RightHip, hip.Add(spread))
	set(RightKnee, knee.Add(kneeSpread))
	set(RightAnkle, ankle.Add(spread))

	for _, id := range s.Hidden {
		frame.Points[id].Visibility = 0
	}

	return frame
}
