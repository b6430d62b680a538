package detector

import (
	"errors"

	"github.com/ayusman/formcheck/internal/geometry"
)

// ErrInsufficientLandmarks is returned when neither body side has enough visible joints.
var ErrInsufficientLandmarks = errors.New("insufficient landmarks")

// MinVisibleJoints is the number of key joints a side needs to be considered.
const MinVisibleJoints = 3

// Side identifies the body side used for angle computation.
type Side string

const (
	// SideLeft is the subject's left side.
	SideLeft Side = "left"
	// SideRight is the subject's right side.
	SideRight Side = "right"
)

// joints lists the key landmarks of one side in shoulder, hip, knee, ankle order.
type joints [4]LandmarkID

var sideJoints = map[Side]joints{
	SideLeft:  {LeftShoulder, LeftHip, LeftKnee, LeftAnkle},
	SideRight: {RightShoulder, RightHip, RightKnee, RightAnkle},
}

// Selection is the set of pixel-space joints chosen for one frame.
type Selection struct {
	Side     Side
	Shoulder geometry.Point
	Hip      geometry.Point
	Knee     geometry.Point
	Ankle    geometry.Point

	// Both knees and both hips, populated only when both are visible.
	LeftKnee, RightKnee geometry.Point
	HasKnees            bool
	LeftHip, RightHip   geometry.Point
	HasHips             bool

	// norm holds the same joints in normalized image coordinates.
	norm *Selection
}

// Normalized returns the selection in normalized image coordinates, where
// x and y both run from 0 to 1 regardless of the frame's aspect ratio.
// A selection built by hand has no normalized form and is returned as is.
func (s Selection) Normalized() Selection {
	if s.norm == nil {
		return s
	}
	return *s.norm
}

// KneeDistance returns the distance between the two knees, if both were visible.
func (s Selection) KneeDistance() (float64, bool) {
	if !s.HasKnees {
		return 0, false
	}
	return geometry.Distance(s.LeftKnee, s.RightKnee), true
}

// HipWidth returns the distance between the two hips, if both were visible.
func (s Selection) HipWidth() (float64, bool) {
	if !s.HasHips {
		return 0, false
	}
	return geometry.Distance(s.LeftHip, s.RightHip), true
}

// Selector picks the more visible body side of a pose frame.
type Selector struct {
	// Threshold is the visibility a landmark must exceed to count as visible.
	Threshold float64
	// MinVisible is the number of key joints a side needs; defaults to MinVisibleJoints.
	MinVisible int
}

// NewSelector creates a Selector with the given visibility threshold.
func NewSelector(threshold float64) Selector {
	return Selector{Threshold: threshold, MinVisible: MinVisibleJoints}
}

// Select counts visible key joints per side and returns the better side.
// Ties favour the left side. The chosen side must have every key joint visible,
// otherwise ErrInsufficientLandmarks is returned.
func (s Selector) Select(frame *PoseFrame) (Selection, error) {
	if frame == nil {
		return Selection{}, ErrInsufficientLandmarks
	}

	minVisible := s.MinVisible
	if minVisible <= 0 {
		minVisible = MinVisibleJoints
	}

	left := s.countVisible(frame, sideJoints[SideLeft])
	right := s.countVisible(frame, sideJoints[SideRight])

	var side Side
	switch {
	case left >= right && left >= minVisible:
		side = SideLeft
	case right > left && right >= minVisible:
		side = SideRight
	default:
		return Selection{}, ErrInsufficientLandmarks
	}

	j := sideJoints[side]
	if s.countVisible(frame, j) != len(j) {
		return Selection{}, ErrInsufficientLandmarks
	}

	sel := s.build(frame, side, frame.Pixel)
	norm := s.build(frame, side, frame.Point)
	sel.norm = &norm

	return sel, nil
}

// build collects the joints of side, placing each landmark with at.
func (s Selector) build(frame *PoseFrame, side Side, at func(LandmarkID) geometry.Point) Selection {
	j := sideJoints[side]
	sel := Selection{
		Side:     side,
		Shoulder: at(j[0]),
		Hip:      at(j[1]),
		Knee:     at(j[2]),
		Ankle:    at(j[3]),
	}

	if frame.Visible(LeftKnee, s.Threshold) && frame.Visible(RightKnee, s.Threshold) {
		sel.LeftKnee = at(LeftKnee)
		sel.RightKnee = at(RightKnee)
		sel.HasKnees = true
	}
	if frame.Visible(LeftHip, s.Threshold) && frame.Visible(RightHip, s.Threshold) {
		sel.LeftHip = at(LeftHip)
		sel.RightHip = at(RightHip)
		sel.HasHips = true
	}
	return sel
}

func (s Selector) countVisible(frame *PoseFrame, j joints) int {
	n := 0
	for _, id := range j {
		if frame.Visible(id, s.Threshold) {
			n++
		}
	}
	return n
}
