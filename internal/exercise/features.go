package exercise

import (
	"fmt"
	"math"

	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/geometry"
)

// Angles are the joint angles of one frame, in degrees.
type Angles struct {
	Knee  float64 `json:"knee"`
	Hip   float64 `json:"hip"`
	Trunk float64 `json:"trunk"`
}

// TrunkReference selects how the trunk angle is measured.
type TrunkReference int

const (
	// TrunkFromVertical measures the shoulder-to-hip vector against the downward
	// vertical, so an upright trunk is 0 and a horizontal one is 90.
	TrunkFromVertical TrunkReference = iota
	// TrunkFromHorizontal measures the hip-to-shoulder vector against the
	// forward horizontal, so an upright trunk is 90.
	TrunkFromHorizontal
)

// Measure chooses the trunk reference and the coordinate space of each
// angle. Pixel coordinates are the default; on a non-square frame they give
// different angles than normalized ones.
type Measure struct {
	Trunk TrunkReference
	// NormalizedJoints measures the knee and hip angles on normalized coordinates.
	NormalizedJoints bool
	// NormalizedTrunk measures the trunk angle on normalized coordinates.
	NormalizedTrunk bool
}

// Extract computes knee, hip and trunk angles from a landmark selection.
func Extract(sel detector.Selection, m Measure) (Angles, error) {
	joints, trunk := sel, sel
	if m.NormalizedJoints {
		joints = sel.Normalized()
	}
	if m.NormalizedTrunk {
		trunk = sel.Normalized()
	}

	a := Angles{
		Knee: geometry.Angle(joints.Hip, joints.Knee, joints.Ankle),
		Hip:  geometry.Angle(joints.Shoulder, joints.Hip, joints.Knee),
	}

	switch m.Trunk {
	case TrunkFromHorizontal:
		a.Trunk = geometry.AxisAngle(trunk.Shoulder.Sub(trunk.Hip), geometry.Horizontal)
	default:
		a.Trunk = geometry.AxisAngle(trunk.Hip.Sub(trunk.Shoulder), geometry.Vertical)
	}

	for name, v := range map[string]float64{"knee": a.Knee, "hip": a.Hip, "trunk": a.Trunk} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Angles{}, fmt.Errorf("%w: %s angle is %v", ErrComputation, name, v)
		}
	}

	return a, nil
}
