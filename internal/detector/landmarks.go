// Package detector provides pose detection interfaces and the body landmark types
// consumed by the exercise trackers.
package detector

import (
	"github.com/ayusman/formcheck/internal/geometry"
)

// LandmarkID identifies a body landmark following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
type LandmarkID int

// Pose landmark indices.
const (
	Nose LandmarkID = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
	NumLandmarks = 33
)

// Default image size used when a frame does not report its dimensions.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Landmark is a single detected body point. X and Y are normalized to [0,1]
// relative to the image; Visibility is the detector's confidence in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// PoseFrame holds all landmarks detected for one person in one image.
// A nil *PoseFrame means no person was detected.
type PoseFrame struct {
	Points    [NumLandmarks]Landmark `json:"points"`
	Width     int                    `json:"width"`
	Height    int                    `json:"height"`
	Timestamp int64                  `json:"timestamp"`
}

// Size returns the frame dimensions, falling back to the default capture size.
func (f *PoseFrame) Size() (int, int) {
	w, h := f.Width, f.Height
	if w <= 0 || h <= 0 {
		return DefaultWidth, DefaultHeight
	}
	return w, h
}

// Visible reports whether the landmark's visibility is strictly above the threshold.
func (f *PoseFrame) Visible(id LandmarkID, threshold float64) bool {
	if f == nil || id < 0 || int(id) >= NumLandmarks {
		return false
	}
	return f.Points[id].Visibility > threshold
}

// Point returns the landmark position in normalized image coordinates.
func (f *PoseFrame) Point(id LandmarkID) geometry.Point {
	lm := f.Points[id]
	return geometry.Point{X: lm.X, Y: lm.Y}
}

// Pixel returns the landmark position scaled to image pixels.
func (f *PoseFrame) Pixel(id LandmarkID) geometry.Point {
	w, h := f.Size()
	lm := f.Points[id]
	return geometry.Point{X: lm.X * float64(w), Y: lm.Y * float64(h)}
}
