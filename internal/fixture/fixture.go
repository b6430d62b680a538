// Package fixture builds repeatable inputs for pipeline and end-to-end tests:
// scripted pose sequences for one full repetition and synthetic camera
// frames that trip the motion gate.
package fixture

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/detector"
)

// SquatRep returns the frames of one clean parallel squat: standing at
// y=240, a 20-frame descent to knee 80, a hold at the bottom and a 20-frame
// rise back to standing. Knee angles stay off the 120 and 160 degree
// thresholds.
func SquatRep() []*detector.PoseFrame {
	frames := []*detector.PoseFrame{detector.SquatPose(180, 180, 90).AtHipY(240).Frame()}
	for i := 1; i <= 20; i++ {
		f := float64(i)
		frames = append(frames, detector.SquatPose(179-5*f, 180-4.5*f, 90-f).AtHipY(240+5*f).Frame())
	}
	for i := 0; i < 10; i++ {
		frames = append(frames, detector.SquatPose(80, 90, 70).AtHipY(340).Frame())
	}
	for i := 1; i <= 20; i++ {
		f := float64(i)
		frames = append(frames, detector.SquatPose(79+5*f, 90+4.5*f, 70+f).AtHipY(340-5*f).Frame())
	}
	return frames
}

// DeadliftRep returns the frames of one clean deadlift: set up at y=300,
// pull to lockout at y=200, lower and return to the start band.
func DeadliftRep() []*detector.PoseFrame {
	start := detector.DeadliftPose(100, 90, 60)
	lockout := detector.DeadliftPose(170, 170, 10)

	frames := []*detector.PoseFrame{start.AtHipY(300).Frame()}
	for i := 1; i <= 7; i++ {
		frames = append(frames, start.AtHipY(300-10*float64(i)).Frame())
	}
	frames = append(frames, lockout.AtHipY(200).Frame())
	for i := 1; i <= 7; i++ {
		frames = append(frames, lockout.AtHipY(200+10*float64(i)).Frame())
	}
	return append(frames, start.AtHipY(300).Frame())
}

// MotionFrames returns n frames of the given size alternating between dark
// and light, so every frame after the first counts as motion. The caller
// closes them with Close.
func MotionFrames(n, width, height int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
		level := 30.0
		if i%2 == 1 {
			level = 220
		}
		m.SetTo(gocv.NewScalar(level, level, level, 0))
		frames[i] = &m
	}
	return frames
}

// StillFrames returns n identical mid-grey frames.
func StillFrames(n, width, height int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
		m.SetTo(gocv.NewScalar(128, 128, 128, 0))
		frames[i] = &m
	}
	return frames
}

// JPEG encodes a frame of the given size, as a camera or client would send it.
func JPEG(width, height int) ([]byte, error) {
	m := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	defer m.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, m)
	if err != nil {
		return nil, fmt.Errorf("encode %dx%d frame: %w", width, height, err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Close releases every frame.
func Close(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
