package capture

import (
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func grey(t *testing.T, level float64) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	m.SetTo(gocv.NewScalar(level, level, level, 0))
	return m
}

func TestMotionDetector_Detect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	tests := []struct {
		name      string
		threshold float64
		from, to  float64
		want      bool
	}{
		{"still grey", 1.0, 128, 128, false},
		{"lights on", 1.0, 0, 255, true},
		{"small flicker", 1.0, 128, 140, false},
		{"lifter stands up", 1.0, 30, 220, true},
		{"threshold above the whole frame", 100.0, 0, 255, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			defer md.Close()

			a, b := grey(t, tt.from), grey(t, tt.to)
			defer a.Close()
			defer b.Close()

			if moved, pct := md.Detect(&a); moved || pct != 0 {
				t.Fatalf("baseline frame = (%v, %f), want (false, 0)", moved, pct)
			}
			if moved, pct := md.Detect(&b); moved != tt.want {
				t.Errorf("Detect() = %v (%.1f%% changed), want %v", moved, pct, tt.want)
			}
		})
	}
}

func TestMotionDetector_PartialChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(5.0)
	defer md.Close()

	base := grey(t, 0)
	defer base.Close()
	md.Detect(&base)

	// A bright box over a quarter of the frame, roughly where a lifter's
	// torso would be.
	next := grey(t, 0)
	defer next.Close()
	gocv.Rectangle(&next, image.Rect(40, 30, 120, 90), gocv.NewScalar(255, 255, 255, 0), -1)

	moved, pct := md.Detect(&next)
	if !moved {
		t.Errorf("Detect() = false with %.1f%% changed, want motion above 5%%", pct)
	}
	if pct >= 100 {
		t.Errorf("changed = %.1f%%, want only part of the frame", pct)
	}
}

func TestMotionDetector_ResetDropsBaseline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	dark, bright := grey(t, 0), grey(t, 255)
	defer dark.Close()
	defer bright.Close()

	md.Detect(&dark)
	md.Reset()
	if md.initialized || !md.prevGray.Empty() {
		t.Fatal("Reset() kept the baseline")
	}

	// After a pause the first frame is a new baseline, not a jump.
	if moved, _ := md.Detect(&bright); moved {
		t.Error("first frame after Reset() counted as motion")
	}
}

func TestMotionDetector_IgnoresEmptyFrames(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	if moved, pct := md.Detect(nil); moved || pct != 0 {
		t.Errorf("Detect(nil) = (%v, %f)", moved, pct)
	}
	empty := gocv.NewMat()
	defer empty.Close()
	if moved, _ := md.Detect(&empty); moved {
		t.Error("Detect(empty) reported motion")
	}
	if md.initialized {
		t.Error("an empty frame must not become the baseline")
	}
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	for _, tc := range []struct {
		in, want float64
	}{
		{5.0, 5.0},
		{0, 5.0},
		{-2, 5.0},
		{0.5, 0.5},
	} {
		md.SetThreshold(tc.in)
		if md.threshold != tc.want {
			t.Errorf("SetThreshold(%v): threshold = %v, want %v", tc.in, md.threshold, tc.want)
		}
	}
}

func TestMotionDetector_CloseTwice(t *testing.T) {
	md := NewMotionDetector(1.0)
	md.Close()
	md.Close()
}
