package detector

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ayusman/formcheck/internal/geometry"
	"github.com/ayusman/formcheck/internal/metrics"
)

const epsilon = 1e-6

func TestPoseFrame_Pixel(t *testing.T) {
	t.Run("scales by frame size", func(t *testing.T) {
		f := &PoseFrame{Width: 1280, Height: 720}
		f.Points[LeftHip] = Landmark{X: 0.5, Y: 0.25, Visibility: 1}

		p := f.Pixel(LeftHip)
		if p.X != 640 || p.Y != 180 {
			t.Errorf("expected (640, 180), got %v", p)
		}
	})

	t.Run("falls back to default size", func(t *testing.T) {
		f := &PoseFrame{}
		f.Points[LeftHip] = Landmark{X: 0.5, Y: 0.5}

		p := f.Pixel(LeftHip)
		if p.X != DefaultWidth/2 || p.Y != DefaultHeight/2 {
			t.Errorf("expected default-size pixel, got %v", p)
		}
	})
}

func TestPoseFrame_Visible(t *testing.T) {
	f := &PoseFrame{}
	f.Points[LeftKnee].Visibility = 0.7

	if f.Visible(LeftKnee, 0.7) {
		t.Error("visibility equal to threshold should not count as visible")
	}
	if !f.Visible(LeftKnee, 0.69) {
		t.Error("visibility above threshold should count as visible")
	}
	if f.Visible(LandmarkID(NumLandmarks), 0) {
		t.Error("out of range landmark should not be visible")
	}

	var nilFrame *PoseFrame
	if nilFrame.Visible(LeftKnee, 0) {
		t.Error("nil frame should have no visible landmarks")
	}
}

func TestPoseSpec_Angles(t *testing.T) {
	tests := []struct {
		name       string
		spec       PoseSpec
		knee, hip  float64
		deadTrunk  float64
		squatTrunk float64
	}{
		{
			name: "standing",
			spec: StandingPose(),
			knee: 180, hip: 180, deadTrunk: 0, squatTrunk: 90,
		},
		{
			name: "deadlift start",
			spec: DeadliftPose(100, 90, 60),
			knee: 100, hip: 90, deadTrunk: 60, squatTrunk: 30,
		},
		{
			name: "deep squat",
			spec: SquatPose(55, 70, 65),
			knee: 55, hip: 70, deadTrunk: 25, squatTrunk: 65,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.spec.Frame()
			shoulder := f.Pixel(LeftShoulder)
			hip := f.Pixel(LeftHip)
			knee := f.Pixel(LeftKnee)
			ankle := f.Pixel(LeftAnkle)

			if got := geometry.Angle(hip, knee, ankle); math.Abs(got-tt.knee) > epsilon {
				t.Errorf("knee angle = %f, want %f", got, tt.knee)
			}
			if got := geometry.Angle(shoulder, hip, knee); math.Abs(got-tt.hip) > epsilon {
				t.Errorf("hip angle = %f, want %f", got, tt.hip)
			}
			if got := geometry.AxisAngle(hip.Sub(shoulder), geometry.Vertical); math.Abs(got-tt.deadTrunk) > epsilon {
				t.Errorf("deadlift trunk = %f, want %f", got, tt.deadTrunk)
			}
			if got := geometry.AxisAngle(shoulder.Sub(hip), geometry.Horizontal); math.Abs(got-tt.squatTrunk) > epsilon {
				t.Errorf("squat trunk = %f, want %f", got, tt.squatTrunk)
			}
		})
	}
}

func TestSelector_Select(t *testing.T) {
	t.Run("nil frame is insufficient", func(t *testing.T) {
		_, err := NewSelector(0.5).Select(nil)
		if !errors.Is(err, ErrInsufficientLandmarks) {
			t.Errorf("expected ErrInsufficientLandmarks, got %v", err)
		}
	})

	t.Run("tie favours left", func(t *testing.T) {
		sel, err := NewSelector(0.5).Select(StandingPose().Frame())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sel.Side != SideLeft {
			t.Errorf("expected left side, got %s", sel.Side)
		}
		if !sel.HasKnees || !sel.HasHips {
			t.Error("expected both knees and hips to be captured")
		}
	})

	t.Run("more visible right side wins", func(t *testing.T) {
		f := StandingPose().Hiding(LeftAnkle).Frame()
		sel, err := NewSelector(0.5).Select(f)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sel.Side != SideRight {
			t.Errorf("expected right side, got %s", sel.Side)
		}
	})

	t.Run("chosen side missing a joint is insufficient", func(t *testing.T) {
		f := StandingPose().Hiding(LeftAnkle, RightAnkle).Frame()
		_, err := NewSelector(0.5).Select(f)
		if !errors.Is(err, ErrInsufficientLandmarks) {
			t.Errorf("expected ErrInsufficientLandmarks, got %v", err)
		}
	})

	t.Run("fewer than three visible joints is insufficient", func(t *testing.T) {
		f := StandingPose().Hiding(LeftKnee, LeftAnkle, RightKnee, RightAnkle).Frame()
		_, err := NewSelector(0.5).Select(f)
		if !errors.Is(err, ErrInsufficientLandmarks) {
			t.Errorf("expected ErrInsufficientLandmarks, got %v", err)
		}
	})

	t.Run("threshold is applied", func(t *testing.T) {
		f := StandingPose().WithVisibility(0.6).Frame()
		if _, err := NewSelector(0.7).Select(f); !errors.Is(err, ErrInsufficientLandmarks) {
			t.Errorf("expected squat threshold to reject frame, got %v", err)
		}
		if _, err := NewSelector(0.4).Select(f); err != nil {
			t.Errorf("expected deadlift threshold to accept frame, got %v", err)
		}
	})

	t.Run("knee distance and hip width", func(t *testing.T) {
		f := StandingPose().WithKneeSpread(10).Frame()
		sel, err := NewSelector(0.5).Select(f)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		kd, ok := sel.KneeDistance()
		if !ok || math.Abs(kd-10) > epsilon {
			t.Errorf("knee distance = %f (%v), want 10", kd, ok)
		}
		hw, ok := sel.HipWidth()
		if !ok || math.Abs(hw-40) > epsilon {
			t.Errorf("hip width = %f (%v), want 40", hw, ok)
		}
	})

	t.Run("normalized joints ignore the frame size", func(t *testing.T) {
		f := StandingPose().WithKneeSpread(48).Frame()
		f.Width, f.Height = 640, 480

		sel, err := NewSelector(0.5).Select(f)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(sel.Hip.X-320) > epsilon || math.Abs(sel.Hip.Y-240) > epsilon {
			t.Errorf("pixel hip = %+v, want (320, 240)", sel.Hip)
		}

		norm := sel.Normalized()
		if norm.Side != sel.Side {
			t.Errorf("normalized side = %s, want %s", norm.Side, sel.Side)
		}
		if math.Abs(norm.Hip.X-0.5) > epsilon || math.Abs(norm.Hip.Y-0.5) > epsilon {
			t.Errorf("normalized hip = %+v, want (0.5, 0.5)", norm.Hip)
		}
		if kd, ok := norm.KneeDistance(); !ok || math.Abs(kd-0.1) > epsilon {
			t.Errorf("normalized knee distance = %f (%v), want 0.1", kd, ok)
		}
	})

	t.Run("hand-built selection has no normalized form", func(t *testing.T) {
		sel := Selection{Side: SideLeft, Hip: geometry.Point{X: 3, Y: 4}}
		if got := sel.Normalized(); got.Hip != sel.Hip {
			t.Errorf("Normalized() = %+v, want the selection unchanged", got.Hip)
		}
	})

	t.Run("one knee hidden leaves knee distance unknown", func(t *testing.T) {
		f := StandingPose().Hiding(RightKnee).Frame()
		sel, err := NewSelector(0.5).Select(f)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := sel.KneeDistance(); ok {
			t.Error("expected knee distance to be unavailable")
		}
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns nil pose by default", func(t *testing.T) {
		mock := NewMockDetector()

		pose, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if pose != nil {
			t.Errorf("expected nil pose, got %v", pose)
		}
	})

	t.Run("drains queue before configured pose", func(t *testing.T) {
		mock := NewMockDetector()
		first := StandingPose().Frame()
		fallback := DeadliftPose(100, 90, 60).Frame()
		mock.Queue(first, nil)
		mock.SetPose(fallback)

		got := []*PoseFrame{}
		for i := 0; i < 3; i++ {
			p, err := mock.Detect(nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got = append(got, p)
		}

		if got[0] != first || got[1] != nil || got[2] != fallback {
			t.Errorf("unexpected detection order: %v", got)
		}
		if mock.Calls() != 3 {
			t.Errorf("expected 3 calls, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		pose, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if pose != nil {
			t.Errorf("expected nil pose when error is set, got %v", pose)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
	})
}

func TestPool(t *testing.T) {
	newPool := func(t *testing.T, size int) (*Pool, []*MockDetector) {
		t.Helper()
		var mocks []*MockDetector
		pool, err := NewPool(func() (Detector, error) {
			m := NewMockDetector()
			mocks = append(mocks, m)
			return m, nil
		}, size)
		if err != nil {
			t.Fatalf("NewPool: %v", err)
		}
		return pool, mocks
	}

	t.Run("acquire blocks until release", func(t *testing.T) {
		pool, _ := newPool(t, 1)
		defer pool.Close()

		d, err := pool.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := pool.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}

		pool.Release(d)
		if _, err := pool.Acquire(context.Background()); err != nil {
			t.Errorf("expected acquire after release, got %v", err)
		}
	})

	t.Run("detect uses a leased detector", func(t *testing.T) {
		pool, mocks := newPool(t, 2)
		defer pool.Close()

		want := StandingPose().Frame()
		for _, m := range mocks {
			m.SetPose(want)
		}

		got, err := pool.Detect(context.Background(), nil)
		if err != nil {
			t.Fatalf("Detect: %v", err)
		}
		if got != want {
			t.Error("expected the mock pose")
		}
	})

	t.Run("close closes every detector", func(t *testing.T) {
		pool, mocks := newPool(t, 3)
		if pool.Size() != 3 {
			t.Errorf("expected size 3, got %d", pool.Size())
		}

		if err := pool.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		for i, m := range mocks {
			if !m.Closed() {
				t.Errorf("detector %d not closed", i)
			}
		}
		if _, err := pool.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
			t.Errorf("expected ErrPoolClosed, got %v", err)
		}
	})

	t.Run("instrumented detect", func(t *testing.T) {
		pool, mocks := newPool(t, 1)
		defer pool.Close()

		m := metrics.NewTestManager()
		pool.Instrument(m)

		mocks[0].SetPose(StandingPose().Frame())
		if _, err := pool.Detect(context.Background(), nil); err != nil {
			t.Fatalf("Detect: %v", err)
		}
		mocks[0].SetError(errors.New("engine crashed"))
		if _, err := pool.Detect(context.Background(), nil); err == nil {
			t.Fatal("expected the engine error")
		}

		if got := testutil.ToFloat64(m.CounterDetectorErrors); got != 1 {
			t.Errorf("detector errors = %v, want 1", got)
		}
		if got := testutil.ToFloat64(m.GaugeDetectorsInUse); got != 0 {
			t.Errorf("detectors in use = %v, want 0", got)
		}
	})

	t.Run("factory failure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewPool(func() (Detector, error) { return nil, boom }, 2)
		if !errors.Is(err, boom) {
			t.Errorf("expected factory error, got %v", err)
		}
	})
}
