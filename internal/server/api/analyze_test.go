package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/metrics"
	"github.com/ayusman/formcheck/internal/scoring"
)

type fakePoseDetector struct {
	mu    sync.Mutex
	pose  *detector.PoseFrame
	err   error
	calls int
	size  [2]int
}

func (f *fakePoseDetector) Detect(ctx context.Context, frame *gocv.Mat) (*detector.PoseFrame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.size = [2]int{frame.Cols(), frame.Rows()}
	return f.pose, f.err
}

// testImage returns a small JPEG encoded as base64.
func testImage(t *testing.T) string {
	t.Helper()

	img := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		t.Fatalf("IMEncode() failed: %v", err)
	}
	defer buf.Close()

	return base64.StdEncoding.EncodeToString(buf.GetBytes())
}

type analyzeResponse struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

func TestAnalyzeHandler(t *testing.T) {
	image := testImage(t)
	perfect := detector.DeadliftPose(80, 90, 45).Frame()

	tests := []struct {
		name     string
		pose     *detector.PoseFrame
		err      error
		body     any
		status   int
		score    float64
		feedback string
		calls    int
	}{
		{
			name:     "perfect squat",
			pose:     perfect,
			body:     analyzeRequest{Image: image, ExerciseType: "squat"},
			status:   http.StatusOK,
			score:    100,
			feedback: "Perfect squat form!",
			calls:    1,
		},
		{
			name:     "data url",
			pose:     perfect,
			body:     analyzeRequest{Image: "data:image/jpeg;base64," + image, ExerciseType: "squat"},
			status:   http.StatusOK,
			score:    100,
			feedback: "Perfect squat form!",
			calls:    1,
		},
		{
			name:     "turkish",
			pose:     perfect,
			body:     analyzeRequest{Image: image, ExerciseType: "squat", Language: "tr"},
			status:   http.StatusOK,
			score:    100,
			feedback: "Mükemmel squat formu!",
			calls:    1,
		},
		{
			name:     "nobody in the image",
			body:     analyzeRequest{Image: image, ExerciseType: "deadlift"},
			status:   http.StatusOK,
			feedback: "No person detected for deadlift.",
			calls:    1,
		},
		{
			name:     "invalid exercise",
			pose:     perfect,
			body:     analyzeRequest{Image: image, ExerciseType: "bench"},
			status:   http.StatusOK,
			feedback: "Invalid exercise type. Send 'squat' or 'deadlift'.",
		},
		{
			name:     "capitalized exercise",
			pose:     perfect,
			body:     analyzeRequest{Image: image, ExerciseType: "Squat"},
			status:   http.StatusOK,
			feedback: "Invalid exercise type. Send 'squat' or 'deadlift'.",
		},
		{
			name:     "padded exercise",
			pose:     perfect,
			body:     analyzeRequest{Image: image, ExerciseType: " squat"},
			status:   http.StatusOK,
			feedback: "Invalid exercise type. Send 'squat' or 'deadlift'.",
		},
		{
			name:     "detector failure grades as nobody",
			pose:     perfect,
			err:      errors.New("pose service crashed"),
			body:     analyzeRequest{Image: image, ExerciseType: "squat"},
			status:   http.StatusOK,
			feedback: "No person detected for squat.",
			calls:    1,
		},
		{
			name:     "bad base64",
			body:     analyzeRequest{Image: "not base64!", ExerciseType: "squat"},
			status:   http.StatusBadRequest,
			feedback: "Image could not be decoded.",
		},
		{
			name:     "not an image",
			body:     analyzeRequest{Image: base64.StdEncoding.EncodeToString([]byte("hello")), ExerciseType: "squat"},
			status:   http.StatusBadRequest,
			feedback: "Image could not be decoded.",
		},
		{
			name:     "missing image",
			body:     analyzeRequest{ExerciseType: "squat"},
			status:   http.StatusBadRequest,
			feedback: "Image could not be decoded.",
		},
		{
			name:     "invalid json",
			body:     "{",
			status:   http.StatusBadRequest,
			feedback: "Image could not be decoded.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakePoseDetector{pose: tt.pose, err: tt.err}
			router := newRouter(NewAnalyzeHandler(d, scoring.DefaultConfig(), nil, nil))
			rec := do(t, router, http.MethodPost, "/analyze-posture", tt.body)

			if tt.status != http.StatusOK {
				var resp errorResponse
				decode(t, rec, tt.status, &resp)
				if resp.Error != tt.feedback {
					t.Errorf("expected error %q, got %q", tt.feedback, resp.Error)
				}
			} else {
				var resp analyzeResponse
				decode(t, rec, tt.status, &resp)
				if resp.Score != tt.score {
					t.Errorf("expected score %v, got %v", tt.score, resp.Score)
				}
				if resp.Feedback != tt.feedback {
					t.Errorf("expected feedback %q, got %q", tt.feedback, resp.Feedback)
				}
			}

			if d.calls != tt.calls {
				t.Errorf("expected %d detector calls, got %d", tt.calls, d.calls)
			}
		})
	}
}

func TestAnalyzeHandler_APIRoute(t *testing.T) {
	d := &fakePoseDetector{pose: detector.DeadliftPose(80, 90, 45).Frame()}
	mm := metrics.NewTestManager()
	router := newRouter(NewAnalyzeHandler(d, scoring.DefaultConfig(), nil, mm))

	var resp analyzeResponse
	decode(t, do(t, router, http.MethodPost, "/api/analyze", analyzeRequest{
		Image:        testImage(t),
		ExerciseType: "squat",
	}), http.StatusOK, &resp)

	if resp.Score != 100 {
		t.Errorf("expected score 100, got %v", resp.Score)
	}
	if d.size != [2]int{320, 240} {
		t.Errorf("expected a 320x240 image, got %v", d.size)
	}
	if got := testutil.ToFloat64(mm.CounterScores.WithLabelValues("squat")); got != 1 {
		t.Errorf("expected 1 scored request, got %v", got)
	}

	rec := do(t, router, http.MethodGet, "/api/analyze", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestDecodeImage_Unpadded(t *testing.T) {
	payload := strings.TrimRight(testImage(t), "=")

	img, err := decodeImage(payload)
	defer img.Close()
	if err != nil {
		t.Fatalf("decodeImage() failed: %v", err)
	}
	if img.Cols() != 320 || img.Rows() != 240 {
		t.Errorf("expected 320x240, got %dx%d", img.Cols(), img.Rows())
	}
}
