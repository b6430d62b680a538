package server

import (
	"fmt"
	"image"
	"image/color"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/feedback"
)

// streamInterval paces /api/stream at about 15 FPS.
const streamInterval = 66 * time.Millisecond

var severityColors = map[feedback.Severity]color.RGBA{
	feedback.SeverityInfo:     {R: 255, G: 255, B: 255, A: 0},
	feedback.SeverityProgress: {R: 0, G: 200, B: 255, A: 0},
	feedback.SeveritySuccess:  {R: 0, G: 220, B: 0, A: 0},
	feedback.SeverityWarning:  {R: 255, G: 165, B: 0, A: 0},
	feedback.SeverityError:    {R: 255, G: 0, B: 0, A: 0},
}

// Preview keeps the latest camera frame and tracker result of the local
// pipeline so /api/stream can show them. It is safe for concurrent use.
type Preview struct {
	mu      sync.Mutex
	frame   gocv.Mat
	result  *exercise.Result
	updated time.Time
}

// NewPreview creates an empty Preview.
func NewPreview() *Preview {
	return &Preview{frame: gocv.NewMat()}
}

// Update stores a copy of frame and res. res may be nil when the frame
// was not analyzed.
func (p *Preview) Update(frame *gocv.Mat, res *exercise.Result) {
	if frame == nil || frame.Empty() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	frame.CopyTo(&p.frame)
	if res != nil {
		r := *res
		p.result = &r
	}
	p.updated = time.Now()
}

// Clear forgets the last result, for example after the exercise changes.
func (p *Preview) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result = nil
}

// JPEG renders the latest frame with the result drawn on it. It returns
// false when no frame has been stored yet.
func (p *Preview) JPEG() ([]byte, bool) {
	p.mu.Lock()
	if p.frame.Empty() {
		p.mu.Unlock()
		return nil, false
	}
	img := p.frame.Clone()
	res := p.result
	p.mu.Unlock()
	defer img.Close()

	if res != nil {
		DrawResult(&img, res)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		log.WithError(err).Debug("preview encode failed")
		return nil, false
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

// LastUpdate returns when a frame was last stored.
func (p *Preview) LastUpdate() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updated
}

// Close releases the stored frame.
func (p *Preview) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame.Close()
	p.frame = gocv.NewMat()
	p.result = nil
}

// DrawResult writes the phase, rep count, angles and feedback onto img.
func DrawResult(img *gocv.Mat, res *exercise.Result) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 0}
	black := color.RGBA{A: 0}

	gocv.Rectangle(img, image.Rect(0, 0, img.Cols(), 70), black, -1)

	header := fmt.Sprintf("%s  reps: %d  %s", res.Exercise, res.Reps, res.Phase)
	gocv.PutText(img, header, image.Pt(10, 25), gocv.FontHersheySimplex, 0.6, white, 2)

	if res.Angles != nil {
		angles := fmt.Sprintf("knee %.0f  hip %.0f  trunk %.0f  (%s)",
			res.Angles.Knee, res.Angles.Hip, res.Angles.Trunk, res.Side)
		gocv.PutText(img, angles, image.Pt(10, 55), gocv.FontHersheySimplex, 0.5, white, 1)
	}

	if res.Feedback != "" {
		c, ok := severityColors[res.Severity]
		if !ok {
			c = white
		}
		y := img.Rows() - 20
		gocv.Rectangle(img, image.Rect(0, y-25, img.Cols(), img.Rows()), black, -1)
		gocv.PutText(img, res.Feedback, image.Pt(10, y), gocv.FontHersheySimplex, 0.6, c, 2)
	}
}

// StreamHandler serves the annotated preview as MJPEG.
type StreamHandler struct {
	preview  *Preview
	interval time.Duration
}

// NewStreamHandler creates a StreamHandler for preview.
func NewStreamHandler(preview *Preview) *StreamHandler {
	return &StreamHandler{preview: preview, interval: streamInterval}
}

// ServeHTTP streams frames until the client disconnects. Ticks without a
// frame are skipped.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		data, ok := h.preview.JPEG()
		if !ok {
			continue
		}

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
			return
		}
		if _, err := w.Write(data); err != nil {
			return
		}
		if _, err := w.Write([]byte("\r\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}
