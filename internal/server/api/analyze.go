package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/feedback"
	"github.com/ayusman/formcheck/internal/metrics"
	"github.com/ayusman/formcheck/internal/scoring"
)

// PoseDetector finds the pose in a decoded image.
type PoseDetector interface {
	Detect(ctx context.Context, frame *gocv.Mat) (*detector.PoseFrame, error)
}

// AnalyzeHandler grades the form in a single still image.
type AnalyzeHandler struct {
	detector PoseDetector
	cfg      scoring.Config
	catalog  *feedback.Catalog
	metrics  *metrics.Manager
}

// NewAnalyzeHandler creates an AnalyzeHandler. catalog and m may be nil.
func NewAnalyzeHandler(d PoseDetector, cfg scoring.Config, catalog *feedback.Catalog, m *metrics.Manager) *AnalyzeHandler {
	if catalog == nil {
		catalog = feedback.Default()
	}
	return &AnalyzeHandler{detector: d, cfg: cfg, catalog: catalog, metrics: m}
}

// Register adds the analysis route to r.
func (h *AnalyzeHandler) Register(r *mux.Router) {
	r.HandleFunc("/analyze-posture", h.HandleAnalyze).Methods("POST")
	r.HandleFunc("/api/analyze", h.HandleAnalyze).Methods("POST")
}

type analyzeRequest struct {
	// Image is a base64 encoded JPEG or PNG, optionally as a data URL.
	Image        string `json:"image"`
	ExerciseType string `json:"exerciseType"`
	Language     string `json:"language"`
}

// decodeImage turns the base64 payload into a BGR image. The caller closes
// the returned Mat.
func decodeImage(payload string) (gocv.Mat, error) {
	if i := strings.Index(payload, ";base64,"); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+len(";base64,"):]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return gocv.NewMat(), errors.New("empty image")
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return gocv.NewMat(), err
		}
	}

	img, err := gocv.IMDecode(raw, gocv.IMReadColor)
	if err != nil {
		return img, err
	}
	if img.Empty() {
		return img, errors.New("image could not be decoded")
	}
	return img, nil
}

// HandleAnalyze handles POST /analyze-posture. It answers
// {"score": ..., "feedback": ...}; an unknown exercise scores 0 with an
// explanation, a failed detection scores 0 as if nobody were in the image,
// and an image that cannot be decoded is a 400.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	decodeErr := decodeJSON(w, r, &req)

	lang := req.Language
	if lang == "" {
		lang = r.Header.Get("Accept-Language")
	}
	text := h.catalog.Translator(lang)
	badImage := text.Text(feedback.New(feedback.ScoreBadImage, feedback.SeverityError))

	if decodeErr != nil {
		writeError(w, http.StatusBadRequest, badImage)
		return
	}

	img, err := decodeImage(req.Image)
	defer img.Close()
	if err != nil {
		log.WithError(err).Debug("analyze: bad image")
		writeError(w, http.StatusBadRequest, badImage)
		return
	}

	scorer := scoring.New(h.cfg, text)

	kind := exercise.Kind(req.ExerciseType)
	if !kind.Valid() {
		writeJSON(w, http.StatusOK, scorer.Score(nil, req.ExerciseType))
		return
	}

	// A failed detection grades like an image with nobody in it.
	pose, err := h.detector.Detect(r.Context(), &img)
	if err != nil {
		log.WithError(err).WithField("exercise", kind).Error("analyze: pose detection failed")
		pose = nil
	}
	if pose != nil && pose.Width == 0 {
		sized := *pose
		sized.Width, sized.Height = img.Cols(), img.Rows()
		pose = &sized
	}

	res := scorer.Score(pose, req.ExerciseType)
	if h.metrics != nil {
		h.metrics.CounterScores.WithLabelValues(string(kind)).Inc()
		h.metrics.HistScore.WithLabelValues(string(kind)).Observe(res.Score)
	}

	log.WithFields(log.Fields{"exercise": kind, "score": res.Score}).Debug("analyzed posture")
	writeJSON(w, http.StatusOK, res)
}
