// Package app runs the local camera pipeline: frames from the camera are
// gated by motion, passed through the pose engine and fed to the tracker
// of the "live" session, whose results reach the preview stream, the live
// websocket feed and the plugin dispatcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/capture"
	"github.com/ayusman/formcheck/internal/config"
	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/metrics"
	"github.com/ayusman/formcheck/internal/session"
	"github.com/ayusman/formcheck/internal/store"
)

// LiveSession is the ID of the session fed by the local camera.
const LiveSession = "live"

// ErrRunning is returned by Run when the pipeline is already running.
var ErrRunning = errors.New("pipeline already running")

// Detector finds the pose in a camera frame. *detector.Pool satisfies it.
type Detector interface {
	Detect(ctx context.Context, frame *gocv.Mat) (*detector.PoseFrame, error)
}

// FrameSink receives every processed frame with its result.
type FrameSink interface {
	Update(frame *gocv.Mat, res *exercise.Result)
}

// Config holds the pipeline dependencies. Camera defaults to the device in
// Pipeline.CameraID; Store, Preview and Metrics are optional.
type Config struct {
	Pipeline   config.Pipeline
	Thresholds exercise.Config
	Camera     capture.Camera
	Detector   Detector
	Sessions   *session.Manager
	Store      *store.Store
	Preview    FrameSink
	Metrics    *metrics.Manager
}

// App owns the live session and the capture loop.
type App struct {
	cfg      Config
	motion   *capture.MotionDetector
	activity *capture.Activity

	mu       sync.RWMutex
	enabled  bool
	exercise exercise.Kind
	language string
	running  bool
}

// New creates an App. Call Load before Run.
func New(cfg Config) *App {
	if cfg.Camera == nil {
		cfg.Camera = capture.NewCamera(cfg.Pipeline.CameraID)
	}
	threshold := cfg.Pipeline.MotionThreshold
	if threshold <= 0 {
		threshold = 1.0
	}

	kind, err := exercise.ParseKind(cfg.Pipeline.Exercise)
	if err != nil {
		kind = exercise.Squat
	}

	return &App{
		cfg:      cfg,
		motion:   capture.NewMotionDetector(threshold),
		activity: capture.NewActivity(cfg.Pipeline.IdleAfter),
		enabled:  true,
		exercise: kind,
		language: cfg.Pipeline.Language,
	}
}

// Load restores the stored settings, applies the active tuning profiles and
// opens the live session.
func (a *App) Load() error {
	if a.cfg.Store != nil {
		all, err := a.cfg.Store.Settings().All()
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		for key, value := range all {
			if err := a.apply(key, value); err != nil {
				log.WithError(err).WithField("key", key).Warn("ignoring stored setting")
			}
		}
	}
	return a.ApplyProfiles()
}

// ApplyProfiles layers the active profile of each exercise over the file
// thresholds and reopens the live session with the result. A profile that
// no longer decodes is skipped.
func (a *App) ApplyProfiles() error {
	cfg := a.cfg.Thresholds
	if a.cfg.Store != nil {
		for _, kind := range exercise.Kinds() {
			p, err := a.cfg.Store.Profiles().GetActive(string(kind))
			if err != nil {
				return fmt.Errorf("load %s profile: %w", kind, err)
			}
			if p == nil {
				continue
			}
			next, err := cfg.WithOverrides(kind, p.Thresholds)
			if err != nil {
				log.WithError(err).WithField("profile", p.Name).Warn("skipping invalid profile")
				continue
			}
			cfg = next
			log.WithFields(log.Fields{"profile": p.Name, "exercise": kind}).Info("tuning profile applied")
		}
	}
	a.cfg.Sessions.SetConfig(cfg)
	return a.openLive()
}

// ApplySetting reacts to a setting stored elsewhere, such as through the
// API. An empty value restores the configured default.
func (a *App) ApplySetting(key, value string) {
	if err := a.apply(key, value); err != nil {
		log.WithError(err).WithField("key", key).Warn("invalid setting")
	}
}

// Save stores a setting and applies it.
func (a *App) Save(key, value string) error {
	if a.cfg.Store != nil {
		if err := a.cfg.Store.Settings().Set(key, value); err != nil {
			return err
		}
	}
	return a.apply(key, value)
}

func (a *App) apply(key, value string) error {
	switch key {
	case store.SettingEnabled:
		enabled := true
		if value != "" {
			v, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			enabled = v
		}
		a.SetEnabled(enabled)
		return nil
	case store.SettingExercise:
		if value == "" {
			value = a.cfg.Pipeline.Exercise
		}
		kind, err := exercise.ParseKind(value)
		if err != nil {
			return err
		}
		return a.SetExercise(kind)
	case store.SettingLanguage:
		if value == "" {
			value = a.cfg.Pipeline.Language
		}
		return a.SetLanguage(value)
	}
	return fmt.Errorf("unknown setting %q", key)
}

// SetEnabled pauses or resumes frame processing.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()

	if changed {
		log.WithField("enabled", enabled).Info("tracking toggled")
	}
}

// Enabled reports whether frames are processed.
func (a *App) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetExercise switches the live session to kind, starting a new set.
func (a *App) SetExercise(kind exercise.Kind) error {
	a.mu.Lock()
	same := a.exercise == kind
	a.exercise = kind
	a.mu.Unlock()

	if same && a.liveOpen() {
		return nil
	}
	return a.openLive()
}

// Exercise returns the exercise tracked by the live session.
func (a *App) Exercise() exercise.Kind {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.exercise
}

// SetLanguage switches the feedback language, starting a new set.
func (a *App) SetLanguage(lang string) error {
	a.mu.Lock()
	same := a.language == lang
	a.language = lang
	a.mu.Unlock()

	if same && a.liveOpen() {
		return nil
	}
	return a.openLive()
}

// Language returns the feedback language of the live session.
func (a *App) Language() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.language
}

// Snapshot returns the state of the live session.
func (a *App) Snapshot() (session.Snapshot, error) {
	s, err := a.cfg.Sessions.Get(LiveSession)
	if err != nil {
		return session.Snapshot{}, err
	}
	return s.Snapshot(), nil
}

func (a *App) liveOpen() bool {
	_, err := a.cfg.Sessions.Get(LiveSession)
	return err == nil
}

func (a *App) openLive() error {
	a.mu.RLock()
	kind, lang := a.exercise, a.language
	a.mu.RUnlock()

	if _, err := a.cfg.Sessions.CreateWithID(LiveSession, string(kind), lang); err != nil {
		return fmt.Errorf("open live session: %w", err)
	}
	return nil
}
