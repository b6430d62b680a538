package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/capture"
	"github.com/ayusman/formcheck/internal/session"
)

// Run opens the camera and processes frames until ctx is done.
//
// Every captured frame goes through pose detection; motion only picks the
// capture rate. The loop starts at IdleFPS, switches to ActiveFPS as soon as
// a frame moves and drops back after IdleAfter without motion.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrRunning
	}
	a.running = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	cam := a.cfg.Camera
	if err := cam.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := cam.Close(); err != nil {
			log.WithError(err).Warn("failed to close camera")
		}
		a.motion.Reset()
		a.setActiveGauge(false)
	}()

	cam.SetFPS(a.cfg.Pipeline.IdleFPS)
	ticker := time.NewTicker(a.interval())
	defer ticker.Stop()

	log.WithField("exercise", a.Exercise()).Info("capture pipeline started")
	for {
		select {
		case <-ctx.Done():
			log.Info("capture pipeline stopped")
			return nil
		case <-ticker.C:
			if !a.Enabled() {
				continue
			}

			frame, err := cam.ReadFrame()
			if err != nil {
				log.WithError(err).Debug("failed to read frame")
				continue
			}

			if a.step(ctx, frame, time.Now()) {
				ticker.Reset(a.interval())
			}
			frame.Close()
		}
	}
}

func (a *App) interval() time.Duration {
	return a.activity.Interval(a.cfg.Pipeline.IdleFPS, a.cfg.Pipeline.ActiveFPS)
}

// step processes one frame and reports whether the capture rate changed.
func (a *App) step(ctx context.Context, frame *gocv.Mat, now time.Time) bool {
	moved, _ := a.motion.Detect(frame)
	active, changed := a.activity.Observe(moved, now)
	if changed {
		fps := a.cfg.Pipeline.IdleFPS
		if active {
			fps = a.cfg.Pipeline.ActiveFPS
		}
		a.cfg.Camera.SetFPS(fps)
		a.setActiveGauge(active)
		log.WithFields(log.Fields{"active": active, "fps": fps}).Debug("capture rate changed")
	}

	// A failed detection counts as a frame with nobody in it, so the tracker
	// drops the repetition in progress instead of resuming it later.
	pose, err := a.cfg.Detector.Detect(ctx, frame)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return changed
		}
		log.WithError(err).Error("pose detection failed")
		pose = nil
	}

	res, err := a.cfg.Sessions.Process(LiveSession, pose)
	if errors.Is(err, session.ErrNotFound) {
		// Pruned while paused or closed through the API.
		if err = a.openLive(); err == nil {
			res, err = a.cfg.Sessions.Process(LiveSession, pose)
		}
	}
	if err != nil {
		log.WithError(err).Error("failed to process frame")
		return changed
	}

	if a.cfg.Preview != nil {
		a.cfg.Preview.Update(frame, &res)
	}
	return changed
}

func (a *App) setActiveGauge(active bool) {
	if a.cfg.Metrics == nil {
		return
	}
	if active {
		a.cfg.Metrics.GaugeCaptureActive.Set(1)
	} else {
		a.cfg.Metrics.GaugeCaptureActive.Set(0)
	}
}

// Close releases the motion detector. Run must have returned.
func (a *App) Close() {
	a.motion.Close()
}

// Camera returns the capture device.
func (a *App) Camera() capture.Camera {
	return a.cfg.Camera
}
