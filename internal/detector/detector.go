package detector

import "gocv.io/x/gocv"

// Detector defines the interface for pose estimation engines.
type Detector interface {
	// Detect analyzes a video frame and returns the detected pose.
	// Returns nil when no person is in the frame.
	Detect(frame *gocv.Mat) (*PoseFrame, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// ScriptPath overrides the location of the pose service script.
	ScriptPath string `toml:"script_path"`

	// PythonPath overrides the interpreter used to run the service.
	PythonPath string `toml:"python_path"`

	// ModelComplexity selects the MediaPipe pose model (0, 1 or 2).
	ModelComplexity int `toml:"model_complexity"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `toml:"min_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `toml:"min_tracking_confidence"`

	// Workers is the number of engine instances kept in a Pool.
	Workers int `toml:"workers"`

	// IdleTimeoutSec shuts the service down after this many idle seconds.
	IdleTimeoutSec int `toml:"idle_timeout_sec"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity: 1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		Workers:         2,
		IdleTimeoutSec:  30,
	}
}
