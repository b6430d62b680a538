// Package config loads the formcheck TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/logging"
	"github.com/ayusman/formcheck/internal/scoring"
)

// Server configures the HTTP server.
type Server struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
	// SessionIdle closes remote sessions that stop sending frames.
	SessionIdle time.Duration `toml:"session_idle"`
}

// Pipeline configures the local camera pipeline.
type Pipeline struct {
	// Camera disables the local camera pipeline when false.
	Camera          bool    `toml:"camera"`
	CameraID        int     `toml:"camera_id"`
	Exercise        string  `toml:"exercise"`
	Language        string  `toml:"language"`
	MotionThreshold float64 `toml:"motion_threshold"`
	IdleFPS         int     `toml:"idle_fps"`
	ActiveFPS       int     `toml:"active_fps"`
	// IdleAfter switches back to IdleFPS after this long without motion.
	IdleAfter time.Duration `toml:"idle_after"`
	// AnnounceCooldown is the minimum gap between two spoken messages.
	AnnounceCooldown time.Duration `toml:"announce_cooldown"`
	// Tray shows the system tray menu.
	Tray bool `toml:"tray"`
}

// Plugins configures plugin discovery and execution.
type Plugins struct {
	Dir     string        `toml:"dir"`
	Timeout time.Duration `toml:"timeout"`
}

// Store configures the SQLite database.
type Store struct {
	Path string `toml:"path"`
}

// Config is the whole configuration file.
type Config struct {
	Server   Server                  `toml:"server"`
	Logging  logging.Config          `toml:"logging"`
	Pipeline Pipeline                `toml:"pipeline"`
	Detector detector.Config         `toml:"detector"`
	Plugins  Plugins                 `toml:"plugins"`
	Store    Store                   `toml:"store"`
	Squat    exercise.SquatConfig    `toml:"squat"`
	Deadlift exercise.DeadliftConfig `toml:"deadlift"`
	Scoring  scoring.Config          `toml:"scoring"`
}

// Default returns the configuration used when no file is given. dataDir
// holds the database, plugins and logs.
func Default(dataDir string) Config {
	ex := exercise.DefaultConfig()
	return Config{
		Server: Server{
			Addr:        ":8080",
			SessionIdle: 10 * time.Minute,
		},
		Logging: logging.DefaultConfig(),
		Pipeline: Pipeline{
			Camera:           true,
			CameraID:         0,
			Exercise:         string(exercise.Squat),
			MotionThreshold:  1.0,
			IdleFPS:          5,
			ActiveFPS:        15,
			IdleAfter:        2 * time.Second,
			AnnounceCooldown: time.Second,
			Tray:             true,
		},
		Detector: detector.DefaultConfig(),
		Plugins: Plugins{
			Dir:     filepath.Join(dataDir, "plugins"),
			Timeout: 5 * time.Second,
		},
		Store: Store{
			Path: filepath.Join(dataDir, "formcheck.db"),
		},
		Squat:    ex.Squat,
		Deadlift: ex.Deadlift,
		Scoring:  scoring.DefaultConfig(),
	}
}

// DataDir returns ~/.formcheck, falling back to ./.formcheck.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".formcheck"
	}
	return filepath.Join(home, ".formcheck")
}

// Load reads path over the defaults. A missing file is not an error when
// path is empty or the file does not exist; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default(DataDir())
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.WithField("path", path).Warn("config file not found, using defaults")
			return cfg, nil
		}
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}

	for _, key := range md.Undecoded() {
		log.WithField("key", key.String()).Warn("unknown config key")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c Config) Validate() error {
	if _, err := exercise.ParseKind(c.Pipeline.Exercise); err != nil {
		return fmt.Errorf("pipeline.exercise: %w", err)
	}
	if c.Pipeline.IdleFPS <= 0 || c.Pipeline.ActiveFPS <= 0 {
		return errors.New("pipeline fps must be positive")
	}
	if c.Detector.Workers < 0 {
		return errors.New("detector.workers must not be negative")
	}
	return nil
}

// Exercise returns the tracker thresholds.
func (c Config) Exercise() exercise.Config {
	return exercise.Config{Squat: c.Squat, Deadlift: c.Deadlift}
}
