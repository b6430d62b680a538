// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how logs are written.
type Config struct {
	// Level is one of trace, debug, info, warn, error, fatal.
	Level string `toml:"level"`
	// JSON switches to the JSON formatter.
	JSON bool `toml:"json"`
	// File enables rotated file output when set.
	File string `toml:"file"`
	// Stdout keeps writing to stdout alongside File.
	Stdout bool `toml:"stdout"`
	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int `toml:"max_size_mb"`
	// MaxBackups is the number of rotated files kept; 0 keeps all.
	MaxBackups int `toml:"max_backups"`
}

// DefaultConfig logs info and above to stdout as text.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Stdout:    true,
		MaxSizeMB: 20,
	}
}

// Setup applies cfg to the standard logrus logger and returns the writer it
// logs to. Closing the returned closer flushes the rotated file, if any.
func Setup(cfg Config) io.Closer {
	if cfg.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logrus.SetLevel(GetLevel(cfg.Level))

	if cfg.File == "" {
		logrus.SetOutput(os.Stdout)
		logrus.Debug("writing logs only to STDOUT")
		return nopCloser{}
	}

	if !strings.HasSuffix(cfg.File, ".log") {
		cfg.File += ".log"
	}
	if dir := filepath.Dir(cfg.File); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logrus.SetOutput(os.Stdout)
			logrus.WithError(err).Error("cannot create log directory, logging to STDOUT")
			return nopCloser{}
		}
	}

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 20
	}
	rotated := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize, // megabytes
		MaxBackups: cfg.MaxBackups,
		LocalTime:  true,
		Compress:   true,
	}

	if cfg.Stdout {
		logrus.SetOutput(io.MultiWriter(os.Stdout, rotated))
		logrus.Debug("writing logs to file and STDOUT")
	} else {
		logrus.SetOutput(rotated)
	}

	return rotated
}

// GetLevel parses a level name. Unknown names map to info.
func GetLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
