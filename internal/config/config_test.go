package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/scoring"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "squat", cfg.Pipeline.Exercise)
	assert.Equal(t, time.Second, cfg.Pipeline.AnnounceCooldown)
	assert.Equal(t, exercise.DefaultConfig(), cfg.Exercise())
	assert.Equal(t, scoring.DefaultConfig(), cfg.Scoring)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "formcheck.toml"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Server.SessionIdle)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
	assert.False(t, cfg.Pipeline.Camera)
	assert.Equal(t, "deadlift", cfg.Pipeline.Exercise)
	assert.Equal(t, "tr", cfg.Pipeline.Language)
	assert.Equal(t, 1500*time.Millisecond, cfg.Pipeline.AnnounceCooldown)
	assert.Equal(t, 4, cfg.Detector.Workers)

	// Overridden keys change, the rest keep their defaults.
	defaults := exercise.DefaultConfig()
	assert.Equal(t, 50.0, cfg.Squat.OverLeanTrunkMax)
	assert.Equal(t, 6.0, cfg.Squat.Motion.Threshold)
	assert.Equal(t, defaults.Squat.Motion.Capacity, cfg.Squat.Motion.Capacity)
	assert.Equal(t, defaults.Squat.ButtWinkHipMin, cfg.Squat.ButtWinkHipMin)
	assert.Equal(t, exercise.Range{Min: 30, Max: 120}, cfg.Deadlift.StartKnee)
	assert.Equal(t, defaults.Deadlift.StartHip, cfg.Deadlift.StartHip)

	assert.False(t, cfg.Scoring.Deadlift.GenericWhenAllFail)
	assert.Equal(t, 0.4, cfg.Scoring.Deadlift.Visibility)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[server\naddr ="), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	wrong := filepath.Join(dir, "wrong.toml")
	require.NoError(t, os.WriteFile(wrong, []byte("[pipeline]\nexercise = \"bench\"\n"), 0o644))
	_, err = Load(wrong)
	assert.ErrorIs(t, err, exercise.ErrUnknownExercise)
}
