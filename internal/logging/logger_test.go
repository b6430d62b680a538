package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"trace":   logrus.TraceLevel,
		"DEBUG":   logrus.DebugLevel,
		"warn":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"fatal":   logrus.FatalLevel,
		"info":    logrus.InfoLevel,
		"":        logrus.InfoLevel,
		"verbose": logrus.InfoLevel,
	}
	for name, want := range tests {
		assert.Equal(t, want, GetLevel(name), name)
	}
}

func TestSetup_File(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	dir := t.TempDir()
	closer := Setup(Config{Level: "debug", JSON: true, File: filepath.Join(dir, "logs", "formcheck")})

	logrus.WithField("reps", 3).Info("set finished")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "logs", "formcheck.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"set finished"`)
	assert.Contains(t, string(data), `"reps":3`)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestSetup_Stdout(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	closer := Setup(DefaultConfig())
	assert.NoError(t, closer.Close())
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
