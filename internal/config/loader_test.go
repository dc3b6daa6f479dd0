package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLoader builds a loader with a fresh viper instance so that tests
// do not leak state through the global one.
func newTestLoader() *Loader {
	return &Loader{v: viper.New()}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)

	defaults := DefaultConfig()
	assert.Equal(t, defaults.ModelsDir, cfg.ModelsDir)
	assert.Equal(t, defaults.Recognizer.Decoding, cfg.Recognizer.Decoding)
	assert.Equal(t, defaults.Server.Port, cfg.Server.Port)
}

func TestLoadWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capgo.yaml")
	content := `
log_level: debug
recognizer:
  decoding: beam
  beam_width: 25
  top_paths: 3
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := newTestLoader().LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "beam", cfg.Recognizer.Decoding)
	assert.Equal(t, 25, cfg.Recognizer.BeamWidth)
	assert.Equal(t, 3, cfg.Recognizer.TopPaths)
	assert.Equal(t, 9090, cfg.Server.Port)

	// Unset keys fall back to defaults
	assert.Equal(t, DefaultConfig().Recognizer.ImageWidth, cfg.Recognizer.ImageWidth)
}

func TestLoadWithFileMissing(t *testing.T) {
	_, err := newTestLoader().LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadWithFileInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capgo.yaml")
	content := `
recognizer:
  decoding: viterbi
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := newTestLoader().LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestEnvironmentOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAPGO_LOG_LEVEL", "warn")

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}
