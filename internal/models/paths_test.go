package models

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetModelsDir_ExplicitWins(t *testing.T) {
	assert.Equal(t, "/tmp/models", GetModelsDir("/tmp/models"))
}

func TestGetModelsDir_EnvOverride(t *testing.T) {
	t.Setenv(EnvModelsDir, "/opt/capgo/models")
	assert.Equal(t, "/opt/capgo/models", GetModelsDir(""))
}

func TestArtifactPaths(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, RecognitionModel), GetModelPath(dir))
	assert.Equal(t, filepath.Join(dir, VocabularyFile), GetVocabularyPath(dir))
}
