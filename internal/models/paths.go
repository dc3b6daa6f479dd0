package models

import (
	"errors"
	"os"
	"path/filepath"
)

// Artifact file names. A trained model ships as the ONNX graph plus its
// vocabulary; the two are only valid together.
const (
	RecognitionModel = "captcha_rec.onnx"
	VocabularyFile   = "captcha_vocab.txt"
)

// DefaultModelsDir is the models directory relative to the project root.
const DefaultModelsDir = "models"

// EnvModelsDir overrides the models directory.
const EnvModelsDir = "CAPGO_MODELS_DIR"

// findProjectRoot finds the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.New("could not find project root (go.mod not found)")
}

// GetModelsDir returns the models directory path.
// Priority: explicit modelsDir parameter, environment variable, project root
// + default, bare default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}
	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}
	return DefaultModelsDir
}

// GetModelPath returns the path of the recognition model.
func GetModelPath(modelsDir string) string {
	return filepath.Join(GetModelsDir(modelsDir), RecognitionModel)
}

// GetVocabularyPath returns the path of the vocabulary that belongs to the
// recognition model.
func GetVocabularyPath(modelsDir string) string {
	return filepath.Join(GetModelsDir(modelsDir), VocabularyFile)
}
