package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "models", cfg.ModelsDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, 160, cfg.Recognizer.ImageWidth)
	assert.Equal(t, 60, cfg.Recognizer.ImageHeight)
	assert.Equal(t, "greedy", cfg.Recognizer.Decoding)
	assert.Equal(t, 10, cfg.Recognizer.BeamWidth)
	assert.Equal(t, 1, cfg.Recognizer.TopPaths)
	assert.InDelta(t, 0.1, cfg.Corpus.ValFraction, 1e-9)
	assert.Equal(t, 32, cfg.Corpus.BatchSize)
	assert.Equal(t, "text", cfg.Batch.Format)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)

	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "chatty" },
			wantErr: "invalid log level",
		},
		{
			name:    "zero width",
			mutate:  func(c *Config) { c.Recognizer.ImageWidth = 0 },
			wantErr: "geometry",
		},
		{
			name:    "negative height",
			mutate:  func(c *Config) { c.Recognizer.ImageHeight = -3 },
			wantErr: "geometry",
		},
		{
			name:    "unknown decoding",
			mutate:  func(c *Config) { c.Recognizer.Decoding = "viterbi" },
			wantErr: "invalid decoding policy",
		},
		{
			name:    "beam width zero",
			mutate:  func(c *Config) { c.Recognizer.BeamWidth = 0 },
			wantErr: "beam width",
		},
		{
			name: "top paths above width",
			mutate: func(c *Config) {
				c.Recognizer.BeamWidth = 4
				c.Recognizer.TopPaths = 5
			},
			wantErr: "top paths",
		},
		{
			name:    "val fraction one",
			mutate:  func(c *Config) { c.Corpus.ValFraction = 1.0 },
			wantErr: "validation fraction",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Corpus.BatchSize = 0 },
			wantErr: "batch size",
		},
		{
			name:    "negative workers",
			mutate:  func(c *Config) { c.Batch.Workers = -1 },
			wantErr: "workers",
		},
		{
			name:    "bad batch format",
			mutate:  func(c *Config) { c.Batch.Format = "xml" },
			wantErr: "invalid batch format",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Server.TimeoutSeconds = 0 },
			wantErr: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToRecognizerConfigResolvesPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelsDir = "testdata/models"

	rc := cfg.ToRecognizerConfig()
	assert.Equal(t, filepath.Join("testdata/models", "captcha_rec.onnx"), rc.ModelPath)
	assert.Equal(t, filepath.Join("testdata/models", "captcha_vocab.txt"), rc.VocabPath)
	assert.Equal(t, "greedy", rc.Decoding)
	assert.Equal(t, 160, rc.ImageWidth)
	assert.Equal(t, 60, rc.ImageHeight)
}

func TestToRecognizerConfigKeepsExplicitPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Recognizer.ModelPath = "/opt/models/rec.onnx"
	cfg.Recognizer.VocabPath = "/opt/models/vocab.txt"
	cfg.Recognizer.Decoding = "beam"

	rc := cfg.ToRecognizerConfig()
	assert.Equal(t, "/opt/models/rec.onnx", rc.ModelPath)
	assert.Equal(t, "/opt/models/vocab.txt", rc.VocabPath)
	assert.Equal(t, "beam", rc.Decoding)
}
