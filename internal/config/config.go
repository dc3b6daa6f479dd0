// Package config defines the capgo application configuration and its
// loading from files, environment variables, and command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/capgo/internal/models"
	"github.com/MeKo-Tech/capgo/internal/recognizer"
)

// Config represents the complete configuration for the capgo application.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Recognition settings
	Recognizer RecognizerConfig `mapstructure:"recognizer" yaml:"recognizer" json:"recognizer"`

	// Labeled-corpus settings (eval, vocab build)
	Corpus CorpusConfig `mapstructure:"corpus" yaml:"corpus" json:"corpus"`

	// Batch processing settings
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Server settings (serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// RecognizerConfig contains recognition settings.
type RecognizerConfig struct {
	ModelPath   string `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	VocabPath   string `mapstructure:"vocab_path" yaml:"vocab_path" json:"vocab_path"`
	ImageWidth  int    `mapstructure:"image_width" yaml:"image_width" json:"image_width"`
	ImageHeight int    `mapstructure:"image_height" yaml:"image_height" json:"image_height"`
	NumThreads  int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	Decoding    string `mapstructure:"decoding" yaml:"decoding" json:"decoding"`
	BeamWidth   int    `mapstructure:"beam_width" yaml:"beam_width" json:"beam_width"`
	TopPaths    int    `mapstructure:"top_paths" yaml:"top_paths" json:"top_paths"`
	Warmup      int    `mapstructure:"warmup" yaml:"warmup" json:"warmup"`
}

// CorpusConfig contains labeled-corpus settings.
type CorpusConfig struct {
	ValFraction float64 `mapstructure:"val_fraction" yaml:"val_fraction" json:"val_fraction"`
	SplitSeed   int64   `mapstructure:"split_seed" yaml:"split_seed" json:"split_seed"`
	BatchSize   int     `mapstructure:"batch_size" yaml:"batch_size" json:"batch_size"`
}

// BatchConfig contains bulk-processing settings.
type BatchConfig struct {
	Workers       int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	PrefetchDepth int    `mapstructure:"prefetch_depth" yaml:"prefetch_depth" json:"prefetch_depth"`
	Format        string `mapstructure:"format" yaml:"format" json:"format"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string `mapstructure:"host" yaml:"host" json:"host"`
	Port           int    `mapstructure:"port" yaml:"port" json:"port"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes" json:"max_upload_bytes"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ModelsDir: models.DefaultModelsDir,
		LogLevel:  "info",
		Verbose:   false,
		Recognizer: RecognizerConfig{
			ImageWidth:  160,
			ImageHeight: 60,
			NumThreads:  0,
			Decoding:    "greedy",
			BeamWidth:   10,
			TopPaths:    1,
			Warmup:      0,
		},
		Corpus: CorpusConfig{
			ValFraction: 0.1,
			SplitSeed:   1,
			BatchSize:   32,
		},
		Batch: BatchConfig{
			Workers:       0,
			PrefetchDepth: 0,
			Format:        "text",
		},
		Server: ServerConfig{
			Host:           "localhost",
			Port:           8080,
			TimeoutSeconds: 30,
			MaxUploadBytes: 8 << 20,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	if c.Recognizer.ImageWidth <= 0 || c.Recognizer.ImageHeight <= 0 {
		return fmt.Errorf("invalid recognition geometry %dx%d",
			c.Recognizer.ImageWidth, c.Recognizer.ImageHeight)
	}
	switch c.Recognizer.Decoding {
	case "greedy", "beam", "":
	default:
		return fmt.Errorf("invalid decoding policy: %s (must be greedy or beam)", c.Recognizer.Decoding)
	}
	if c.Recognizer.BeamWidth < 1 {
		return fmt.Errorf("beam width must be >= 1, got %d", c.Recognizer.BeamWidth)
	}
	if c.Recognizer.TopPaths < 1 || c.Recognizer.TopPaths > c.Recognizer.BeamWidth {
		return fmt.Errorf("top paths %d outside [1, %d]", c.Recognizer.TopPaths, c.Recognizer.BeamWidth)
	}
	if c.Corpus.ValFraction < 0 || c.Corpus.ValFraction >= 1 {
		return fmt.Errorf("validation fraction %v outside [0, 1)", c.Corpus.ValFraction)
	}
	if c.Corpus.BatchSize < 1 {
		return fmt.Errorf("batch size must be >= 1, got %d", c.Corpus.BatchSize)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Batch.Workers)
	}
	switch c.Batch.Format {
	case "text", "json", "csv", "":
	default:
		return fmt.Errorf("invalid batch format: %s", c.Batch.Format)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.TimeoutSeconds < 1 {
		return fmt.Errorf("server timeout must be >= 1s, got %d", c.Server.TimeoutSeconds)
	}
	if c.Server.MaxUploadBytes < 1 {
		return fmt.Errorf("max upload size must be >= 1, got %d", c.Server.MaxUploadBytes)
	}
	return nil
}

// ToRecognizerConfig materializes a recognizer.Config, resolving artifact
// paths against ModelsDir when they were not set explicitly.
func (c *Config) ToRecognizerConfig() recognizer.Config {
	rc := recognizer.Config{
		ModelPath:   c.Recognizer.ModelPath,
		VocabPath:   c.Recognizer.VocabPath,
		ImageWidth:  c.Recognizer.ImageWidth,
		ImageHeight: c.Recognizer.ImageHeight,
		NumThreads:  c.Recognizer.NumThreads,
		Decoding:    c.Recognizer.Decoding,
		BeamWidth:   c.Recognizer.BeamWidth,
		TopPaths:    c.Recognizer.TopPaths,
	}
	if rc.ModelPath == "" {
		rc.ModelPath = models.GetModelPath(c.ModelsDir)
	}
	if rc.VocabPath == "" {
		rc.VocabPath = models.GetVocabularyPath(c.ModelsDir)
	}
	if rc.Decoding == "" {
		rc.Decoding = "greedy"
	}
	return rc
}
