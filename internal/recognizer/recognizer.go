package recognizer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/MeKo-Tech/capgo/internal/ctc"
	"github.com/MeKo-Tech/capgo/internal/models"
	"github.com/MeKo-Tech/capgo/internal/onnx"
	"github.com/MeKo-Tech/capgo/internal/training"
	"github.com/MeKo-Tech/capgo/internal/vocab"
	onnxrt "github.com/yalue/onnxruntime_go"
)

// Config holds configuration for the CAPTCHA recognizer.
type Config struct {
	ModelPath   string // Path to the ONNX recognition model
	VocabPath   string // Path to the persisted vocabulary
	ImageWidth  int    // Fixed input width (timestep axis)
	ImageHeight int    // Fixed input height
	NumThreads  int    // CPU threads (0 for runtime default)
	Decoding    string // "greedy" or "beam"
	BeamWidth   int
	TopPaths    int
}

// DefaultConfig returns a default recognizer configuration.
func DefaultConfig() Config {
	return Config{
		ModelPath:   models.GetModelPath(""),
		VocabPath:   models.GetVocabularyPath(""),
		ImageWidth:  160,
		ImageHeight: 60,
		NumThreads:  0,
		Decoding:    "greedy",
		BeamWidth:   10,
		TopPaths:    1,
	}
}

// UpdateModelPath points ModelPath and VocabPath into modelsDir.
func (c *Config) UpdateModelPath(modelsDir string) {
	c.ModelPath = models.GetModelPath(modelsDir)
	c.VocabPath = models.GetVocabularyPath(modelsDir)
}

// Policy translates the config's decoding fields into a decode policy.
func (c *Config) Policy() training.Policy {
	if c.Decoding == "beam" && c.BeamWidth > 1 {
		return training.Policy{
			Mode: training.DecodeBeam,
			Beam: ctc.BeamConfig{Width: c.BeamWidth, TopPaths: max(1, c.TopPaths)},
		}
	}
	return training.Policy{Mode: training.DecodeGreedy}
}

// Recognizer runs the opaque CNN+BiRNN encoder via ONNX Runtime and decodes
// its per-timestep class probabilities into text.
type Recognizer struct {
	config     Config
	session    *onnxrt.DynamicAdvancedSession
	inputInfo  onnxrt.InputOutputInfo
	outputInfo onnxrt.InputOutputInfo
	objective  *training.Objective
	mu         sync.RWMutex
}

// New creates a recognizer. The vocabulary is loaded from config.VocabPath
// and checked against the model's class axis; any mismatch is fatal here,
// before a single image is touched.
func New(config Config) (*Recognizer, error) {
	if config.ModelPath == "" {
		return nil, errors.New("model path cannot be empty")
	}
	if config.VocabPath == "" {
		return nil, errors.New("vocabulary path cannot be empty")
	}
	if config.ImageWidth <= 0 || config.ImageHeight <= 0 {
		return nil, fmt.Errorf("invalid input geometry %dx%d", config.ImageWidth, config.ImageHeight)
	}
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", config.ModelPath)
	}

	voc, err := vocab.Load(config.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	slog.Debug("Vocabulary loaded", "path", config.VocabPath, "size", voc.Size(), "blank_id", voc.BlankID())

	objective, err := training.NewObjective(voc)
	if err != nil {
		return nil, err
	}

	if err := onnx.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize ONNX Runtime: %w", err)
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(config.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("get model input/output info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("expected 1 model input, got %d", len(inputs))
	}
	if len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 model output, got %d", len(outputs))
	}
	inputInfo, outputInfo := inputs[0], outputs[0]
	if len(inputInfo.Dimensions) != 4 {
		return nil, fmt.Errorf("expected 4D input tensor, got %dD", len(inputInfo.Dimensions))
	}
	if err := checkClassAxis(outputInfo.Dimensions, voc.NumClasses()); err != nil {
		return nil, err
	}

	opts, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer func() { _ = opts.Destroy() }()
	if config.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(config.NumThreads); err != nil {
			return nil, fmt.Errorf("set thread count: %w", err)
		}
	}

	session, err := onnxrt.NewDynamicAdvancedSession(
		config.ModelPath,
		[]string{inputInfo.Name},
		[]string{outputInfo.Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("create inference session: %w", err)
	}

	slog.Debug("Recognizer ready",
		"model", config.ModelPath,
		"input", inputInfo.Name,
		"output", outputInfo.Name,
		"geometry", fmt.Sprintf("%dx%d", config.ImageWidth, config.ImageHeight))

	return &Recognizer{
		config:     config,
		session:    session,
		inputInfo:  inputInfo,
		outputInfo: outputInfo,
		objective:  objective,
	}, nil
}

// checkClassAxis verifies that some output axis carries exactly numClasses
// entries. Dynamic (-1) axes are accepted; a static shape with no matching
// axis means the model was exported against a different vocabulary.
func checkClassAxis(dims []int64, numClasses int) error {
	static := false
	for _, d := range dims {
		if d < 0 {
			return nil // dynamic axis, checked again per batch
		}
		if d > 1 {
			static = true
		}
		if int(d) == numClasses {
			return nil
		}
	}
	if !static {
		return nil
	}
	return fmt.Errorf("model output shape %v has no axis of %d classes: vocabulary does not match model",
		dims, numClasses)
}

// Vocabulary returns the loaded vocabulary.
func (r *Recognizer) Vocabulary() *vocab.Vocabulary { return r.objective.Vocabulary() }

// Policy returns the decode policy this recognizer was configured with.
func (r *Recognizer) Policy() training.Policy { return r.config.Policy() }

// Objective returns the loss/decode entry points bound to this model's
// vocabulary, for callers scoring labeled batches.
func (r *Recognizer) Objective() *training.Objective { return r.objective }

// Close releases the ONNX session.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		if err := r.session.Destroy(); err != nil {
			return fmt.Errorf("destroy session: %w", err)
		}
		r.session = nil
	}
	return nil
}
