package recognizer

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/MeKo-Tech/capgo/internal/common"
	"github.com/MeKo-Tech/capgo/internal/ctc"
	"github.com/MeKo-Tech/capgo/internal/mempool"
	"github.com/MeKo-Tech/capgo/internal/onnx"
	onnxrt "github.com/yalue/onnxruntime_go"
)

// Result represents the recognition output for one CAPTCHA image.
type Result struct {
	Text       string
	Confidence float64
	Score      float64 // log-probability of the decoded path
	IDs        []int
	TimingNs   struct {
		Preprocess int64
		Model      int64
		Decode     int64
		Total      int64
	}
}

// Recognize performs preprocessing, inference and decoding for one image.
func (r *Recognizer) Recognize(img image.Image) (*Result, error) {
	results, err := r.RecognizeBatch([]image.Image{img})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// RecognizeBatch recognizes several images in one forward pass.
func (r *Recognizer) RecognizeBatch(images []image.Image) ([]*Result, error) {
	timer := common.NewTimer()

	tensor, buf, err := r.PreprocessBatch(images)
	if err != nil {
		return nil, err
	}
	preprocessNs := timer.Lap().Nanoseconds()

	lattice, modelNs, err := r.forward(tensor)
	mempool.PutFloat32(buf)
	if err != nil {
		return nil, err
	}
	timer.Lap()

	preds, err := r.objective.Predict(lattice, r.config.Policy())
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	decodeNs := timer.Lap().Nanoseconds()
	totalNs := timer.Elapsed().Nanoseconds()

	out := make([]*Result, len(preds))
	for i, p := range preds {
		res := &Result{
			Text:       p.Text,
			Confidence: p.Confidence,
			Score:      p.Score,
			IDs:        p.IDs,
		}
		res.TimingNs.Preprocess = preprocessNs
		res.TimingNs.Model = modelNs
		res.TimingNs.Decode = decodeNs
		res.TimingNs.Total = totalNs
		out[i] = res
	}
	return out, nil
}

// Forward runs the encoder on preprocessed images and returns the
// probability lattice, for callers that need raw per-timestep distributions
// (loss evaluation over a labeled corpus).
func (r *Recognizer) Forward(images []image.Image) (*ctc.Lattice, error) {
	tensor, buf, err := r.PreprocessBatch(images)
	if err != nil {
		return nil, err
	}
	lattice, _, err := r.forward(tensor)
	mempool.PutFloat32(buf)
	return lattice, err
}

// forward executes the ONNX session and copies the output into a Lattice,
// so the runtime-owned tensor can be destroyed immediately.
func (r *Recognizer) forward(tensor onnx.Tensor) (*ctc.Lattice, int64, error) {
	r.mu.RLock()
	session := r.session
	r.mu.RUnlock()
	if session == nil {
		return nil, 0, errors.New("recognizer session is nil")
	}

	m0 := time.Now()
	inputTensor, err := onnxrt.NewTensor(onnxrt.NewShape(tensor.Shape...), tensor.Data)
	if err != nil {
		return nil, 0, fmt.Errorf("create input tensor: %w", err)
	}
	defer func() { _ = inputTensor.Destroy() }()

	outputs := []onnxrt.Value{nil}
	if err := session.Run([]onnxrt.Value{inputTensor}, outputs); err != nil {
		return nil, 0, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				_ = o.Destroy()
			}
		}
	}()

	floatTensor, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return nil, 0, fmt.Errorf("expected float32 output tensor, got %T", outputs[0])
	}

	data := floatTensor.GetData()
	copied := make([]float32, len(data))
	copy(copied, data)
	shape := outputs[0].GetShape()

	lattice, err := buildLattice(copied, shape, r.objective.Vocabulary().NumClasses())
	if err != nil {
		return nil, 0, err
	}
	return lattice, time.Since(m0).Nanoseconds(), nil
}

// buildLattice wraps raw model output, deciding between [N,T,C] and [N,C,T]
// by matching the class axis against the vocabulary. A shape matching
// neither is a model/vocabulary mismatch and fatal for the batch.
func buildLattice(data []float32, shape []int64, numClasses int) (*ctc.Lattice, error) {
	if len(shape) < 3 {
		return nil, fmt.Errorf("model output shape %v, want rank 3", shape)
	}
	dims := shape
	for len(dims) > 3 && dims[len(dims)-1] == 1 {
		dims = dims[:len(dims)-1]
	}
	if len(dims) != 3 {
		return nil, fmt.Errorf("model output shape %v does not reduce to rank 3", shape)
	}
	switch {
	case int(dims[2]) == numClasses:
		return ctc.NewLattice(data, dims, false)
	case int(dims[1]) == numClasses:
		return ctc.NewLattice(data, dims, true)
	default:
		return nil, fmt.Errorf("model output shape %v has no axis of %d classes: vocabulary does not match model",
			shape, numClasses)
	}
}
