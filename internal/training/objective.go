// Package training exposes the two explicit halves of the recognition
// objective: ComputeLoss for labeled batches and Predict for inference. The
// probability lattice passes through both untouched; there is no hidden
// side-channel between them.
package training

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/capgo/internal/ctc"
	"github.com/MeKo-Tech/capgo/internal/vocab"
)

// DecodeMode selects the inference decoding policy.
type DecodeMode string

const (
	DecodeGreedy DecodeMode = "greedy"
	DecodeBeam   DecodeMode = "beam"
)

// Policy bundles a decode mode with its beam parameters.
type Policy struct {
	Mode DecodeMode
	Beam ctc.BeamConfig
}

// DefaultPolicy decodes greedily.
func DefaultPolicy() Policy {
	return Policy{Mode: DecodeGreedy, Beam: ctc.DefaultBeamConfig()}
}

// Summary aggregates a batch loss for logging and objective reduction.
type Summary struct {
	Mean    float64
	Valid   int
	Invalid int
}

// Prediction is one decoded sample, capped at the vocabulary's maximum label
// length for reporting.
type Prediction struct {
	IDs        []int
	Text       string
	Score      float64
	Confidence float64
}

// Objective ties a vocabulary to the loss and decode entry points.
type Objective struct {
	vocab *vocab.Vocabulary
}

// NewObjective requires a vocabulary; the blank id and class count follow
// from it.
func NewObjective(v *vocab.Vocabulary) (*Objective, error) {
	if v == nil {
		return nil, errors.New("nil vocabulary")
	}
	return &Objective{vocab: v}, nil
}

// Vocabulary returns the vocabulary this objective was built against.
func (o *Objective) Vocabulary() *vocab.Vocabulary { return o.vocab }

// BuildTargets encodes ground-truth labels into a right-padded dense matrix
// plus per-sample true lengths, the shape the sparse converter consumes.
func (o *Objective) BuildTargets(labels []string) ([][]int, []int, error) {
	if len(labels) == 0 {
		return nil, nil, errors.New("no labels provided")
	}
	encoded := make([][]int, len(labels))
	lengths := make([]int, len(labels))
	width := 0
	for i, label := range labels {
		ids, err := o.vocab.Encode(label)
		if err != nil {
			return nil, nil, fmt.Errorf("label %d (%q): %w", i, label, err)
		}
		encoded[i] = ids
		lengths[i] = len(ids)
		if len(ids) > width {
			width = len(ids)
		}
	}
	dense := make([][]int, len(encoded))
	for i, ids := range encoded {
		row := make([]int, width)
		copy(row, ids)
		for p := len(ids); p < width; p++ {
			row[p] = ctc.PadValue
		}
		dense[i] = row
	}
	return dense, lengths, nil
}

// ComputeLoss scores a labeled batch: dense targets are converted to sparse
// triples, then each sample gets its alignment loss. Per-sample failures
// (unalignable targets) land in their own slots; the summary reports the
// mean over the valid ones.
func (o *Objective) ComputeLoss(l *ctc.Lattice, dense [][]int, lengths []int) ([]ctc.SampleLoss, Summary, error) {
	sp, err := ctc.DenseToSparse(dense, lengths)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("convert targets: %w", err)
	}
	losses, err := ctc.BatchLoss(l, sp, o.vocab.BlankID())
	if err != nil {
		return nil, Summary{}, err
	}
	mean, invalid := ctc.ReduceMean(losses)
	return losses, Summary{Mean: mean, Valid: len(losses) - invalid, Invalid: invalid}, nil
}

// Predict decodes every sample of the lattice under the given policy. The
// lattice is read-only throughout.
func (o *Objective) Predict(l *ctc.Lattice, policy Policy) ([]Prediction, error) {
	blank := o.vocab.BlankID()
	maxLen := o.vocab.MaxLabelLen()

	switch policy.Mode {
	case DecodeGreedy, "":
		decoded, err := ctc.DecodeGreedy(l, blank)
		if err != nil {
			return nil, err
		}
		out := make([]Prediction, len(decoded))
		for i, d := range decoded {
			ids := ctc.Truncate(d.Collapsed, maxLen)
			text, err := o.vocab.Decode(ids)
			if err != nil {
				return nil, fmt.Errorf("sample %d: %w", i, err)
			}
			out[i] = Prediction{
				IDs:        ids,
				Text:       text,
				Score:      d.Score,
				Confidence: ctc.SequenceConfidence(d.CollapsedProb[:len(ids)]),
			}
		}
		return out, nil
	case DecodeBeam:
		results, err := ctc.DecodeBeam(l, blank, policy.Beam)
		if err != nil {
			return nil, err
		}
		out := make([]Prediction, len(results))
		for i, paths := range results {
			if len(paths) == 0 {
				out[i] = Prediction{IDs: []int{}, Text: ""}
				continue
			}
			best := paths[0]
			ids := ctc.Truncate(best.Sequence, maxLen)
			text, err := o.vocab.Decode(ids)
			if err != nil {
				return nil, fmt.Errorf("sample %d: %w", i, err)
			}
			out[i] = Prediction{IDs: ids, Text: text, Score: best.LogProb}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown decode mode %q", policy.Mode)
	}
}
