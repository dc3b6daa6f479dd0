package ctc

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnalignable marks a sample whose label cannot be produced by any
// monotonic alignment within its frame budget. Match with errors.Is.
var ErrUnalignable = errors.New("label cannot align within frame budget")

// UnalignableError carries the numbers behind an ErrUnalignable verdict.
type UnalignableError struct {
	Sample    int
	LabelLen  int
	MinFrames int
	Frames    int
}

func (e *UnalignableError) Error() string {
	return fmt.Sprintf("sample %d: label of length %d needs at least %d frames, have %d",
		e.Sample, e.LabelLen, e.MinFrames, e.Frames)
}

func (e *UnalignableError) Unwrap() error { return ErrUnalignable }

// SampleLoss is one sample's slot in a batch loss result. Err is non-nil for
// samples the loss rejected (unalignable label, bad label id); the loss of
// such a slot is NaN and must not enter a training objective.
type SampleLoss struct {
	Loss float64
	Err  error
}

// probFloor keeps log(p) finite for all-zero probability entries.
const probFloor = 1e-30

var negInf = math.Inf(-1)

func logProb(p float64) float64 {
	if p < probFloor {
		p = probFloor
	}
	return math.Log(p)
}

// logSumExp2 computes log(exp(a) + exp(b)) without overflow.
func logSumExp2(a, b float64) float64 {
	if a == negInf {
		return b
	}
	if b == negInf {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}

// minFrames returns the fewest frames that can emit labels: one per label
// plus one separating blank per adjacent repeat.
func minFrames(labels []int) int {
	n := len(labels)
	for i := 1; i < len(labels); i++ {
		if labels[i] == labels[i-1] {
			n++
		}
	}
	return n
}

// ForwardLoss computes -log P(labels | frames of sample b) summed over all
// monotonic alignments that collapse to labels, using the standard
// extended-sequence forward recursion. The extended sequence interleaves
// blanks around each label (length 2ℓ+1); α[t][s] accumulates, in log space,
// the mass of partial alignments of the first t+1 frames ending at extended
// position s. An empty label is legal and scores the all-blank path.
func ForwardLoss(l *Lattice, b int, labels []int, blank int) (float64, error) {
	if l == nil {
		return 0, errNilLattice
	}
	if b < 0 || b >= l.Batch() {
		return 0, fmt.Errorf("sample index %d outside batch of %d", b, l.Batch())
	}
	if err := l.checkBlank(blank); err != nil {
		return 0, err
	}
	for _, id := range labels {
		if id < 0 || id >= l.Classes() || id == blank {
			return 0, fmt.Errorf("sample %d: label id %d invalid for %d classes with blank %d",
				b, id, l.Classes(), blank)
		}
	}

	frames := l.ValidFrames(b)
	need := minFrames(labels)
	if need > frames {
		return 0, &UnalignableError{Sample: b, LabelLen: len(labels), MinFrames: need, Frames: frames}
	}
	if frames == 0 {
		// Only reachable with an empty label: the empty alignment has mass 1.
		return 0, nil
	}

	// Extended sequence: blank, c1, blank, c2, ..., cℓ, blank.
	ext := make([]int, 2*len(labels)+1)
	for i := range ext {
		if i%2 == 0 {
			ext[i] = blank
		} else {
			ext[i] = labels[i/2]
		}
	}
	s := len(ext)

	var scratch []float32
	row := l.Frame(b, 0, scratch)

	alpha := make([]float64, s)
	next := make([]float64, s)
	for i := range alpha {
		alpha[i] = negInf
	}
	alpha[0] = logProb(float64(row[blank]))
	if s > 1 {
		alpha[1] = logProb(float64(row[ext[1]]))
	}

	for t := 1; t < frames; t++ {
		row = l.Frame(b, t, scratch)
		for i := range next {
			next[i] = negInf
		}
		// Positions further than 2(frames-t)... ahead of the end can never
		// reach it, and positions beyond 2(t+1) can never be reached; the
		// full sweep is still cheap at CAPTCHA sizes, so no windowing.
		for p := range s {
			acc := alpha[p]
			if p >= 1 {
				acc = logSumExp2(acc, alpha[p-1])
			}
			// Skipping the preceding blank is only legal when it does not
			// merge two identical labels.
			if p >= 2 && ext[p] != blank && ext[p] != ext[p-2] {
				acc = logSumExp2(acc, alpha[p-2])
			}
			if acc == negInf {
				continue
			}
			next[p] = acc + logProb(float64(row[ext[p]]))
		}
		alpha, next = next, alpha
	}

	total := alpha[s-1]
	if s > 1 {
		total = logSumExp2(total, alpha[s-2])
	}
	return -total, nil
}

// BatchLoss computes per-sample losses for a batch against sparse targets.
// Samples are independent: one sample's malformed label yields an Err in its
// slot without touching the others. The returned slice always has one entry
// per lattice sample.
func BatchLoss(l *Lattice, targets *SparseLabels, blank int) ([]SampleLoss, error) {
	if l == nil {
		return nil, errNilLattice
	}
	if targets == nil {
		return nil, errors.New("nil sparse labels")
	}
	if targets.Rows != l.Batch() {
		return nil, fmt.Errorf("sparse batch of %d does not match lattice batch of %d",
			targets.Rows, l.Batch())
	}
	seqs, err := targets.Sequences()
	if err != nil {
		return nil, err
	}
	out := make([]SampleLoss, l.Batch())
	for b, labels := range seqs {
		loss, err := ForwardLoss(l, b, labels, blank)
		if err != nil {
			out[b] = SampleLoss{Loss: math.NaN(), Err: err}
			continue
		}
		out[b] = SampleLoss{Loss: loss}
	}
	return out, nil
}

// ReduceMean averages the valid slots of a batch loss and reports how many
// slots were invalid. A batch with no valid slot returns NaN and the caller
// decides whether that aborts the step.
func ReduceMean(losses []SampleLoss) (float64, int) {
	var sum float64
	valid := 0
	for _, sl := range losses {
		if sl.Err != nil {
			continue
		}
		sum += sl.Loss
		valid++
	}
	if valid == 0 {
		return math.NaN(), len(losses)
	}
	return sum / float64(valid), len(losses) - valid
}
