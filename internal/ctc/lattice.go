package ctc

import (
	"errors"
	"fmt"
	"math"
)

// Lattice is a batch of per-frame class-probability distributions produced by
// the recognition model: one row per image-column timestep, one column per
// character class plus the trailing blank. Data layout can be [N, T, C] or
// [N, C, T]; set ClassesFirst for the latter. Lengths optionally records the
// valid frame count per sample; nil means every sample uses all T frames.
type Lattice struct {
	Data         []float32
	Shape        []int64
	ClassesFirst bool
	Lengths      []int
}

// NewLattice validates shape and data length. Trailing size-1 dimensions
// beyond rank 3 are tolerated, as some exporters append them.
func NewLattice(data []float32, shape []int64, classesFirst bool) (*Lattice, error) {
	if len(shape) < 3 {
		return nil, fmt.Errorf("lattice shape rank %d, want >= 3", len(shape))
	}
	dims := make([]int64, len(shape))
	copy(dims, shape)
	for len(dims) > 3 && dims[len(dims)-1] == 1 {
		dims = dims[:len(dims)-1]
	}
	if len(dims) != 3 {
		return nil, fmt.Errorf("lattice shape %v does not reduce to rank 3", shape)
	}
	for i, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("lattice dimension %d must be > 0, got %d", i, d)
		}
	}
	want := int(dims[0] * dims[1] * dims[2])
	if len(data) != want {
		return nil, fmt.Errorf("lattice data length %d != %d for shape %v", len(data), want, shape)
	}
	return &Lattice{Data: data, Shape: dims, ClassesFirst: classesFirst}, nil
}

// WithLengths sets per-sample valid frame counts. Each must be in [0, T].
func (l *Lattice) WithLengths(lengths []int) (*Lattice, error) {
	if len(lengths) != l.Batch() {
		return nil, fmt.Errorf("got %d lengths for batch of %d", len(lengths), l.Batch())
	}
	frames := l.Frames()
	for i, n := range lengths {
		if n < 0 || n > frames {
			return nil, fmt.Errorf("sample %d: valid frames %d outside [0, %d]", i, n, frames)
		}
	}
	l.Lengths = lengths
	return l, nil
}

// Batch returns N.
func (l *Lattice) Batch() int { return int(l.Shape[0]) }

// Frames returns T.
func (l *Lattice) Frames() int {
	if l.ClassesFirst {
		return int(l.Shape[2])
	}
	return int(l.Shape[1])
}

// Classes returns C (= vocabulary size + 1 for the blank).
func (l *Lattice) Classes() int {
	if l.ClassesFirst {
		return int(l.Shape[1])
	}
	return int(l.Shape[2])
}

// ValidFrames returns the usable frame count for sample b.
func (l *Lattice) ValidFrames(b int) int {
	if l.Lengths == nil {
		return l.Frames()
	}
	return l.Lengths[b]
}

// Frame returns the class distribution for sample b at frame t. For [N,T,C]
// data this is a subslice of Data; for [N,C,T] the strided values are copied
// into dst (grown if needed). Callers must not mutate the returned slice.
func (l *Lattice) Frame(b, t int, dst []float32) []float32 {
	frames, classes := l.Frames(), l.Classes()
	start := b * frames * classes
	if !l.ClassesFirst {
		off := start + t*classes
		return l.Data[off : off+classes]
	}
	if cap(dst) < classes {
		dst = make([]float32, classes)
	}
	dst = dst[:classes]
	for k := range classes {
		dst[k] = l.Data[start+k*frames+t]
	}
	return dst
}

// argmax returns index of max value and the value.
func argmax(v []float32) (int, float32) {
	if len(v) == 0 {
		return -1, 0
	}
	idx := 0
	maxVal := v[0]
	for i := 1; i < len(v); i++ {
		if v[i] > maxVal {
			maxVal = v[i]
			idx = i
		}
	}
	return idx, maxVal
}

// probOfIndex computes the probability of v[idx] among v. If values already
// look like probabilities (sum≈1 and in [0,1]), returns v[idx] directly;
// otherwise applies a stable softmax so raw logits still decode sanely.
func probOfIndex(v []float32, idx int) float64 {
	if len(v) == 0 || idx < 0 || idx >= len(v) {
		return 0
	}
	var sum float64
	minV, maxV := v[0], v[0]
	for _, x := range v {
		sum += float64(x)
		if x < minV {
			minV = x
		}
		if x > maxV {
			maxV = x
		}
	}
	if sum > 0.99 && sum < 1.01 && minV >= 0 && maxV <= 1 {
		return float64(v[idx])
	}
	m := v[0]
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	var denom float64
	for _, x := range v {
		denom += math.Exp(float64(x - m))
	}
	if denom == 0 {
		return 0
	}
	return math.Exp(float64(v[idx]-m)) / denom
}

// checkBlank validates the blank id against the lattice's class axis.
func (l *Lattice) checkBlank(blank int) error {
	if blank < 0 || blank >= l.Classes() {
		return fmt.Errorf("blank id %d outside class range [0, %d)", blank, l.Classes())
	}
	return nil
}

var errNilLattice = errors.New("nil lattice")
