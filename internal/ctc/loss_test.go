package ctc

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// latticeFromRows builds a single-sample [1,T,C] lattice from explicit
// per-frame distributions.
func latticeFromRows(t *testing.T, rows [][]float32) *Lattice {
	t.Helper()
	require.NotEmpty(t, rows)
	classes := len(rows[0])
	data := make([]float32, 0, len(rows)*classes)
	for _, r := range rows {
		require.Len(t, r, classes)
		data = append(data, r...)
	}
	l, err := NewLattice(data, []int64{1, int64(len(rows)), int64(classes)}, false)
	require.NoError(t, err)
	return l
}

func TestForwardLoss_HandComputed(t *testing.T) {
	// One character class (id 0) plus blank (id 1), two frames.
	// Alignments collapsing to [0]: (0,0)=.42, (0,b)=.18, (b,0)=.28.
	l := latticeFromRows(t, [][]float32{
		{0.6, 0.4},
		{0.7, 0.3},
	})
	loss, err := ForwardLoss(l, 0, []int{0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(0.88), loss, 1e-6)
}

func TestForwardLoss_EmptyLabelScoresAllBlankPath(t *testing.T) {
	l := latticeFromRows(t, [][]float32{
		{0.6, 0.4},
		{0.7, 0.3},
	})
	loss, err := ForwardLoss(l, 0, nil, 1)
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(0.4*0.3), loss, 1e-6)
}

func TestForwardLoss_Unalignable(t *testing.T) {
	l := latticeFromRows(t, [][]float32{
		{0.5, 0.5},
		{0.5, 0.5},
	})

	// Three labels cannot fit two frames.
	_, err := ForwardLoss(l, 0, []int{0, 0, 0}, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnalignable))

	// Two identical labels need a separating blank frame: minimum three.
	_, err = ForwardLoss(l, 0, []int{0, 0}, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnalignable))

	var ua *UnalignableError
	require.True(t, errors.As(err, &ua))
	assert.Equal(t, 3, ua.MinFrames)
	assert.Equal(t, 2, ua.Frames)
}

func TestForwardLoss_RepeatNeedsBlank(t *testing.T) {
	// Three frames, label "aa": the only valid alignment is (a, blank, a).
	l := latticeFromRows(t, [][]float32{
		{0.9, 0.1},
		{0.2, 0.8},
		{0.7, 0.3},
	})
	loss, err := ForwardLoss(l, 0, []int{0, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(0.9*0.8*0.7), loss, 1e-6)
}

func TestForwardLoss_ZeroProbabilityRowIsFloored(t *testing.T) {
	l := latticeFromRows(t, [][]float32{
		{0, 0},
		{0, 0},
	})
	loss, err := ForwardLoss(l, 0, []int{0}, 1)
	require.NoError(t, err)
	assert.False(t, math.IsInf(loss, 1))
	assert.False(t, math.IsNaN(loss))
}

func TestForwardLoss_RejectsBadLabelIDs(t *testing.T) {
	l := latticeFromRows(t, [][]float32{{0.5, 0.5}})
	for _, id := range []int{-1, 1 /* blank */, 7} {
		_, err := ForwardLoss(l, 0, []int{id}, 1)
		assert.Error(t, err, "label id %d", id)
	}
}

func TestForwardLoss_PreferredTargetScoresLower(t *testing.T) {
	// Vocabulary {a,b,c}, blank id 3, T=4, matrix peaked on
	// blank, a, blank, b.
	l := latticeFromRows(t, [][]float32{
		{0.1, 0.1, 0.1, 0.7},
		{0.7, 0.1, 0.1, 0.1},
		{0.1, 0.1, 0.1, 0.7},
		{0.1, 0.7, 0.1, 0.1},
	})
	ab, err := ForwardLoss(l, 0, []int{0, 1}, 3)
	require.NoError(t, err)
	ba, err := ForwardLoss(l, 0, []int{1, 0}, 3)
	require.NoError(t, err)
	assert.Less(t, ab, ba)

	dec, err := DecodeGreedy(l, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, dec[0].Collapsed)
}

func TestBatchLoss_IsolatesBadSamples(t *testing.T) {
	// Two samples, T=2. Sample 1 carries an unalignable three-label target.
	data := []float32{
		0.6, 0.4, 0.7, 0.3,
		0.6, 0.4, 0.7, 0.3,
	}
	l, err := NewLattice(data, []int64{2, 2, 2}, false)
	require.NoError(t, err)

	sp, err := DenseToSparse([][]int{{0, PadValue, PadValue}, {0, 0, 0}}, []int{1, 3})
	require.NoError(t, err)

	losses, err := BatchLoss(l, sp, 1)
	require.NoError(t, err)
	require.Len(t, losses, 2)

	require.NoError(t, losses[0].Err)
	assert.InDelta(t, -math.Log(0.88), losses[0].Loss, 1e-6)

	require.Error(t, losses[1].Err)
	assert.True(t, errors.Is(losses[1].Err, ErrUnalignable))
	assert.True(t, math.IsNaN(losses[1].Loss))

	mean, invalid := ReduceMean(losses)
	assert.Equal(t, 1, invalid)
	assert.InDelta(t, losses[0].Loss, mean, 1e-12)
}

func TestBatchLoss_IgnoresPaddingContent(t *testing.T) {
	data := []float32{
		0.6, 0.4, 0.7, 0.3,
	}
	l, err := NewLattice(data, []int64{1, 2, 2}, false)
	require.NoError(t, err)

	clean, err := DenseToSparse([][]int{{0, PadValue}}, []int{1})
	require.NoError(t, err)
	// Same true length, arbitrary garbage in the padding columns.
	dirty, err := DenseToSparse([][]int{{0, 99, -7, 42}}, []int{1})
	require.NoError(t, err)

	a, err := BatchLoss(l, clean, 1)
	require.NoError(t, err)
	b, err := BatchLoss(l, dirty, 1)
	require.NoError(t, err)
	require.NoError(t, a[0].Err)
	require.NoError(t, b[0].Err)
	assert.Equal(t, a[0].Loss, b[0].Loss)
}

func TestBatchLoss_ShapeMismatch(t *testing.T) {
	l := latticeFromRows(t, [][]float32{{0.5, 0.5}})
	sp, err := DenseToSparse([][]int{{0}, {0}}, []int{1, 1})
	require.NoError(t, err)
	_, err = BatchLoss(l, sp, 1)
	assert.Error(t, err)
}

func TestForwardLoss_RespectsValidFrames(t *testing.T) {
	// Second frame is garbage but sits beyond the valid length.
	l := latticeFromRows(t, [][]float32{
		{0.6, 0.4},
		{0.123, 0.456},
	})
	_, err := l.WithLengths([]int{1})
	require.NoError(t, err)

	loss, err := ForwardLoss(l, 0, []int{0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(0.6), loss, 1e-6)
}
