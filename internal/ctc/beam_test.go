package ctc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBeam_SumsMassAcrossMergedPrefixes(t *testing.T) {
	// Two frames, char 0 vs blank 1, both frames 0.4/0.6. Best single path
	// is blank,blank (0.36) but the three paths collapsing to [0] carry
	// 0.24+0.24+0.16 = 0.64. Beam search must prefer [0]; greedy stays
	// with the empty string.
	l := latticeFromRows(t, [][]float32{
		{0.4, 0.6},
		{0.4, 0.6},
	})

	dec, err := DecodeGreedy(l, 1)
	require.NoError(t, err)
	assert.Empty(t, dec[0].Collapsed)

	beams, err := DecodeBeam(l, 1, BeamConfig{Width: 4, TopPaths: 2})
	require.NoError(t, err)
	require.Len(t, beams, 1)
	require.Len(t, beams[0], 2)
	assert.Equal(t, []int{0}, beams[0][0].Sequence)
	assert.InDelta(t, math.Log(0.64), beams[0][0].LogProb, 1e-6)
	assert.Empty(t, beams[0][1].Sequence)
	assert.InDelta(t, math.Log(0.36), beams[0][1].LogProb, 1e-6)
}

func TestDecodeBeam_WidthOneMatchesGreedy(t *testing.T) {
	l := latticeFromRows(t, [][]float32{
		{0.1, 0.9, 0.0, 0.0},
		{0.2, 0.8, 0.0, 0.0},
		{0.9, 0.05, 0.03, 0.02},
		{0.1, 0.2, 0.7, 0.0},
	})
	dec, err := DecodeGreedy(l, 0)
	require.NoError(t, err)

	beams, err := DecodeBeam(l, 0, BeamConfig{Width: 1, TopPaths: 1})
	require.NoError(t, err)
	require.Len(t, beams[0], 1)
	assert.Equal(t, dec[0].Collapsed, beams[0][0].Sequence)
	assert.InDelta(t, dec[0].Score, beams[0][0].LogProb, 1e-9)
}

func TestDecodeBeam_RepeatsRequireBlank(t *testing.T) {
	// c, blank, c with certainty decodes to [c, c] at any width.
	l := latticeFromRows(t, [][]float32{
		{1, 0},
		{0, 1},
		{1, 0},
	})
	for _, width := range []int{1, 2, 8} {
		beams, err := DecodeBeam(l, 1, BeamConfig{Width: width, TopPaths: 1})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 0}, beams[0][0].Sequence, "width %d", width)
	}
}

func TestDecodeBeam_TopPathsOrderedByScore(t *testing.T) {
	l := latticeFromRows(t, [][]float32{
		{0.5, 0.2, 0.3},
		{0.3, 0.4, 0.3},
		{0.2, 0.3, 0.5},
	})
	beams, err := DecodeBeam(l, 2, BeamConfig{Width: 6, TopPaths: 4})
	require.NoError(t, err)
	paths := beams[0]
	require.NotEmpty(t, paths)
	for i := 1; i < len(paths); i++ {
		assert.GreaterOrEqual(t, paths[i-1].LogProb, paths[i].LogProb)
	}
	// Returned sequences never contain the blank id.
	for _, p := range paths {
		assert.NotContains(t, p.Sequence, 2)
	}
}

func TestDecodeBeam_ZeroFrames(t *testing.T) {
	l := latticeFromRows(t, [][]float32{{0.5, 0.5}})
	_, err := l.WithLengths([]int{0})
	require.NoError(t, err)

	beams, err := DecodeBeam(l, 1, BeamConfig{Width: 3, TopPaths: 1})
	require.NoError(t, err)
	require.Len(t, beams[0], 1)
	assert.Empty(t, beams[0][0].Sequence)
	assert.InDelta(t, 0, beams[0][0].LogProb, 1e-12)
}

func TestDecodeBeam_ConfigValidation(t *testing.T) {
	l := latticeFromRows(t, [][]float32{{0.5, 0.5}})
	_, err := DecodeBeam(l, 1, BeamConfig{Width: 0, TopPaths: 1})
	assert.Error(t, err)
	_, err = DecodeBeam(l, 1, BeamConfig{Width: 2, TopPaths: 0})
	assert.Error(t, err)
	_, err = DecodeBeam(l, 1, BeamConfig{Width: 2, TopPaths: 3})
	assert.Error(t, err)
	_, err = DecodeBeam(l, 5, BeamConfig{Width: 2, TopPaths: 1})
	assert.Error(t, err)
}
