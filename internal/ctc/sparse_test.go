package ctc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenseToSparse_DropsPadding(t *testing.T) {
	dense := [][]int{
		{1, 2, 3, PadValue},
		{4, PadValue, PadValue, PadValue},
		{5, 6, 7, 8},
	}
	sp, err := DenseToSparse(dense, []int{3, 1, 4})
	require.NoError(t, err)

	assert.Equal(t, 8, sp.Len())
	assert.Equal(t, 3, sp.Rows)
	assert.Equal(t, 4, sp.Cols)
	assert.Equal(t, []int{0, 0, 0, 1, 2, 2, 2, 2}, sp.Batch)
	assert.Equal(t, []int{0, 1, 2, 0, 0, 1, 2, 3}, sp.Pos)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, sp.Values)
	assert.NotContains(t, sp.Values, PadValue)
}

func TestDenseToSparse_EmptyLabelRow(t *testing.T) {
	sp, err := DenseToSparse([][]int{{1, 2}, {PadValue, PadValue}}, []int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, sp.Len())

	seqs, err := sp.Sequences()
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2}, {}}, seqs)
}

func TestDenseToSparse_BadLengths(t *testing.T) {
	_, err := DenseToSparse([][]int{{1, 2}}, []int{3})
	assert.Error(t, err)
	_, err = DenseToSparse([][]int{{1, 2}}, []int{-1})
	assert.Error(t, err)
	_, err = DenseToSparse([][]int{{1}, {2}}, []int{1})
	assert.Error(t, err)
}

func TestSequences_RoundTrip(t *testing.T) {
	orig := [][]int{
		{3, 1, 4, 1},
		{},
		{5, 9},
	}
	dense := [][]int{
		{3, 1, 4, 1},
		{PadValue, PadValue, PadValue, PadValue},
		{5, 9, PadValue, PadValue},
	}
	sp, err := DenseToSparse(dense, []int{4, 0, 2})
	require.NoError(t, err)

	got, err := sp.Sequences()
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestSequences_RejectsCorruptOrdering(t *testing.T) {
	// Positions out of order within a sample.
	sp := &SparseLabels{Batch: []int{0, 0}, Pos: []int{1, 0}, Values: []int{1, 2}, Rows: 1, Cols: 2}
	_, err := sp.Sequences()
	assert.Error(t, err)

	// Sample indices not sample-major.
	sp = &SparseLabels{Batch: []int{1, 0}, Pos: []int{0, 0}, Values: []int{1, 2}, Rows: 2, Cols: 1}
	_, err = sp.Sequences()
	assert.Error(t, err)

	// Sample index out of range.
	sp = &SparseLabels{Batch: []int{5}, Pos: []int{0}, Values: []int{1}, Rows: 2, Cols: 1}
	_, err = sp.Sequences()
	assert.Error(t, err)
}
