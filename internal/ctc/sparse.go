package ctc

import (
	"fmt"
)

// PadValue fills unused trailing positions of a dense label matrix. The
// converter never reads it; it exists so accidental reads are loud.
const PadValue = -1

// SparseLabels is the explicit sparse form of a padded label batch: one
// (sample, position, value) triple per real label position, stored as
// parallel slices ordered by sample then ascending position. That ordering is
// load-bearing: the alignment loss reconstructs left-to-right sequences by
// walking the slices in order.
type SparseLabels struct {
	Batch  []int
	Pos    []int
	Values []int
	Rows   int
	Cols   int
}

// Len returns the number of stored triples.
func (s *SparseLabels) Len() int { return len(s.Values) }

// DenseToSparse converts a right-padded dense label matrix with per-sample
// true lengths into sparse triples. Only positions 0..lengths[i]-1 of row i
// are read; padding never reaches the output. A zero length emits no triples
// for that sample, which is legal (the loss treats it as an all-blank
// target).
func DenseToSparse(dense [][]int, lengths []int) (*SparseLabels, error) {
	if len(dense) != len(lengths) {
		return nil, fmt.Errorf("got %d label rows but %d lengths", len(dense), len(lengths))
	}
	cols := 0
	total := 0
	for i, row := range dense {
		if len(row) > cols {
			cols = len(row)
		}
		n := lengths[i]
		if n < 0 {
			return nil, fmt.Errorf("sample %d: negative label length %d", i, n)
		}
		if n > len(row) {
			return nil, fmt.Errorf("sample %d: label length %d exceeds row width %d", i, n, len(row))
		}
		total += n
	}
	out := &SparseLabels{
		Batch:  make([]int, 0, total),
		Pos:    make([]int, 0, total),
		Values: make([]int, 0, total),
		Rows:   len(dense),
		Cols:   cols,
	}
	for i, row := range dense {
		for p := range lengths[i] {
			out.Batch = append(out.Batch, i)
			out.Pos = append(out.Pos, p)
			out.Values = append(out.Values, row[p])
		}
	}
	return out, nil
}

// Sequences reconstructs the unpadded per-sample label sequences. Triples
// are stored sample-major with ascending positions, so a single pass
// suffices; out-of-order input is a corruption error, not silently reordered.
func (s *SparseLabels) Sequences() ([][]int, error) {
	out := make([][]int, s.Rows)
	for i := range out {
		out[i] = []int{}
	}
	prevSample, prevPos := -1, -1
	for k, v := range s.Values {
		b, p := s.Batch[k], s.Pos[k]
		if b < 0 || b >= s.Rows {
			return nil, fmt.Errorf("triple %d: sample index %d outside batch of %d", k, b, s.Rows)
		}
		if b == prevSample && p != prevPos+1 {
			return nil, fmt.Errorf("triple %d: position %d does not follow %d for sample %d", k, p, prevPos, b)
		}
		if b != prevSample {
			if b < prevSample {
				return nil, fmt.Errorf("triple %d: sample index %d after %d, not sample-major", k, b, prevSample)
			}
			if p != 0 {
				return nil, fmt.Errorf("triple %d: sample %d starts at position %d, want 0", k, b, p)
			}
		}
		out[b] = append(out[b], v)
		prevSample, prevPos = b, p
	}
	return out, nil
}
