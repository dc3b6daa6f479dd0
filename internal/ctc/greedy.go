package ctc

// DecodedSequence holds CTC-decoded indices and per-character probabilities
// for one sample.
type DecodedSequence struct {
	Indices       []int     // per-frame argmax, uncollapsed
	Probs         []float64 // probability of each argmax choice
	Collapsed     []int     // repeats merged, blanks dropped
	CollapsedProb []float64
	Score         float64 // log-probability of the argmax path
}

// Collapse removes repeated consecutive indices and blanks, returning the
// collapsed sequence and the probability carried by each emitted character.
func Collapse(indices []int, probs []float64, blank int) ([]int, []float64) {
	outIdx := make([]int, 0, len(indices))
	outProb := make([]float64, 0, len(probs))
	prev := -1
	for i, idx := range indices {
		if idx == blank { // drop blanks
			prev = idx
			continue
		}
		if idx == prev { // collapse repeats
			continue
		}
		outIdx = append(outIdx, idx)
		if i < len(probs) {
			outProb = append(outProb, probs[i])
		} else {
			outProb = append(outProb, 0)
		}
		prev = idx
	}
	return outIdx, outProb
}

// DecodeGreedy decodes every sample of the lattice by per-frame argmax
// followed by collapse. Deterministic, O(T·C) per sample. Samples with a
// shorter valid frame count decode over their own prefix only.
func DecodeGreedy(l *Lattice, blank int) ([]DecodedSequence, error) {
	if l == nil {
		return nil, errNilLattice
	}
	if err := l.checkBlank(blank); err != nil {
		return nil, err
	}
	out := make([]DecodedSequence, l.Batch())
	var scratch []float32
	for b := range out {
		frames := l.ValidFrames(b)
		indices := make([]int, frames)
		probs := make([]float64, frames)
		score := 0.0
		for t := range frames {
			row := l.Frame(b, t, scratch)
			if l.ClassesFirst {
				scratch = row
			}
			idx, _ := argmax(row)
			indices[t] = idx
			probs[t] = probOfIndex(row, idx)
			score += logProb(probs[t])
		}
		collIdx, collProb := Collapse(indices, probs, blank)
		out[b] = DecodedSequence{
			Indices:       indices,
			Probs:         probs,
			Collapsed:     collIdx,
			CollapsedProb: collProb,
			Score:         score,
		}
	}
	return out, nil
}

// SequenceConfidence returns the average of per-character probabilities;
// 0 if empty.
func SequenceConfidence(charProbs []float64) float64 {
	if len(charProbs) == 0 {
		return 0
	}
	var s float64
	for _, p := range charProbs {
		s += p
	}
	return s / float64(len(charProbs))
}

// Truncate caps a decoded sequence at maxLen for reporting. maxLen <= 0
// means no cap.
func Truncate(ids []int, maxLen int) []int {
	if maxLen <= 0 || len(ids) <= maxLen {
		return ids
	}
	return ids[:maxLen]
}
