package ctc

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// BeamConfig controls approximate top-k decoding.
type BeamConfig struct {
	Width    int // beams kept after each frame
	TopPaths int // distinct output sequences returned per sample
}

// DefaultBeamConfig mirrors common recognition defaults.
func DefaultBeamConfig() BeamConfig {
	return BeamConfig{Width: 10, TopPaths: 1}
}

// BeamResult is one decoded candidate with its accumulated log-probability.
type BeamResult struct {
	Sequence []int
	LogProb  float64
}

// beam is one live output prefix. Mass is split between paths ending in a
// blank (pb) and paths ending in the prefix's last character (pnb); the split
// decides whether appending that character again extends the prefix or
// collapses into it.
type beam struct {
	prefix []int
	pb     float64 // log mass of paths ending in blank
	pnb    float64 // log mass of paths ending in the last character
}

func (b *beam) total() float64 { return logSumExp2(b.pb, b.pnb) }

func prefixKey(ids []int) string {
	buf := make([]byte, 0, len(ids)*2)
	var tmp [binary.MaxVarintLen64]byte
	for _, id := range ids {
		n := binary.PutUvarint(tmp[:], uint64(id)) //nolint:gosec // ids are non-negative class indices
		buf = append(buf, tmp[:n]...)
	}
	return string(buf)
}

// DecodeBeam runs prefix beam search over every sample: beams track collapsed
// output prefixes rather than raw frame paths, beams collapsing to the same
// prefix merge by summing their mass, and only the Width best survive each
// frame. Width 1 with a single returned path degenerates to best-path
// decoding and is dispatched to the greedy decoder directly.
func DecodeBeam(l *Lattice, blank int, cfg BeamConfig) ([][]BeamResult, error) {
	if l == nil {
		return nil, errNilLattice
	}
	if err := l.checkBlank(blank); err != nil {
		return nil, err
	}
	if cfg.Width < 1 {
		return nil, fmt.Errorf("beam width %d, want >= 1", cfg.Width)
	}
	if cfg.TopPaths < 1 || cfg.TopPaths > cfg.Width {
		return nil, fmt.Errorf("top paths %d outside [1, %d]", cfg.TopPaths, cfg.Width)
	}

	if cfg.Width == 1 && cfg.TopPaths == 1 {
		greedy, err := DecodeGreedy(l, blank)
		if err != nil {
			return nil, err
		}
		out := make([][]BeamResult, len(greedy))
		for b, d := range greedy {
			out[b] = []BeamResult{{Sequence: d.Collapsed, LogProb: d.Score}}
		}
		return out, nil
	}

	out := make([][]BeamResult, l.Batch())
	for b := range out {
		out[b] = decodeBeamSample(l, b, blank, cfg)
	}
	return out, nil
}

func decodeBeamSample(l *Lattice, b, blank int, cfg BeamConfig) []BeamResult {
	classes := l.Classes()
	frames := l.ValidFrames(b)

	live := []*beam{{prefix: nil, pb: 0, pnb: negInf}}

	var scratch []float32
	logp := make([]float64, classes)

	for t := range frames {
		row := l.Frame(b, t, scratch)
		if l.ClassesFirst {
			scratch = row
		}
		for k := range classes {
			logp[k] = logProb(float64(row[k]))
		}

		next := make(map[string]*beam, len(live)*2)
		step := func(prefix []int) *beam {
			key := prefixKey(prefix)
			nb, ok := next[key]
			if !ok {
				nb = &beam{prefix: prefix, pb: negInf, pnb: negInf}
				next[key] = nb
			}
			return nb
		}

		for _, cur := range live {
			total := cur.total()

			// Frame emits blank: prefix unchanged, path now ends in blank.
			same := step(cur.prefix)
			same.pb = logSumExp2(same.pb, total+logp[blank])

			// Frame repeats the last character with no blank in between:
			// collapses into the existing prefix.
			if n := len(cur.prefix); n > 0 {
				last := cur.prefix[n-1]
				same.pnb = logSumExp2(same.pnb, cur.pnb+logp[last])
			}

			// Frame emits a character that grows the prefix.
			for c := range classes {
				if c == blank {
					continue
				}
				mass := total
				if n := len(cur.prefix); n > 0 && c == cur.prefix[n-1] {
					// Same as the last character: only paths that already
					// ended in blank may extend, anything else collapses.
					mass = cur.pb
				}
				if mass == negInf {
					continue
				}
				grown := step(appendID(cur.prefix, c))
				grown.pnb = logSumExp2(grown.pnb, mass+logp[c])
			}
		}

		live = live[:0]
		for _, nb := range next {
			live = append(live, nb)
		}
		sortBeams(live)
		if len(live) > cfg.Width {
			live = live[:cfg.Width]
		}
	}

	n := cfg.TopPaths
	if n > len(live) {
		n = len(live)
	}
	results := make([]BeamResult, 0, n)
	for _, nb := range live[:n] {
		seq := make([]int, len(nb.prefix))
		copy(seq, nb.prefix)
		results = append(results, BeamResult{Sequence: seq, LogProb: nb.total()})
	}
	return results
}

func appendID(prefix []int, id int) []int {
	out := make([]int, len(prefix)+1)
	copy(out, prefix)
	out[len(prefix)] = id
	return out
}

// sortBeams orders by descending mass with a deterministic tie-break on the
// prefix itself so equal-mass beams never reorder between runs.
func sortBeams(beams []*beam) {
	sort.Slice(beams, func(i, j int) bool {
		ti, tj := beams[i].total(), beams[j].total()
		if ti != tj {
			return ti > tj
		}
		pi, pj := beams[i].prefix, beams[j].prefix
		if len(pi) != len(pj) {
			return len(pi) < len(pj)
		}
		for k := range pi {
			if pi[k] != pj[k] {
				return pi[k] < pj[k]
			}
		}
		return false
	})
}
