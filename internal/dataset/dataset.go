// Package dataset loads a labeled CAPTCHA corpus: a flat directory of image
// files whose name stem is the ground-truth label. "kx7a2.png" is labeled
// "kx7a2"; an optional "_<n>" suffix ("kx7a2_3.png") disambiguates repeated
// labels and is not part of the label.
package dataset

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MeKo-Tech/capgo/internal/vocab"
)

// Sample is one corpus entry.
type Sample struct {
	Path  string
	Label string
}

// LabelFromPath derives the normalized ground-truth label from a file name.
func LabelFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.IndexByte(stem, '_'); i >= 0 {
		stem = stem[:i]
	}
	return vocab.NormalizeLabel(stem)
}

// Scan collects the labeled samples of a corpus directory in deterministic
// (sorted path) order. Non-image files are skipped; an image with an empty
// label stem is an error, because a silently empty target would poison
// training.
func Scan(dir string) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus directory: %w", err)
	}
	samples := make([]Sample, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isSupportedImage(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		label := LabelFromPath(path)
		if label == "" {
			return nil, fmt.Errorf("sample %s has an empty label", path)
		}
		samples = append(samples, Sample{Path: path, Label: label})
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no labeled images found in %s", dir)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Path < samples[j].Path })
	return samples, nil
}

var supportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

func isSupportedImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range supportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Labels returns the label of every sample, in order.
func Labels(samples []Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Label
	}
	return out
}

// Split shuffles with the given seed and carves off valFraction of the
// corpus as a validation set. The same seed always yields the same split.
func Split(samples []Sample, valFraction float64, seed int64) (train, val []Sample, err error) {
	if valFraction < 0 || valFraction >= 1 {
		return nil, nil, fmt.Errorf("validation fraction %v outside [0, 1)", valFraction)
	}
	shuffled := make([]Sample, len(samples))
	copy(shuffled, samples)
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // G404: deterministic split, not crypto
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	nVal := int(float64(len(shuffled)) * valFraction)
	return shuffled[nVal:], shuffled[:nVal], nil
}

// Batches chunks samples into fixed-size batches; the last one may be short.
func Batches(samples []Sample, size int) ([][]Sample, error) {
	if size <= 0 {
		return nil, errors.New("batch size must be > 0")
	}
	out := make([][]Sample, 0, (len(samples)+size-1)/size)
	for start := 0; start < len(samples); start += size {
		end := start + size
		if end > len(samples) {
			end = len(samples)
		}
		out = append(out, samples[start:end])
	}
	return out, nil
}
