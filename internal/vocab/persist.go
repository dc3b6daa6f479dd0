package vocab

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// A vocabulary is persisted as two files next to the model weights: the
// token file (one character per line, same layout as a recognition
// dictionary) and a yaml sidecar recording the properties a loader must
// check before using the model.

// SidecarSuffix is appended to the token file path to name the metadata file.
const SidecarSuffix = ".meta.yaml"

type sidecar struct {
	Size        int `yaml:"size"`
	BlankID     int `yaml:"blank_id"`
	MaxLabelLen int `yaml:"max_label_len"`
}

// Save writes the token file and its sidecar. Ordering in the token file is
// the id ordering; rewriting it in any other order invalidates the model.
func (v *Vocabulary) Save(path string) error {
	if path == "" {
		return errors.New("vocabulary path cannot be empty")
	}
	var b strings.Builder
	for _, r := range v.runes {
		b.WriteRune(r)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write vocabulary: %w", err)
	}
	meta, err := yaml.Marshal(sidecar{
		Size:        v.Size(),
		BlankID:     v.BlankID(),
		MaxLabelLen: v.maxLabelLen,
	})
	if err != nil {
		return fmt.Errorf("marshal vocabulary metadata: %w", err)
	}
	if err := os.WriteFile(path+SidecarSuffix, meta, 0o644); err != nil {
		return fmt.Errorf("write vocabulary metadata: %w", err)
	}
	return nil
}

// Load reads a persisted vocabulary. A missing token file is a fatal
// configuration error for the caller: a model without its matching
// vocabulary cannot decode anything. The sidecar is required and its size
// must agree with the token file.
func Load(path string) (*Vocabulary, error) {
	if path == "" {
		return nil, errors.New("vocabulary path cannot be empty")
	}
	f, err := os.Open(path) //nolint:gosec // G304: user-provided vocabulary path is expected
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "Error closing vocabulary file: %v\n", cerr)
		}
	}()

	scanner := bufio.NewScanner(f)
	runes := make([]rune, 0, 64)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		rs := []rune(line)
		if len(rs) != 1 {
			return nil, fmt.Errorf("vocabulary line %d: want one character, got %q", lineNum, line)
		}
		runes = append(runes, rs[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	if len(runes) == 0 {
		return nil, fmt.Errorf("vocabulary is empty: %s", path)
	}

	meta, err := loadSidecar(path + SidecarSuffix)
	if err != nil {
		return nil, err
	}
	if meta.Size != len(runes) {
		return nil, fmt.Errorf("vocabulary metadata size %d does not match token file (%d tokens)",
			meta.Size, len(runes))
	}
	if meta.BlankID != len(runes) {
		return nil, fmt.Errorf("vocabulary metadata blank id %d, want %d", meta.BlankID, len(runes))
	}
	return fromRunes(runes, meta.MaxLabelLen)
}

func loadSidecar(path string) (sidecar, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: sidecar sits next to the vocabulary file
	if err != nil {
		return sidecar{}, fmt.Errorf("open vocabulary metadata: %w", err)
	}
	var meta sidecar
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return sidecar{}, fmt.Errorf("parse vocabulary metadata: %w", err)
	}
	return meta, nil
}
