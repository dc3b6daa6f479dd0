package vocab

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Vocabulary is the bidirectional mapping between corpus characters and dense
// integer ids in [0, Size). The id equal to Size is reserved as the CTC blank
// class; it is never a valid character id. A Vocabulary is immutable after
// construction and safe for concurrent readers.
type Vocabulary struct {
	runes       []rune
	index       map[rune]int
	maxLabelLen int
}

// UnknownCharacterError reports a character absent from the training corpus.
type UnknownCharacterError struct {
	Char rune
}

func (e *UnknownCharacterError) Error() string {
	return fmt.Sprintf("character %q not in vocabulary", e.Char)
}

// UnknownIDError reports an id outside [0, Size). The blank id is included:
// it has no character form and must be filtered before decoding to text.
type UnknownIDError struct {
	ID   int
	Size int
}

func (e *UnknownIDError) Error() string {
	return fmt.Sprintf("id %d out of vocabulary range [0, %d)", e.ID, e.Size)
}

// NormalizeLabel canonicalizes a ground-truth label before indexing or
// encoding. Labels are NFC-normalized and trimmed; CAPTCHA corpora never
// contain interior whitespace, so nothing more aggressive is applied.
func NormalizeLabel(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// Build constructs a Vocabulary from the corpus labels. Characters are
// assigned ids in sorted rune order so the mapping is deterministic across
// corpus shufflings. MaxLabelLen records the longest observed label.
func Build(labels []string) (*Vocabulary, error) {
	if len(labels) == 0 {
		return nil, errors.New("no labels provided")
	}
	seen := make(map[rune]struct{}, 64)
	maxLen := 0
	for _, raw := range labels {
		label := NormalizeLabel(raw)
		n := 0
		for _, r := range label {
			seen[r] = struct{}{}
			n++
		}
		if n > maxLen {
			maxLen = n
		}
	}
	if len(seen) == 0 {
		return nil, errors.New("labels contain no characters")
	}
	runes := make([]rune, 0, len(seen))
	for r := range seen {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	return fromRunes(runes, maxLen)
}

// FromRunes builds a Vocabulary with the exact id order given. Used when the
// ordering comes from a persisted vocabulary file and must be preserved.
func FromRunes(runes []rune, maxLabelLen int) (*Vocabulary, error) {
	if len(runes) == 0 {
		return nil, errors.New("empty vocabulary")
	}
	cp := make([]rune, len(runes))
	copy(cp, runes)
	return fromRunes(cp, maxLabelLen)
}

func fromRunes(runes []rune, maxLabelLen int) (*Vocabulary, error) {
	index := make(map[rune]int, len(runes))
	for i, r := range runes {
		if _, dup := index[r]; dup {
			return nil, fmt.Errorf("duplicate character %q in vocabulary", r)
		}
		index[r] = i
	}
	if maxLabelLen < 0 {
		maxLabelLen = 0
	}
	return &Vocabulary{runes: runes, index: index, maxLabelLen: maxLabelLen}, nil
}

// Size returns the number of real characters. Valid ids are [0, Size).
func (v *Vocabulary) Size() int { return len(v.runes) }

// BlankID returns the reserved CTC blank class id (== Size).
func (v *Vocabulary) BlankID() int { return len(v.runes) }

// NumClasses returns Size+1, the class-axis width of a probability matrix.
func (v *Vocabulary) NumClasses() int { return len(v.runes) + 1 }

// MaxLabelLen returns the longest label length observed at build time.
func (v *Vocabulary) MaxLabelLen() int { return v.maxLabelLen }

// Runes returns a copy of the id-ordered character list.
func (v *Vocabulary) Runes() []rune {
	cp := make([]rune, len(v.runes))
	copy(cp, v.runes)
	return cp
}

// EncodeRune maps one character to its id.
func (v *Vocabulary) EncodeRune(r rune) (int, error) {
	id, ok := v.index[r]
	if !ok {
		return 0, &UnknownCharacterError{Char: r}
	}
	return id, nil
}

// Encode maps a label to its id sequence. The label is normalized first so
// encoding agrees with Build on composed/decomposed input.
func (v *Vocabulary) Encode(label string) ([]int, error) {
	label = NormalizeLabel(label)
	ids := make([]int, 0, len(label))
	for _, r := range label {
		id, ok := v.index[r]
		if !ok {
			return nil, &UnknownCharacterError{Char: r}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DecodeID maps one id back to its character. The blank id is rejected.
func (v *Vocabulary) DecodeID(id int) (rune, error) {
	if id < 0 || id >= len(v.runes) {
		return 0, &UnknownIDError{ID: id, Size: len(v.runes)}
	}
	return v.runes[id], nil
}

// Decode maps an id sequence back to a string. Callers must drop blanks
// before calling; a blank id here is an UnknownIDError, not silence.
func (v *Vocabulary) Decode(ids []int) (string, error) {
	var b strings.Builder
	b.Grow(len(ids))
	for _, id := range ids {
		if id < 0 || id >= len(v.runes) {
			return "", &UnknownIDError{ID: id, Size: len(v.runes)}
		}
		b.WriteRune(v.runes[id])
	}
	return b.String(), nil
}
