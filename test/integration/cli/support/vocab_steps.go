package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/capgo/internal/testutil"
	"github.com/MeKo-Tech/capgo/internal/vocab"
)

// RegisterVocabSteps wires the corpus and character set steps.
func (testCtx *TestContext) RegisterVocabSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a labeled corpus with labels "([^"]*)"$`, testCtx.aLabeledCorpusWithLabels)
	sc.Step(`^an empty corpus directory$`, testCtx.anEmptyCorpusDirectory)
	sc.Step(`^the character set file "([^"]*)" should exist$`, testCtx.theCharacterSetFileShouldExist)
	sc.Step(`^the character set "([^"]*)" should contain (\d+) characters$`, testCtx.theCharacterSetShouldContainCharacters)
	sc.Step(`^the character set "([^"]*)" should round-trip$`, testCtx.theCharacterSetShouldRoundTrip)
}

// writeCorpusImage renders a synthetic CAPTCHA PNG for a sample.
func writeCorpusImage(path, label string) error {
	cfg := testutil.DefaultCaptchaConfig(label)
	return testutil.SavePNG(path, testutil.GenerateCaptcha(cfg))
}

// aLabeledCorpusWithLabels creates a corpus directory with one image per
// comma-separated label.
func (testCtx *TestContext) aLabeledCorpusWithLabels(labelsCSV string) error {
	corpusDir := filepath.Join(testCtx.TempDir, "corpus")
	if err := os.MkdirAll(corpusDir, 0o755); err != nil {
		return fmt.Errorf("failed to create corpus directory: %w", err)
	}

	for i, label := range strings.Split(labelsCSV, ",") {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		path := filepath.Join(corpusDir, fmt.Sprintf("%s_%d.png", label, i))
		if err := writeCorpusImage(path, label); err != nil {
			return fmt.Errorf("failed to write corpus image %s: %w", path, err)
		}
	}

	testCtx.CorpusDir = corpusDir
	return nil
}

// anEmptyCorpusDirectory creates a corpus directory with no images.
func (testCtx *TestContext) anEmptyCorpusDirectory() error {
	corpusDir := filepath.Join(testCtx.TempDir, "empty-corpus")
	if err := os.MkdirAll(corpusDir, 0o755); err != nil {
		return fmt.Errorf("failed to create corpus directory: %w", err)
	}
	testCtx.CorpusDir = corpusDir
	return nil
}

// resolveVocabPath expands placeholders in a scenario path.
func (testCtx *TestContext) resolveVocabPath(path string) string {
	return testCtx.substituteCommandVariables(path)
}

// theCharacterSetFileShouldExist verifies the set and its sidecar were written.
func (testCtx *TestContext) theCharacterSetFileShouldExist(path string) error {
	path = testCtx.resolveVocabPath(path)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("character set file missing: %w", err)
	}
	if _, err := os.Stat(path + vocab.SidecarSuffix); err != nil {
		return fmt.Errorf("sidecar file missing: %w", err)
	}
	return nil
}

// theCharacterSetShouldContainCharacters verifies the token count.
func (testCtx *TestContext) theCharacterSetShouldContainCharacters(path string, count int) error {
	path = testCtx.resolveVocabPath(path)
	v, err := vocab.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load character set: %w", err)
	}
	if v.Size() != count {
		return fmt.Errorf("character set has %d characters, expected %d (set: %q)",
			v.Size(), count, string(v.Runes()))
	}
	return nil
}

// theCharacterSetShouldRoundTrip verifies every character encodes and
// decodes back to itself.
func (testCtx *TestContext) theCharacterSetShouldRoundTrip(path string) error {
	path = testCtx.resolveVocabPath(path)
	v, err := vocab.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load character set: %w", err)
	}

	for _, r := range v.Runes() {
		id, err := v.EncodeRune(r)
		if err != nil {
			return fmt.Errorf("failed to encode %q: %w", r, err)
		}
		back, err := v.DecodeID(id)
		if err != nil {
			return fmt.Errorf("failed to decode id %d: %w", id, err)
		}
		if back != r {
			return fmt.Errorf("round-trip mismatch: %q -> %d -> %q", r, id, back)
		}
	}

	if utf8.RuneCountInString(string(v.Runes())) != v.Size() {
		return fmt.Errorf("rune count does not match size %d", v.Size())
	}
	return nil
}
