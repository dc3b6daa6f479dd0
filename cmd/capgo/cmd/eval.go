package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/capgo/internal/dataset"
	"github.com/MeKo-Tech/capgo/internal/recognizer"
	"github.com/MeKo-Tech/capgo/internal/utils"
)

// evalReport summarizes recognition quality on a labeled corpus.
type evalReport struct {
	Samples       int     `json:"samples"`
	Evaluated     int     `json:"evaluated"`
	LoadFailures  int     `json:"load_failures"`
	ExactMatches  int     `json:"exact_matches"`
	ExactAccuracy float64 `json:"exact_accuracy"`
	CharAccuracy  float64 `json:"char_accuracy"`
	MeanLoss      float64 `json:"mean_loss"`
	Unalignable   int     `json:"unalignable"`
}

// evalCmd represents the eval command.
var evalCmd = &cobra.Command{
	Use:   "eval <corpus-dir>",
	Short: "Evaluate recognition accuracy on a labeled corpus",
	Long: `Evaluate the recognizer on a directory of labeled CAPTCHA images.

Ground truth is taken from file names: the stem up to the first underscore
is the label ("x7Kp_001.png" is labeled "x7Kp"). The report includes exact
match accuracy, character accuracy, and the mean alignment loss of the
model outputs against the labels.

Examples:
  capgo eval ./corpus
  capgo eval ./corpus --val-fraction 0.1 --split-seed 42
  capgo eval ./corpus --decoding beam --format json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != outputFormatText && format != outputFormatJSON {
			return fmt.Errorf("invalid output format: %s (must be text or json)", format)
		}

		cfg := GetConfig()
		valFraction := cfg.Corpus.ValFraction
		if cmd.Flags().Changed("val-fraction") {
			valFraction, _ = cmd.Flags().GetFloat64("val-fraction")
		}
		splitSeed := cfg.Corpus.SplitSeed
		if cmd.Flags().Changed("split-seed") {
			splitSeed, _ = cmd.Flags().GetInt64("split-seed")
		}
		batchSize := cfg.Corpus.BatchSize
		if cmd.Flags().Changed("batch-size") {
			batchSize, _ = cmd.Flags().GetInt("batch-size")
		}
		if batchSize < 1 {
			return fmt.Errorf("batch size must be >= 1, got %d", batchSize)
		}

		samples, err := dataset.Scan(args[0])
		if err != nil {
			return fmt.Errorf("failed to scan corpus: %w", err)
		}
		if len(samples) == 0 {
			return errors.New("corpus contains no supported image files")
		}

		// With a validation fraction the held-out split is evaluated,
		// otherwise the whole corpus is.
		if valFraction > 0 {
			_, val, err := dataset.Split(samples, valFraction, splitSeed)
			if err != nil {
				return err
			}
			if len(val) == 0 {
				return errors.New("validation split is empty, lower --val-fraction or grow the corpus")
			}
			samples = val
		}

		recCfg, err := recognizerConfigFromFlags(cmd)
		if err != nil {
			return err
		}
		rec, err := recognizer.New(recCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize recognizer: %w", err)
		}
		defer func() { _ = rec.Close() }()

		report, err := evaluate(rec, samples, batchSize)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if format == outputFormatJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		fmt.Fprintf(out, "Samples:        %d\n", report.Samples)
		fmt.Fprintf(out, "Evaluated:      %d\n", report.Evaluated)
		fmt.Fprintf(out, "Load failures:  %d\n", report.LoadFailures)
		fmt.Fprintf(out, "Exact matches:  %d (%.2f%%)\n", report.ExactMatches, report.ExactAccuracy*100)
		fmt.Fprintf(out, "Char accuracy:  %.2f%%\n", report.CharAccuracy*100)
		fmt.Fprintf(out, "Mean loss:      %.4f\n", report.MeanLoss)
		fmt.Fprintf(out, "Unalignable:    %d\n", report.Unalignable)
		return nil
	},
}

// evaluate runs the recognizer over the corpus batch by batch, accumulating
// accuracy and alignment loss.
func evaluate(rec *recognizer.Recognizer, samples []dataset.Sample, batchSize int) (*evalReport, error) {
	report := &evalReport{Samples: len(samples)}

	batches, err := dataset.Batches(samples, batchSize)
	if err != nil {
		return nil, err
	}

	var lossSum float64
	var lossCount int
	var charTotal, charErrors int

	for _, batch := range batches {
		images := make([]image.Image, 0, len(batch))
		labels := make([]string, 0, len(batch))
		for _, s := range batch {
			img, _, err := utils.LoadImage(s.Path)
			if err != nil {
				slog.Warn("Skipping unreadable sample", "path", s.Path, "error", err)
				report.LoadFailures++
				continue
			}
			images = append(images, img)
			labels = append(labels, s.Label)
		}
		if len(images) == 0 {
			continue
		}

		lattice, err := rec.Forward(images)
		if err != nil {
			return nil, fmt.Errorf("inference failed: %w", err)
		}

		obj := rec.Objective()
		preds, err := obj.Predict(lattice, rec.Policy())
		if err != nil {
			return nil, fmt.Errorf("decoding failed: %w", err)
		}

		dense, lengths, err := obj.BuildTargets(labels)
		if err != nil {
			return nil, fmt.Errorf("encoding labels failed: %w", err)
		}
		_, summary, err := obj.ComputeLoss(lattice, dense, lengths)
		if err != nil {
			return nil, fmt.Errorf("loss computation failed: %w", err)
		}

		report.Evaluated += len(preds)
		report.Unalignable += summary.Invalid
		if summary.Valid > 0 && !math.IsNaN(summary.Mean) {
			lossSum += summary.Mean * float64(summary.Valid)
			lossCount += summary.Valid
		}

		for i, p := range preds {
			if p.Text == labels[i] {
				report.ExactMatches++
			}
			charTotal += len([]rune(labels[i]))
			charErrors += levenshtein([]rune(labels[i]), []rune(p.Text))
		}
	}

	if report.Evaluated > 0 {
		report.ExactAccuracy = float64(report.ExactMatches) / float64(report.Evaluated)
	}
	if charTotal > 0 {
		acc := 1 - float64(charErrors)/float64(charTotal)
		if acc < 0 {
			acc = 0
		}
		report.CharAccuracy = acc
	}
	if lossCount > 0 {
		report.MeanLoss = lossSum / float64(lossCount)
	} else {
		report.MeanLoss = math.NaN()
	}
	return report, nil
}

// levenshtein computes the edit distance between two rune slices.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func init() {
	addRecognizerFlags(evalCmd)
	evalCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json)")
	evalCmd.Flags().Float64("val-fraction", 0, "evaluate only a held-out fraction of the corpus")
	evalCmd.Flags().Int64("split-seed", 1, "seed for the deterministic corpus split")
	evalCmd.Flags().Int("batch-size", 32, "images per forward pass")
	rootCmd.AddCommand(evalCmd)
}
