package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/capgo/internal/dataset"
	"github.com/MeKo-Tech/capgo/internal/recognizer"
	"github.com/MeKo-Tech/capgo/internal/utils"
)

// batchResult is one line of batch output.
type batchResult struct {
	File       string  `json:"file"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`
	Error      string  `json:"error,omitempty"`
}

// batchCmd represents the batch command.
var batchCmd = &cobra.Command{
	Use:   "batch [directory or images...]",
	Short: "Recognize CAPTCHA images in bulk",
	Long: `Recognize many CAPTCHA images with parallel image loading.

Directories are expanded to the supported image files they contain.
Corrupt or unreadable files are reported per file and do not stop the run.

Examples:
  capgo batch ./downloads
  capgo batch ./downloads --workers 8 --format json
  capgo batch a.png b.png c.png --output results.csv --format csv`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files or directories provided")
		}

		format, _ := cmd.Flags().GetString("format")
		if err := validateOutputFormat(format); err != nil {
			return err
		}

		samples, err := collectBatchInputs(args)
		if err != nil {
			return err
		}
		if len(samples) == 0 {
			return errors.New("no supported image files found")
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

		cfg := GetConfig()
		prefetchCfg := dataset.PrefetchConfig{
			Workers: cfg.Batch.Workers,
			Depth:   cfg.Batch.PrefetchDepth,
		}
		if cmd.Flags().Changed("workers") {
			prefetchCfg.Workers, _ = cmd.Flags().GetInt("workers")
		}
		if cmd.Flags().Changed("prefetch-depth") {
			prefetchCfg.Depth, _ = cmd.Flags().GetInt("prefetch-depth")
		}

		start := time.Now()
		results := runBatch(cmd.Context(), rec, samples, prefetchCfg)
		elapsed := time.Since(start)

		out := cmd.OutOrStdout()
		if outputFile, _ := cmd.Flags().GetString("output"); outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer func() { _ = f.Close() }()
			out = f
		}

		if err := writeBatchResults(out, results, format); err != nil {
			return err
		}

		failed := 0
		for _, r := range results {
			if r.Error != "" {
				failed++
			}
		}
		slog.Info("Batch complete",
			"total", len(results), "failed", failed, "elapsed", elapsed.String())
		return nil
	},
}

// collectBatchInputs expands directories into supported image files.
func collectBatchInputs(args []string) ([]dataset.Sample, error) {
	var samples []dataset.Sample
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			samples = append(samples, dataset.Sample{Path: arg})
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read directory %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(arg, entry.Name())
			if utils.IsSupportedImage(path) {
				samples = append(samples, dataset.Sample{Path: path})
			}
		}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Path < samples[j].Path })
	return samples, nil
}

// runBatch streams decoded images through the recognizer and reassembles
// results in corpus order.
func runBatch(ctx context.Context, rec *recognizer.Recognizer, samples []dataset.Sample, cfg dataset.PrefetchConfig) []batchResult {
	results := make([]batchResult, len(samples))
	for loaded := range dataset.Prefetch(ctx, samples, cfg) {
		r := batchResult{File: loaded.Sample.Path}
		if loaded.Err != nil {
			r.Error = loaded.Err.Error()
			results[loaded.Index] = r
			continue
		}
		res, err := rec.Recognize(loaded.Image)
		if err != nil {
			r.Error = err.Error()
			results[loaded.Index] = r
			continue
		}
		r.Text = res.Text
		r.Confidence = res.Confidence
		r.Score = res.Score
		results[loaded.Index] = r
	}
	return results
}

// writeBatchResults renders results in the requested format.
func writeBatchResults(w io.Writer, results []batchResult, format string) error {
	switch format {
	case outputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	case outputFormatCSV:
		fmt.Fprintln(w, "file,text,confidence,error")
		for _, r := range results {
			fmt.Fprintf(w, "%s,%s,%.4f,%s\n", r.File, r.Text, r.Confidence, r.Error)
		}
	default:
		for _, r := range results {
			if r.Error != "" {
				fmt.Fprintf(w, "%s\tERROR\t%s\n", r.File, r.Error)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%.4f\n", r.File, r.Text, r.Confidence)
		}
	}
	return nil
}

func init() {
	addRecognizerFlags(batchCmd)
	batchCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json, csv)")
	batchCmd.Flags().StringP("output", "o", "", "write results to file instead of stdout")
	batchCmd.Flags().Int("workers", 0, "parallel image decode workers (0 = CPU count)")
	batchCmd.Flags().Int("prefetch-depth", 0, "bounded prefetch queue depth (0 = 2x workers)")
	rootCmd.AddCommand(batchCmd)
}
