package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/capgo/internal/recognizer"
	"github.com/MeKo-Tech/capgo/internal/utils"
)

const (
	outputFormatText = "text"
	outputFormatJSON = "json"
	outputFormatCSV  = "csv"
)

// predictCmd represents the predict command.
var predictCmd = &cobra.Command{
	Use:   "predict [images...]",
	Short: "Recognize the text in CAPTCHA images",
	Long: `Recognize the text in one or more CAPTCHA image files.

Supported formats: JPEG, PNG, BMP

Examples:
  capgo predict captcha.png
  capgo predict *.png --format json
  capgo predict captcha.png --decoding beam --beam-width 25`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files provided")
		}

		format, _ := cmd.Flags().GetString("format")
		if err := validateOutputFormat(format); err != nil {
			return err
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

		if warmup, _ := cmd.Flags().GetInt("warmup"); warmup > 0 {
			if err := rec.Warmup(warmup); err != nil {
				return fmt.Errorf("warmup failed: %w", err)
			}
		}

		type prediction struct {
			File       string  `json:"file"`
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
			Score      float64 `json:"score"`
			Error      string  `json:"error,omitempty"`
		}

		results := make([]prediction, 0, len(args))
		for _, path := range args {
			p := prediction{File: path}
			img, _, err := utils.LoadImage(path)
			if err != nil {
				p.Error = err.Error()
				results = append(results, p)
				continue
			}
			res, err := rec.Recognize(img)
			if err != nil {
				p.Error = err.Error()
				results = append(results, p)
				continue
			}
			p.Text = res.Text
			p.Confidence = res.Confidence
			p.Score = res.Score
			results = append(results, p)
		}

		out := cmd.OutOrStdout()
		switch format {
		case outputFormatJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return fmt.Errorf("failed to encode results: %w", err)
			}
		case outputFormatCSV:
			fmt.Fprintln(out, "file,text,confidence,error")
			for _, p := range results {
				fmt.Fprintf(out, "%s,%s,%.4f,%s\n", p.File, p.Text, p.Confidence, p.Error)
			}
		default:
			for _, p := range results {
				if p.Error != "" {
					fmt.Fprintf(os.Stderr, "%s: %s\n", p.File, p.Error)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%.4f\n", p.File, p.Text, p.Confidence)
			}
		}

		failed := 0
		for _, p := range results {
			if p.Error != "" {
				failed++
			}
		}
		if failed == len(results) {
			return fmt.Errorf("all %d input(s) failed", failed)
		}
		return nil
	},
}

// validateOutputFormat rejects unknown output formats.
func validateOutputFormat(format string) error {
	switch format {
	case outputFormatText, outputFormatJSON, outputFormatCSV:
		return nil
	}
	return fmt.Errorf("invalid output format: %s (must be one of: %s)",
		format, strings.Join([]string{outputFormatText, outputFormatJSON, outputFormatCSV}, ", "))
}

// recognizerConfigFromFlags builds a recognizer config from the merged
// configuration with per-command flag overrides applied.
func recognizerConfigFromFlags(cmd *cobra.Command) (recognizer.Config, error) {
	cfg := GetConfig()
	recCfg := cfg.ToRecognizerConfig()

	if cmd.Flags().Changed("model") {
		recCfg.ModelPath, _ = cmd.Flags().GetString("model")
	}
	if cmd.Flags().Changed("vocab") {
		recCfg.VocabPath, _ = cmd.Flags().GetString("vocab")
	}
	if cmd.Flags().Changed("width") {
		recCfg.ImageWidth, _ = cmd.Flags().GetInt("width")
	}
	if cmd.Flags().Changed("height") {
		recCfg.ImageHeight, _ = cmd.Flags().GetInt("height")
	}
	if cmd.Flags().Changed("threads") {
		recCfg.NumThreads, _ = cmd.Flags().GetInt("threads")
	}
	if cmd.Flags().Changed("decoding") {
		recCfg.Decoding, _ = cmd.Flags().GetString("decoding")
	}
	if cmd.Flags().Changed("beam-width") {
		recCfg.BeamWidth, _ = cmd.Flags().GetInt("beam-width")
	}
	if cmd.Flags().Changed("top-paths") {
		recCfg.TopPaths, _ = cmd.Flags().GetInt("top-paths")
	}

	switch recCfg.Decoding {
	case "greedy", "beam":
	default:
		return recognizer.Config{}, fmt.Errorf("invalid decoding policy: %s (must be greedy or beam)", recCfg.Decoding)
	}
	if recCfg.BeamWidth < 1 {
		return recognizer.Config{}, fmt.Errorf("beam width must be >= 1, got %d", recCfg.BeamWidth)
	}
	if recCfg.TopPaths < 1 || recCfg.TopPaths > recCfg.BeamWidth {
		return recognizer.Config{}, fmt.Errorf("top paths %d outside [1, %d]", recCfg.TopPaths, recCfg.BeamWidth)
	}

	return recCfg, nil
}

// addRecognizerFlags registers the shared recognition flags on a command.
func addRecognizerFlags(cmd *cobra.Command) {
	cmd.Flags().String("model", "", "path to recognition ONNX model")
	cmd.Flags().String("vocab", "", "path to vocabulary file")
	cmd.Flags().Int("width", 0, "input image width expected by the model")
	cmd.Flags().Int("height", 0, "input image height expected by the model")
	cmd.Flags().Int("threads", 0, "intra-op thread count (0 = runtime default)")
	cmd.Flags().String("decoding", "greedy", "decoding policy (greedy, beam)")
	cmd.Flags().Int("beam-width", 10, "beam width for beam decoding")
	cmd.Flags().Int("top-paths", 1, "number of alternatives to keep per image")
	cmd.Flags().Int("warmup", 0, "warmup iterations before processing")
}

func init() {
	addRecognizerFlags(predictCmd)
	predictCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json, csv)")
	rootCmd.AddCommand(predictCmd)
}
