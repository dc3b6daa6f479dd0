package cmd

import (
	"errors"
	"fmt"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/capgo/internal/dataset"
	"github.com/MeKo-Tech/capgo/internal/vocab"
)

// vocabCmd groups character set subcommands.
var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Build and inspect character sets",
	Long: `Build a character set from a labeled corpus or inspect an existing one.

A character set file holds one token per line in a stable order; a sidecar
file records its size, blank id, and maximum label length.`,
}

// vocabBuildCmd builds a vocabulary from corpus labels.
var vocabBuildCmd = &cobra.Command{
	Use:   "build <corpus-dir>",
	Short: "Build a character set from labeled file names",
	Long: `Scan a corpus directory and build the character set of its labels.

Ground truth is taken from file names: the stem up to the first underscore
is the label. The resulting set is written one token per line together with
a sidecar describing it.

Examples:
  capgo vocab build ./corpus -o models/captcha_vocab.txt`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			return errors.New("no output path provided, use --output")
		}

		samples, err := dataset.Scan(args[0])
		if err != nil {
			return fmt.Errorf("failed to scan corpus: %w", err)
		}
		if len(samples) == 0 {
			return errors.New("corpus contains no supported image files")
		}

		v, err := vocab.Build(dataset.Labels(samples))
		if err != nil {
			return fmt.Errorf("failed to build character set: %w", err)
		}

		if err := v.Save(output); err != nil {
			return fmt.Errorf("failed to save character set: %w", err)
		}

		slog.Info("Character set written",
			"path", output, "size", v.Size(), "max_label_len", v.MaxLabelLen())
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d characters to %s (blank id %d, max label length %d)\n",
			v.Size(), output, v.BlankID(), v.MaxLabelLen())
		return nil
	},
}

// vocabShowCmd prints an existing vocabulary.
var vocabShowCmd = &cobra.Command{
	Use:   "show <vocab-file>",
	Short: "Inspect an existing character set",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := vocab.Load(args[0])
		if err != nil {
			return fmt.Errorf("failed to load character set: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Size:            %d\n", v.Size())
		fmt.Fprintf(out, "Blank id:        %d\n", v.BlankID())
		fmt.Fprintf(out, "Classes:         %d\n", v.NumClasses())
		fmt.Fprintf(out, "Max label len:   %d\n", v.MaxLabelLen())
		fmt.Fprintf(out, "Characters:      %s\n", string(v.Runes()))
		return nil
	},
}

func init() {
	vocabBuildCmd.Flags().StringP("output", "o", "", "output path for the character set file")
	vocabCmd.AddCommand(vocabBuildCmd)
	vocabCmd.AddCommand(vocabShowCmd)
	rootCmd.AddCommand(vocabCmd)
}
