package commands

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/wespeaker/pkg/voiceprint"
)

var compareCmd = &cobra.Command{
	Use:   "compare <file1> <file2>",
	Short: "Compare the speakers of two audio files",
	Long: `Compare two audio files and judge whether they share a speaker.

Distance is 1 - similarity. Similarity greater than 0.7 means the same
speaker.

Example:
  wespeaker compare a.wav b.wav
  wespeaker compare a.wav b.wav -o json`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServeConfig()
		if err != nil {
			return err
		}
		newLogger(os.Stderr, cfg.LogLevel)

		svc, err := cfg.newCore(nil)
		if err != nil {
			return err
		}
		defer svc.Close()

		var a, b string
		if len(args) > 0 {
			a = args[0]
		}
		if len(args) > 1 {
			b = args[1]
		}
		return compare(cmd.Context(), cmd.OutOrStdout(), svc.comparator, a, b)
	},
}

func compare(ctx context.Context, w io.Writer, c *voiceprint.Comparator, path1, path2 string) error {
	a, err := audioRef(path1)
	if err != nil {
		return err
	}
	b, err := audioRef(path2)
	if err != nil {
		return err
	}
	res, err := c.Compare(ctx, a, b)
	if err != nil {
		return err
	}
	return outputResult(w, res, res.Report)
}
