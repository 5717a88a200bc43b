package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/wespeaker/pkg/cli"
	"github.com/haivivi/wespeaker/pkg/voiceprint"
)

// extractRequest is the request file format of 'wespeaker extract -f'.
type extractRequest struct {
	File       string   `yaml:"file" json:"file"`
	WindowType string   `yaml:"window_type" json:"window_type"`
	Duration   *float64 `yaml:"duration" json:"duration"`
	Step       *float64 `yaml:"step" json:"step"`
}

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract a speaker embedding from an audio file",
	Long: `Extract a 256-dimensional speaker embedding from an audio file.

Sliding windows default to 3.0 s with a 1.0 s step. Parameters can also be
read from a YAML or JSON request file:

  file: speech.wav
  window_type: sliding
  duration: 2.5
  step: 0.5

Example:
  wespeaker extract speech.wav
  wespeaker extract speech.wav --window sliding --duration 2.5 --step 0.5
  wespeaker extract -f request.yaml -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	addExtractFlags(extractCmd)
}

func addExtractFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("file", "f", "", "request file (YAML or JSON)")
	f.String("window", "", "window type: whole or sliding (default whole)")
	f.Float64("duration", voiceprint.DefaultDuration, "sliding window duration in seconds")
	f.Float64("step", voiceprint.DefaultStep, "sliding window step in seconds")
}

// buildExtractRequest merges the request file, positional file and flags.
// Flags win over the request file.
func buildExtractRequest(cmd *cobra.Command, args []string) (*extractRequest, error) {
	req := &extractRequest{}
	f := cmd.Flags()
	if path, _ := f.GetString("file"); path != "" {
		if err := cli.LoadRequest(path, req); err != nil {
			return nil, err
		}
		if req.File != "" && !filepath.IsAbs(req.File) {
			req.File = filepath.Join(filepath.Dir(path), req.File)
		}
	}
	if len(args) == 1 {
		req.File = args[0]
	}
	if f.Changed("window") {
		req.WindowType, _ = f.GetString("window")
	}
	if f.Changed("duration") {
		d, _ := f.GetFloat64("duration")
		req.Duration = &d
	}
	if f.Changed("step") {
		s, _ := f.GetFloat64("step")
		req.Step = &s
	}
	return req, nil
}

// audioRef returns the reference for a local file, or the zero ref when
// path is empty.
func audioRef(path string) (voiceprint.AudioRef, error) {
	if path == "" {
		return voiceprint.AudioRef{}, nil
	}
	st, err := os.Stat(path)
	if err != nil {
		return voiceprint.AudioRef{}, err
	}
	if st.IsDir() {
		return voiceprint.AudioRef{}, fmt.Errorf("%s is a directory", path)
	}
	return voiceprint.AudioRef{Path: path}, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	req, err := buildExtractRequest(cmd, args)
	if err != nil {
		return err
	}
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
	return extract(cmd.Context(), cmd.OutOrStdout(), svc.extractor, req)
}

func extract(ctx context.Context, w io.Writer, ex *voiceprint.Extractor, req *extractRequest) error {
	windowType, err := voiceprint.ParseWindowType(req.WindowType)
	if err != nil {
		return err
	}
	ref, err := audioRef(req.File)
	if err != nil {
		return err
	}
	x, err := ex.Extract(ctx, ref, windowType, req.Duration, req.Step)
	if err != nil {
		return err
	}
	return outputResult(w, x, renderExtraction(x))
}

func renderExtraction(x *voiceprint.Extraction) string {
	if x.Missing() {
		return x.Report
	}
	var b strings.Builder
	b.WriteString(x.Report)
	b.WriteString("\n\n维度  值\n")
	for _, row := range voiceprint.Preview(x.Embedding, 10) {
		fmt.Fprintf(&b, "%4d  %+.4f\n", row.Dim, row.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}
