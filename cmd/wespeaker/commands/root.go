package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/wespeaker/pkg/cli"
)

const appName = "wespeaker"

// version is set at build time with -ldflags "-X ...commands.version=...".
var version = "dev"

var (
	// Global flags
	cfgFile     string
	contextName string
	outputFmt   string
	outputFile  string
	logLevel    string

	// Global configuration
	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   "wespeaker",
	Short: "WeSpeaker speaker embedding demo",
	Long: `wespeaker - speaker embedding demo built around the
wespeaker-voxceleb-resnet34-LM model (ResNet34, VoxCeleb, 16 kHz, 256 dims).

The service runs in placeholder mode: embeddings are random standard-normal
vectors and comparison scores are drawn uniformly from [0.3, 0.95]. Two clips
are judged to be the same speaker when similarity is greater than 0.7.

Configuration is stored in ~/.giztoy/wespeaker/ and supports multiple
contexts, similar to kubectl's context management.

Examples:
  # Start the web UI on 0.0.0.0:7860
  wespeaker serve

  # Extract an embedding with 2.5 s sliding windows
  wespeaker extract speech.wav --window sliding --duration 2.5

  # Compare two clips and print JSON
  wespeaker compare a.wav b.wav -o json
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := cli.ParseOutputFormat(outputFmt); err != nil {
			return err
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.giztoy/wespeaker/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "", "output format: yaml, json, msgpack or raw (default: human readable)")
	rootCmd.PersistentFlags().StringVar(&outputFile, "output-file", "", "write output to a file instead of stdout")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	globalConfig, err = cli.LoadConfigWithPath(appName, cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

func getConfig() *cli.Config {
	return globalConfig
}

// getContext returns the context to read settings from. It returns nil
// without error when no context is configured, so every setting falls
// back to its default.
func getContext() (*cli.Context, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	ctx, err := cfg.ResolveContext(contextName)
	if errors.Is(err, cli.ErrNoContext) {
		return nil, nil
	}
	return ctx, err
}

// loadServeConfig resolves the settings of the selected context and applies
// the --log-level flag.
func loadServeConfig() (ServeConfig, error) {
	ctx, err := getContext()
	if err != nil {
		return ServeConfig{}, err
	}
	paths, err := cli.NewPaths(appName)
	if err != nil {
		return ServeConfig{}, err
	}
	s, err := LoadServeConfig(ctx, paths)
	if err != nil {
		return ServeConfig{}, err
	}
	if logLevel != "" {
		if err := s.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
			return ServeConfig{}, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
		}
	}
	return s, nil
}

// newLogger installs a text slog handler on stderr as the default logger.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// outputResult prints result in the --output format. When no format was
// requested, human is printed instead.
func outputResult(w io.Writer, result any, human string) error {
	if outputFmt == "" {
		if outputFile == "" {
			_, err := fmt.Fprintln(w, human)
			return err
		}
		return cli.Output(human+"\n", cli.OutputOptions{Format: cli.FormatRaw, File: outputFile})
	}
	format, err := cli.ParseOutputFormat(outputFmt)
	if err != nil {
		return err
	}
	opts := cli.OutputOptions{Format: format, File: outputFile}
	if outputFile == "" {
		opts.Writer = w
	}
	return cli.Output(result, opts)
}
