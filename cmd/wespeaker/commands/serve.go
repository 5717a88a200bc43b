package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/wespeaker/pkg/metrics"
	"github.com/haivivi/wespeaker/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the speaker embedding web UI",
	Long: `Run the web UI and its JSON API.

The page has three tabs: speaker embedding extraction, speaker comparison
and model information. Uploads are kept in the configured store and removed
after the retention period.

Settings come from the current context (see 'wespeaker config context set')
and can be overridden with flags.

Example:
  wespeaker serve
  wespeaker serve --listen 127.0.0.1:8080 --scorer cosine --decode`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("listen", "", "listen address (default "+web.DefaultAddr+")")
	f.String("scorer", "", "comparison scorer: random or cosine")
	f.Bool("decode", false, "decode WAV audio instead of placeholder extraction")
	f.String("storage-dir", "", "local upload directory")
	f.String("kv-dir", "", "badger directory for the upload index (default: in memory)")
	f.Duration("retention", 0, "how long uploads are kept")
	f.Duration("sweep-interval", time.Minute, "how often expired uploads are removed")
}

// applyServeFlags overrides c with the serve flags the user set.
func applyServeFlags(cmd *cobra.Command, c *ServeConfig) error {
	f := cmd.Flags()
	var err error
	if f.Changed("listen") {
		c.Listen, err = f.GetString("listen")
	}
	if err == nil && f.Changed("scorer") {
		c.Scorer, err = f.GetString("scorer")
	}
	if err == nil && f.Changed("decode") {
		c.Decode, err = f.GetBool("decode")
	}
	if err == nil && f.Changed("storage-dir") {
		c.Storage = storageLocal
		c.StorageDir, err = f.GetString("storage-dir")
	}
	if err == nil && f.Changed("kv-dir") {
		c.KVDir, err = f.GetString("kv-dir")
	}
	if err == nil && f.Changed("retention") {
		c.Retention, err = f.GetDuration("retention")
	}
	if err != nil {
		return err
	}
	return c.Validate()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, &cfg); err != nil {
		return err
	}
	sweepInterval, err := cmd.Flags().GetDuration("sweep-interval")
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.LogLevel)
	svc, err := cfg.newService(logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	info := svc.extractor.ModelInfo()
	srv := web.New(web.Config{
		Extractor:  svc.extractor,
		Comparator: svc.comparator,
		Uploads:    svc.uploads,
		Metrics:    metrics.New(version, info.Name),
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.RunSweeper(ctx, sweepInterval, cfg.Retention)
	go runBadgerGC(ctx, svc.index, 10*time.Minute, logger)

	logger.Info("wespeaker starting",
		"version", version,
		"model", info.Name,
		"scorer", cfg.Scorer,
		"decode", cfg.Decode,
		"storage", cfg.Storage,
		"storage_location", svc.location,
		"retention", cfg.Retention,
	)
	return srv.ListenAndServe(ctx, cfg.Listen)
}

