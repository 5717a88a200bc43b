package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/haivivi/wespeaker/pkg/audio/loader"
	"github.com/haivivi/wespeaker/pkg/cli"
	"github.com/haivivi/wespeaker/pkg/kv"
	"github.com/haivivi/wespeaker/pkg/storage"
	"github.com/haivivi/wespeaker/pkg/upload"
	"github.com/haivivi/wespeaker/pkg/voiceprint"
	"github.com/haivivi/wespeaker/pkg/web"
)

// Context extra keys.
const (
	keyListen      = "listen"
	keyScorer      = "scorer"
	keyDecode      = "decode"
	keyStorage     = "storage"
	keyStorageDir  = "storage_dir"
	keyS3Bucket    = "s3_bucket"
	keyS3Prefix    = "s3_prefix"
	keyS3Region    = "s3_region"
	keyS3Endpoint  = "s3_endpoint"
	keyS3AccessKey = "s3_access_key"
	keyS3SecretKey = "s3_secret_key"
	keyKVDir       = "kv_dir"
	keyMaxUploadMB = "max_upload_mb"
	keyRetention   = "retention"
	keyLogLevel    = "log_level"
	keySeed        = "seed"
)

// contextKeys lists the keys accepted by 'config context set'.
var contextKeys = []string{
	keyListen, keyScorer, keyDecode, keyStorage, keyStorageDir,
	keyS3Bucket, keyS3Prefix, keyS3Region, keyS3Endpoint, keyS3AccessKey, keyS3SecretKey,
	keyKVDir, keyMaxUploadMB, keyRetention, keyLogLevel, keySeed,
}

// secretKeys are masked by 'config context show'.
var secretKeys = map[string]bool{keyS3AccessKey: true, keyS3SecretKey: true}

const (
	scorerRandom = "random"
	scorerCosine = "cosine"

	storageLocal = "local"
	storageS3    = "s3"
)

// ServeConfig holds the service settings resolved from a context.
type ServeConfig struct {
	Listen string

	// Scorer is "random" (uniform placeholder scores) or "cosine"
	// (cosine similarity of extracted embeddings).
	Scorer string

	// Decode loads WAV audio and embeds it window by window instead of
	// calling the model once per clip without reading it.
	Decode bool

	Storage    string
	StorageDir string
	S3Bucket   string
	S3Prefix   string
	S3         storage.S3Config

	// KVDir holds the badger upload index. Empty keeps it in memory.
	KVDir string

	MaxUploadMB int
	Retention   time.Duration
	LogLevel    slog.Level

	// Seed makes the placeholder model and scorer reproducible. Zero
	// seeds from the runtime.
	Seed uint64
}

// DefaultServeConfig returns the settings used when a context sets nothing.
func DefaultServeConfig(paths *cli.Paths) ServeConfig {
	return ServeConfig{
		Listen:      web.DefaultAddr,
		Scorer:      scorerRandom,
		Storage:     storageLocal,
		StorageDir:  paths.DataPath("uploads"),
		MaxUploadMB: 20,
		Retention:   24 * time.Hour,
		LogLevel:    slog.LevelInfo,
	}
}

// LoadServeConfig overlays the extra keys of ctx on the defaults. A nil
// ctx yields the defaults.
func LoadServeConfig(ctx *cli.Context, paths *cli.Paths) (ServeConfig, error) {
	c := DefaultServeConfig(paths)
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(ctx.GetExtra(key)); v != "" {
			*dst = v
		}
	}
	str(keyListen, &c.Listen)
	str(keyScorer, &c.Scorer)
	str(keyStorage, &c.Storage)
	str(keyStorageDir, &c.StorageDir)
	str(keyS3Bucket, &c.S3Bucket)
	str(keyS3Prefix, &c.S3Prefix)
	str(keyS3Region, &c.S3.Region)
	str(keyS3Endpoint, &c.S3.Endpoint)
	str(keyS3AccessKey, &c.S3.AccessKey)
	str(keyS3SecretKey, &c.S3.SecretKey)
	str(keyKVDir, &c.KVDir)

	if v := ctx.GetExtra(keyDecode); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("invalid %s %q: %w", keyDecode, v, err)
		}
		c.Decode = b
	}
	if v := ctx.GetExtra(keyMaxUploadMB); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c, fmt.Errorf("invalid %s %q", keyMaxUploadMB, v)
		}
		c.MaxUploadMB = n
	}
	if v := ctx.GetExtra(keyRetention); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, fmt.Errorf("invalid %s %q: %w", keyRetention, v, err)
		}
		c.Retention = d
	}
	if v := ctx.GetExtra(keyLogLevel); v != "" {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return c, fmt.Errorf("invalid %s %q: %w", keyLogLevel, v, err)
		}
	}
	if v := ctx.GetExtra(keySeed); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c, fmt.Errorf("invalid %s %q: %w", keySeed, v, err)
		}
		c.Seed = n
	}
	return c, c.Validate()
}

// Validate checks enumerated settings.
func (c ServeConfig) Validate() error {
	switch c.Scorer {
	case scorerRandom, scorerCosine:
	default:
		return fmt.Errorf("invalid %s %q: want %s or %s", keyScorer, c.Scorer, scorerRandom, scorerCosine)
	}
	switch c.Storage {
	case storageLocal:
		if c.StorageDir == "" {
			return fmt.Errorf("%s is required for local storage", keyStorageDir)
		}
	case storageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("%s is required for s3 storage", keyS3Bucket)
		}
	default:
		return fmt.Errorf("invalid %s %q: want %s or %s", keyStorage, c.Storage, storageLocal, storageS3)
	}
	return nil
}

// service is the set of components behind the CLI and web server.
type service struct {
	extractor  *voiceprint.Extractor
	comparator *voiceprint.Comparator
	uploads    *upload.Registry
	model      *voiceprint.PlaceholderModel
	index      kv.Store
	location   string // where clips are stored, for logs
}

func (s *service) Close() error {
	var err error
	if s.index != nil {
		err = s.index.Close()
	}
	if cerr := s.model.Close(); err == nil {
		err = cerr
	}
	return err
}

// newCore builds the extractor and comparator. Audio paths are resolved
// through files when it is non-nil, else on the local filesystem.
func (c ServeConfig) newCore(files storage.FileStore) (*service, error) {
	info := voiceprint.DefaultModelInfo()
	var modelOpts []voiceprint.PlaceholderOption
	if c.Seed != 0 {
		modelOpts = append(modelOpts, voiceprint.WithSeed(c.Seed))
	}
	model := voiceprint.NewPlaceholderModel(info.EmbeddingDim, modelOpts...)

	var exOpts []voiceprint.ExtractorOption
	if c.Decode {
		exOpts = append(exOpts, voiceprint.WithDecoder(&loader.Loader{Store: files}))
	}
	ex, err := voiceprint.NewExtractor(voiceprint.NewStaticInfo(info), model, exOpts...)
	if err != nil {
		model.Close()
		return nil, err
	}

	var scorer voiceprint.Scorer = voiceprint.NewRandomScorer(c.Seed)
	if c.Scorer == scorerCosine {
		scorer = &voiceprint.CosineScorer{Extractor: ex}
	}
	return &service{
		extractor:  ex,
		comparator: voiceprint.NewComparator(scorer),
		model:      model,
	}, nil
}

// newFileStore opens the configured upload store.
func (c ServeConfig) newFileStore() (storage.FileStore, error) {
	if c.Storage == storageS3 {
		return storage.NewS3(storage.NewS3Client(c.S3), c.S3Bucket, c.S3Prefix), nil
	}
	return storage.NewLocal(c.StorageDir)
}

// newIndex opens the upload index.
func (c ServeConfig) newIndex(logger *slog.Logger) (kv.Store, error) {
	if c.KVDir == "" {
		return kv.NewMemory(), nil
	}
	return kv.NewBadger(kv.BadgerOptions{Dir: c.KVDir, Logger: logger})
}

// newService builds everything the web server needs.
func (c ServeConfig) newService(logger *slog.Logger) (*service, error) {
	files, err := c.newFileStore()
	if err != nil {
		return nil, err
	}
	svc, err := c.newCore(files)
	if err != nil {
		return nil, err
	}
	index, err := c.newIndex(logger)
	if err != nil {
		svc.Close()
		return nil, err
	}
	// Records outlive the sweep retention so the sweeper still finds
	// their files.
	ttl := 2 * c.Retention
	svc.index = index
	svc.location = "s3://" + path.Join(c.S3Bucket, c.S3Prefix)
	if l, ok := files.(*storage.Local); ok {
		svc.location = l.Root()
	}
	svc.uploads = &upload.Registry{
		Files:    files,
		Index:    index,
		MaxBytes: int64(c.MaxUploadMB) << 20,
		TTL:      ttl,
	}
	return svc, nil
}

// runBadgerGC collects the badger value log every interval until ctx is
// done. It returns immediately for other stores.
func runBadgerGC(ctx context.Context, store kv.Store, interval time.Duration, logger *slog.Logger) {
	b, ok := store.(*kv.Badger)
	if !ok {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := b.RunGC(); err != nil {
				logger.Warn("badger gc failed", "error", err)
			}
		}
	}
}
