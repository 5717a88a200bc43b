package commands

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/wespeaker/pkg/cli"
	"github.com/haivivi/wespeaker/pkg/kv"
	"github.com/haivivi/wespeaker/pkg/storage"
)

func testPaths(t *testing.T) *cli.Paths {
	t.Helper()
	return &cli.Paths{AppName: appName, HomeDir: t.TempDir()}
}

func TestLoadServeConfigDefaults(t *testing.T) {
	paths := testPaths(t)
	c, err := LoadServeConfig(nil, paths)
	if err != nil {
		t.Fatal(err)
	}
	if c.Listen != "0.0.0.0:7860" {
		t.Errorf("Listen = %q", c.Listen)
	}
	if c.Scorer != scorerRandom || c.Storage != storageLocal || c.Decode {
		t.Errorf("Scorer/Storage/Decode = %q/%q/%v", c.Scorer, c.Storage, c.Decode)
	}
	if want := filepath.Join(paths.HomeDir, ".giztoy", "wespeaker", "data", "uploads"); c.StorageDir != want {
		t.Errorf("StorageDir = %q, want %q", c.StorageDir, want)
	}
	if c.MaxUploadMB != 20 || c.Retention != 24*time.Hour || c.LogLevel != slog.LevelInfo || c.Seed != 0 {
		t.Errorf("got %+v", c)
	}
}

func TestLoadServeConfigOverrides(t *testing.T) {
	ctx := &cli.Context{Name: "dev", Extra: map[string]string{
		keyListen:      "127.0.0.1:9000",
		keyScorer:      "cosine",
		keyDecode:      "true",
		keyStorage:     "s3",
		keyS3Bucket:    "voices",
		keyS3Prefix:    "demo",
		keyS3Region:    "ap-southeast-1",
		keyS3Endpoint:  "http://localhost:9000",
		keyS3AccessKey: "AKIAEXAMPLE",
		keyS3SecretKey: "secret",
		keyKVDir:       "/var/lib/wespeaker/kv",
		keyMaxUploadMB: "5",
		keyRetention:   "90m",
		keyLogLevel:    "debug",
		keySeed:        "42",
	}}
	c, err := LoadServeConfig(ctx, testPaths(t))
	if err != nil {
		t.Fatal(err)
	}
	want := storage.S3Config{Region: "ap-southeast-1", Endpoint: "http://localhost:9000", AccessKey: "AKIAEXAMPLE", SecretKey: "secret"}
	if c.S3 != want || c.S3Bucket != "voices" || c.S3Prefix != "demo" {
		t.Errorf("s3 = %+v bucket=%q prefix=%q", c.S3, c.S3Bucket, c.S3Prefix)
	}
	if c.Listen != "127.0.0.1:9000" || c.Scorer != scorerCosine || !c.Decode || c.KVDir != "/var/lib/wespeaker/kv" {
		t.Errorf("got %+v", c)
	}
	if c.MaxUploadMB != 5 || c.Retention != 90*time.Minute || c.LogLevel != slog.LevelDebug || c.Seed != 42 {
		t.Errorf("got %+v", c)
	}
}

func TestLoadServeConfigInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{keyScorer, "euclid"},
		{keyDecode, "maybe"},
		{keyStorage, "ftp"},
		{keyMaxUploadMB, "-1"},
		{keyMaxUploadMB, "lots"},
		{keyRetention, "1 day"},
		{keyLogLevel, "loud"},
		{keySeed, "-3"},
		{keyStorage, "s3"}, // no bucket
	}
	for _, tt := range tests {
		ctx := &cli.Context{Name: "bad", Extra: map[string]string{tt.key: tt.value}}
		if _, err := LoadServeConfig(ctx, testPaths(t)); err == nil {
			t.Errorf("%s=%q: expected error", tt.key, tt.value)
		}
	}
}

func TestApplyServeFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "serve"}
	addServeFlags(cmd)
	for k, v := range map[string]string{
		"listen":      ":8080",
		"scorer":      "cosine",
		"decode":      "true",
		"storage-dir": "/tmp/clips",
		"retention":   "2h",
	} {
		if err := cmd.Flags().Set(k, v); err != nil {
			t.Fatal(err)
		}
	}

	c := ServeConfig{Listen: "0.0.0.0:7860", Scorer: scorerRandom, Storage: storageS3, S3Bucket: "b", KVDir: "/kv", Retention: time.Hour}
	if err := applyServeFlags(cmd, &c); err != nil {
		t.Fatal(err)
	}
	if c.Listen != ":8080" || c.Scorer != scorerCosine || !c.Decode || c.Retention != 2*time.Hour {
		t.Errorf("got %+v", c)
	}
	if c.Storage != storageLocal || c.StorageDir != "/tmp/clips" {
		t.Errorf("storage-dir should switch to local storage, got %q %q", c.Storage, c.StorageDir)
	}
	if c.KVDir != "/kv" {
		t.Errorf("unset flag changed KVDir to %q", c.KVDir)
	}

	cmd.Flags().Set("scorer", "euclid")
	if err := applyServeFlags(cmd, &c); err == nil || !strings.Contains(err.Error(), "scorer") {
		t.Errorf("err = %v", err)
	}
}

func TestNewService(t *testing.T) {
	dir := t.TempDir()
	c := ServeConfig{
		Scorer:      scorerCosine,
		Storage:     storageLocal,
		StorageDir:  filepath.Join(dir, "uploads"),
		KVDir:       filepath.Join(dir, "kv"),
		MaxUploadMB: 2,
		Retention:   time.Hour,
		Seed:        1,
	}
	svc, err := c.newService(slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	if _, ok := svc.index.(*kv.Badger); !ok {
		t.Errorf("index = %T, want *kv.Badger", svc.index)
	}
	if _, ok := svc.uploads.Files.(*storage.Local); !ok {
		t.Errorf("files = %T, want *storage.Local", svc.uploads.Files)
	}
	if svc.uploads.MaxBytes != 2<<20 || svc.uploads.TTL != 2*time.Hour {
		t.Errorf("MaxBytes = %d, TTL = %v", svc.uploads.MaxBytes, svc.uploads.TTL)
	}
	if want := filepath.Join(dir, "uploads"); svc.location != want {
		t.Errorf("location = %q, want %q", svc.location, want)
	}
}

func TestNewServiceMemoryIndexAndS3(t *testing.T) {
	c := ServeConfig{
		Scorer:   scorerRandom,
		Storage:  storageS3,
		S3Bucket: "voices",
		S3:       storage.S3Config{Endpoint: "http://127.0.0.1:9000"},
	}
	svc, err := c.newService(slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()
	if _, ok := svc.index.(*kv.Memory); !ok {
		t.Errorf("index = %T, want *kv.Memory", svc.index)
	}
	if _, ok := svc.uploads.Files.(*storage.S3Store); !ok {
		t.Errorf("files = %T, want *storage.S3Store", svc.uploads.Files)
	}
	if svc.location != "s3://voices" {
		t.Errorf("location = %q", svc.location)
	}
}
