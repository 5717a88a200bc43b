package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/haivivi/wespeaker/pkg/audio/pcm"
	"github.com/haivivi/wespeaker/pkg/audio/wav/wavtest"
	"github.com/haivivi/wespeaker/pkg/voiceprint"
)

func withOutput(t *testing.T, format string) {
	t.Helper()
	old := outputFmt
	outputFmt = format
	t.Cleanup(func() { outputFmt = old })
}

func newTestCore(t *testing.T, c ServeConfig) *service {
	t.Helper()
	if c.Scorer == "" {
		c.Scorer = scorerRandom
	}
	svc, err := c.newCore(nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeWAV(t *testing.T, name string, seconds float64) string {
	t.Helper()
	f := pcm.L16Mono16K
	return writeFile(t, name, wavtest.Encode(t, make([]byte, f.BytesInDuration(pcm.Seconds(seconds))), f))
}

func TestExtractHuman(t *testing.T) {
	withOutput(t, "")
	svc := newTestCore(t, ServeConfig{Seed: 7})
	path := writeFile(t, "a.mp3", []byte("not really audio"))

	var out bytes.Buffer
	if err := extract(context.Background(), &out, svc.extractor, &extractRequest{File: path}); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	for _, want := range []string{"**音频文件：** a.mp3", "- 窗口类型: whole", "(1, 256)", "维度  值", "   9  "} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	withOutput(t, "json")
	svc := newTestCore(t, ServeConfig{})
	path := writeFile(t, "a.wav", []byte("x"))

	var out bytes.Buffer
	d := 2.0
	req := &extractRequest{File: path, WindowType: "sliding", Duration: &d}
	if err := extract(context.Background(), &out, svc.extractor, req); err != nil {
		t.Fatal(err)
	}
	var x struct {
		Embedding []float32         `json:"embedding"`
		Window    voiceprint.Window `json:"window"`
	}
	if err := json.Unmarshal(out.Bytes(), &x); err != nil {
		t.Fatal(err)
	}
	if len(x.Embedding) != 256 || x.Window.Duration != 2 || x.Window.Step != voiceprint.DefaultStep {
		t.Errorf("embedding=%d window=%+v", len(x.Embedding), x.Window)
	}
}

func TestExtractMissingAndErrors(t *testing.T) {
	withOutput(t, "")
	svc := newTestCore(t, ServeConfig{})
	ctx := context.Background()

	var out bytes.Buffer
	if err := extract(ctx, &out, svc.extractor, &extractRequest{}); err != nil {
		t.Fatal(err)
	}
	if out.String() != voiceprint.MissingAudioPrompt+"\n" {
		t.Errorf("output = %q", out.String())
	}

	if err := extract(ctx, &out, svc.extractor, &extractRequest{File: filepath.Join(t.TempDir(), "none.wav")}); !os.IsNotExist(err) {
		t.Errorf("missing file: err = %v", err)
	}
	if err := extract(ctx, &out, svc.extractor, &extractRequest{File: t.TempDir()}); err == nil {
		t.Error("directory: expected error")
	}
	if err := extract(ctx, &out, svc.extractor, &extractRequest{File: "x", WindowType: "hann"}); err == nil {
		t.Error("bad window: expected error")
	}
}

func TestExtractDecoded(t *testing.T) {
	withOutput(t, "")
	svc := newTestCore(t, ServeConfig{Decode: true, Seed: 3})
	path := writeWAV(t, "speech.wav", 5.5)

	var out bytes.Buffer
	if err := extract(context.Background(), &out, svc.extractor, &extractRequest{File: path, WindowType: "sliding"}); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); !strings.Contains(got, "- 窗口数量: 4") {
		t.Errorf("output:\n%s", got)
	}
}

func TestExtractDecodedRejectsNonWAV(t *testing.T) {
	withOutput(t, "")
	svc := newTestCore(t, ServeConfig{Decode: true})
	path := writeFile(t, "a.wav", []byte("garbage"))
	var out bytes.Buffer
	err := extract(context.Background(), &out, svc.extractor, &extractRequest{File: path})
	if !errors.Is(err, voiceprint.ErrInference) {
		t.Errorf("err = %v", err)
	}
}

func TestBuildExtractRequest(t *testing.T) {
	dir := t.TempDir()
	reqPath := filepath.Join(dir, "request.yaml")
	os.WriteFile(reqPath, []byte("file: clip.wav\nwindow_type: sliding\nduration: 2.5\nstep: 1.5\n"), 0o644)

	cmd := &cobra.Command{Use: "extract"}
	addExtractFlags(cmd)
	cmd.Flags().Set("file", reqPath)
	cmd.Flags().Set("step", "0.5")

	req, err := buildExtractRequest(cmd, nil)
	if err != nil {
		t.Fatal(err)
	}
	if req.File != filepath.Join(dir, "clip.wav") || req.WindowType != "sliding" {
		t.Errorf("got %+v", req)
	}
	if req.Duration == nil || *req.Duration != 2.5 || req.Step == nil || *req.Step != 0.5 {
		t.Errorf("duration/step = %v/%v", req.Duration, req.Step)
	}

	req, err = buildExtractRequest(cmd, []string{"/abs/other.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if req.File != "/abs/other.wav" {
		t.Errorf("positional file = %q", req.File)
	}
}

func TestBuildExtractRequestDefaults(t *testing.T) {
	cmd := &cobra.Command{Use: "extract"}
	addExtractFlags(cmd)
	req, err := buildExtractRequest(cmd, []string{"a.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if req.WindowType != "" || req.Duration != nil || req.Step != nil {
		t.Errorf("unset flags leaked into request: %+v", req)
	}
}

func TestCompareCommand(t *testing.T) {
	withOutput(t, "json")
	svc := newTestCore(t, ServeConfig{Seed: 9})
	a := writeFile(t, "a.wav", []byte("a"))
	b := writeFile(t, "b.wav", []byte("b"))

	var out bytes.Buffer
	if err := compare(context.Background(), &out, svc.comparator, a, b); err != nil {
		t.Fatal(err)
	}
	var res struct {
		File1      string  `json:"file1"`
		Similarity float64 `json:"similarity"`
		Distance   float64 `json:"distance"`
		Verdict    string  `json:"verdict"`
	}
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("%v: %s", err, out.String())
	}
	if res.File1 != "a.wav" || res.Similarity < 0.3 || res.Similarity > 0.95 {
		t.Errorf("got %+v", res)
	}
	want := "different speakers"
	if res.Similarity > 0.7 {
		want = "same speaker"
	}
	if res.Verdict != want {
		t.Errorf("verdict = %q for similarity %f", res.Verdict, res.Similarity)
	}
}

func TestCompareCommandMissing(t *testing.T) {
	withOutput(t, "")
	svc := newTestCore(t, ServeConfig{})
	a := writeFile(t, "a.wav", []byte("a"))

	var out bytes.Buffer
	if err := compare(context.Background(), &out, svc.comparator, a, ""); err != nil {
		t.Fatal(err)
	}
	if out.String() != voiceprint.MissingPairPrompt+"\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestCompareCosineDecoded(t *testing.T) {
	withOutput(t, "")
	svc := newTestCore(t, ServeConfig{Scorer: scorerCosine, Decode: true, Seed: 2})
	a := writeWAV(t, "a.wav", 2)
	b := writeWAV(t, "b.wav", 4)

	var out bytes.Buffer
	if err := compare(context.Background(), &out, svc.comparator, a, b); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); !strings.Contains(got, "**文件1：** a.wav") || !strings.Contains(got, "**判断：**") {
		t.Errorf("output:\n%s", got)
	}
}

func TestInfoCard(t *testing.T) {
	got := infoCard(voiceprint.DefaultModelInfo()).Render(0)
	for _, want := range []string{"wespeaker-voxceleb-resnet34-LM", "ResNet34", "VoxCeleb", "16000 Hz", "256", "功能特点"} {
		if !strings.Contains(got, want) {
			t.Errorf("card missing %q:\n%s", want, got)
		}
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"scorer=cosine", "kv_dir=", " seed = 4"})
	if err != nil {
		t.Fatal(err)
	}
	if got[keyScorer] != "cosine" || got[keyKVDir] != "" || got[keySeed] != "4" {
		t.Errorf("got %v", got)
	}
	if _, ok := got[keyKVDir]; !ok {
		t.Error("empty value should be kept so the key is removed")
	}
	for _, bad := range []string{"scorer", "colour=red"} {
		if _, err := parseAssignments([]string{bad}); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

// execute runs the root command with args against an isolated config file.
func execute(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	t.Cleanup(func() {
		cfgFile, contextName, outputFmt, outputFile, logLevel = "", "", "", "", ""
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func hasLine(out, prefix, substr string) bool {
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, prefix) && strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestConfigContextCommands(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	execute(t, cfgPath, "config", "context", "set", "dev", "scorer=cosine", "max_upload_mb=5", "s3_secret_key=supersecretvalue")
	execute(t, cfgPath, "config", "context", "set", "prod", "listen=127.0.0.1:80")

	list := execute(t, cfgPath, "config", "context", "list")
	if !hasLine(list, "*", "dev") {
		t.Errorf("list does not mark dev current:\n%s", list)
	}
	if !strings.Contains(list, "127.0.0.1:80") {
		t.Errorf("list:\n%s", list)
	}

	var view contextView
	out := execute(t, cfgPath, "config", "context", "show", "-o", "json")
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	if view.Name != "dev" || !view.Current || view.Scorer != scorerCosine || view.Upload != "5.00 MB" {
		t.Errorf("view = %+v", view)
	}
	if s := view.Settings[keyS3SecretKey]; s == "supersecretvalue" || !strings.HasPrefix(s, "supe") {
		t.Errorf("secret shown as %q", s)
	}

	execute(t, cfgPath, "config", "context", "use", "prod")
	out = execute(t, cfgPath, "config", "context", "show", "-o", "json")
	json.Unmarshal([]byte(out), &view)
	if view.Name != "prod" || view.Listen != "127.0.0.1:80" {
		t.Errorf("view = %+v", view)
	}

	execute(t, cfgPath, "config", "context", "delete", "dev")
	if list := execute(t, cfgPath, "config", "context", "list"); strings.Contains(list, "dev") {
		t.Errorf("dev not deleted:\n%s", list)
	}
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, filepath.Join(t.TempDir(), "config.yaml"), "version")
	if !strings.HasPrefix(out, "wespeaker "+version) {
		t.Errorf("out = %q", out)
	}
}
