package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestLoadConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wespeaker", "config.yaml")
	cfg, err := LoadConfigWithPath("wespeaker", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if cfg.Path() != path || cfg.Dir() != filepath.Dir(path) {
		t.Errorf("Path/Dir = %q %q", cfg.Path(), cfg.Dir())
	}
	if _, err := cfg.ResolveContext(""); !errors.Is(err, ErrNoContext) {
		t.Errorf("ResolveContext on empty config: %v", err)
	}
}

func TestContextLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadConfigWithPath("wespeaker", path)
	if err != nil {
		t.Fatal(err)
	}

	if err := cfg.SetContext("dev", map[string]string{"listen": ":8080", "decode": "true"}); err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetContext("prod", map[string]string{"storage": "s3"}); err != nil {
		t.Fatal(err)
	}
	if cfg.CurrentContext != "dev" {
		t.Errorf("first context should become current, got %q", cfg.CurrentContext)
	}
	// Empty value removes a key.
	if err := cfg.SetContext("dev", map[string]string{"decode": ""}); err != nil {
		t.Fatal(err)
	}

	reloaded, err := LoadConfigWithPath("wespeaker", path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.ListContexts(); !slices.Equal(got, []string{"dev", "prod"}) {
		t.Errorf("ListContexts = %v", got)
	}
	dev, err := reloaded.ResolveContext("")
	if err != nil {
		t.Fatal(err)
	}
	if dev.Name != "dev" || dev.GetExtra("listen") != ":8080" || dev.GetExtra("decode") != "" {
		t.Errorf("dev = %+v", dev)
	}

	if err := reloaded.UseContext("prod"); err != nil {
		t.Fatal(err)
	}
	if err := reloaded.UseContext("missing"); err == nil {
		t.Error("UseContext(missing) should fail")
	}
	if err := reloaded.DeleteContext("prod"); err != nil {
		t.Fatal(err)
	}
	if reloaded.CurrentContext != "" {
		t.Errorf("deleting current context should clear it, got %q", reloaded.CurrentContext)
	}
	if err := reloaded.DeleteContext("prod"); err == nil {
		t.Error("second delete should fail")
	}
}

func TestGetExtraNil(t *testing.T) {
	var ctx *Context
	if ctx.GetExtra("x") != "" {
		t.Error("nil context should have no extras")
	}
	if (&Context{}).GetExtra("x") != "" {
		t.Error("empty context should have no extras")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"1234", "****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"AKIAEXAMPLEKEY01", "AKIA********EY01"},
	}
	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPaths(t *testing.T) {
	home := t.TempDir()
	p := &Paths{AppName: "wespeaker", HomeDir: home}
	if want := filepath.Join(home, ".giztoy", "wespeaker", "config.yaml"); p.ConfigFile() != want {
		t.Errorf("ConfigFile = %q, want %q", p.ConfigFile(), want)
	}
	if err := p.EnsureDataDir(); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(p.DataDir()); err != nil || !fi.IsDir() {
		t.Errorf("data dir missing: %v", err)
	}
	if p.DataPath("kv") != filepath.Join(p.DataDir(), "kv") {
		t.Errorf("DataPath = %q", p.DataPath("kv"))
	}
}

func TestOutputFormats(t *testing.T) {
	type result struct {
		Name  string `json:"name" yaml:"name" msgpack:"name"`
		Value int    `json:"value" yaml:"value" msgpack:"value"`
	}
	in := result{Name: "test", Value: 123}

	var buf bytes.Buffer
	if err := Output(in, OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	var fromJSON result
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil || fromJSON != in {
		t.Errorf("JSON = %s, %v", buf.String(), err)
	}

	buf.Reset()
	if err := Output(in, OutputOptions{Format: FormatYAML, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "name: test") {
		t.Errorf("YAML = %s", buf.String())
	}

	buf.Reset()
	if err := Output(in, OutputOptions{Format: FormatMsgpack, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	var fromMsgpack result
	if err := msgpack.Unmarshal(buf.Bytes(), &fromMsgpack); err != nil || fromMsgpack != in {
		t.Errorf("msgpack = %+v, %v", fromMsgpack, err)
	}

	buf.Reset()
	if err := Output("**report**", OutputOptions{Format: FormatRaw, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "**report**" {
		t.Errorf("raw = %q", buf.String())
	}

	if err := Output(in, OutputOptions{Format: "xml", Writer: &buf}); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestOutputToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := Output(map[string]int{"a": 1}, OutputOptions{Format: FormatJSON, File: path}); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"a": 1`) {
		t.Errorf("file = %s", data)
	}
}

func TestParseOutputFormat(t *testing.T) {
	if f, err := ParseOutputFormat(""); err != nil || f != FormatYAML {
		t.Errorf("empty = %q, %v", f, err)
	}
	if _, err := ParseOutputFormat("table"); err == nil {
		t.Error("table should be rejected")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{50 << 20, "50.00 MB"},
		{3 << 30, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestParseRequest(t *testing.T) {
	type req struct {
		Window   string  `json:"window" yaml:"window"`
		Duration float64 `json:"duration" yaml:"duration"`
	}
	tests := []struct {
		name, file, data string
	}{
		{"yaml", "r.yaml", "window: sliding\nduration: 2.5\n"},
		{"json", "r.json", `{"window":"sliding","duration":2.5}`},
		{"sniffed", "r.txt", `{"window":"sliding","duration":2.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r req
			if err := ParseRequest([]byte(tt.data), tt.file, &r); err != nil {
				t.Fatal(err)
			}
			if r.Window != "sliding" || r.Duration != 2.5 {
				t.Errorf("got %+v", r)
			}
		})
	}

	var r req
	if err := ParseRequest([]byte("{not: [valid"), "r.json", &r); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "req.yml")
	os.WriteFile(path, []byte("window: whole\n"), 0o644)
	var r struct {
		Window string `yaml:"window"`
	}
	if err := LoadRequest(path, &r); err != nil || r.Window != "whole" {
		t.Errorf("LoadRequest = %+v, %v", r, err)
	}
	if err := LoadRequest(filepath.Join(t.TempDir(), "missing.yaml"), &r); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCardRender(t *testing.T) {
	c := Card{
		Styles: NewStyles(DefaultTheme),
		Title:  "wespeaker-voxceleb-resnet34-LM",
		Status: "模型已加载",
		Sections: []Section{
			{Label: "Model", Fields: []Field{{"Sample rate", "16000 Hz"}, {"Dim", "256"}}},
			{Label: "Use cases", Items: []string{"说话人识别"}},
		},
		Footer: "wespeaker info -o yaml",
	}
	out := c.Render(0)
	for _, want := range []string{"wespeaker-voxceleb-resnet34-LM", "模型已加载", "16000 Hz", "• 说话人识别", "wespeaker info -o yaml"} {
		if !strings.Contains(out, want) {
			t.Errorf("card missing %q:\n%s", want, out)
		}
	}
}
