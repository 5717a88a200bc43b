package voiceprint

import (
	"context"
	"fmt"

	"github.com/haivivi/wespeaker/pkg/audio/pcm"
)

// Extraction is the result of one Extract call.
type Extraction struct {
	// Report is the human-readable markdown report. When no audio was
	// supplied it holds MissingAudioPrompt and nothing else is set.
	Report string `json:"report" msgpack:"report"`

	// Embedding has exactly ModelInfo.EmbeddingDim elements, or is nil
	// when no audio was supplied.
	Embedding []float32 `json:"embedding" msgpack:"embedding"`

	File      string        `json:"file,omitempty" msgpack:"file,omitempty"`
	Window    Window        `json:"window" msgpack:"window"`
	Windows   int           `json:"windows,omitempty" msgpack:"windows,omitempty"` // segments embedded; 0 when audio was not decoded
	VoiceHash string        `json:"voice_hash,omitempty" msgpack:"voice_hash,omitempty"`
	Speaker   *SpeakerChunk `json:"speaker,omitempty" msgpack:"speaker,omitempty"`
}

// Missing reports whether the extraction was skipped for lack of audio.
func (x *Extraction) Missing() bool {
	return x.Embedding == nil
}

// PreviewRow is one (dimension, value) row of an embedding preview.
type PreviewRow struct {
	Dim   int     `json:"dim" msgpack:"dim"`
	Value float32 `json:"value" msgpack:"value"`
}

// Preview returns the first n elements of an embedding as rows.
func Preview(embedding []float32, n int) []PreviewRow {
	n = min(n, len(embedding))
	rows := make([]PreviewRow, n)
	for i := range rows {
		rows[i] = PreviewRow{Dim: i, Value: embedding[i]}
	}
	return rows
}

// Extractor produces speaker embeddings and reports.
//
// Without a Decoder the model is called once with nil audio and the
// referenced file is never opened; this is how the placeholder service
// runs. With a Decoder the audio is loaded and, for sliding windows,
// embedded window by window.
type Extractor struct {
	info        InfoProvider
	model       Model
	decoder     Decoder
	hasher      *Hasher
	newDetector func() *Detector
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithDecoder enables loading audio for the model.
func WithDecoder(d Decoder) ExtractorOption {
	return func(e *Extractor) {
		e.decoder = d
	}
}

// WithHasher sets the voice hasher used in reports. A nil hasher
// disables voice hashes.
func WithHasher(h *Hasher) ExtractorOption {
	return func(e *Extractor) {
		e.hasher = h
	}
}

// WithDetector sets the factory for the per-extraction speaker detector
// used with sliding windows.
func WithDetector(f func() *Detector) ExtractorOption {
	return func(e *Extractor) {
		if f != nil {
			e.newDetector = f
		}
	}
}

// NewExtractor creates an Extractor. The model dimension must match the
// embedding dimension advertised by info.
func NewExtractor(info InfoProvider, model Model, opts ...ExtractorOption) (*Extractor, error) {
	dim := info.ModelInfo().EmbeddingDim
	if model.Dimension() != dim {
		return nil, fmt.Errorf("voiceprint: model dimension %d does not match model info %d", model.Dimension(), dim)
	}
	e := &Extractor{
		info:  info,
		model: model,
		newDetector: func() *Detector {
			return NewDetector()
		},
	}
	if h, err := NewHasher(dim, 16, 42); err == nil {
		e.hasher = h
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ModelInfo returns the metadata of the underlying model.
func (e *Extractor) ModelInfo() ModelInfo {
	return e.info.ModelInfo()
}

// Extract computes the embedding of ref.
//
// An absent ref is not an error: the result carries MissingAudioPrompt
// and a nil embedding. Unknown window types and non-positive sliding
// parameters return an error wrapping ErrInvalidWindow. Decoder and model
// failures return an error wrapping ErrInference.
func (e *Extractor) Extract(ctx context.Context, ref AudioRef, windowType WindowType, duration, step *float64) (*Extraction, error) {
	if ref.IsZero() {
		return &Extraction{Report: MissingAudioPrompt}, nil
	}
	w, err := ResolveWindow(windowType, duration, step)
	if err != nil {
		return nil, err
	}

	x := &Extraction{File: ref.BaseName(), Window: w}
	if err := e.embed(ctx, ref, x); err != nil {
		return nil, err
	}
	x.Report = extractionReport(e.info.ModelInfo(), x)
	return x, nil
}

// Embed returns the embedding of ref over a window without building a
// report.
func (e *Extractor) Embed(ctx context.Context, ref AudioRef, w Window) ([]float32, error) {
	x := &Extraction{Window: w}
	if err := e.embed(ctx, ref, x); err != nil {
		return nil, err
	}
	return x.Embedding, nil
}

func (e *Extractor) embed(ctx context.Context, ref AudioRef, x *Extraction) error {
	if e.decoder == nil {
		emb, err := e.call(ctx, nil)
		if err != nil {
			return err
		}
		x.Embedding = emb
		x.VoiceHash = e.hash(emb)
		return nil
	}

	audio, err := e.decoder.Decode(ctx, ref)
	if err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrInference, ref.BaseName(), err)
	}
	segs := Segments(audio, pcm.L16Mono16K, x.Window)
	if len(segs) == 0 {
		return fmt.Errorf("%w: %s contains no audio", ErrInference, ref.BaseName())
	}

	embs := make([][]float32, 0, len(segs))
	var det *Detector
	if x.Window.Type == WindowSliding {
		det = e.newDetector()
	}
	for _, seg := range segs {
		emb, err := e.call(ctx, seg)
		if err != nil {
			return err
		}
		embs = append(embs, emb)
		if det != nil && e.hasher != nil {
			if chunk := det.Feed(e.hash(emb)); chunk != nil {
				x.Speaker = chunk
			}
		}
	}

	if len(embs) == 1 {
		x.Embedding = embs[0]
	} else {
		x.Embedding = Pool(embs)
	}
	x.Windows = len(embs)
	x.VoiceHash = e.hash(x.Embedding)
	return nil
}

// call runs the model once and checks the output dimension.
func (e *Extractor) call(ctx context.Context, audio []byte) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb, err := e.model.Embed(ctx, audio)
	if err != nil {
		return nil, wrapInference(err)
	}
	if want := e.info.ModelInfo().EmbeddingDim; len(emb) != want {
		return nil, fmt.Errorf("%w: model returned %d dims, want %d", ErrInference, len(emb), want)
	}
	return emb, nil
}

func (e *Extractor) hash(emb []float32) string {
	if e.hasher == nil {
		return ""
	}
	h, err := e.hasher.Hash(emb)
	if err != nil {
		return ""
	}
	return h
}
