package voiceprint

import (
	"fmt"
	"math"
	"strconv"

	"github.com/haivivi/wespeaker/pkg/audio/pcm"
)

// WindowType selects how a clip is covered during extraction.
type WindowType string

const (
	// WindowWhole embeds the whole clip at once.
	WindowWhole WindowType = "whole"

	// WindowSliding embeds overlapping segments and pools them.
	WindowSliding WindowType = "sliding"
)

// Default sliding window parameters in seconds.
const (
	DefaultDuration = 3.0
	DefaultStep     = 1.0
)

// ParseWindowType parses "whole" or "sliding". The empty string selects
// WindowWhole.
func ParseWindowType(s string) (WindowType, error) {
	switch WindowType(s) {
	case "", WindowWhole:
		return WindowWhole, nil
	case WindowSliding:
		return WindowSliding, nil
	}
	return "", fmt.Errorf("%w: unknown window type %q", ErrInvalidWindow, s)
}

// Window is a resolved set of window parameters.
type Window struct {
	Type     WindowType `json:"type" yaml:"type" msgpack:"type"`
	Duration float64    `json:"duration,omitempty" yaml:"duration,omitempty" msgpack:"duration,omitempty"` // seconds, sliding only
	Step     float64    `json:"step,omitempty" yaml:"step,omitempty" msgpack:"step,omitempty"`             // seconds, sliding only
}

// ResolveWindow applies defaults and validation. For WindowWhole, duration
// and step are ignored. For WindowSliding, nil values take the defaults
// and non-positive values are rejected.
func ResolveWindow(t WindowType, duration, step *float64) (Window, error) {
	switch t {
	case WindowWhole:
		return Window{Type: WindowWhole}, nil
	case WindowSliding:
	default:
		return Window{}, fmt.Errorf("%w: unknown window type %q", ErrInvalidWindow, t)
	}

	w := Window{Type: WindowSliding, Duration: DefaultDuration, Step: DefaultStep}
	if duration != nil {
		w.Duration = *duration
	}
	if step != nil {
		w.Step = *step
	}
	if !(w.Duration > 0) || math.IsInf(w.Duration, 0) {
		return Window{}, fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidWindow, w.Duration)
	}
	if !(w.Step > 0) || math.IsInf(w.Step, 0) {
		return Window{}, fmt.Errorf("%w: step must be positive, got %v", ErrInvalidWindow, w.Step)
	}
	return w, nil
}

// DurationLabel is the duration as shown in reports.
func (w Window) DurationLabel() string {
	if w.Type != WindowSliding {
		return "whole"
	}
	return formatSeconds(w.Duration)
}

// StepLabel is the step as shown in reports.
func (w Window) StepLabel() string {
	if w.Type != WindowSliding {
		return "N/A"
	}
	return formatSeconds(w.Step)
}

func formatSeconds(s float64) string {
	str := strconv.FormatFloat(s, 'f', -1, 64)
	if s == math.Trunc(s) {
		str += ".0"
	}
	return str
}

// FieldVisibility says which window inputs a UI should show.
type FieldVisibility struct {
	Duration bool `json:"duration" msgpack:"duration"`
	Step     bool `json:"step" msgpack:"step"`
}

// Visibility maps the selected window type to input visibility: duration
// and step are shown only for sliding windows.
func Visibility(t WindowType) FieldVisibility {
	on := t == WindowSliding
	return FieldVisibility{Duration: on, Step: on}
}

// Segments slices PCM audio into windows of w.Duration every w.Step.
//
// Audio no longer than one window yields a single segment holding the
// whole clip. When the regular hops stop short of the end, a final window
// aligned to the end of the clip is added so the tail is covered.
// For WindowWhole the whole clip is one segment.
func Segments(audio []byte, format pcm.Format, w Window) [][]byte {
	audio = format.Align(audio)
	if len(audio) == 0 {
		return nil
	}
	if w.Type != WindowSliding {
		return [][]byte{audio}
	}

	win := spanBytes(w.Duration, format, len(audio))
	hop := spanBytes(w.Step, format, len(audio))
	if fb := format.FrameBytes(); hop < fb {
		hop = fb
	}
	if win <= 0 || len(audio) <= win {
		return [][]byte{audio}
	}

	var (
		segs      [][]byte
		lastStart int
	)
	for start := 0; start+win <= len(audio); start += hop {
		segs = append(segs, audio[start:start+win])
		lastStart = start
	}
	if tail := len(audio) - win; tail > lastStart {
		segs = append(segs, audio[tail:])
	}
	return segs
}

// spanBytes converts seconds to a frame-aligned byte count, capped at limit.
func spanBytes(seconds float64, format pcm.Format, limit int) int {
	n := seconds * float64(format.BytesRate())
	if !(n < float64(limit)) {
		return limit
	}
	fb := format.FrameBytes()
	return int(n) / fb * fb
}

// Pool averages embeddings and L2-normalizes the result. Returns nil for
// no input.
func Pool(embeddings [][]float32) []float32 {
	if len(embeddings) == 0 {
		return nil
	}
	avg := make([]float32, len(embeddings[0]))
	for _, emb := range embeddings {
		for i, v := range emb {
			avg[i] += v
		}
	}
	n := float32(len(embeddings))
	for i := range avg {
		avg[i] /= n
	}
	l2Normalize(avg)
	return avg
}
