// Package voiceprint provides speaker embedding extraction and speaker
// comparison behind injectable model and scoring backends.
//
// # Architecture
//
// Two stateless operations are exposed:
//
//  1. Extractor.Extract: audio reference + window parameters → report + embedding
//  2. Comparator.Compare: two audio references → similarity report
//
// Both read static metadata from an [InfoProvider]. Embeddings come from a
// [Model]; the bundled [PlaceholderModel] draws standard-normal vectors in
// place of a neural network so the service can run without model weights.
// Similarity comes from a [Scorer]: [RandomScorer] draws a placeholder
// score, [CosineScorer] compares real embeddings.
//
// # Windows
//
// Extraction runs over the whole clip or over a sliding window of
// Duration seconds every Step seconds. Sliding-window embeddings are mean
// pooled and L2 normalized into a single vector, and each window's voice
// hash is fed to a [Detector] to report whether one speaker dominates.
//
// # Voice Hashes
//
// Embeddings are also projected into short locality-sensitive hashes,
// similar to geohash:
//
//	16 bit: A3F8  ← exact match
//	12 bit: A3F   ← fuzzy match
//	 8 bit: A3    ← group level
//	 4 bit: A     ← coarse partition
package voiceprint

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

var (
	// ErrInference wraps failures to produce an embedding or a score:
	// undecodable audio, model errors, wrong output dimensions. Callers
	// surface these to the user as recoverable errors.
	ErrInference = errors.New("voiceprint: inference failed")

	// ErrInvalidWindow is returned for unknown window types and
	// non-positive sliding window parameters.
	ErrInvalidWindow = errors.New("voiceprint: invalid window")
)

func wrapInference(err error) error {
	if errors.Is(err, ErrInference) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInference, err)
}

// AudioRef is an opaque reference to an uploaded or recorded audio asset.
// The zero value means no audio was supplied.
type AudioRef struct {
	// Path locates the asset: a filesystem path, or a key in the upload
	// store when a Decoder is configured.
	Path string

	// Name is the original filename shown in reports. Optional.
	Name string
}

// IsZero reports whether no audio was supplied.
func (r AudioRef) IsZero() bool {
	return r.Path == ""
}

// BaseName returns the base filename used in reports.
func (r AudioRef) BaseName() string {
	if r.Name != "" {
		return filepath.Base(r.Name)
	}
	return filepath.Base(r.Path)
}

// SpeakerStatus indicates the speaker detection result.
type SpeakerStatus int

const (
	// StatusUnknown means the speaker cannot be determined
	// (e.g., too much noise, hash is unstable).
	StatusUnknown SpeakerStatus = iota

	// StatusSingle means a single stable speaker is detected.
	StatusSingle

	// StatusOverlap means multiple speakers are detected
	// (hash alternates between two or more values).
	StatusOverlap
)

func (s SpeakerStatus) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusSingle:
		return "single"
	case StatusOverlap:
		return "overlap"
	default:
		return fmt.Sprintf("SpeakerStatus(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SpeakerStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SpeakerChunk is the detector's view of a run of windows.
type SpeakerChunk struct {
	// Status is the detection result.
	Status SpeakerStatus `json:"status" msgpack:"status"`

	// Speaker is the primary voice label (e.g., "voice:A3F8").
	// Empty when Status is StatusUnknown.
	Speaker string `json:"speaker,omitempty" msgpack:"speaker,omitempty"`

	// Candidates lists all detected voice labels when Status is StatusOverlap.
	Candidates []string `json:"candidates,omitempty" msgpack:"candidates,omitempty"`

	// Confidence is a value in [0, 1]; higher means a more stable window.
	Confidence float32 `json:"confidence" msgpack:"confidence"`
}

// VoiceLabel returns a prefixed voice label string. Format: "voice:{hash}".
func VoiceLabel(hash string) string {
	return "voice:" + hash
}
