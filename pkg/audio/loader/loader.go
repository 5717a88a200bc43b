// Package loader turns stored audio files into the 16 kHz mono PCM16
// stream expected by speaker embedding models.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/haivivi/wespeaker/pkg/audio/pcm"
	"github.com/haivivi/wespeaker/pkg/audio/resampler"
	"github.com/haivivi/wespeaker/pkg/audio/wav"
	"github.com/haivivi/wespeaker/pkg/storage"
	"github.com/haivivi/wespeaker/pkg/voiceprint"
)

// Loader implements [voiceprint.Decoder] for WAV files.
type Loader struct {
	// Store resolves AudioRef.Path. When nil, paths are read from the
	// local filesystem as given.
	Store storage.FileStore

	// Target is the output format. Zero means pcm.L16Mono16K.
	Target pcm.Format
}

// Decode implements [voiceprint.Decoder].
func (l *Loader) Decode(ctx context.Context, ref voiceprint.AudioRef) ([]byte, error) {
	raw, err := l.read(ctx, ref.Path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", ref.BaseName(), err)
	}
	data, src, err := wav.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", ref.BaseName(), err)
	}

	dst := l.Target
	if !dst.Valid() {
		dst = pcm.L16Mono16K
	}
	if src == dst {
		return data, nil
	}
	out, err := resampler.Convert(data, src, dst)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", ref.BaseName(), err)
	}
	return out, nil
}

func (l *Loader) read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.Store == nil {
		return os.ReadFile(path)
	}
	return storage.ReadFile(ctx, l.Store, path)
}

var _ voiceprint.Decoder = (*Loader)(nil)
