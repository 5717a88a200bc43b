// Package wav decodes RIFF/WAVE files into 16-bit PCM.
//
// Decoding is done by github.com/go-audio/wav. Supported encodings are
// integer PCM at 8, 16, 24 and 32 bits, and IEEE float at 32 bits.
// WAVE_FORMAT_EXTENSIBLE headers are accepted when their sub-format is one
// of those. Every encoding is converted to signed 16-bit little-endian
// samples; channel layout and sample rate are kept and reported through the
// returned [pcm.Format].
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	gowav "github.com/go-audio/wav"

	"github.com/haivivi/wespeaker/pkg/audio/pcm"
)

var (
	// ErrNotWAV is returned when the input is not a RIFF/WAVE stream.
	ErrNotWAV = errors.New("wav: not a RIFF/WAVE stream")

	// ErrUnsupportedFormat is returned for encodings that cannot be
	// converted to PCM16 (e.g. ADPCM, mu-law).
	ErrUnsupportedFormat = errors.New("wav: unsupported format")

	// ErrTooLarge is returned when the input exceeds MaxSize.
	ErrTooLarge = errors.New("wav: file too large")
)

// MaxSize bounds the number of bytes Decode reads from its input.
var MaxSize int64 = 512 << 20

const (
	formatPCM        = 0x0001
	formatFloat      = 0x0003
	formatExtensible = 0xFFFE

	// maxFmtSize is far above the 40 bytes of an extensible fmt chunk.
	maxFmtSize = 1024
)

// Decode reads a complete WAV stream and returns its samples as PCM16 LE.
func Decode(r io.Reader) ([]byte, pcm.Format, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, pcm.Format{}, fmt.Errorf("wav: read: %w", err)
	}
	if int64(len(raw)) > MaxSize {
		return nil, pcm.Format{}, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, MaxSize)
	}
	tag, bits, err := scanChunks(raw)
	if err != nil {
		return nil, pcm.Format{}, err
	}
	switch {
	case tag == formatPCM && (bits == 8 || bits == 16 || bits == 24 || bits == 32):
	case tag == formatFloat && bits == 32:
	default:
		return nil, pcm.Format{}, fmt.Errorf("%w: format tag 0x%04x, %d bits", ErrUnsupportedFormat, tag, bits)
	}

	d := gowav.NewDecoder(bytes.NewReader(raw))
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return nil, pcm.Format{}, fmt.Errorf("%w: %v", ErrNotWAV, err)
		}
		return nil, pcm.Format{}, ErrNotWAV
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, pcm.Format{}, fmt.Errorf("wav: decode samples: %w", err)
	}
	format := pcm.Format{SampleRate: buf.Format.SampleRate, Channels: buf.Format.NumChannels}
	if !format.Valid() {
		return nil, pcm.Format{}, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, format.Channels, format.SampleRate)
	}
	return toPCM16(buf.Data, bits, tag == formatFloat), format, nil
}

// scanChunks walks the chunk list before the stream is handed to the
// decoder. Chunks whose declared size runs past the end of the input are
// rejected. A data chunk with size 0 or a size past the end (recorders that
// cannot seek leave 0 or 0xFFFFFFFF) is rewritten in place to cover the
// remaining bytes. It returns the effective format tag and bit depth.
func scanChunks(b []byte) (tag uint16, bits int, err error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return 0, 0, ErrNotWAV
	}
	binary.LittleEndian.PutUint32(b[4:8], uint32(len(b)-8))

	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int64(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		rest := int64(len(b) - off - 8)

		switch id {
		case "data":
			if tag == 0 {
				return 0, 0, fmt.Errorf("%w: data chunk before fmt chunk", ErrNotWAV)
			}
			if size == 0 || size > rest {
				binary.LittleEndian.PutUint32(b[off+4:off+8], uint32(rest))
			}
			return tag, bits, nil
		case "fmt ":
			if size < 16 || size > maxFmtSize || size > rest {
				return 0, 0, fmt.Errorf("%w: fmt chunk of %d bytes", ErrNotWAV, size)
			}
			body := b[off+8 : off+8+int(size)]
			tag = binary.LittleEndian.Uint16(body[0:2])
			bits = int(binary.LittleEndian.Uint16(body[14:16]))
			if tag == formatExtensible {
				if size < 26 {
					return 0, 0, fmt.Errorf("%w: extensible fmt chunk of %d bytes", ErrNotWAV, size)
				}
				// First two bytes of the sub-format GUID carry the format tag.
				tag = binary.LittleEndian.Uint16(body[24:26])
			}
		default:
			if size > rest {
				return 0, 0, fmt.Errorf("%w: %q chunk of %d bytes overruns the file", ErrNotWAV, id, size)
			}
		}
		// Chunks are word aligned.
		off += 8 + int(size) + int(size&1)
	}
	return 0, 0, fmt.Errorf("%w: missing fmt or data chunk", ErrNotWAV)
}

// toPCM16 narrows decoded samples to 16 bits. The decoder returns 8-bit
// samples unsigned and 32-bit float samples as their raw bit patterns.
func toPCM16(samples []int, bits int, float bool) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		var s int16
		switch {
		case float:
			s = floatToInt16(math.Float32frombits(uint32(v)))
		case bits == 8:
			s = int16(v-128) << 8
		case bits == 16:
			s = int16(v)
		case bits == 24:
			s = int16(v >> 8)
		case bits == 32:
			s = int16(v >> 16)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func floatToInt16(f float32) int16 {
	switch {
	case f >= 1:
		return math.MaxInt16
	case f <= -1:
		return math.MinInt16
	}
	return int16(f * 32767)
}
