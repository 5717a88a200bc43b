package resampler

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/haivivi/wespeaker/pkg/audio/pcm"
)

// Convert converts a whole PCM16 LE clip from src to dst format.
//
// Channels are mixed before the rate conversion so the resampler only
// runs on the destination channel count. When the sample rates match only
// channel conversion is performed.
func Convert(data []byte, src, dst pcm.Format) ([]byte, error) {
	if !src.Valid() || !dst.Valid() {
		return nil, fmt.Errorf("resampler: invalid format %v -> %v", src, dst)
	}
	data = src.Align(data)
	if len(data) == 0 {
		return nil, nil
	}

	samples := remix(decode(data), src.Channels, dst.Channels)
	if src.SampleRate == dst.SampleRate {
		return encode(samples), nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(src.SampleRate),
		OutputRate: float64(dst.SampleRate),
		Channels:   dst.Channels,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: create: %w", err)
	}
	out, err := rs.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}
	return dst.Align(encode(out)), nil
}

// decode converts PCM16 LE bytes to float64 samples normalized to [-1, 1).
func decode(b []byte) []float64 {
	out := make([]float64, len(b)/2)
	for i := range out {
		s := int16(b[i*2]) | int16(b[i*2+1])<<8
		out[i] = float64(s) / 32768.0
	}
	return out
}

// encode converts normalized float64 samples back to PCM16 LE, clipping
// values outside [-1, 1].
func encode(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		var v int16
		switch {
		case s >= 1.0:
			v = 32767
		case s < -1.0:
			v = -32768
		default:
			v = int16(s * 32767.0)
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// remix converts interleaved samples from srcCh to dstCh channels. Down to
// mono averages every channel of a frame; mono up to N duplicates; any
// other combination maps through mono.
func remix(samples []float64, srcCh, dstCh int) []float64 {
	if srcCh == dstCh {
		return samples
	}
	frames := len(samples) / srcCh
	mono := samples
	if srcCh != 1 {
		mono = make([]float64, frames)
		for f := 0; f < frames; f++ {
			var sum float64
			for c := 0; c < srcCh; c++ {
				sum += samples[f*srcCh+c]
			}
			mono[f] = sum / float64(srcCh)
		}
	}
	if dstCh == 1 {
		return mono
	}
	out := make([]float64, frames*dstCh)
	for f, v := range mono {
		for c := 0; c < dstCh; c++ {
			out[f*dstCh+c] = v
		}
	}
	return out
}
