// Package resampler converts decoded PCM16 clips between sample rates and
// channel layouts.
//
// Rate conversion uses a pure Go resampler (no CGO/FFI dependencies).
// Channel conversion averages channels down to mono or duplicates mono
// out to N channels.
//
// Example usage:
//
//	out, err := resampler.Convert(clip, pcm.Format{SampleRate: 44100, Channels: 2}, pcm.L16Mono16K)
//	if err != nil {
//	    return err
//	}
package resampler
