// Package pcm provides format arithmetic for 16-bit signed little-endian
// PCM audio.
//
// A [Format] pairs a sample rate with a channel count. The bit depth is
// always 16. Speaker models consume [L16Mono16K]; uploads in other formats
// are converted by the resampler package before embedding.
//
// Example usage:
//
//	format := pcm.L16Mono16K
//
//	// Bytes needed for 3 seconds of audio
//	n := format.BytesInDuration(3 * time.Second)
//
//	// Duration of a decoded clip
//	d := format.Duration(int64(len(data)))
package pcm
