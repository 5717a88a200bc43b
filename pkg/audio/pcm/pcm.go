package pcm

import (
	"fmt"
	"math"
	"time"
)

// Depth is the bit depth of every format in this package.
const Depth = 16

// L16Mono16K represents audio/L16; rate=16000; channels=1.
var L16Mono16K = Format{SampleRate: 16000, Channels: 1}

// Format describes 16-bit PCM audio.
type Format struct {
	SampleRate int // Hz
	Channels   int
}

// Valid reports whether the format can describe real audio.
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0
}

// FrameBytes returns the size of one sample frame (all channels) in bytes.
func (f Format) FrameBytes() int {
	return f.Channels * Depth / 8
}

// Samples returns the number of sample frames in the given number of bytes.
func (f Format) Samples(bytes int64) int64 {
	return bytes / int64(f.FrameBytes())
}

// SamplesInDuration returns the number of sample frames in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	rate := int64(f.SampleRate)
	sec := int64(d / time.Second)
	return sec*rate + int64(d%time.Second)*rate/int64(time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
// The result is always aligned to a whole frame.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * int64(f.FrameBytes())
}

// Duration returns the duration of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	n, rate := f.Samples(bytes), int64(f.SampleRate)
	return time.Duration(n/rate)*time.Second + time.Duration(n%rate)*time.Second/time.Duration(rate)
}

// BytesRate returns the byte rate of the audio data.
func (f Format) BytesRate() int {
	return f.SampleRate * f.FrameBytes()
}

// Align truncates data to a whole number of frames.
func (f Format) Align(data []byte) []byte {
	fb := f.FrameBytes()
	return data[:len(data)/fb*fb]
}

// Seconds converts a float number of seconds to a duration, saturating at
// the largest representable duration.
func Seconds(s float64) time.Duration {
	ns := s * float64(time.Second)
	switch {
	case ns >= math.MaxInt64:
		return math.MaxInt64
	case ns <= math.MinInt64:
		return math.MinInt64
	}
	return time.Duration(ns)
}

// String returns a MIME-like representation of the format.
func (f Format) String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d", f.SampleRate, f.Channels)
}
