// Package audio groups the audio helpers used to feed speaker embedding
// models:
//
//   - pcm: PCM format arithmetic (samples, bytes, durations)
//   - wav: RIFF/WAVE decoding to PCM16
//   - resampler: sample rate and channel conversion
//   - loader: stored file to 16 kHz mono PCM16, the model input format
//
// Example:
//
//	l := &loader.Loader{Store: files}
//	audio, err := l.Decode(ctx, voiceprint.AudioRef{Path: "uploads/a.wav"})
//	segs := voiceprint.Segments(audio, pcm.L16Mono16K, window)
package audio
