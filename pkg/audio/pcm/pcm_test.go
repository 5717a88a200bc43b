package pcm

import (
	"math"
	"testing"
	"time"
)

func TestFormatArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		dur    time.Duration
		bytes  int64
	}{
		{"mono16k 1s", L16Mono16K, time.Second, 32000},
		{"mono16k 20ms", L16Mono16K, 20 * time.Millisecond, 640},
		{"stereo44k 1s", Format{SampleRate: 44100, Channels: 2}, time.Second, 176400},
		{"mono8k 3s", Format{SampleRate: 8000, Channels: 1}, 3 * time.Second, 48000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.BytesInDuration(tt.dur); got != tt.bytes {
				t.Errorf("BytesInDuration(%v) = %d, want %d", tt.dur, got, tt.bytes)
			}
			if got := tt.format.Duration(tt.bytes); got != tt.dur {
				t.Errorf("Duration(%d) = %v, want %v", tt.bytes, got, tt.dur)
			}
		})
	}
}

func TestFormatAlign(t *testing.T) {
	f := Format{SampleRate: 16000, Channels: 2}
	data := make([]byte, 11)
	if got := len(f.Align(data)); got != 8 {
		t.Errorf("Align len = %d, want 8", got)
	}
	if got := len(L16Mono16K.Align(data)); got != 10 {
		t.Errorf("Align len = %d, want 10", got)
	}
}

func TestFormatValid(t *testing.T) {
	if !L16Mono16K.Valid() {
		t.Error("L16Mono16K should be valid")
	}
	if (Format{}).Valid() {
		t.Error("zero format should be invalid")
	}
}

func TestSeconds(t *testing.T) {
	if got := Seconds(1.5); got != 1500*time.Millisecond {
		t.Errorf("Seconds(1.5) = %v", got)
	}
	if got := Seconds(1e12); got != math.MaxInt64 {
		t.Errorf("Seconds(1e12) = %v, want saturation", got)
	}
	if got := Seconds(-1e12); got != math.MinInt64 {
		t.Errorf("Seconds(-1e12) = %v, want saturation", got)
	}
}

func TestBytesInLongDuration(t *testing.T) {
	// 1e6 s at 16 kHz overflows a naive rate*duration product.
	got := L16Mono16K.BytesInDuration(Seconds(1e6))
	if want := int64(1e6 * 32000); got != want {
		t.Errorf("BytesInDuration(1e6s) = %d, want %d", got, want)
	}
	if got := L16Mono16K.BytesInDuration(math.MaxInt64); got <= 0 {
		t.Errorf("BytesInDuration(max) = %d, want positive", got)
	}
}

func TestFormatString(t *testing.T) {
	want := "audio/L16; rate=16000; channels=1"
	if got := L16Mono16K.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
