package resampler

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/haivivi/wespeaker/pkg/audio/pcm"
)

func pcm16(vs ...int16) []byte {
	out := make([]byte, 2*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func samplesOf(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

func TestConvertStereoToMonoSameRate(t *testing.T) {
	src := pcm.Format{SampleRate: 16000, Channels: 2}
	in := pcm16(1000, 3000, -2000, -4000, 100, 100)

	out, err := Convert(in, src, pcm.L16Mono16K)
	if err != nil {
		t.Fatal(err)
	}
	got := samplesOf(out)
	want := []int16{2000, -3000, 100}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		// float round trip may lose one LSB
		if d := int(got[i]) - int(want[i]); d < -1 || d > 1 {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestConvertMonoToStereo(t *testing.T) {
	out, err := Convert(pcm16(1000, -1000), pcm.L16Mono16K, pcm.Format{SampleRate: 16000, Channels: 2})
	if err != nil {
		t.Fatal(err)
	}
	got := samplesOf(out)
	if len(got) != 4 {
		t.Fatalf("got %d samples, want 4", len(got))
	}
	if got[0] != got[1] || got[2] != got[3] {
		t.Errorf("channels not duplicated: %v", got)
	}
}

func TestConvertDownsample(t *testing.T) {
	const n = 48000 // 1s at 48k
	vs := make([]int16, n)
	for i := range vs {
		vs[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/48000))
	}
	src := pcm.Format{SampleRate: 48000, Channels: 1}

	out, err := Convert(pcm16(vs...), src, pcm.L16Mono16K)
	if err != nil {
		t.Fatal(err)
	}
	got := len(out) / 2
	// Filter delay may trim a little of the tail.
	if got < 14000 || got > 16500 {
		t.Errorf("resampled length = %d samples, want ~16000", got)
	}
}

func TestConvertEmptyAndInvalid(t *testing.T) {
	out, err := Convert(nil, pcm.L16Mono16K, pcm.L16Mono16K)
	if err != nil || out != nil {
		t.Errorf("Convert(nil) = %v, %v", out, err)
	}
	if _, err := Convert(pcm16(1), pcm.Format{}, pcm.L16Mono16K); err == nil {
		t.Error("expected error for invalid source format")
	}
}

func TestEncodeClips(t *testing.T) {
	got := samplesOf(encode([]float64{2, -2, 0}))
	if got[0] != 32767 || got[1] != -32768 || got[2] != 0 {
		t.Errorf("encode clip = %v", got)
	}
}
