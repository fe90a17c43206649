package pcm

import (
	"testing"
)

func TestFormatConversions(t *testing.T) {
	f := L16Mono44K1
	if f.SampleRate() != 44100 {
		t.Errorf("rate=%d", f.SampleRate())
	}
	if got := f.Samples(88200); got != 44100 {
		t.Errorf("samples of 88200 bytes = %d", got)
	}
	if got := f.Bytes(44100); got != 88200 {
		t.Errorf("bytes of 44100 samples = %d", got)
	}
}

func TestFormatForRate(t *testing.T) {
	if f, ok := FormatForRate(48000); !ok || f != L16Mono48K {
		t.Errorf("48000 -> %v, %v", f, ok)
	}
	if _, ok := FormatForRate(22050); ok {
		t.Error("22050 accepted")
	}
}

func TestByteFloatRoundTrip(t *testing.T) {
	src := []float32{0, 0.5, -0.5, 0.999, -1.0}
	raw := make([]byte, len(src)*2)
	if n := Float32ToBytes(src, raw); n != len(raw) {
		t.Fatalf("encoded %d bytes", n)
	}
	out := make([]float32, len(src))
	if n := BytesToFloat32(raw, out); n != len(src) {
		t.Fatalf("decoded %d samples", n)
	}
	for i := range src {
		diff := src[i] - out[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > 1.0/32000 {
			t.Errorf("sample %d: %v -> %v", i, src[i], out[i])
		}
	}
}

func TestFloat32ToBytesClips(t *testing.T) {
	raw := make([]byte, 4)
	Float32ToBytes([]float32{2.0, -2.0}, raw)
	hi := int16(raw[0]) | int16(raw[1])<<8
	lo := int16(raw[2]) | int16(raw[3])<<8
	if hi != 32767 || lo != -32768 {
		t.Errorf("clip: hi=%d lo=%d", hi, lo)
	}
}
