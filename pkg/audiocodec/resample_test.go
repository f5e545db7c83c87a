package audiocodec_test

import (
	"testing"

	"github.com/Astrocyte74/tts-hub/pkg/audiocodec"
)

func TestResample_SameRate(t *testing.T) {
	samples := []float32{0.1, 0.2, 0.3}
	out := audiocodec.Resample(samples, 48000, 48000)
	if len(out) != len(samples) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(samples))
	}
}

func TestResample_Upsample(t *testing.T) {
	samples := []float32{0.1, 0.2}
	out := audiocodec.Resample(samples, 16000, 48000)
	if len(out) != 6 {
		t.Fatalf("expected 6 samples, got %d", len(out))
	}
	if out[0] != samples[0] {
		t.Errorf("first sample: got %v, want %v", out[0], samples[0])
	}
	last := out[len(out)-1]
	if last < 0.18 || last > 0.22 {
		t.Errorf("last sample: got %v, want close to 0.2", last)
	}
}

func TestResample_Downsample(t *testing.T) {
	samples := []float32{0, 0.1, 0.2, 0.3, 0.4, 0.5}
	out := audiocodec.Resample(samples, 48000, 16000)
	if len(out) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(out))
	}
}

func TestResample_EmptyInput(t *testing.T) {
	out := audiocodec.Resample(nil, 16000, 48000)
	if len(out) != 0 {
		t.Errorf("expected empty output, got %d samples", len(out))
	}
}

func TestResample_InvalidRates(t *testing.T) {
	samples := []float32{0.1, 0.2, 0.3}
	if out := audiocodec.Resample(samples, 0, 48000); len(out) != len(samples) {
		t.Errorf("zero src rate: expected passthrough, got %d samples", len(out))
	}
	if out := audiocodec.Resample(samples, 48000, -1); len(out) != len(samples) {
		t.Errorf("negative dst rate: expected passthrough, got %d samples", len(out))
	}
}
