package audiocodec_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Astrocyte74/tts-hub/pkg/audiocodec"
)

func sine(n, rate int, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	want := sine(4800, 48000, 440)
	if err := audiocodec.Save(path, want, 48000); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, rate, err := audiocodec.Load(path, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rate != 48000 {
		t.Errorf("rate: got %d, want 48000", rate)
	}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 0.001 {
			t.Fatalf("sample %d: got %v, want %v", i, got[i], want[i])
			break
		}
	}
}

func TestLoad_ResamplesWhenTargetRateDiffers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	samples := sine(4800, 48000, 440)
	if err := audiocodec.Save(path, samples, 48000); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, rate, err := audiocodec.Load(path, 16000)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rate != 16000 {
		t.Errorf("rate: got %d, want 16000", rate)
	}
	if len(got) != 1600 {
		t.Errorf("length: got %d, want 1600", len(got))
	}
}

func TestLoad_RejectsNonWAV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bogus.wav")
	if err := os.WriteFile(path, []byte("not a wav file"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := audiocodec.Load(path, 0); err == nil {
		t.Fatal("expected error loading non-WAV data")
	}
}
