package bundled_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/engine/bundled"
)

type fakeModel struct {
	calls int
}

func (f *fakeModel) Synthesize(_ context.Context, text, voiceID string, speed float64) ([]float32, error) {
	f.calls++
	samples := make([]float32, 2400)
	for i := range samples {
		samples[i] = 0.2
	}
	return samples, nil
}

func newBackend(t *testing.T, load bundled.Loader) (*bundled.Backend, string) {
	t.Helper()
	weightsDir := t.TempDir()
	bankDir := t.TempDir()
	outDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(bankDir, "af_bella.bin"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed bank: %v", err)
	}
	b := bundled.New(bundled.Config{
		EngineID:   "kokoro",
		WeightsDir: weightsDir,
		BankDir:    bankDir,
		OutputDir:  outDir,
		Load:       load,
	})
	return b, outDir
}

func TestSynthesize_LoadsModelOnceAcrossCalls(t *testing.T) {
	model := &fakeModel{}
	loadCalls := 0
	b, _ := newBackend(t, func(string) (bundled.Model, error) {
		loadCalls++
		return model, nil
	})

	req, err := b.Prepare(context.Background(), map[string]any{"text": "hi", "voice": "af_bella"})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, err := b.Synthesize(context.Background(), req); err != nil {
		t.Fatalf("Synthesize (1): %v", err)
	}
	if _, err := b.Synthesize(context.Background(), req); err != nil {
		t.Fatalf("Synthesize (2): %v", err)
	}

	if loadCalls != 1 {
		t.Errorf("model Load called %d times, want 1", loadCalls)
	}
	if model.calls != 2 {
		t.Errorf("model.Synthesize called %d times, want 2", model.calls)
	}
}

func TestSynthesize_LandsFileUnderOutputDir(t *testing.T) {
	b, outDir := newBackend(t, func(string) (bundled.Model, error) {
		return &fakeModel{}, nil
	})
	req, _ := b.Prepare(context.Background(), map[string]any{"text": "hi", "voice": "af_bella"})
	result, err := b.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if filepath.Dir(result.Path) != outDir {
		t.Errorf("expected output under %q, got %q", outDir, result.Path)
	}
	if _, err := os.Stat(result.Path); err != nil {
		t.Errorf("expected landed wav file: %v", err)
	}
}

func TestPrepare_RequiresText(t *testing.T) {
	b, _ := newBackend(t, func(string) (bundled.Model, error) { return &fakeModel{}, nil })
	_, err := b.Prepare(context.Background(), map[string]any{"voice": "af_bella"})
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("KindOf(err) = %v, want KindBadRequest", apperr.KindOf(err))
	}
}

func TestAvailable_TrueWhenWeightsAndBankPresent(t *testing.T) {
	b, _ := newBackend(t, func(string) (bundled.Model, error) { return &fakeModel{}, nil })
	if !b.Available(context.Background()) {
		t.Error("expected Available() to be true with weights dir and non-empty bank")
	}
}

func TestAvailable_FalseWhenWeightsMissing(t *testing.T) {
	b := bundled.New(bundled.Config{
		EngineID:   "kokoro",
		WeightsDir: filepath.Join(t.TempDir(), "missing"),
		BankDir:    t.TempDir(),
		OutputDir:  t.TempDir(),
		Load:       func(string) (bundled.Model, error) { return &fakeModel{}, nil },
	})
	if b.Available(context.Background()) {
		t.Error("expected Available() to be false when weights dir is missing")
	}
}

func TestAvailable_FalseWhenLoaderFails(t *testing.T) {
	b, _ := newBackend(t, func(string) (bundled.Model, error) {
		return nil, apperr.NotImplemented("no in-process inference backend is linked into this build")
	})
	if b.Available(context.Background()) {
		t.Error("expected Available() to be false when the loader cannot produce a model")
	}
	req, _ := b.Prepare(context.Background(), map[string]any{"text": "hi", "voice": "af_bella"})
	if _, err := b.Synthesize(context.Background(), req); err == nil {
		t.Error("expected Synthesize to also fail, keeping availability and synthesis consistent")
	}
}
