// Package bundled implements the in-process [engine.Backend]: a voice bank
// loaded from disk and an inference model that runs inside this process
// rather than behind a subprocess or remote call. The actual tensor
// inference is behind the [Model] interface since no Go ONNX/PyTorch
// binding exists in the example corpus for this workload; a concrete
// implementation would satisfy it the way the teacher's CGO whisper binding
// (internal/stt/whisper/native.go) wraps a C library behind a Go interface.
//
// The model handle is a lazy, double-checked singleton: the first
// synthesis call loads it under a mutex, every call after that reads the
// already-initialized handle without locking.
package bundled

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/voicecatalog"
	"github.com/Astrocyte74/tts-hub/pkg/audiocodec"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// Model is the in-process inference handle. A concrete implementation
// wraps the bound native/ONNX runtime; tests and environments without the
// model binary substitute a stub.
type Model interface {
	// Synthesize renders text for voiceID at speed, returning 24 kHz mono
	// PCM samples.
	Synthesize(ctx context.Context, text, voiceID string, speed float64) ([]float32, error)
}

// Loader constructs a [Model] from the weights directory, invoked at most
// once per process.
type Loader func(weightsDir string) (Model, error)

// Config wires the bundled engine into the dispatcher.
type Config struct {
	EngineID   string
	WeightsDir string
	BankDir    string // one "<voice_id>.bin" file per voice
	OutputDir  string
	SampleRate int
	Load       Loader

	catalogOnce *voicecatalog.Builder
}

// Backend is the bundled in-process engine.
type Backend struct {
	cfg Config

	loadOnce sync.Once
	loadErr  error
	model    atomic.Pointer[Model]

	bank voicecatalog.BundledBank
}

// New returns a ready-to-use Backend. The model is not loaded until the
// first Synthesize or Available call.
func New(cfg Config) *Backend {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 24000
	}
	if cfg.catalogOnce == nil {
		cfg.catalogOnce = voicecatalog.NewBuilder()
	}
	return &Backend{cfg: cfg, bank: voicecatalog.BundledBank{Dir: cfg.BankDir}}
}

func (b *Backend) ID() string { return b.cfg.EngineID }

// ensureModel performs the lazy double-checked load: the fast path reads
// the atomic pointer without taking the mutex; only the first caller pays
// for sync.Once's lock.
func (b *Backend) ensureModel() (Model, error) {
	if p := b.model.Load(); p != nil {
		return *p, nil
	}
	b.loadOnce.Do(func() {
		model, err := b.cfg.Load(b.cfg.WeightsDir)
		if err != nil {
			b.loadErr = err
			return
		}
		b.model.Store(&model)
	})
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	p := b.model.Load()
	if p == nil {
		return nil, fmt.Errorf("bundled: model failed to initialize")
	}
	return *p, nil
}

func (b *Backend) Prepare(_ context.Context, raw map[string]any) (types.SynthRequest, error) {
	text, _ := raw["text"].(string)
	text = strings.TrimSpace(text)
	if text == "" {
		return types.SynthRequest{}, apperr.BadRequest("bundled %s: text is required", b.cfg.EngineID)
	}
	voice, _ := raw["voice"].(string)
	if voice == "" {
		return types.SynthRequest{}, apperr.BadRequest("bundled %s: voice is required", b.cfg.EngineID)
	}
	speed := 1.0
	if v, ok := raw["speed"].(float64); ok && v > 0 {
		speed = v
	}
	trimSilence, _ := raw["trim_silence"].(bool)
	language, _ := raw["language"].(string)

	return types.SynthRequest{
		Engine:      b.cfg.EngineID,
		Text:        text,
		Voice:       voice,
		Language:    strings.ToLower(language),
		Speed:       speed,
		TrimSilence: trimSilence,
	}, nil
}

func (b *Backend) Synthesize(ctx context.Context, req types.SynthRequest) (types.SynthResult, error) {
	model, err := b.ensureModel()
	if err != nil {
		return types.SynthResult{}, apperr.Wrap(apperr.KindEngineUnavailable, fmt.Sprintf("bundled %s: model load", b.cfg.EngineID), err)
	}

	samples, err := model.Synthesize(ctx, req.Text, req.Voice, req.Speed)
	if err != nil {
		return types.SynthResult{}, apperr.Wrap(apperr.KindEngineFailure, fmt.Sprintf("bundled %s: inference", b.cfg.EngineID), err)
	}

	if req.TrimSilence {
		samples = audiocodec.TrimSilence(samples, b.cfg.SampleRate, 45, 50, 50)
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return types.SynthResult{}, apperr.Wrap(apperr.KindEngineFailure, "bundled: create output dir", err)
	}
	filename := fmt.Sprintf("%s-%d.wav", b.cfg.EngineID, time.Now().UnixNano())
	dest := filepath.Join(b.cfg.OutputDir, filename)
	if err := audiocodec.Save(dest, samples, b.cfg.SampleRate); err != nil {
		return types.SynthResult{}, apperr.Wrap(apperr.KindEngineFailure, "bundled: save output", err)
	}

	return types.SynthResult{
		Filename:   filename,
		Path:       dest,
		Engine:     b.cfg.EngineID,
		Voice:      req.Voice,
		SampleRate: b.cfg.SampleRate,
		Language:   req.Language,
		Speed:      req.Speed,
	}, nil
}

func (b *Backend) FetchVoices(_ context.Context) (voicecatalog.Catalog, error) {
	return b.cfg.catalogOnce.Build(b.cfg.EngineID, b.bank, b.Available(context.Background()), "")
}

// Available reports whether the weights directory exists, the voice bank
// has at least one entry, and the model actually loads. This forces the
// same lazy singleton load Synthesize uses, so a true result here means
// ensureModel has already succeeded (or will return the cached handle for
// free) rather than promising a model that then fails to load — keeping
// availability() ⇒ synthesize produces a file.
func (b *Backend) Available(_ context.Context) bool {
	if _, err := os.Stat(b.cfg.WeightsDir); err != nil {
		return false
	}
	voices, err := b.bank.Voices()
	if err != nil || len(voices) == 0 {
		return false
	}
	_, err = b.ensureModel()
	return err == nil
}

func (b *Backend) Defaults() map[string]any { return map[string]any{"speed": 1.0} }

func (b *Backend) Supports(feature string) bool { return feature == "audition" }

func (b *Backend) RequiresVoice() bool { return true }
