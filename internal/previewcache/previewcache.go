// Package previewcache generates and caches short audition clips for a
// voice, fading and normalizing a synthesized sample down to a deterministic
// on-disk path so repeated preview requests are a no-op.
package previewcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/pkg/audiocodec"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// Synthesizer is the subset of the dispatcher's contract previewcache needs:
// produce a short sample for one voice on one engine.
type Synthesizer interface {
	Synthesize(ctx context.Context, req types.SynthRequest) (types.SynthResult, error)
}

// neutralText holds a short per-locale sample line; callers without a
// locale-specific entry fall back to the "en" line.
var neutralText = map[string]string{
	"en": "Hello there, this is a quick voice preview.",
	"es": "Hola, esta es una vista previa rápida de la voz.",
	"fr": "Bonjour, ceci est un aperçu rapide de la voix.",
	"ja": "こんにちは、これは音声のプレビューです。",
}

const (
	maxPreviewSeconds = 5.0
	fadeMs            = 50
	normalizedPeak    = 0.95
	sampleRate        = 24000
)

// Cache stores generated previews under Dir using the fixed naming scheme
// "<engine>/<voice_id>-<language_key>-v1.wav".
type Cache struct {
	Dir string

	mu sync.Mutex
}

// New returns a ready-to-use Cache rooted at dir.
func New(dir string) *Cache {
	return &Cache{Dir: dir}
}

// Path returns the deterministic on-disk location for a preview, without
// generating it.
func (c *Cache) Path(engine, voiceID, language string) string {
	key := languageKey(language)
	return filepath.Join(c.Dir, engine, fmt.Sprintf("%s-%s-v1.wav", voiceID, key))
}

// GetOrCreate returns the path to a cached preview for (engine, voiceID,
// language), synthesizing and post-processing one via synth if absent or if
// force is set. Concurrent calls for the same engine are serialized so two
// requests for the same voice never race on the same temp files.
func (c *Cache) GetOrCreate(ctx context.Context, synth Synthesizer, engine, voiceID, language string, extras map[string]any, force bool) (string, error) {
	dest := c.Path(engine, voiceID, language)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !force {
		if info, err := os.Stat(dest); err == nil && !info.IsDir() {
			return dest, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", apperr.Wrap(apperr.KindEngineFailure, "previewcache: create dir", err)
	}

	text := textFor(language)
	result, err := synth.Synthesize(ctx, types.SynthRequest{
		Engine:   engine,
		Text:     text,
		Voice:    voiceID,
		Language: language,
		Extras:   extras,
	})
	if err != nil {
		return "", err
	}

	samples, rate, err := audiocodec.Load(result.Path, sampleRate)
	if err != nil {
		return "", apperr.Wrap(apperr.KindEngineFailure, "previewcache: load synthesized sample", err)
	}

	samples = truncateToSeconds(samples, rate, maxPreviewSeconds)
	samples = fadeOutTail(samples, rate, fadeMs)
	samples = normalizePeak(samples, normalizedPeak)

	if err := audiocodec.Save(dest, samples, rate); err != nil {
		return "", apperr.Wrap(apperr.KindEngineFailure, "previewcache: save preview", err)
	}

	if result.Path != dest {
		_ = os.Remove(result.Path)
	}

	return dest, nil
}

func textFor(language string) string {
	key := languageKey(language)
	if text, ok := neutralText[key]; ok {
		return text
	}
	return neutralText["en"]
}

func languageKey(language string) string {
	if language == "" {
		return "en"
	}
	for i, r := range language {
		if r == '-' || r == '_' {
			return language[:i]
		}
	}
	return language
}

func truncateToSeconds(samples []float32, rate int, seconds float64) []float32 {
	max := int(float64(rate) * seconds)
	if max >= len(samples) {
		return samples
	}
	return samples[:max]
}

func fadeOutTail(samples []float32, rate int, ms int) []float32 {
	fadeLen := rate * ms / 1000
	if fadeLen > len(samples) {
		fadeLen = len(samples)
	}
	out := make([]float32, len(samples))
	copy(out, samples)
	start := len(out) - fadeLen
	for i := 0; i < fadeLen; i++ {
		gain := float32(1 - float64(i)/float64(fadeLen))
		out[start+i] *= gain
	}
	return out
}

func normalizePeak(samples []float32, target float64) []float32 {
	peak := 0.0
	for _, s := range samples {
		v := float64(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return samples
	}
	gain := float32(target / peak)
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s * gain
	}
	return out
}
