// Package stt implements the batch speech-to-text contract used by the
// media edit pipeline: whole-file transcription with word timings, plus
// optional forced alignment of a known transcript against the audio,
// either over the full file or a narrow region.
//
// This replaces the teacher's real-time streaming-session abstraction
// (pkg/provider/stt.Provider/SessionHandle) with a request/response shape,
// since the pipeline always has the complete recording in hand before it
// asks for a transcript.
package stt

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// ASRModel is the base automatic-speech-recognition engine: one loaded
// model instance per language base tag.
type ASRModel interface {
	// Transcribe runs inference over samples (mono, Rate Hz) and returns a
	// transcript with segment and word timings.
	Transcribe(ctx context.Context, samples []float32, rate int, language string) (types.Transcript, error)
	Close() error
}

// Aligner is a forced-alignment model: given audio and a known transcript,
// it refines word-level timings. No Go binding for a wav2vec2-style
// aligner exists in the example corpus, so this is an injected interface a
// concrete deployment satisfies the way the bundled TTS engine's Model
// interface wraps native inference.
type Aligner interface {
	Align(ctx context.Context, samples []float32, rate int, text string) ([]types.Word, error)
}

// ASRLoader constructs an ASRModel for a language base tag ("en", "es",
// ...). A successful load is cached per tag; a failed load is not cached,
// so the loader is called again on the next request for that tag.
type ASRLoader func(languageBaseTag string) (ASRModel, error)

// Service implements transcribe/align_full/align_region, keeping a
// lazily-populated, language-keyed cache of loaded ASR models.
type Service struct {
	loadASR    ASRLoader
	aligner    Aligner
	sampleRate int
	stubWords  int

	models *modelCache
}

// NewService returns a ready-to-use Service. aligner may be nil, in which
// case AlignFull/AlignRegion return apperr-tagged engine_unavailable errors.
func NewService(loadASR ASRLoader, aligner Aligner) *Service {
	return &Service{
		loadASR:    loadASR,
		aligner:    aligner,
		sampleRate: 16000,
		stubWords:  12,
		models:     newModelCache(),
	}
}

// Available reports whether the base ASR loader can currently produce a
// model (used by the dispatcher-adjacent /media endpoints to decide
// whether "whisperx_available"-style flags should be true).
func (s *Service) Available(language string) bool {
	_, err := s.models.get(baseTag(language), s.loadASR)
	return err == nil
}

// Transcribe runs the base ASR model over samples.
// If the model is unavailable and allowStub is set, it synthesizes an
// evenly-spaced placeholder transcript instead of failing.
func (s *Service) Transcribe(ctx context.Context, samples []float32, rate int, language string, allowStub bool) (types.Transcript, error) {
	model, err := s.models.get(baseTag(language), s.loadASR)
	if err != nil {
		if allowStub {
			return stubTranscript(samples, rate, s.stubWords), nil
		}
		return types.Transcript{}, err
	}
	return model.Transcribe(ctx, samples, rate, language)
}

// AlignFull reloads the per-language alignment model (cache-first via the
// injected Aligner, which a concrete deployment may itself cache) and
// aligns every segment's text, overwriting transcript.Words.
func (s *Service) AlignFull(ctx context.Context, samples []float32, rate int, transcript types.Transcript) (types.Transcript, error) {
	if s.aligner == nil {
		return types.Transcript{}, errAlignerUnavailable
	}
	text := segmentsText(transcript.Segments)
	words, err := s.aligner.Align(ctx, samples, rate, text)
	if err != nil {
		return types.Transcript{}, err
	}
	transcript.Words = words
	transcript.Aligned = true
	return transcript, nil
}

// AlignRegion expands [start,end] by margin, builds the window text from
// existing words (preferred) or segments, aligns just that slice of audio,
// shifts the result by the window's start, and merges it into transcript
// per the documented policy: keep prior words that do not overlap the
// window, append every newly aligned word, re-sort by start.
func (s *Service) AlignRegion(ctx context.Context, samples []float32, rate int, transcript types.Transcript, start, end, margin float64) (types.Transcript, error) {
	if s.aligner == nil {
		return types.Transcript{}, errAlignerUnavailable
	}

	windowStart := math.Max(0, start-margin)
	windowEnd := math.Min(transcript.Duration, end+margin)
	if windowEnd <= windowStart {
		return types.Transcript{}, errBadWindow
	}

	text := windowText(transcript, windowStart, windowEnd)
	if strings.TrimSpace(text) == "" {
		return types.Transcript{}, errEmptyWindow
	}

	regionSamples := cutRegion(samples, rate, windowStart, windowEnd)
	aligned, err := s.aligner.Align(ctx, regionSamples, rate, text)
	if err != nil {
		return types.Transcript{}, err
	}
	for i := range aligned {
		aligned[i].Start += windowStart
		aligned[i].End += windowStart
	}

	transcript.Words = mergeWindow(transcript.Words, aligned, windowStart, windowEnd)
	transcript.Aligned = true
	return transcript, nil
}

// windowText builds the text to align from words overlapping
// [windowStart,windowEnd] if any exist, else from overlapping segments.
func windowText(transcript types.Transcript, windowStart, windowEnd float64) string {
	var words []string
	for _, w := range transcript.Words {
		if overlaps(w.Start, w.End, windowStart, windowEnd) {
			words = append(words, w.Text)
		}
	}
	if len(words) > 0 {
		return strings.Join(words, " ")
	}
	var segs []string
	for _, seg := range transcript.Segments {
		if overlaps(seg.Start, seg.End, windowStart, windowEnd) {
			segs = append(segs, seg.Text)
		}
	}
	return strings.Join(segs, " ")
}

func overlaps(aStart, aEnd, bStart, bEnd float64) bool {
	return aStart < bEnd && aEnd > bStart
}

// mergeWindow implements the set operation (prior \ window) ∪ new, re-sorted
// by start: any prior word whose interval overlaps [windowStart,windowEnd]
// is dropped, every newly aligned word is kept regardless of overlap.
func mergeWindow(prior, fresh []types.Word, windowStart, windowEnd float64) []types.Word {
	merged := make([]types.Word, 0, len(prior)+len(fresh))
	for _, w := range prior {
		if !overlaps(w.Start, w.End, windowStart, windowEnd) {
			merged = append(merged, w)
		}
	}
	merged = append(merged, fresh...)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })
	return merged
}

func segmentsText(segments []types.Segment) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = seg.Text
	}
	return strings.Join(parts, " ")
}

func cutRegion(samples []float32, rate int, start, end float64) []float32 {
	from := int(start * float64(rate))
	to := int(end * float64(rate))
	if from < 0 {
		from = 0
	}
	if to > len(samples) {
		to = len(samples)
	}
	if from >= to {
		return nil
	}
	return samples[from:to]
}

// baseTag reduces a BCP-47-ish language tag to its base subtag ("en-US" →
// "en"), matching the per-language-base-tag model cache key.
func baseTag(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
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
