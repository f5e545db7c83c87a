// Package whisper provides the two ASR backends the STT service loads into
// its per-language model cache: a native CGO binding to whisper.cpp for
// environments built with it, and a pure-HTTP client against a running
// whisper.cpp server for environments without the CGO toolchain. Both
// satisfy stt.ASRModel with a single batch Transcribe call, replacing the
// teacher's streaming-session split of the same two transports.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/stt"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

var _ stt.ASRModel = (*NativeModel)(nil)

// NativeModel wraps a whisper.cpp model loaded via CGO bindings. One
// instance is created per language base tag by the cache in
// stt.Service, matching "lazy singleton for the base ASR model" per
// language.
type NativeModel struct {
	model whisperlib.Model
}

// LoadNative loads the whisper.cpp model at modelPath. Intended as an
// stt.ASRLoader: LoadNative(modelForLanguage(tag)).
func LoadNative(modelPath string) (*NativeModel, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	return &NativeModel{model: model}, nil
}

// NativeLoader adapts LoadNative into an stt.ASRLoader: modelPathForTag
// resolves a language base tag to the on-disk model file for that
// language (callers with a single multilingual model can ignore the tag
// and always return the same path).
func NativeLoader(modelPathForTag func(tag string) string) stt.ASRLoader {
	return func(tag string) (stt.ASRModel, error) {
		return LoadNative(modelPathForTag(tag))
	}
}

func (m *NativeModel) Close() error {
	if m.model != nil {
		return m.model.Close()
	}
	return nil
}

// Transcribe runs whisper.cpp over samples and converts its segment
// timestamps into the transcript's words, proportionally distributing each
// segment's duration across its words by character count — the binding
// does not expose per-token timestamps, so this is a documented
// approximation rather than true per-word alignment.
func (m *NativeModel) Transcribe(ctx context.Context, samples []float32, rate int, language string) (types.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return types.Transcript{}, err
	}

	wctx, err := m.model.NewContext()
	if err != nil {
		return types.Transcript{}, apperr.Wrap(apperr.KindEngineFailure, "whisper: create context", err)
	}
	if language != "" {
		if err := wctx.SetLanguage(language); err != nil {
			language = ""
		}
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return types.Transcript{}, apperr.Wrap(apperr.KindEngineFailure, "whisper: process audio", err)
	}

	var segments []types.Segment
	var words []types.Word
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return types.Transcript{}, apperr.Wrap(apperr.KindEngineFailure, "whisper: read segment", err)
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		start := seg.Start.Seconds()
		end := seg.End.Seconds()
		segments = append(segments, types.Segment{Text: text, Start: start, End: end})
		words = append(words, wordsFromSegment(text, start, end)...)
	}

	duration := float64(len(samples)) / float64(rate)
	if len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}

	if language == "" {
		language = "en"
	}
	return types.Transcript{
		Language: language,
		Duration: duration,
		Segments: segments,
		Words:    words,
	}, nil
}

// wordsFromSegment splits text on whitespace and distributes
// [start,end] across the tokens proportionally to their length.
func wordsFromSegment(text string, start, end float64) []types.Word {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	totalChars := 0
	for _, t := range tokens {
		totalChars += len(t)
	}
	if totalChars == 0 {
		totalChars = len(tokens)
	}

	span := end - start
	words := make([]types.Word, 0, len(tokens))
	cursor := start
	for _, t := range tokens {
		share := float64(len(t)) / float64(totalChars) * span
		wordEnd := cursor + share
		words = append(words, types.Word{Text: t, Start: cursor, End: wordEnd})
		cursor = wordEnd
	}
	words[len(words)-1].End = end
	return words
}
