package stt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/stt"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

type fakeASR struct {
	loadCalls int
	transcript types.Transcript
}

type fakeAligner struct {
	words []types.Word
}

func (f *fakeAligner) Align(_ context.Context, _ []float32, _ int, text string) ([]types.Word, error) {
	return f.words, nil
}

func newFakeLoader(model *fakeASR) stt.ASRLoader {
	return func(tag string) (stt.ASRModel, error) {
		model.loadCalls++
		return model, nil
	}
}

func (f *fakeASR) Close() error { return nil }

func (f *fakeASR) Transcribe(_ context.Context, samples []float32, rate int, language string) (types.Transcript, error) {
	return f.transcript, nil
}

func TestTranscribe_CachesModelPerLanguage(t *testing.T) {
	model := &fakeASR{transcript: types.Transcript{Language: "en", Duration: 1}}
	svc := stt.NewService(newFakeLoader(model), nil)

	if _, err := svc.Transcribe(context.Background(), make([]float32, 16000), 16000, "en-US", false); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if _, err := svc.Transcribe(context.Background(), make([]float32, 16000), 16000, "en-GB", false); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if model.loadCalls != 1 {
		t.Errorf("loadCalls = %d, want 1 (both tags share base 'en')", model.loadCalls)
	}
}

func TestTranscribe_FallsBackToStubWhenUnavailable(t *testing.T) {
	failingLoader := func(string) (stt.ASRModel, error) { return nil, errors.New("no model") }
	svc := stt.NewService(failingLoader, nil)

	transcript, err := svc.Transcribe(context.Background(), make([]float32, 16000*2), 16000, "en", true)
	if err != nil {
		t.Fatalf("Transcribe with stub allowed: %v", err)
	}
	if !transcript.Stub {
		t.Error("expected Stub to be true")
	}
	if len(transcript.Words) == 0 {
		t.Error("expected placeholder words")
	}
}

func TestTranscribe_FailsWithoutStub(t *testing.T) {
	failingLoader := func(string) (stt.ASRModel, error) { return nil, errors.New("no model") }
	svc := stt.NewService(failingLoader, nil)

	_, err := svc.Transcribe(context.Background(), make([]float32, 16000), 16000, "en", false)
	if err == nil {
		t.Fatal("expected an error when stub is not allowed and model is unavailable")
	}
}

func TestAlignRegion_MergesKeepingWordsOutsideWindow(t *testing.T) {
	aligner := &fakeAligner{words: []types.Word{{Text: "new", Start: 0, End: 0.5}}}
	svc := stt.NewService(nil, aligner)

	prior := types.Transcript{
		Duration: 10,
		Words: []types.Word{
			{Text: "before", Start: 0, End: 1},
			{Text: "inside", Start: 4, End: 5},
			{Text: "after", Start: 8, End: 9},
		},
	}

	updated, err := svc.AlignRegion(context.Background(), make([]float32, 16000*10), 16000, prior, 4, 5, 0.5)
	if err != nil {
		t.Fatalf("AlignRegion: %v", err)
	}

	var texts []string
	for _, w := range updated.Words {
		texts = append(texts, w.Text)
	}
	if len(texts) != 3 {
		t.Fatalf("words = %v, want 3 entries (before, new, after)", texts)
	}
	if texts[0] != "before" || texts[len(texts)-1] != "after" {
		t.Errorf("unexpected word order: %v", texts)
	}
	for _, w := range updated.Words {
		if w.Text == "new" && w.Start < 3.4 {
			t.Errorf("expected new word shifted by window start, got Start=%v", w.Start)
		}
	}
}

func TestAlignRegion_EmptyWindowIsBadRequest(t *testing.T) {
	aligner := &fakeAligner{}
	svc := stt.NewService(nil, aligner)
	prior := types.Transcript{Duration: 10}

	_, err := svc.AlignRegion(context.Background(), make([]float32, 16000*10), 16000, prior, 2, 1, 0)
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("KindOf(err) = %v, want KindBadRequest", apperr.KindOf(err))
	}
}

func TestAlignFull_OverwritesWords(t *testing.T) {
	aligner := &fakeAligner{words: []types.Word{{Text: "a", Start: 0, End: 1}}}
	svc := stt.NewService(nil, aligner)

	prior := types.Transcript{Segments: []types.Segment{{Text: "hello", Start: 0, End: 1}}}
	updated, err := svc.AlignFull(context.Background(), make([]float32, 16000), 16000, prior)
	if err != nil {
		t.Fatalf("AlignFull: %v", err)
	}
	if !updated.Aligned || len(updated.Words) != 1 {
		t.Errorf("updated = %+v", updated)
	}
}
