package stt

import (
	"context"
	"errors"
	"testing"

	"github.com/Astrocyte74/tts-hub/pkg/types"
)

type stubASRModel struct {
	name      string
	failCount int
	calls     *[]string
	closed    *bool
}

func (m *stubASRModel) Transcribe(_ context.Context, _ []float32, _ int, _ string) (types.Transcript, error) {
	if m.calls != nil {
		*m.calls = append(*m.calls, m.name)
	}
	if m.failCount > 0 {
		m.failCount--
		return types.Transcript{}, errors.New(m.name + " failed")
	}
	return types.Transcript{Language: m.name}, nil
}

func (m *stubASRModel) Close() error {
	if m.closed != nil {
		*m.closed = true
	}
	return nil
}

func TestFallbackLoader_NilSecondaryReturnsPrimary(t *testing.T) {
	primary := func(tag string) (ASRModel, error) { return &stubASRModel{name: "primary"}, nil }

	loader := FallbackLoader("primary", primary, "secondary", nil)
	model, err := loader("en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	transcript, err := model.Transcribe(context.Background(), nil, 16000, "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript.Language != "primary" {
		t.Fatalf("got %q, want primary model used directly", transcript.Language)
	}
}

func TestFallbackLoader_FallsThroughOnPrimaryTranscribeFailure(t *testing.T) {
	var calls []string
	primary := func(tag string) (ASRModel, error) {
		return &stubASRModel{name: "primary", failCount: 1, calls: &calls}, nil
	}
	secondary := func(tag string) (ASRModel, error) {
		return &stubASRModel{name: "secondary", calls: &calls}, nil
	}

	loader := FallbackLoader("primary", primary, "secondary", secondary)
	model, err := loader("en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	transcript, err := model.Transcribe(context.Background(), nil, 16000, "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript.Language != "secondary" {
		t.Fatalf("got %q, want secondary after primary failure", transcript.Language)
	}
	if len(calls) != 2 || calls[0] != "primary" || calls[1] != "secondary" {
		t.Fatalf("calls = %v, want [primary secondary]", calls)
	}
}

func TestFallbackLoader_PrimaryLoadFailureUsesSecondaryDirectly(t *testing.T) {
	primary := func(tag string) (ASRModel, error) { return nil, errors.New("native load failed") }
	secondary := func(tag string) (ASRModel, error) { return &stubASRModel{name: "secondary"}, nil }

	loader := FallbackLoader("primary", primary, "secondary", secondary)
	model, err := loader("en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	transcript, err := model.Transcribe(context.Background(), nil, 16000, "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript.Language != "secondary" {
		t.Fatalf("got %q, want secondary when primary fails to load", transcript.Language)
	}
}

func TestFallbackLoader_CloseClosesBothModels(t *testing.T) {
	primaryClosed, secondaryClosed := false, false
	primary := func(tag string) (ASRModel, error) {
		return &stubASRModel{name: "primary", closed: &primaryClosed}, nil
	}
	secondary := func(tag string) (ASRModel, error) {
		return &stubASRModel{name: "secondary", closed: &secondaryClosed}, nil
	}

	loader := FallbackLoader("primary", primary, "secondary", secondary)
	model, err := loader("en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := model.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !primaryClosed || !secondaryClosed {
		t.Fatalf("primaryClosed=%v secondaryClosed=%v, want both true", primaryClosed, secondaryClosed)
	}
}
