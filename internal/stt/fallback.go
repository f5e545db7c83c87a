package stt

import (
	"context"

	"github.com/Astrocyte74/tts-hub/internal/resilience"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// FallbackLoader combines two ASRLoaders into one. For each language base
// tag it loads the primary model (typically the native CGO whisper.cpp
// binding) and, if configured, a secondary model (typically the HTTP
// whisper.cpp server client) behind a resilience.FallbackGroup, so a model
// that starts failing mid-run degrades to the secondary transport instead
// of taking every subsequent transcription down with it. If primary fails
// to load at all, the secondary is used directly with no breaker. If
// secondary is nil, FallbackLoader is just primary.
func FallbackLoader(primaryName string, primary ASRLoader, secondaryName string, secondary ASRLoader) ASRLoader {
	if secondary == nil {
		return primary
	}
	return func(tag string) (ASRModel, error) {
		primaryModel, err := primary(tag)
		if err != nil {
			return secondary(tag)
		}
		secondaryModel, err := secondary(tag)
		if err != nil {
			return primaryModel, nil
		}

		group := resilience.NewFallbackGroup(primaryModel, primaryName, resilience.FallbackConfig{
			CircuitBreaker: resilience.CircuitBreakerConfig{Name: primaryName},
		})
		group.AddFallback(secondaryName, secondaryModel)

		return &fallbackModel{
			group:  group,
			models: []ASRModel{primaryModel, secondaryModel},
		}, nil
	}
}

// fallbackModel satisfies ASRModel by trying each entry of a FallbackGroup
// in order, skipping entries whose circuit breaker is open.
type fallbackModel struct {
	group  *resilience.FallbackGroup[ASRModel]
	models []ASRModel
}

func (m *fallbackModel) Transcribe(ctx context.Context, samples []float32, rate int, language string) (types.Transcript, error) {
	return resilience.ExecuteWithResult(m.group, func(model ASRModel) (types.Transcript, error) {
		return model.Transcribe(ctx, samples, rate, language)
	})
}

func (m *fallbackModel) Close() error {
	var firstErr error
	for _, model := range m.models {
		if err := model.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
