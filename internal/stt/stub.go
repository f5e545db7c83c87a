package stt

import "github.com/Astrocyte74/tts-hub/pkg/types"

// stubTranscript produces n evenly spaced placeholder words covering the
// audio's duration, for UI development when the primary ASR engine is
// unavailable and stub mode is permitted. The transcript is marked Stub so
// callers can surface that to clients.
func stubTranscript(samples []float32, rate int, n int) types.Transcript {
	duration := 0.0
	if rate > 0 {
		duration = float64(len(samples)) / float64(rate)
	}
	if n <= 0 {
		n = 1
	}

	words := make([]types.Word, n)
	step := duration / float64(n)
	for i := range words {
		start := step * float64(i)
		end := start + step
		words[i] = types.Word{Text: "word", Start: start, End: end}
	}

	return types.Transcript{
		Language: "en",
		Duration: duration,
		Segments: []types.Segment{{Text: "(stub transcript)", Start: 0, End: duration}},
		Words:    words,
		Stub:     true,
	}
}
