// Package types defines the shared domain types used across tts-hub's
// packages: the engine registry, the media edit pipeline, and the HTTP front.
//
// These types are intentionally minimal — each package defines its own
// request/response shapes where they are purely local — but the data that
// crosses package boundaries (voice profiles, transcripts, synthesis
// requests) lives here to avoid import cycles between, e.g., the engine
// registry and the media job pipeline that calls into it.
package types

// Accent is the derived accent taxonomy attached to a voice profile.
type Accent struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Flag  string `json:"flag"`
}

// VoiceProfile describes one synthesis voice exposed by an engine.
//
// VoiceProfile is immutable after the catalog that produced it is loaded; it
// is re-derived when the underlying source (voice archive, reference
// directory, or sidecar metadata file) changes on disk.
type VoiceProfile struct {
	VoiceID string            `json:"voice_id"`
	Label   string            `json:"label"`
	Locale  string            `json:"locale,omitempty"`
	Gender  string            `json:"gender,omitempty"`
	Accent  Accent            `json:"accent"`
	Tags    []string          `json:"tags,omitempty"`
	Notes   string            `json:"notes,omitempty"`
	Raw     map[string]string `json:"raw,omitempty"`
}

// SynthRequest is the normalized, validated request passed from the
// dispatcher into an engine's Synthesize method.
type SynthRequest struct {
	Engine      string  `json:"engine"`
	Text        string  `json:"text"`
	Voice       string  `json:"voice,omitempty"`
	Language    string  `json:"language,omitempty"`
	Speed       float64 `json:"speed,omitempty"`
	TrimSilence bool    `json:"trim_silence,omitempty"`

	// Extras carries engine-specific opaque fields (seed, temperature, style,
	// sample_rate, format, speaker) that prepare() validated but did not
	// need to interpret itself.
	Extras map[string]any `json:"extras,omitempty"`
}

// SynthResult is the uniform response contract every engine backend
// produces. Every backend output is materialized as a file under the output
// directory before SynthResult is returned.
type SynthResult struct {
	Filename   string  `json:"filename"`
	Path       string  `json:"path"`
	Engine     string  `json:"engine"`
	Voice      string  `json:"voice,omitempty"`
	SampleRate int     `json:"sample_rate"`
	Language   string  `json:"language,omitempty"`
	Speed      float64 `json:"speed,omitempty"`
}

// Word is a single timed word in a transcript.
type Word struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Segment is a sentence/utterance-level span of a transcript.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscribeStats carries performance metadata about a transcription or
// alignment call, used to compute the real-time factor reported by Stats.
type TranscribeStats struct {
	ElapsedSeconds float64 `json:"elapsed"`
	RTF            float64 `json:"rtf,omitempty"`
	DurationSecs   float64 `json:"duration,omitempty"`
}

// Transcript is the persisted result of transcription, optionally refined by
// forced alignment over all or part of the audio.
type Transcript struct {
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Segments []Segment        `json:"segments"`
	Words    []Word           `json:"words"`
	Stats    *TranscribeStats `json:"stats,omitempty"`
	Aligned  bool             `json:"aligned,omitempty"`
	Stub     bool             `json:"stub,omitempty"`
}
