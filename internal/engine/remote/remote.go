// Package remote implements a [engine.Backend] that forwards synthesis to a
// remote HTTP cloning/inference service via github.com/go-resty/resty/v2,
// protected by the teacher's [resilience.CircuitBreaker] so a flapping
// upstream does not stall every request behind a long HTTP timeout.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/resilience"
	"github.com/Astrocyte74/tts-hub/internal/voicecatalog"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// Config wires a remote synthesis/cloning service into the dispatcher.
type Config struct {
	// EngineID is the registry key.
	EngineID string

	// BaseURL is the remote service's root; synthesis POSTs to
	// BaseURL+SynthesizePath, voice listing GETs BaseURL+VoicesPath.
	BaseURL        string
	SynthesizePath string
	VoicesPath     string

	// OutputDir is where downloaded audio is rewritten into the local
	// output namespace.
	OutputDir string

	Timeout time.Duration

	// Breaker guards outbound synthesis calls; when nil, New installs a
	// default breaker named "remote-<EngineID>".
	Breaker *resilience.CircuitBreaker
}

// synthesizeRequestBody is the JSON payload posted to the remote service.
type synthesizeRequestBody struct {
	Text     string         `json:"text"`
	Voice    string         `json:"voice,omitempty"`
	Language string         `json:"language,omitempty"`
	Speed    float64        `json:"speed,omitempty"`
	Extras   map[string]any `json:"extras,omitempty"`
}

// synthesizeResponseBody is the expected shape of a successful response.
type synthesizeResponseBody struct {
	AudioURL   string `json:"audio_url"`
	SampleRate int    `json:"sample_rate"`
}

// Backend is one configured remote synthesis engine.
type Backend struct {
	cfg    Config
	client *resty.Client
}

// New returns a ready-to-use Backend. If cfg.Breaker is nil, a default
// breaker is created so the engine still degrades gracefully under
// sustained upstream failure.
func New(cfg Config) *Backend {
	if cfg.Breaker == nil {
		cfg.Breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "remote-" + cfg.EngineID})
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Backend{cfg: cfg, client: client}
}

func (b *Backend) ID() string { return b.cfg.EngineID }

func (b *Backend) Prepare(_ context.Context, raw map[string]any) (types.SynthRequest, error) {
	text, _ := raw["text"].(string)
	text = strings.TrimSpace(text)
	if text == "" {
		return types.SynthRequest{}, apperr.BadRequest("remote %s: text is required", b.cfg.EngineID)
	}
	voice, _ := raw["voice"].(string)
	language, _ := raw["language"].(string)
	speed := 1.0
	if v, ok := raw["speed"].(float64); ok && v > 0 {
		speed = v
	}
	extras := map[string]any{}
	for _, key := range []string{"seed", "temperature", "style", "sample_rate", "format"} {
		if v, ok := raw[key]; ok {
			extras[key] = v
		}
	}
	return types.SynthRequest{
		Engine:   b.cfg.EngineID,
		Text:     text,
		Voice:    voice,
		Language: strings.ToLower(language),
		Speed:    speed,
		Extras:   extras,
	}, nil
}

// Synthesize POSTs req as JSON. A non-200 response becomes an
// engine_failure error (HTTP 500) whose message carries the upstream status
// and body; the upstream status code itself is not passed through. A
// response missing audio_url is also engine_failure. The remote audio is
// then downloaded and rewritten into OutputDir.
func (b *Backend) Synthesize(ctx context.Context, req types.SynthRequest) (types.SynthResult, error) {
	var body synthesizeResponseBody
	var httpErr error

	breakerErr := b.cfg.Breaker.Execute(func() error {
		resp, err := b.client.R().
			SetContext(ctx).
			SetBody(synthesizeRequestBody{
				Text:     req.Text,
				Voice:    req.Voice,
				Language: req.Language,
				Speed:    req.Speed,
				Extras:   req.Extras,
			}).
			SetResult(&body).
			Post(b.cfg.SynthesizePath)
		if err != nil {
			httpErr = apperr.EngineUnavailable("remote %s: %v", b.cfg.EngineID, err)
			return err
		}
		if resp.StatusCode() != http.StatusOK {
			httpErr = apperr.EngineFailure("remote %s: upstream returned %d: %s", b.cfg.EngineID, resp.StatusCode(), trimmed(resp.String()))
			return httpErr
		}
		return nil
	})
	if breakerErr != nil {
		if errors.Is(breakerErr, resilience.ErrCircuitOpen) {
			return types.SynthResult{}, apperr.EngineUnavailable("remote %s: circuit open", b.cfg.EngineID)
		}
		if httpErr != nil {
			return types.SynthResult{}, httpErr
		}
		return types.SynthResult{}, apperr.EngineFailure("remote %s: %v", b.cfg.EngineID, breakerErr)
	}

	if body.AudioURL == "" {
		return types.SynthResult{}, apperr.EngineFailure("remote %s: response missing audio_url", b.cfg.EngineID)
	}

	dest, err := b.downloadAudio(ctx, body.AudioURL)
	if err != nil {
		return types.SynthResult{}, err
	}

	sampleRate := body.SampleRate
	if sampleRate == 0 {
		sampleRate = 24000
	}

	return types.SynthResult{
		Filename:   filepath.Base(dest),
		Path:       dest,
		Engine:     b.cfg.EngineID,
		Voice:      req.Voice,
		SampleRate: sampleRate,
		Language:   req.Language,
		Speed:      req.Speed,
	}, nil
}

func (b *Backend) downloadAudio(ctx context.Context, audioURL string) (string, error) {
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return "", apperr.Wrap(apperr.KindEngineFailure, "remote: create output dir", err)
	}
	filename := fmt.Sprintf("%s-%d%s", b.cfg.EngineID, time.Now().UnixNano(), filepath.Ext(audioURL))
	dest := filepath.Join(b.cfg.OutputDir, filename)

	resp, err := b.client.R().SetContext(ctx).SetOutput(dest).Get(audioURL)
	if err != nil {
		return "", apperr.Wrap(apperr.KindEngineFailure, "remote: download audio", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", apperr.EngineFailure("remote %s: audio download returned %d", b.cfg.EngineID, resp.StatusCode())
	}
	return dest, nil
}

func (b *Backend) FetchVoices(ctx context.Context) (voicecatalog.Catalog, error) {
	if b.cfg.VoicesPath == "" {
		return voicecatalog.Catalog{Available: b.Available(ctx)}, nil
	}
	var catalog voicecatalog.Catalog
	resp, err := b.client.R().SetContext(ctx).SetResult(&catalog).Get(b.cfg.VoicesPath)
	if err != nil || resp.StatusCode() != http.StatusOK {
		return voicecatalog.Catalog{Available: false, Message: "voice catalog unreachable"}, nil
	}
	catalog.Available = true
	return catalog, nil
}

// Available probes the remote service's health without going through the
// circuit breaker, since availability checks should reflect live state even
// while the breaker is open from prior synthesis failures.
func (b *Backend) Available(ctx context.Context) bool {
	if b.cfg.BaseURL == "" {
		return false
	}
	resp, err := b.client.R().SetContext(ctx).Get("/")
	if err != nil {
		return false
	}
	return resp.StatusCode() < http.StatusInternalServerError
}

func (b *Backend) Defaults() map[string]any { return map[string]any{"speed": 1.0} }

func (b *Backend) Supports(feature string) bool {
	return feature == "cloning"
}

func (b *Backend) RequiresVoice() bool { return false }

func trimmed(s string) string {
	const maxLen = 500
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}
