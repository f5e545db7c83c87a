package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Astrocyte74/tts-hub/internal/engine"
	"github.com/Astrocyte74/tts-hub/internal/voicecatalog"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// fakeBackend is a minimal in-memory engine.Backend used to exercise the
// router without any real synthesis dependency.
type fakeBackend struct {
	id        string
	available bool
}

func (f *fakeBackend) ID() string { return f.id }

func (f *fakeBackend) Prepare(_ context.Context, raw map[string]any) (types.SynthRequest, error) {
	text, _ := raw["text"].(string)
	voice, _ := raw["voice"].(string)
	return types.SynthRequest{Engine: f.id, Text: text, Voice: voice, Speed: 1}, nil
}

func (f *fakeBackend) Synthesize(_ context.Context, req types.SynthRequest) (types.SynthResult, error) {
	return types.SynthResult{
		Filename:   "clip.wav",
		Path:       "/tmp/clip.wav",
		Engine:     f.id,
		Voice:      req.Voice,
		SampleRate: 24000,
	}, nil
}

func (f *fakeBackend) FetchVoices(_ context.Context) (voicecatalog.Catalog, error) {
	return voicecatalog.Catalog{
		Voices:    []types.VoiceProfile{{VoiceID: "v1", Label: "Voice One"}},
		Count:     1,
		Available: f.available,
	}, nil
}

func (f *fakeBackend) Available(_ context.Context) bool { return f.available }
func (f *fakeBackend) Defaults() map[string]any          { return map[string]any{"speed": 1.0} }
func (f *fakeBackend) Supports(_ string) bool             { return false }
func (f *fakeBackend) RequiresVoice() bool                { return false }

func newRouterWithFakeEngine(t *testing.T) *Router {
	t.Helper()
	registry := engine.NewRegistry(nil)
	registry.Register(&fakeBackend{id: "kokoro", available: true})
	return New(Config{Engines: registry, OutputDir: t.TempDir()})
}

func TestRegister_MountsRoutesUnderPrefixAndLegacy(t *testing.T) {
	r := newRouterWithFakeEngine(t)
	r.cfg.APIPrefix = "api"
	mux := http.NewServeMux()
	r.Register(mux)

	for _, path := range []string{"/meta", "/api/meta"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestHandleVoices_ReturnsCatalog(t *testing.T) {
	r := newRouterWithFakeEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/voices?engine=kokoro", nil)
	rec := httptest.NewRecorder()
	r.handleVoices(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp voicesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
}

func TestHandleSynthesize_DispatchesToEngine(t *testing.T) {
	r := newRouterWithFakeEngine(t)

	body := `{"engine":"kokoro","voice":"v1","text":"hello there"}`
	req := httptest.NewRequest(http.MethodPost, "/synthesise", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.handleSynthesize(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["engine"] != "kokoro" {
		t.Errorf("engine = %v, want kokoro", resp["engine"])
	}
}

func TestWriteError_MapsKindToStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, context.DeadlineExceeded)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 for untagged error", rec.Code)
	}
}
