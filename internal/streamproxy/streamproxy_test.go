package streamproxy_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Astrocyte74/tts-hub/internal/streamproxy"
)

func TestPrepareSSE_WritesHeadersAndLivenessFrame(t *testing.T) {
	w := httptest.NewRecorder()
	streamproxy.PrepareSSE(w)

	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q", got)
	}
	body := w.Body.String()
	if !strings.Contains(body, `data: {"status":"starting"}`) {
		t.Errorf("body missing starting frame: %q", body)
	}
}

func TestRelayNDJSON_EmitsOneFramePerLine(t *testing.T) {
	w := httptest.NewRecorder()
	upstream := strings.NewReader("{\"a\":1}\n{\"b\":2}\n")

	if err := streamproxy.RelayNDJSON(context.Background(), w, upstream); err != nil {
		t.Fatalf("RelayNDJSON: %v", err)
	}

	body := w.Body.String()
	if !strings.Contains(body, `data: {"a":1}`) || !strings.Contains(body, `data: {"b":2}`) {
		t.Fatalf("body = %q", body)
	}
}

func TestRelayNDJSON_SkipsBlankLines(t *testing.T) {
	w := httptest.NewRecorder()
	upstream := strings.NewReader("{\"a\":1}\n\n\n{\"b\":2}\n")

	if err := streamproxy.RelayNDJSON(context.Background(), w, upstream); err != nil {
		t.Fatalf("RelayNDJSON: %v", err)
	}
	frames := strings.Count(w.Body.String(), "data: ")
	if frames != 2 {
		t.Errorf("frames = %d, want 2", frames)
	}
}

func TestWantsStreaming_DefaultsTrueUnlessExplicitlyFalse(t *testing.T) {
	if !streamproxy.WantsStreaming(map[string]any{}) {
		t.Error("expected default true")
	}
	if streamproxy.WantsStreaming(map[string]any{"stream": false}) {
		t.Error("expected false when stream:false is set")
	}
	if !streamproxy.WantsStreaming(map[string]any{"stream": true}) {
		t.Error("expected true when stream:true is set")
	}
}

func TestIsNotFoundLike_MatchesKnownPhrasings(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"Error: model 'x' not found", true},
		{"no such entity exists", true},
		{"NO SUCH MODEL 'llama'", true},
		{"permission denied", false},
	}
	for _, tc := range cases {
		if got := streamproxy.IsNotFoundLike(tc.msg); got != tc.want {
			t.Errorf("IsNotFoundLike(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestShouldFallbackToCLI_OnlyOn404Or405(t *testing.T) {
	if !streamproxy.ShouldFallbackToCLI(404) || !streamproxy.ShouldFallbackToCLI(405) {
		t.Error("expected 404 and 405 to trigger fallback")
	}
	if streamproxy.ShouldFallbackToCLI(500) {
		t.Error("expected 500 not to trigger fallback")
	}
}
