package mediaio_test

import (
	"context"
	"testing"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/pkg/mediaio"
)

// These tests exercise the error-mapping paths that do not depend on a real
// ffmpeg/ffprobe installation being present in the test environment; a probe
// or transform against a real file is covered by the mediajobs integration
// tests where a fixture WAV is available.

func TestProbe_NonexistentFileSurfacesEngineFailure(t *testing.T) {
	if !hasFFprobe() {
		t.Skip("ffprobe not available in this environment")
	}
	_, err := mediaio.Probe(context.Background(), "/nonexistent/path/does-not-exist.mp4")
	if err == nil {
		t.Fatal("expected an error for a nonexistent file")
	}
	if kind := apperr.KindOf(err); kind != apperr.KindEngineFailure && kind != apperr.KindEngineUnavailable {
		t.Errorf("kind: got %v, want engine_failure or engine_unavailable", kind)
	}
}

func TestNormalizeToWAV_RejectsEndBeforeStart(t *testing.T) {
	if !hasFFmpeg() {
		t.Skip("ffmpeg not available in this environment")
	}
	err := mediaio.NormalizeToWAV(context.Background(), "/dev/null", "/dev/null", 5, 2)
	if err == nil {
		t.Fatal("expected bad_request for end before start")
	}
	if kind := apperr.KindOf(err); kind != apperr.KindBadRequest {
		t.Errorf("kind: got %v, want bad_request", kind)
	}
}

func hasFFprobe() bool {
	_, err := mediaio.Duration(context.Background(), "/dev/null")
	return !isUnavailable(err)
}

func hasFFmpeg() bool {
	err := mediaio.NormalizeToWAV(context.Background(), "/dev/null", "/dev/null", 0, 0)
	return !isUnavailable(err)
}

func isUnavailable(err error) bool {
	return err != nil && apperr.KindOf(err) == apperr.KindEngineUnavailable
}
