package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/engine/remote"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

func TestSynthesize_DownloadsAudioOnSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/synthesize", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"audio_url":"/files/out.wav","sample_rate":24000}`))
	})
	mux.HandleFunc("/files/out.wav", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fakewavdata"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	outDir := t.TempDir()
	b := remote.New(remote.Config{
		EngineID:       "cloudclone",
		BaseURL:        srv.URL,
		SynthesizePath: "/synthesize",
		OutputDir:      outDir,
	})

	result, err := b.Synthesize(context.Background(), types.SynthRequest{Text: "hi", Voice: "v1"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	data, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatalf("read landed file: %v", err)
	}
	if string(data) != "fakewavdata" {
		t.Errorf("landed content = %q, want fakewavdata", string(data))
	}
	if result.SampleRate != 24000 {
		t.Errorf("SampleRate = %d, want 24000", result.SampleRate)
	}
	if filepath.Dir(result.Path) != outDir {
		t.Errorf("expected landed file under %q, got %q", outDir, result.Path)
	}
}

func TestSynthesize_MissingAudioURLIsEngineFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	b := remote.New(remote.Config{EngineID: "cloudclone", BaseURL: srv.URL, SynthesizePath: "/synthesize", OutputDir: t.TempDir()})
	_, err := b.Synthesize(context.Background(), types.SynthRequest{Text: "hi"})
	if apperr.KindOf(err) != apperr.KindEngineFailure {
		t.Fatalf("KindOf(err) = %v, want KindEngineFailure", apperr.KindOf(err))
	}
}

func TestSynthesize_NonOKStatusIsEngineFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad voice id", http.StatusBadRequest)
	}))
	defer srv.Close()

	b := remote.New(remote.Config{EngineID: "cloudclone", BaseURL: srv.URL, SynthesizePath: "/synthesize", OutputDir: t.TempDir()})
	_, err := b.Synthesize(context.Background(), types.SynthRequest{Text: "hi"})
	if apperr.KindOf(err) != apperr.KindEngineFailure {
		t.Fatalf("KindOf(err) = %v, want KindEngineFailure", apperr.KindOf(err))
	}
}

func TestAvailable_FalseWhenUnreachable(t *testing.T) {
	b := remote.New(remote.Config{EngineID: "cloudclone", BaseURL: "http://127.0.0.1:1", OutputDir: t.TempDir()})
	if b.Available(context.Background()) {
		t.Error("expected Available() to be false for an unreachable host")
	}
}

func TestPrepare_RequiresText(t *testing.T) {
	b := remote.New(remote.Config{EngineID: "cloudclone", OutputDir: t.TempDir()})
	_, err := b.Prepare(context.Background(), map[string]any{})
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("KindOf(err) = %v, want KindBadRequest", apperr.KindOf(err))
	}
}
