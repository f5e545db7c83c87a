package app_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Astrocyte74/tts-hub/internal/app"
	"github.com/Astrocyte74/tts-hub/internal/config"
	"github.com/Astrocyte74/tts-hub/internal/engine"
	"github.com/Astrocyte74/tts-hub/internal/favorites"
	"github.com/Astrocyte74/tts-hub/internal/stt"
	"github.com/Astrocyte74/tts-hub/internal/voicecatalog"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// fakeBackend is a minimal in-memory engine.Backend, the same shape as
// httpapi's test double, used here so App wiring can be exercised without a
// real subprocess or remote dependency.
type fakeBackend struct {
	id        string
	available bool
}

func (f *fakeBackend) ID() string { return f.id }

func (f *fakeBackend) Prepare(_ context.Context, raw map[string]any) (types.SynthRequest, error) {
	text, _ := raw["text"].(string)
	return types.SynthRequest{Engine: f.id, Text: text, Speed: 1}, nil
}

func (f *fakeBackend) Synthesize(_ context.Context, req types.SynthRequest) (types.SynthResult, error) {
	return types.SynthResult{Filename: "clip.wav", Engine: f.id}, nil
}

func (f *fakeBackend) FetchVoices(_ context.Context) (voicecatalog.Catalog, error) {
	return voicecatalog.Catalog{}, nil
}

func (f *fakeBackend) Available(_ context.Context) bool { return f.available }
func (f *fakeBackend) Defaults() map[string]any          { return nil }
func (f *fakeBackend) Supports(_ string) bool             { return false }
func (f *fakeBackend) RequiresVoice() bool                { return false }

// testConfig returns a minimal config pointing every on-disk root at a fresh
// temp directory, with no engines declared — callers inject a registry via
// app.WithEngines instead of exercising YAML-driven construction.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr: "127.0.0.1:0",
			LogLevel:   "info",
			APIPrefix:  "api",
		},
		Directories: config.DirectoriesConfig{
			OutputDir:        filepath.Join(root, "output"),
			MediaEditsDir:    filepath.Join(root, "output", "media_edits"),
			MediaCacheDir:    filepath.Join(root, "output", "media_cache"),
			VoicePreviewsDir: filepath.Join(root, "output", "voice_previews"),
			ImageDir:         filepath.Join(root, "output", "images"),
			StatsFile:        filepath.Join(root, "stats.json"),
			FavoritesFile:    filepath.Join(root, "favorites.json"),
		},
	}
}

func testFavorites(t *testing.T) favorites.Store {
	t.Helper()
	store, err := favorites.NewJSONStore(filepath.Join(t.TempDir(), "favorites.json"))
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	return store
}

func TestNew_WithMocks(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	registry := engine.NewRegistry(nil)
	registry.Register(&fakeBackend{id: "kokoro", available: true})
	registry.SetDefault("kokoro")

	application, err := app.New(
		context.Background(),
		cfg,
		app.WithEngines(registry),
		app.WithFavorites(testFavorites(t)),
		app.WithSTT(stt.NewService(nil, nil)),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if application == nil {
		t.Fatal("New() returned nil app")
	}
}

func TestNew_NoEngines(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	registry := engine.NewRegistry(nil)

	application, err := app.New(
		context.Background(),
		cfg,
		app.WithEngines(registry),
		app.WithFavorites(testFavorites(t)),
		app.WithSTT(stt.NewService(nil, nil)),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if application == nil {
		t.Fatal("New() returned nil app")
	}
}

func TestApp_Shutdown(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	registry := engine.NewRegistry(nil)
	registry.Register(&fakeBackend{id: "kokoro", available: true})
	registry.SetDefault("kokoro")

	application, err := app.New(
		context.Background(),
		cfg,
		app.WithEngines(registry),
		app.WithFavorites(testFavorites(t)),
		app.WithSTT(stt.NewService(nil, nil)),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	// A second call must be a no-op, not a re-entry into the HTTP server's
	// own Shutdown.
	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error: %v", err)
	}
}

func TestApp_RunAndShutdown(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	registry := engine.NewRegistry(nil)
	registry.Register(&fakeBackend{id: "kokoro", available: true})
	registry.SetDefault("kokoro")

	application, err := app.New(
		context.Background(),
		cfg,
		app.WithEngines(registry),
		app.WithFavorites(testFavorites(t)),
		app.WithSTT(stt.NewService(nil, nil)),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			t.Fatalf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within 5s after context cancellation")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
}
