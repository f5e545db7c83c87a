// Package app wires every tts-hub subsystem into a running HTTP server.
//
// App owns the full lifecycle: New constructs and connects all subsystems
// from config, Run serves HTTP until its context is cancelled, and Shutdown
// tears everything down in order. Subsystems can be injected via functional
// options for tests; anything not injected is built from cfg.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/config"
	"github.com/Astrocyte74/tts-hub/internal/engine"
	"github.com/Astrocyte74/tts-hub/internal/engine/bundled"
	"github.com/Astrocyte74/tts-hub/internal/engine/cliengine"
	"github.com/Astrocyte74/tts-hub/internal/engine/remote"
	"github.com/Astrocyte74/tts-hub/internal/favorites"
	favoritespg "github.com/Astrocyte74/tts-hub/internal/favorites/postgres"
	"github.com/Astrocyte74/tts-hub/internal/health"
	"github.com/Astrocyte74/tts-hub/internal/httpapi"
	"github.com/Astrocyte74/tts-hub/internal/ingestcache"
	"github.com/Astrocyte74/tts-hub/internal/mediajobs"
	"github.com/Astrocyte74/tts-hub/internal/observe"
	"github.com/Astrocyte74/tts-hub/internal/previewcache"
	"github.com/Astrocyte74/tts-hub/internal/stats"
	"github.com/Astrocyte74/tts-hub/internal/stt"
	"github.com/Astrocyte74/tts-hub/internal/stt/whisper"
	"github.com/Astrocyte74/tts-hub/internal/voicecatalog"
)

// App owns every subsystem and the HTTP server built from them.
type App struct {
	cfg *config.Config

	engines   *engine.Registry
	favorites favorites.Store
	stt       *stt.Service
	mediaJobs *mediajobs.Service
	stats     *stats.Recorder
	ingest    *ingestcache.Cache
	previews  *previewcache.Cache
	catalog   *voicecatalog.Builder
	health    *health.Handler
	metrics   *observe.Metrics

	httpServer *http.Server

	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New, used to inject test doubles in
// place of the subsystems New would otherwise build from cfg.
type Option func(*App)

// WithEngines injects a pre-populated engine registry instead of one built
// from cfg.Engines.
func WithEngines(r *engine.Registry) Option {
	return func(a *App) { a.engines = r }
}

// WithFavorites injects a favorites store instead of a JSON file store.
func WithFavorites(s favorites.Store) Option {
	return func(a *App) { a.favorites = s }
}

// WithSTT injects a transcription/alignment service instead of one built
// from cfg.STT.
func WithSTT(s *stt.Service) Option {
	return func(a *App) { a.stt = s }
}

// New wires every subsystem and returns a ready-to-run App. It does not
// start listening — call Run for that.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if err := a.initDirectories(); err != nil {
		return nil, fmt.Errorf("app: init directories: %w", err)
	}
	if err := a.initFavorites(ctx); err != nil {
		return nil, fmt.Errorf("app: init favorites: %w", err)
	}
	if err := a.initEngines(); err != nil {
		return nil, fmt.Errorf("app: init engines: %w", err)
	}
	a.initSTT()

	a.mediaJobs = mediajobs.New(cfg.Directories.MediaEditsDir, a.engines, a.stt)
	a.stats = stats.New(cfg.Directories.StatsFile)
	a.ingest = ingestcache.New(cfg.Directories.MediaCacheDir, cfg.Directories.MediaEditsDir, cfg.IngestCache.CleanupInterval)
	a.previews = previewcache.New(cfg.Directories.VoicePreviewsDir)
	a.catalog = voicecatalog.NewBuilder()

	if err := a.initMetrics(); err != nil {
		return nil, fmt.Errorf("app: init metrics: %w", err)
	}
	a.initHealth()
	a.initHTTPServer()

	return a, nil
}

// initDirectories creates every on-disk root the service reads from or
// writes into, matching the teacher's "create what's declared" startup
// behavior.
func (a *App) initDirectories() error {
	dirs := []string{
		a.cfg.Directories.OutputDir,
		a.cfg.Directories.MediaEditsDir,
		a.cfg.Directories.MediaCacheDir,
		a.cfg.Directories.VoicePreviewsDir,
		a.cfg.Directories.ImageDir,
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %q: %w", dir, err)
		}
	}
	return nil
}

func (a *App) initFavorites(ctx context.Context) error {
	if a.favorites != nil {
		return nil
	}
	if a.cfg.Favorites.Backend == "postgres" {
		store, err := favoritespg.New(ctx, a.cfg.Favorites.DSN)
		if err != nil {
			return err
		}
		a.favorites = store
		a.closers = append(a.closers, func() error { store.Close(); return nil })
		return nil
	}
	store, err := favorites.NewJSONStore(a.cfg.Directories.FavoritesFile)
	if err != nil {
		return err
	}
	a.favorites = store
	return nil
}

// initEngines constructs one backend per cfg.Engines entry and registers it
// into a fresh dispatcher. Favorite expansion is wired through a
// favorites.Lookup over the same store the HTTP layer uses.
func (a *App) initEngines() error {
	if a.engines != nil {
		return nil
	}
	registry := engine.NewRegistry(favorites.Lookup{Store: a.favorites})
	for _, ec := range a.cfg.Engines {
		backend, err := buildEngineBackend(ec, a.cfg.Directories.OutputDir)
		if err != nil {
			return fmt.Errorf("engine %q: %w", ec.ID, err)
		}
		registry.Register(backend)
		if ec.Default {
			registry.SetDefault(ec.ID)
		}
	}
	a.engines = registry
	return nil
}

// buildEngineBackend constructs the concrete engine.Backend for one
// declared engine, dispatching on its configured type.
func buildEngineBackend(ec config.EngineConfig, outputDir string) (engine.Backend, error) {
	switch ec.Type {
	case "bundled":
		return bundled.New(bundled.Config{
			EngineID:   ec.ID,
			WeightsDir: ec.WeightsDir,
			BankDir:    ec.BankDir,
			OutputDir:  outputDir,
			Load:       stubBundledLoader(ec.ID),
		}), nil
	case "cli":
		return buildCLIEngine(ec, outputDir), nil
	case "remote":
		return remote.New(remote.Config{
			EngineID:       ec.ID,
			BaseURL:        ec.BaseURL,
			SynthesizePath: ec.SynthesizePath,
			VoicesPath:     ec.VoicesPath,
			OutputDir:      outputDir,
			Timeout:        ec.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown engine type %q (want bundled, cli, or remote)", ec.Type)
	}
}

// stubBundledLoader returns a bundled.Loader reporting that no in-process
// inference backend is linked into this build. No concrete bundled.Model
// implementation exists anywhere in the reference corpus this service was
// grown from (the nearest analogue, whisper.cpp's CGO binding, solves a
// different problem); deployments that need the bundled engine substitute
// their own Loader via the same Config, the way a caller would slot in a
// real ONNX/PyTorch handle behind the Model interface.
func stubBundledLoader(engineID string) bundled.Loader {
	return func(weightsDir string) (bundled.Model, error) {
		return nil, apperr.NotImplemented("bundled %s: no in-process inference backend is linked into this build", engineID)
	}
}

func buildCLIEngine(ec config.EngineConfig, outputDir string) *cliengine.Backend {
	var references voicecatalog.Source
	if ec.ReferenceDir != "" {
		references = voicecatalog.ReferenceDirectory{Dir: ec.ReferenceDir}
	}

	var presets func() ([]voicecatalog.Preset, error)
	if ec.PresetDir != "" {
		dir := ec.PresetDir
		command := ec.Command
		presets = func() ([]voicecatalog.Preset, error) {
			return voicecatalog.LoadPresets(dir, execLookup(command))
		}
	}

	return cliengine.New(cliengine.Config{
		EngineID:          ec.ID,
		Command:           ec.Command,
		WorkDir:           ec.WorkDir,
		OutputDir:         outputDir,
		Env:               ec.Env,
		Timeout:           ec.Timeout,
		BuildArgs:         cliArgBuilder(ec.ID),
		Dialogue:          ec.Dialogue,
		RequiresVoiceFlag: ec.RequiresVoice,
		References:        references,
		Presets:           presets,
	})
}

// initSTT builds the base ASR loader from whichever of the native
// whisper.cpp binding and the HTTP whisper.cpp client are configured. When
// both are set, the native model is tried first per language with the HTTP
// client wired in as its resilience.FallbackGroup-backed fallback, so a
// native model that starts erroring mid-run degrades instead of failing.
func (a *App) initSTT() {
	if a.stt != nil {
		return
	}

	var nativeLoader, httpLoader stt.ASRLoader
	if a.cfg.STT.NativeModelDir != "" {
		dir := a.cfg.STT.NativeModelDir
		nativeLoader = whisper.NativeLoader(func(tag string) string {
			return filepath.Join(dir, tag+".bin")
		})
	}
	if a.cfg.STT.WhisperServerURL != "" {
		httpLoader = whisper.LoadHTTP(a.cfg.STT.WhisperServerURL, a.cfg.STT.WhisperModel)
	}

	var loader stt.ASRLoader
	switch {
	case nativeLoader != nil:
		loader = stt.FallbackLoader("whisper-native", nativeLoader, "whisper-http", httpLoader)
	case httpLoader != nil:
		loader = httpLoader
	}

	var aligner stt.Aligner
	if a.cfg.STT.AlignerServerURL != "" {
		aligner = stt.NewHTTPAligner(a.cfg.STT.AlignerServerURL)
	}
	a.stt = stt.NewService(loader, aligner)
}

// initMetrics builds the Metrics instrument set against whatever
// MeterProvider is currently registered globally — observe.InitProvider,
// called from main before App.New, installs the real Prometheus-backed
// one; tests and callers that skip it get OTel's no-op provider for free.
func (a *App) initMetrics() error {
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return err
	}
	a.metrics = metrics
	return nil
}

// initHealth registers the readiness checkers the teacher's health package
// expects: one per subsystem whose failure should flip /readyz red.
func (a *App) initHealth() {
	checkers := []health.Checker{
		{Name: "engines", Check: a.checkEnginesAvailable},
		{Name: "favorites", Check: a.checkFavoritesReachable},
	}
	a.health = health.New(checkers...)
}

func (a *App) checkEnginesAvailable(ctx context.Context) error {
	for _, id := range a.engines.IDs() {
		backend, err := a.engines.Backend(id)
		if err != nil {
			continue
		}
		if backend.Available(ctx) {
			return nil
		}
	}
	if len(a.engines.IDs()) == 0 {
		return fmt.Errorf("no engines configured")
	}
	return fmt.Errorf("no configured engine is available")
}

func (a *App) checkFavoritesReachable(ctx context.Context) error {
	_, err := a.favorites.List(ctx)
	return err
}

func (a *App) initHTTPServer() {
	mux := http.NewServeMux()
	router := httpapi.New(httpapi.Config{
		APIPrefix:         a.cfg.Server.APIPrefix,
		AuthToken:         a.cfg.Server.AuthToken,
		SPADir:            a.cfg.Server.SPADir,
		OutputDir:         a.cfg.Directories.OutputDir,
		MediaEditsDir:     a.cfg.Directories.MediaEditsDir,
		VoicePreviewsDir:  a.cfg.Directories.VoicePreviewsDir,
		ImageDir:          a.cfg.Directories.ImageDir,
		Engines:           a.engines,
		MediaJobs:         a.mediaJobs,
		Favorites:         a.favorites,
		Previews:          a.previews,
		Stats:             a.stats,
		IngestCache:       a.ingest,
		CatalogBuild:      a.catalog,
		OllamaBaseURL:     a.cfg.Proxies.OllamaBaseURL,
		DrawThingsBaseURL: a.cfg.Proxies.DrawThingsBaseURL,
		AllowCLIFallback:  a.cfg.Proxies.AllowCLIFallback,
		XTTSReferenceDir:  xttsReferenceDir(a.cfg),
		ChatTTSPresetDir:  chattsPresetDir(a.cfg),
		Health:            a.health,
		Metrics:           a.metrics,
	})
	router.Register(mux)

	a.httpServer = &http.Server{
		Addr:    a.cfg.Server.ListenAddr,
		Handler: observe.Middleware(a.metrics)(mux),
	}
}

// xttsReferenceDir finds the reference-clip directory of the first
// cloning-capable CLI engine declared, so the /xtts/custom_voice CRUD
// routes have somewhere to write uploads even though the route table isn't
// itself keyed by engine id.
func xttsReferenceDir(cfg *config.Config) string {
	for _, ec := range cfg.Engines {
		if ec.Type == "cli" && ec.ReferenceDir != "" {
			return ec.ReferenceDir
		}
	}
	return ""
}

// chattsPresetDir mirrors xttsReferenceDir for the dialogue engine's preset
// directory.
func chattsPresetDir(cfg *config.Config) string {
	for _, ec := range cfg.Engines {
		if ec.Type == "cli" && ec.Dialogue && ec.PresetDir != "" {
			return ec.PresetDir
		}
	}
	return ""
}

// Run serves HTTP until ctx is cancelled, then returns. A non-nil error
// other than http.ErrServerClosed is a genuine listen failure.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("app running", "addr", a.httpServer.Addr, "engines", a.engines.IDs())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server and runs every registered closer in order,
// aborting early if ctx expires first. Safe to call multiple times; only
// the first call does anything.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.httpServer != nil {
			if err := a.httpServer.Shutdown(ctx); err != nil {
				slog.Warn("http server shutdown error", "err", err)
			}
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
