// Package httpapi wires every HTTP-facing component into the route table
// clients speak: engine dispatch, the media edit pipeline, voice catalogs,
// favorites, stats, and the streaming LLM/image-gen proxies. Each JSON route
// is registered twice — once under the configured API prefix, once at the
// legacy unprefixed path — mirroring the distilled service's blueprint-plus-
// legacy-alias mounting.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/engine"
	"github.com/Astrocyte74/tts-hub/internal/favorites"
	"github.com/Astrocyte74/tts-hub/internal/health"
	"github.com/Astrocyte74/tts-hub/internal/ingestcache"
	"github.com/Astrocyte74/tts-hub/internal/mediajobs"
	"github.com/Astrocyte74/tts-hub/internal/observe"
	"github.com/Astrocyte74/tts-hub/internal/previewcache"
	"github.com/Astrocyte74/tts-hub/internal/stats"
	"github.com/Astrocyte74/tts-hub/internal/voicecatalog"
)

// Config bundles every subsystem a route handler may need plus the static
// directories HTTPFront serves directly.
type Config struct {
	APIPrefix string
	AuthToken string
	SPADir    string

	OutputDir        string
	MediaEditsDir    string
	VoicePreviewsDir string
	ImageDir         string

	Engines      *engine.Registry
	MediaJobs    *mediajobs.Service
	Favorites    favorites.Store
	Previews     *previewcache.Cache
	Stats        *stats.Recorder
	IngestCache  *ingestcache.Cache
	CatalogBuild *voicecatalog.Builder

	OllamaBaseURL     string
	DrawThingsBaseURL string
	AllowCLIFallback  bool

	// XTTSReferenceDir is the cloning engine's reference-clip directory,
	// used by the /xtts/custom_voice CRUD routes.
	XTTSReferenceDir string

	// ChatTTSPresetDir is the dialogue engine's preset directory, used by
	// POST /chattts/presets.
	ChatTTSPresetDir string

	Health *health.Handler

	Metrics *observe.Metrics
}

// Router owns the configured subsystems and registers the full route table
// onto a [http.ServeMux].
type Router struct {
	cfg    Config
	ollama *resty.Client
	draw   *resty.Client
}

// New returns a ready-to-use Router. Config fields left zero simply mean
// the routes depending on them report themselves unavailable rather than
// panicking — e.g. a deployment with no DrawThingsBaseURL still serves
// every other route.
func New(cfg Config) *Router {
	r := &Router{cfg: cfg}
	if cfg.OllamaBaseURL != "" {
		r.ollama = resty.New().SetBaseURL(cfg.OllamaBaseURL).SetTimeout(0)
	}
	if cfg.DrawThingsBaseURL != "" {
		r.draw = resty.New().SetBaseURL(cfg.DrawThingsBaseURL)
	}
	return r
}

// Register mounts every route from the external interface table onto mux,
// each handler registered under both the configured API prefix and the
// legacy unprefixed path.
func (r *Router) Register(mux *http.ServeMux) {
	prefix := strings.Trim(r.cfg.APIPrefix, "/")

	mount := func(method, path string, handler http.HandlerFunc) {
		mux.HandleFunc(method+" "+path, handler)
		if prefix != "" {
			mux.HandleFunc(method+" /"+prefix+path, handler)
		}
	}

	mount("GET", "/meta", r.handleMeta)
	mount("GET", "/voices", r.handleVoices)
	mount("GET", "/voices_grouped", r.handleVoicesGrouped)
	mount("GET", "/voices_catalog", r.handleVoicesCatalog)
	mount("POST", "/voices/preview", r.handleVoicePreview)

	mount("POST", "/synthesise", r.handleSynthesize)
	mount("POST", "/synthesize", r.handleSynthesize)
	mount("POST", "/audition", r.handleAudition)

	mount("POST", "/xtts/custom_voice", r.handleCustomVoiceCreate)
	mount("GET", "/xtts/custom_voice/{id}", r.handleCustomVoiceGet)
	mount("PATCH", "/xtts/custom_voice/{id}", r.handleCustomVoicePatch)
	mount("DELETE", "/xtts/custom_voice/{id}", r.handleCustomVoiceDelete)
	mount("POST", "/chattts/presets", r.handlePresetCreate)

	mount("GET", "/random_text", r.handleRandomText)
	mount("GET", "/ollama_models", r.handleOllamaModels)

	for _, op := range []string{"tags", "generate", "chat", "pull", "ps", "show", "delete"} {
		mount("GET", "/ollama/"+op, r.handleOllamaProxy(op))
		mount("POST", "/ollama/"+op, r.handleOllamaProxy(op))
	}
	for _, op := range []string{"models", "samplers", "txt2img", "img2img"} {
		mount("GET", "/drawthings/"+op, r.handleDrawThingsProxy(op))
		mount("POST", "/drawthings/"+op, r.handleDrawThingsProxy(op))
	}
	mount("POST", "/telegram/draw", r.handleTelegramDraw)

	mount("POST", "/media/transcribe", r.handleMediaTranscribe)
	mount("POST", "/media/align", r.handleMediaAlign)
	mount("POST", "/media/align_region", r.handleMediaAlignRegion)
	mount("POST", "/media/replace_preview", r.handleMediaReplacePreview)
	mount("POST", "/media/apply", r.handleMediaApply)
	mount("POST", "/media/probe", r.handleMediaProbe)
	mount("POST", "/media/estimate", r.handleMediaEstimate)
	mount("GET", "/media/stats", r.handleMediaStats)

	favHandler := r.authMiddleware(http.HandlerFunc(r.handleFavorites))
	mount("GET", "/favorites", favHandler.ServeHTTP)
	mount("POST", "/favorites", favHandler.ServeHTTP)
	mount("GET", "/favorites/export", favHandler.ServeHTTP)
	mount("POST", "/favorites/import", favHandler.ServeHTTP)
	mount("GET", "/favorites/{id}", favHandler.ServeHTTP)
	mount("PATCH", "/favorites/{id}", favHandler.ServeHTTP)
	mount("DELETE", "/favorites/{id}", favHandler.ServeHTTP)

	mux.Handle("GET /audio/", http.StripPrefix("/audio/", http.FileServer(http.Dir(r.cfg.OutputDir))))
	mux.Handle("GET /image/drawthings/", http.StripPrefix("/image/drawthings/", http.FileServer(http.Dir(r.cfg.ImageDir))))

	if r.cfg.Health != nil {
		r.cfg.Health.Register(mux)
	}
	mux.Handle("GET /metrics", promhttp.Handler())

	if r.cfg.SPADir != "" {
		mux.Handle("GET /", r.spaFallback())
	}
}

// authMiddleware requires "Authorization: Bearer <token>" when cfg.AuthToken
// is non-empty; an empty token disables auth entirely (the single-tenant
// default).
func (r *Router) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.cfg.AuthToken == "" {
			next.ServeHTTP(w, req)
			return
		}
		got := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
		if got == "" || got != r.cfg.AuthToken {
			writeError(w, apperr.Unauthorized("missing or invalid bearer token"))
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) spaFallback() http.Handler {
	fs := http.FileServer(http.Dir(r.cfg.SPADir))
	index := r.cfg.SPADir + "/index.html"
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/audio/") || strings.HasPrefix(req.URL.Path, "/image/") {
			http.NotFound(w, req)
			return
		}
		if _, err := http.Dir(r.cfg.SPADir).Open(req.URL.Path); err != nil {
			http.ServeFile(w, req, index)
			return
		}
		fs.ServeHTTP(w, req)
	})
}

// errorEnvelope is the {error, status} JSON shape every failed request
// returns.
type errorEnvelope struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// writeError maps err through apperr.KindOf and writes the JSON error
// envelope with the matching HTTP status; unexpected errors become 500.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := kind.Status()
	slog.Warn("httpapi: request failed", "kind", kind, "status", status, "error", err)
	writeJSON(w, status, errorEnvelope{Error: err.Error(), Status: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads and decodes req's body as a JSON object, surfacing a
// bad_request error that matches the distilled service's parse_json_request.
func decodeJSON(req *http.Request) (map[string]any, error) {
	var body map[string]any
	if req.Body == nil {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(req.Body)
	if err := dec.Decode(&body); err != nil {
		return nil, apperr.BadRequest("invalid JSON payload: %v", err)
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}
