// Package config provides the configuration schema and loader for the
// media studio server.
package config

import "time"

// Config is the root configuration structure for the server.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Directories DirectoriesConfig `yaml:"directories"`
	Engines     []EngineConfig    `yaml:"engines"`
	STT         STTConfig         `yaml:"stt"`
	IngestCache IngestCacheConfig `yaml:"ingest_cache"`
	Proxies     ProxiesConfig     `yaml:"proxies"`
	Favorites   FavoritesConfig   `yaml:"favorites"`
}

// FavoritesConfig selects which favorites.Store implementation backs the
// service. The JSON file store is the default; Postgres is an opt-in
// alternative for deployments that already run a database.
type FavoritesConfig struct {
	// Backend is "json" (default) or "postgres".
	Backend string `yaml:"backend"`

	// DSN is the Postgres connection string, required when backend is
	// "postgres". Ignored otherwise.
	DSN string `yaml:"dsn"`
}

// STTConfig points the media edit pipeline's transcription stage at its
// whisper.cpp backend. WhisperServerURL configures the pure-Go HTTP
// client; when both it and NativeModelDir are empty no transcription
// engine is wired and /media/transcribe only works with allow_stub=1.
type STTConfig struct {
	WhisperServerURL string `yaml:"whisper_server_url"`
	WhisperModel     string `yaml:"whisper_model"`

	// NativeModelDir, when set, is a directory of whisper.cpp GGML model
	// files named "<languageBaseTag>.bin" (e.g. "en.bin"), loaded via CGO
	// bindings. When both this and WhisperServerURL are set, the native
	// model is tried first per language and the HTTP client becomes its
	// fallback should the native model fail at load or transcribe time.
	NativeModelDir string `yaml:"native_model_dir"`

	// AlignerServerURL points the forced-alignment stage (/media/align,
	// /media/align_region) at its own service; empty disables alignment.
	AlignerServerURL string `yaml:"aligner_server_url"`
}

// ServerConfig holds network, auth, and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`

	// APIPrefix mounts all JSON routes under /<APIPrefix>/ in addition to
	// legacy unprefixed aliases at root. Defaults to "api".
	APIPrefix string `yaml:"api_prefix"`

	// AuthToken, when non-empty, requires "Authorization: Bearer <token>"
	// on favorites routes. Empty disables auth — the single-tenant default.
	AuthToken string `yaml:"auth_token"`

	// SPADir, when non-empty, serves a built single-page app bundle and
	// falls back to its index.html for any non-API, non-audio path.
	SPADir string `yaml:"spa_dir"`
}

// DirectoriesConfig pins every on-disk root the service reads from or
// writes into. All paths are created on startup if missing.
type DirectoriesConfig struct {
	// OutputDir is the root served at /audio/<path> — engine synthesis
	// output, media job directories, and voice previews all live under it.
	OutputDir string `yaml:"output_dir"`

	// MediaEditsDir holds one subdirectory per media job
	// (<OutputDir>/media_edits/<jobId>/ by default).
	MediaEditsDir string `yaml:"media_edits_dir"`

	// MediaCacheDir is the ingest cache's content-addressed download store
	// (<OutputDir>/media_cache/youtube/ by default).
	MediaCacheDir string `yaml:"media_cache_dir"`

	// VoicePreviewsDir holds per-(engine,voice,language) cached preview
	// clips (<OutputDir>/voice_previews/ by default).
	VoicePreviewsDir string `yaml:"voice_previews_dir"`

	// ImageDir is served at /image/drawthings/<path>.
	ImageDir string `yaml:"image_dir"`

	// StatsFile is the path to the persisted operation-stats JSON document.
	StatsFile string `yaml:"stats_file"`

	// FavoritesFile is the path to the persisted favorites JSON document.
	FavoritesFile string `yaml:"favorites_file"`
}

// EngineConfig declares one TTS backend to register into the dispatcher.
// Type selects which concrete backend package constructs it; fields not
// relevant to the chosen type are ignored.
type EngineConfig struct {
	// ID is the registry key clients pass as "engine".
	ID string `yaml:"id"`

	// Type selects the backend implementation: "bundled", "cli", or "remote".
	Type string `yaml:"type"`

	// Default marks this engine as the dispatcher's fallback when a request
	// omits "engine". Exactly one engine should set this.
	Default bool `yaml:"default"`

	// Dialogue enables the "Use speaker" stdout/stderr extraction pass for
	// CLI engines that support multi-speaker presets (e.g. chattts).
	Dialogue bool `yaml:"dialogue"`

	// RequiresVoice rejects a request with no resolvable voice reference at
	// all — set for cloning engines that cannot synthesize a default voice.
	RequiresVoice bool `yaml:"requires_voice"`

	// WeightsDir / BankDir back the bundled in-process engine.
	WeightsDir string `yaml:"weights_dir"`
	BankDir    string `yaml:"bank_dir"`

	// Command / WorkDir / Env / Timeout back a CLI subprocess engine.
	Command string            `yaml:"command"`
	WorkDir string            `yaml:"work_dir"`
	Env     map[string]string `yaml:"env"`
	Timeout time.Duration     `yaml:"timeout"`

	// ReferenceDir / PresetDir locate a CLI engine's voice catalog sources.
	ReferenceDir string `yaml:"reference_dir"`
	PresetDir    string `yaml:"preset_dir"`

	// BaseURL / SynthesizePath / VoicesPath back a remote HTTP engine.
	BaseURL        string `yaml:"base_url"`
	SynthesizePath string `yaml:"synthesize_path"`
	VoicesPath     string `yaml:"voices_path"`
}

// IngestCacheConfig tunes the shared URL-download cache.
type IngestCacheConfig struct {
	// TTL is the max age (by newest-mtime) before a cache entry or job
	// directory is eligible for reaping.
	TTL time.Duration `yaml:"ttl"`

	// CleanupInterval gates how often the opportunistic reaper may run.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// ProxiesConfig points the streaming-proxy routes at their upstreams.
type ProxiesConfig struct {
	// OllamaBaseURL is the root of the local Ollama server backing
	// /ollama/{tags,generate,chat,pull,ps,show,delete}.
	OllamaBaseURL string `yaml:"ollama_base_url"`

	// DrawThingsBaseURL is the root of the local DrawThings gRPC-web/HTTP
	// bridge backing /drawthings/{models,samplers,txt2img,img2img}.
	DrawThingsBaseURL string `yaml:"drawthings_base_url"`

	// AllowCLIFallback permits delete/remove proxy routes to retry through
	// a local CLI invocation when the upstream returns 404/405.
	AllowCLIFallback bool `yaml:"allow_cli_fallback"`
}
