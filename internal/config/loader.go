package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// validLogLevels lists the recognized server.log_level values.
var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// validEngineTypes lists the recognized engines[].type values.
var validEngineTypes = map[string]bool{"bundled": true, "cli": true, "remote": true}

// validFavoritesBackends lists the recognized favorites.backend values.
var validFavoritesBackends = map[string]bool{"json": true, "postgres": true}

// Load reads the YAML configuration file at path, applies defaults, and
// returns a validated [Config]. Callers should check errors.Is(err,
// os.ErrNotExist) to print a "copy configs/example.yaml to get started"
// hint rather than a raw path error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills every field the server can run without explicit
// configuration for, matching the teacher's convention of defaulting in
// the loader rather than scattering os.Getenv-style fallbacks through the
// rest of the codebase.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Server.APIPrefix == "" {
		cfg.Server.APIPrefix = "api"
	}

	if cfg.Directories.OutputDir == "" {
		cfg.Directories.OutputDir = "out"
	}
	if cfg.Directories.MediaEditsDir == "" {
		cfg.Directories.MediaEditsDir = filepath.Join(cfg.Directories.OutputDir, "media_edits")
	}
	if cfg.Directories.MediaCacheDir == "" {
		cfg.Directories.MediaCacheDir = filepath.Join(cfg.Directories.OutputDir, "media_cache", "youtube")
	}
	if cfg.Directories.VoicePreviewsDir == "" {
		cfg.Directories.VoicePreviewsDir = filepath.Join(cfg.Directories.OutputDir, "voice_previews")
	}
	if cfg.Directories.ImageDir == "" {
		cfg.Directories.ImageDir = filepath.Join(cfg.Directories.OutputDir, "images", "drawthings")
	}
	if cfg.Directories.StatsFile == "" {
		cfg.Directories.StatsFile = filepath.Join(cfg.Directories.OutputDir, "media_stats.json")
	}
	if cfg.Directories.FavoritesFile == "" {
		cfg.Directories.FavoritesFile = filepath.Join(cfg.Directories.OutputDir, "favorites.json")
	}

	if cfg.Favorites.Backend == "" {
		cfg.Favorites.Backend = "json"
	}

	if cfg.IngestCache.TTL == 0 {
		cfg.IngestCache.TTL = 7 * 24 * time.Hour
	}
	if cfg.IngestCache.CleanupInterval == 0 {
		cfg.IngestCache.CleanupInterval = time.Hour
	}

	for i := range cfg.Engines {
		if cfg.Engines[i].Timeout == 0 {
			cfg.Engines[i].Timeout = 2 * time.Minute
		}
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !validLogLevels[cfg.Server.LogLevel] {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if !validFavoritesBackends[cfg.Favorites.Backend] {
		errs = append(errs, fmt.Errorf("favorites.backend %q is invalid; valid values: json, postgres", cfg.Favorites.Backend))
	}
	if cfg.Favorites.Backend == "postgres" && cfg.Favorites.DSN == "" {
		errs = append(errs, fmt.Errorf("favorites.dsn is required when favorites.backend is postgres"))
	}

	engineIDsSeen := make(map[string]int, len(cfg.Engines))
	defaultCount := 0
	for i, eng := range cfg.Engines {
		prefix := fmt.Sprintf("engines[%d]", i)
		if eng.ID == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		} else if prev, ok := engineIDsSeen[eng.ID]; ok {
			errs = append(errs, fmt.Errorf("%s.id %q is a duplicate of engines[%d]", prefix, eng.ID, prev))
		} else {
			engineIDsSeen[eng.ID] = i
		}
		if !validEngineTypes[eng.Type] {
			errs = append(errs, fmt.Errorf("%s.type %q is invalid; valid values: bundled, cli, remote", prefix, eng.Type))
		}
		if eng.Default {
			defaultCount++
		}

		switch eng.Type {
		case "bundled":
			if eng.BankDir == "" {
				errs = append(errs, fmt.Errorf("%s: type bundled requires bank_dir", prefix))
			}
		case "cli":
			if eng.Command == "" {
				errs = append(errs, fmt.Errorf("%s: type cli requires command", prefix))
			}
		case "remote":
			if eng.BaseURL == "" {
				errs = append(errs, fmt.Errorf("%s: type remote requires base_url", prefix))
			}
		}
	}
	if defaultCount > 1 {
		errs = append(errs, fmt.Errorf("engines: exactly one engine may set default: true, found %d", defaultCount))
	}
	if len(cfg.Engines) > 0 && defaultCount == 0 {
		slog.Warn("no engine marked default: true; the dispatcher has no fallback for requests that omit \"engine\"")
	}

	return errors.Join(errs...)
}
