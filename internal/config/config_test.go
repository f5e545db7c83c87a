package config_test

import (
	"strings"
	"testing"

	"github.com/Astrocyte74/tts-hub/internal/config"
)

const sampleYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
  api_prefix: api

directories:
  output_dir: /tmp/tts-hub-out

engines:
  - id: bundled
    type: bundled
    bank_dir: /tmp/voices
    default: true
  - id: xtts
    type: cli
    command: xtts-cli
    work_dir: /tmp/xtts

proxies:
  ollama_base_url: http://localhost:11434
`

func TestLoadFromReader_AppliesDefaultsAndParsesFields(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.APIPrefix != "api" {
		t.Errorf("APIPrefix = %q", cfg.Server.APIPrefix)
	}
	if len(cfg.Engines) != 2 {
		t.Fatalf("Engines = %d, want 2", len(cfg.Engines))
	}
	if cfg.Engines[1].Timeout == 0 {
		t.Error("expected a default timeout to be applied")
	}
	if cfg.Directories.MediaEditsDir == "" {
		t.Error("expected MediaEditsDir to be derived from output_dir")
	}
}

func TestLoadFromReader_EmptyDocumentGetsFullDefaults(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want default", cfg.Server.ListenAddr)
	}
	if cfg.Server.APIPrefix != "api" {
		t.Errorf("APIPrefix = %q, want default", cfg.Server.APIPrefix)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("server:\n  bogus_field: 1\n"))
	if err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}
