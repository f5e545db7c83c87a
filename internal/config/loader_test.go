package config_test

import (
	"strings"
	"testing"

	"github.com/Astrocyte74/tts-hub/internal/config"
)

func TestValidate_RejectsDuplicateEngineIDs(t *testing.T) {
	yaml := `
engines:
  - id: xtts
    type: cli
    command: xtts-cli
  - id: xtts
    type: cli
    command: xtts-cli
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for duplicate engine ids, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error should mention duplicate, got: %v", err)
	}
}

func TestValidate_RejectsMoreThanOneDefaultEngine(t *testing.T) {
	yaml := `
engines:
  - id: a
    type: bundled
    bank_dir: /tmp/a
    default: true
  - id: b
    type: bundled
    bank_dir: /tmp/b
    default: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for two default engines, got nil")
	}
}

func TestValidate_RejectsUnknownEngineType(t *testing.T) {
	yaml := `
engines:
  - id: a
    type: magic
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown engine type, got nil")
	}
}

func TestValidate_CLIEngineRequiresCommand(t *testing.T) {
	yaml := `
engines:
  - id: a
    type: cli
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for cli engine missing command, got nil")
	}
	if !strings.Contains(err.Error(), "command") {
		t.Errorf("error should mention command, got: %v", err)
	}
}

func TestValidate_RejectsInvalidLogLevel(t *testing.T) {
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
}
