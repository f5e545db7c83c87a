// Package cliengine implements a [engine.Backend] that synthesizes by
// spawning an external CLI subprocess per request, grounded on the teacher's
// sole os/exec usage (internal/mcp/mcphost's stdio transport) generalized
// into a reusable abstraction over [execrunner].
//
// One Backend instance wraps one external synthesis tool. Two flavors are
// configured from the same type: a reference-clip cloning engine ("xtts")
// and a speaker-preset dialogue engine ("chattts") that additionally parses
// the subprocess output for the speaker it actually used.
package cliengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/execrunner"
	"github.com/Astrocyte74/tts-hub/internal/voicecatalog"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// ArgBuilder turns a normalized request plus the destination the subprocess
// is expected to write into concrete subprocess arguments. Each concrete CLI
// tool supplies its own builder since flag names differ per engine.
type ArgBuilder func(req types.SynthRequest, outDir string) (args []string, outputGlob string)

// Config wires one external CLI tool into the dispatcher.
type Config struct {
	// EngineID is the registry key ("xtts", "chattts", ...).
	EngineID string

	// Command is the executable name or path; resolved via PATH.
	Command string

	// WorkDir is the subprocess's pinned working directory; also where
	// NewestOrDiff looks for the output file the subprocess drops.
	WorkDir string

	// OutputDir is where the landed result file is copied/renamed to, under
	// the dispatcher's own output namespace.
	OutputDir string

	// Env extends the subprocess environment (hardware fallbacks, hiding
	// the GPU where required).
	Env map[string]string

	// Timeout bounds one synthesis call.
	Timeout time.Duration

	// BuildArgs constructs the subprocess invocation for a request.
	BuildArgs ArgBuilder

	// Dialogue, when true, enables the "Use speaker" extraction pass over
	// the subprocess's stdout/stderr and sanitizes an optional "speaker"
	// in SynthRequest.Extras; a request without a speaker is not rejected.
	Dialogue bool

	// RequiresVoiceFlag is what RequiresVoice reports: when true, Prepare
	// rejects a request with no voice at all (cloning engines).
	RequiresVoiceFlag bool

	// Voices or References backs FetchVoices (Voices wins if both are
	// set); with neither, FetchVoices returns an empty catalog. Presets
	// backs the Presets method only and is not part of FetchVoices.
	Voices     voicecatalog.Source
	References voicecatalog.Source
	Presets    func() ([]voicecatalog.Preset, error)

	catalogBuilder *voicecatalog.Builder
}

// Backend is one configured external CLI synthesis engine.
type Backend struct {
	cfg Config
}

// New returns a ready-to-use Backend for cfg. cfg.catalogBuilder is
// populated here if the caller left it nil.
func New(cfg Config) *Backend {
	if cfg.catalogBuilder == nil {
		cfg.catalogBuilder = voicecatalog.NewBuilder()
	}
	return &Backend{cfg: cfg}
}

func (b *Backend) ID() string { return b.cfg.EngineID }

// Prepare validates the raw request and resolves voice identity. A voice
// value may be a catalog id/slug or a filesystem path; a path is only
// accepted if it resolves inside cfg.WorkDir (the engine's voice directory)
// or the caller-supplied job directory via raw["job_dir"].
func (b *Backend) Prepare(_ context.Context, raw map[string]any) (types.SynthRequest, error) {
	text, _ := raw["text"].(string)
	text = strings.TrimSpace(text)
	if text == "" {
		return types.SynthRequest{}, apperr.BadRequest("cliengine %s: text is required", b.cfg.EngineID)
	}

	voice, _ := raw["voice"].(string)
	if voice == "" && b.cfg.RequiresVoiceFlag {
		return types.SynthRequest{}, apperr.BadRequest("cliengine %s: voice is required", b.cfg.EngineID)
	}
	if voice != "" && looksLikePath(voice) {
		jobDir, _ := raw["job_dir"].(string)
		if err := validateScopedPath(voice, b.cfg.WorkDir, jobDir); err != nil {
			return types.SynthRequest{}, err
		}
	}

	speed := coerceFloat(raw["speed"], 1.0)
	if speed <= 0 {
		return types.SynthRequest{}, apperr.BadRequest("cliengine %s: speed must be positive", b.cfg.EngineID)
	}

	language, _ := raw["language"].(string)
	language = strings.ToLower(strings.TrimSpace(language))

	extras := map[string]any{}
	for _, key := range []string{"seed", "temperature", "style", "sample_rate", "format", "speaker"} {
		if v, ok := raw[key]; ok {
			extras[key] = v
		}
	}
	if b.cfg.Dialogue {
		speaker, _ := extras["speaker"].(string)
		extras["speaker"] = sanitizeSpeaker(speaker)
	}

	trimSilence, _ := raw["trim_silence"].(bool)

	return types.SynthRequest{
		Engine:      b.cfg.EngineID,
		Text:        text,
		Voice:       voice,
		Language:    language,
		Speed:       speed,
		TrimSilence: trimSilence,
		Extras:      extras,
	}, nil
}

// Synthesize spawns the configured subprocess, discovers its output via the
// snapshot-diff-then-newest policy, and copies the result into OutputDir.
func (b *Backend) Synthesize(ctx context.Context, req types.SynthRequest) (types.SynthResult, error) {
	args, outputGlob := b.cfg.BuildArgs(req, b.cfg.WorkDir)

	before, err := execrunner.Snapshot(b.cfg.WorkDir, outputGlob)
	if err != nil {
		return types.SynthResult{}, apperr.Wrap(apperr.KindEngineFailure, "cliengine: snapshot output dir", err)
	}

	result, err := execrunner.Run(ctx, execrunner.Spec{
		Command: b.cfg.Command,
		Args:    args,
		Dir:     b.cfg.WorkDir,
		Env:     b.cfg.Env,
		Timeout: b.cfg.Timeout,
	})
	if err != nil {
		if strings.Contains(err.Error(), "timed out") {
			return types.SynthResult{}, apperr.Timeout("cliengine %s: %v", b.cfg.EngineID, err)
		}
		return types.SynthResult{}, apperr.EngineUnavailable("cliengine %s: %v", b.cfg.EngineID, err)
	}
	if result.ExitCode != 0 {
		return types.SynthResult{}, apperr.EngineFailure("cliengine %s: exit %d: %s", b.cfg.EngineID, result.ExitCode, execrunner.TrimmedOutput(result))
	}

	after, err := execrunner.Snapshot(b.cfg.WorkDir, outputGlob)
	if err != nil {
		return types.SynthResult{}, apperr.Wrap(apperr.KindEngineFailure, "cliengine: snapshot output dir", err)
	}
	landed, ok := execrunner.NewestOrDiff(before, after)
	if !ok {
		return types.SynthResult{}, apperr.EngineFailure("cliengine %s: no output file produced", b.cfg.EngineID)
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return types.SynthResult{}, apperr.Wrap(apperr.KindEngineFailure, "cliengine: create output dir", err)
	}
	filename := fmt.Sprintf("%s-%d%s", b.cfg.EngineID, time.Now().UnixNano(), filepath.Ext(landed))
	dest := filepath.Join(b.cfg.OutputDir, filename)
	if err := copyFile(landed, dest); err != nil {
		return types.SynthResult{}, apperr.Wrap(apperr.KindEngineFailure, "cliengine: land output", err)
	}

	synthResult := types.SynthResult{
		Filename:   filename,
		Path:       dest,
		Engine:     b.cfg.EngineID,
		Voice:      req.Voice,
		SampleRate: 24000,
		Language:   req.Language,
		Speed:      req.Speed,
	}

	if b.cfg.Dialogue {
		synthResult.Voice = extractSpeaker(result.Stdout, result.Stderr, req.Voice)
	}

	return synthResult, nil
}

func (b *Backend) FetchVoices(_ context.Context) (voicecatalog.Catalog, error) {
	available := b.Available(context.Background())
	switch {
	case b.cfg.Voices != nil:
		return b.cfg.catalogBuilder.Build(b.cfg.EngineID, b.cfg.Voices, available, "")
	case b.cfg.References != nil:
		return b.cfg.catalogBuilder.Build(b.cfg.EngineID, b.cfg.References, available, "")
	default:
		return voicecatalog.Catalog{Available: available}, nil
	}
}

// Available reports whether the subprocess binary resolves on PATH and, for
// cloning engines, whether at least one reference clip is present.
func (b *Backend) Available(ctx context.Context) bool {
	if !execrunner.Lookup(b.cfg.Command) {
		return false
	}
	if b.cfg.References != nil {
		voices, err := b.cfg.References.Voices()
		if err != nil || len(voices) == 0 {
			return false
		}
	}
	return true
}

func (b *Backend) Defaults() map[string]any {
	return map[string]any{"speed": 1.0}
}

func (b *Backend) Supports(feature string) bool {
	switch feature {
	case "cloning":
		return b.cfg.References != nil
	case "dialogue":
		return b.cfg.Dialogue
	default:
		return false
	}
}

func (b *Backend) RequiresVoice() bool { return b.cfg.RequiresVoiceFlag }

// Presets returns the dialogue engine's speaker presets, for engines
// configured with a preset loader (e.g. the "/chattts/presets" route).
func (b *Backend) Presets() ([]voicecatalog.Preset, error) {
	if b.cfg.Presets == nil {
		return nil, nil
	}
	return b.cfg.Presets()
}

var pathSeparators = regexp.MustCompile(`[\\/]`)

func looksLikePath(voice string) bool {
	return pathSeparators.MatchString(voice) || filepath.IsAbs(voice)
}

// validateScopedPath rejects a voice path that does not resolve inside
// voiceDir or jobDir, per the dispatcher's file-path scope rule.
func validateScopedPath(voice, voiceDir, jobDir string) error {
	abs, err := filepath.Abs(voice)
	if err != nil {
		return apperr.BadRequest("cliengine: invalid voice path %q", voice)
	}
	for _, scope := range []string{voiceDir, jobDir} {
		if scope == "" {
			continue
		}
		scopeAbs, err := filepath.Abs(scope)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(scopeAbs, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return apperr.BadRequest("cliengine: voice path %q is outside the permitted directories", voice)
}

func coerceFloat(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return fallback
}

// useSpeakerMarker matches the CLI's documented "Use speaker <token>" line.
var useSpeakerMarker = regexp.MustCompile(`(?i)use speaker[:\s]*$`)
var speakerFallback = regexp.MustCompile(`(?i)speaker[:\s]+([^\s,]+)`)

// extractSpeaker implements the dialogue engine's documented extraction
// rule: find a "Use speaker" marker and take the token on the next
// non-blank line; failing that, fall back to a regex scan across stdout and
// stderr. The matched token is sanitized the same way a caller-supplied
// speaker is.
func extractSpeaker(stdout, stderr, fallback string) string {
	for _, stream := range []string{stdout, stderr} {
		lines := strings.Split(stream, "\n")
		for i, line := range lines {
			if useSpeakerMarker.MatchString(strings.TrimSpace(line)) {
				for j := i + 1; j < len(lines); j++ {
					candidate := strings.TrimSpace(lines[j])
					if candidate == "" {
						continue
					}
					return sanitizeSpeaker(candidate)
				}
			}
		}
	}
	for _, stream := range []string{stdout, stderr} {
		if m := speakerFallback.FindStringSubmatch(stream); m != nil {
			return sanitizeSpeaker(m[1])
		}
	}
	return fallback
}

// sanitizeSpeaker takes the first whitespace-delimited token and strips
// trailing punctuation, per the documented (if under-specified) speaker
// normalization rule.
func sanitizeSpeaker(speaker string) string {
	speaker = strings.TrimSpace(speaker)
	if speaker == "" {
		return ""
	}
	fields := strings.Fields(speaker)
	token := fields[0]
	return strings.TrimRight(token, ".,;:!?\"')]}")
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
