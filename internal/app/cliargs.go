package app

import (
	"fmt"
	"strconv"

	"github.com/Astrocyte74/tts-hub/internal/engine/cliengine"
	"github.com/Astrocyte74/tts-hub/internal/execrunner"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// execLookup is a thin indirection over execrunner.Lookup so presets can be
// gated on the same PATH-resolution check the backend itself uses for
// Available, without importing execrunner into voicecatalog.
func execLookup(command string) bool {
	return execrunner.Lookup(command)
}

// cliArgBuilder returns the subprocess argument convention for a known
// engine id, falling back to a generic text/voice/language/out convention
// for anything declared with type "cli" that isn't one of the two shipped
// profiles. No original reference exists for the exact xtts/chattts
// command-line surface — the registry this service was distilled from only
// names these tools, it doesn't shell out to them — so these flags are a
// plausible convention modeled on the tools' own published CLIs, not a
// transcription of a known-good invocation.
func cliArgBuilder(engineID string) cliengine.ArgBuilder {
	switch engineID {
	case "xtts":
		return xttsArgs
	case "chattts":
		return chattsArgs
	default:
		return genericArgs
	}
}

// xttsArgs builds a Coqui-XTTS-style cloning invocation: the reference clip
// selects the voice, so req.Voice is passed as a speaker wav path rather
// than a named preset.
func xttsArgs(req types.SynthRequest, outDir string) (args []string, outputGlob string) {
	args = []string{
		"--text", req.Text,
		"--speaker_wav", req.Voice,
		"--language", orDefault(req.Language, "en"),
		"--speed", formatSpeed(req.Speed),
		"--out_path", outDir,
	}
	if seed, ok := req.Extras["seed"]; ok {
		args = append(args, "--seed", fmt.Sprint(seed))
	}
	if temp, ok := req.Extras["temperature"]; ok {
		args = append(args, "--temperature", fmt.Sprint(temp))
	}
	return args, "*.wav"
}

// chattsArgs builds a ChatTTS-style dialogue invocation: speaker selects a
// named preset rather than a reference clip, and the subprocess's own
// stdout/stderr gets re-parsed afterward (see cliengine's Dialogue flag) to
// confirm which speaker actually rendered.
func chattsArgs(req types.SynthRequest, outDir string) (args []string, outputGlob string) {
	speaker, _ := req.Extras["speaker"].(string)
	if speaker == "" {
		speaker = req.Voice
	}
	args = []string{
		"--text", req.Text,
		"--speaker", speaker,
		"--speed", formatSpeed(req.Speed),
		"--output_dir", outDir,
	}
	return args, "*.wav"
}

// genericArgs is the fallback convention for a declared "cli" engine that
// isn't xtts or chattts.
func genericArgs(req types.SynthRequest, outDir string) (args []string, outputGlob string) {
	args = []string{"--text", req.Text, "--out", outDir}
	if req.Voice != "" {
		args = append(args, "--voice", req.Voice)
	}
	if req.Language != "" {
		args = append(args, "--language", req.Language)
	}
	return args, "*.wav"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func formatSpeed(speed float64) string {
	return strconv.FormatFloat(speed, 'f', -1, 64)
}
