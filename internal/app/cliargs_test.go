package app

import (
	"testing"

	"github.com/Astrocyte74/tts-hub/pkg/types"
)

func TestCliArgBuilder_DispatchesOnEngineID(t *testing.T) {
	for _, id := range []string{"xtts", "chattts", "some-other-tool"} {
		if builder := cliArgBuilder(id); builder == nil {
			t.Fatalf("cliArgBuilder(%q) returned nil", id)
		}
	}

	req := types.SynthRequest{Text: "hi", Voice: "/refs/bob.wav"}
	xttsOut, _ := cliArgBuilder("xtts")(req, "/out")
	assertFlag(t, xttsOut, "--speaker_wav", "/refs/bob.wav")

	genericOut, _ := cliArgBuilder("some-other-tool")(req, "/out")
	assertFlag(t, genericOut, "--voice", "/refs/bob.wav")
}

func TestXTTSArgs_UsesVoiceAsSpeakerWav(t *testing.T) {
	req := types.SynthRequest{
		Text:     "hello",
		Voice:    "/refs/bob.wav",
		Language: "fr",
		Speed:    1.2,
		Extras:   map[string]any{"seed": 7},
	}
	args, glob := xttsArgs(req, "/out")
	if glob != "*.wav" {
		t.Errorf("glob = %q, want *.wav", glob)
	}
	assertFlag(t, args, "--speaker_wav", "/refs/bob.wav")
	assertFlag(t, args, "--language", "fr")
	assertFlag(t, args, "--seed", "7")
}

func TestXTTSArgs_DefaultsLanguageToEnglish(t *testing.T) {
	args, _ := xttsArgs(types.SynthRequest{Text: "hi"}, "/out")
	assertFlag(t, args, "--language", "en")
}

func TestChatTTSArgs_FallsBackToVoiceWhenNoSpeakerExtra(t *testing.T) {
	req := types.SynthRequest{Text: "hi", Voice: "narrator"}
	args, glob := chattsArgs(req, "/out")
	if glob != "*.wav" {
		t.Errorf("glob = %q, want *.wav", glob)
	}
	assertFlag(t, args, "--speaker", "narrator")
}

func TestChatTTSArgs_PrefersSpeakerExtraOverVoice(t *testing.T) {
	req := types.SynthRequest{
		Text:   "hi",
		Voice:  "narrator",
		Extras: map[string]any{"speaker": "villain"},
	}
	args, _ := chattsArgs(req, "/out")
	assertFlag(t, args, "--speaker", "villain")
}

func TestGenericArgs_OmitsEmptyOptionalFlags(t *testing.T) {
	args, _ := genericArgs(types.SynthRequest{Text: "hi"}, "/out")
	for _, flag := range []string{"--voice", "--language"} {
		for _, a := range args {
			if a == flag {
				t.Errorf("genericArgs included %s with no value set", flag)
			}
		}
	}
}

func TestFormatSpeed_TrimsTrailingZeros(t *testing.T) {
	if got := formatSpeed(1.0); got != "1" {
		t.Errorf("formatSpeed(1.0) = %q, want %q", got, "1")
	}
	if got := formatSpeed(1.25); got != "1.25" {
		t.Errorf("formatSpeed(1.25) = %q, want %q", got, "1.25")
	}
}

func assertFlag(t *testing.T, args []string, flag, want string) {
	t.Helper()
	for i, a := range args {
		if a == flag {
			if i+1 >= len(args) {
				t.Fatalf("flag %s has no value", flag)
			}
			if args[i+1] != want {
				t.Errorf("%s = %q, want %q", flag, args[i+1], want)
			}
			return
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
}
