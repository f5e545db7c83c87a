package voicecatalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Astrocyte74/tts-hub/internal/voicecatalog"
)

func TestDeriveLocaleAndGender(t *testing.T) {
	cases := []struct {
		id, locale, gender string
	}{
		{"af_bella", "en-us", "f"},
		{"bm_george", "en-gb", "m"},
		{"jf_alpha", "ja-jp", "f"},
		{"xx_unknown", "", ""},
	}
	for _, c := range cases {
		if got := voicecatalog.DeriveLocale(c.id); got != c.locale {
			t.Errorf("DeriveLocale(%q): got %q, want %q", c.id, got, c.locale)
		}
		if got := voicecatalog.DeriveGender(c.id); got != c.gender {
			t.Errorf("DeriveGender(%q): got %q, want %q", c.id, got, c.gender)
		}
	}
}

func TestResolveAccent_PrefixTakesPriorityOverLocale(t *testing.T) {
	accent := voicecatalog.ResolveAccent("af_bella", "en-us")
	if accent.ID != "en-american" {
		t.Errorf("accent id: got %q, want en-american", accent.ID)
	}
}

func TestResolveAccent_FallsBackToDefault(t *testing.T) {
	accent := voicecatalog.ResolveAccent("zzzz", "")
	if accent.ID != voicecatalog.DefaultAccent.ID {
		t.Errorf("accent id: got %q, want %q", accent.ID, voicecatalog.DefaultAccent.ID)
	}
}

func TestBundledBank_Voices(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []string{"af_bella", "bm_george"} {
		if err := os.WriteFile(filepath.Join(dir, id+".bin"), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	bank := voicecatalog.BundledBank{Dir: dir}
	voices, err := bank.Voices()
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(voices))
	}
	if voices[0].VoiceID != "af_bella" {
		t.Errorf("voice 0: got %q, want af_bella", voices[0].VoiceID)
	}
}

func TestReferenceDirectory_UniquifiesSlugs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"My Voice.wav", "My Voice (2).wav"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	ref := voicecatalog.ReferenceDirectory{Dir: dir}
	voices, err := ref.Voices()
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(voices))
	}
	seen := map[string]bool{}
	for _, v := range voices {
		if seen[v.VoiceID] {
			t.Fatalf("duplicate slug %q", v.VoiceID)
		}
		seen[v.VoiceID] = true
	}
}

func TestLoadPresets_AppendsRandomWhenAvailable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "narrator.txt"), []byte("Speaker[en]"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	presets, err := voicecatalog.LoadPresets(dir, true)
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("expected 2 presets (1 + random), got %d", len(presets))
	}

	without, err := voicecatalog.LoadPresets(dir, false)
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if len(without) != 1 {
		t.Fatalf("expected 1 preset without random, got %d", len(without))
	}
}

func TestBuilder_BuildProducesFiltersAndGroups(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []string{"af_bella", "bm_george", "jf_alpha"} {
		if err := os.WriteFile(filepath.Join(dir, id+".bin"), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	builder := voicecatalog.NewBuilder()
	catalog, err := builder.Build("kokoro", voicecatalog.BundledBank{Dir: dir}, true, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if catalog.Count != 3 {
		t.Errorf("count: got %d, want 3", catalog.Count)
	}
	if len(catalog.Filters.Genders) == 0 {
		t.Error("expected non-empty gender filter set")
	}
	if len(catalog.AccentGroups) == 0 {
		t.Error("expected non-empty accent groups")
	}
}
