package voicecatalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// BundledBank enumerates the voice bank shipped alongside a bundled
// (in-process) engine. The reference implementation loads a single
// numpy archive of named embeddings; this port stores one small binary
// embedding file per voice under Dir instead, which keeps voice discovery a
// plain directory listing without requiring a numpy-archive reader.
type BundledBank struct {
	// Dir holds one file per voice, named "<voice_id>.bin".
	Dir string
}

var _ Source = BundledBank{}
var _ Fingerprinter = BundledBank{}

// Voices enumerates the bank's entries, deriving locale/gender/accent from
// each voice id the way the distilled source does for its archive keys.
func (b BundledBank) Voices() ([]types.VoiceProfile, error) {
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("voicecatalog: read bundled bank %q: %w", b.Dir, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".bin" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".bin"))
	}
	sort.Strings(ids)

	voices := make([]types.VoiceProfile, 0, len(ids))
	for _, id := range ids {
		locale := DeriveLocale(id)
		voices = append(voices, types.VoiceProfile{
			VoiceID: id,
			Label:   titleCaseUnderscore(id),
			Locale:  locale,
			Gender:  DeriveGender(id),
			Accent:  ResolveAccent(id, locale),
		})
	}
	return voices, nil
}

// Fingerprint combines the bank directory's entry count and newest mtime so
// Builder can skip re-deriving the catalog when nothing changed on disk.
func (b BundledBank) Fingerprint() (string, error) {
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "empty", nil
		}
		return "", err
	}
	var newest int64
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mt := info.ModTime().UnixNano(); mt > newest {
			newest = mt
		}
	}
	return fmt.Sprintf("%d:%d", len(entries), newest), nil
}

// titleCaseUnderscore renders a voice id like "af_bella" as "Af Bella",
// mirroring the distilled source's `key.replace("_", " ").title()`.
func titleCaseUnderscore(id string) string {
	words := strings.Split(strings.ReplaceAll(id, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
