package voicecatalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// ReferenceDirectory enumerates short reference clips for a voice-cloning
// engine: one voice profile per supported audio file, slug-uniquified, with
// an optional "<file>.meta.json" sidecar merged in and a preview URL
// attached when one has already been cached.
type ReferenceDirectory struct {
	Dir string

	// PreviewURL, if non-nil, returns the cached preview URL for a voice id
	// if one exists on disk, or "" if not yet generated.
	PreviewURL func(voiceID string) string
}

var _ Source = ReferenceDirectory{}
var _ Fingerprinter = ReferenceDirectory{}

// Voices enumerates Dir's reference clips.
func (r ReferenceDirectory) Voices() ([]types.VoiceProfile, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("voicecatalog: read reference dir %q: %w", r.Dir, err)
	}

	type candidate struct {
		path string
		stem string
	}
	var files []candidate
	for _, e := range entries {
		if e.IsDir() || !supportedExt(filepath.Ext(e.Name())) {
			continue
		}
		files = append(files, candidate{path: filepath.Join(r.Dir, e.Name()), stem: fileStem(e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].stem < files[j].stem })

	taken := make(map[string]struct{}, len(files))
	voices := make([]types.VoiceProfile, 0, len(files))
	for _, f := range files {
		slug := uniquifySlug(slugify(f.stem), taken)
		taken[slug] = struct{}{}

		profile := types.VoiceProfile{
			VoiceID: slug,
			Label:   f.stem,
			Raw:     map[string]string{"path": f.path},
		}
		loadSidecar(f.path, &profile)
		if profile.Accent.ID == "" {
			profile.Accent = ResolveAccent(slug, profile.Locale)
		}
		if r.PreviewURL != nil {
			if url := r.PreviewURL(slug); url != "" {
				if profile.Raw == nil {
					profile.Raw = map[string]string{}
				}
				profile.Raw["preview_url"] = url
			}
		}
		voices = append(voices, profile)
	}
	return voices, nil
}

// Fingerprint combines entry count and newest mtime across Dir, including
// sidecar files, so a sidecar-only edit still invalidates the cache.
func (r ReferenceDirectory) Fingerprint() (string, error) {
	entries, err := os.ReadDir(r.Dir)
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
