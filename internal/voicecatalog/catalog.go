// Package voicecatalog builds the per-engine voice listing the dispatcher
// and HTTPFront expose: a bundled voice bank, an optional reference-clip
// directory for cloning engines, and an optional dialogue-preset directory,
// merged into one {voices, accent_groups, filters, count, available} payload.
package voicecatalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// Group is one accent- or locale-keyed bucket of voice ids.
type Group struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Flag  string   `json:"flag,omitempty"`
	Count int      `json:"count"`
	Voice []string `json:"voices"`
}

// Filters summarizes the distinct dimensions present in a catalog so a
// client can build a voice picker without walking every entry.
type Filters struct {
	Genders        []string         `json:"genders"`
	Locales        []string         `json:"locales"`
	Accents        []string         `json:"accents"`
	AccentFamilies []AccentFamily   `json:"accentFamilies"`
}

// AccentFamily collapses gendered variants of the same accent into one
// entry with per-gender counts.
type AccentFamily struct {
	ID      string         `json:"id"`
	Label   string         `json:"label"`
	Flag    string         `json:"flag,omitempty"`
	Total   int            `json:"total"`
	Genders map[string]int `json:"genders"`
}

// Catalog is the full listing payload for one engine.
type Catalog struct {
	Voices       []types.VoiceProfile `json:"voices"`
	AccentGroups []Group              `json:"accent_groups"`
	Filters      Filters              `json:"filters"`
	Count        int                  `json:"count"`
	Available    bool                 `json:"available"`
	Message      string               `json:"message,omitempty"`
}

// Source produces the raw voice list for one engine. BundledBank and
// ReferenceDirectory implement it; a Builder enumerates the single Source
// it is given. Dialogue presets are read separately by LoadPresets.
type Source interface {
	Voices() ([]types.VoiceProfile, error)
}

// Builder assembles a Catalog from a Source, caching the result and
// rebuilding only when the underlying source reports a changed fingerprint.
type Builder struct {
	mu          sync.Mutex
	cached      map[string]*cacheEntry
}

type cacheEntry struct {
	fingerprint string
	catalog     Catalog
}

// NewBuilder returns a ready-to-use Builder.
func NewBuilder() *Builder {
	return &Builder{cached: make(map[string]*cacheEntry)}
}

// Fingerprinter is implemented by sources that can report a cheap
// change-detection token (e.g. a directory's combined mtime), letting the
// Builder skip rebuilding voices that have not changed since the last read.
type Fingerprinter interface {
	Fingerprint() (string, error)
}

// Build returns the catalog for engineID, using src to enumerate voices.
// available is reported verbatim in the result; when false the voices list
// is still populated (read-only listing is permitted per the dispatcher's
// allow_unavailable rule) but message explains why synthesis would fail.
func (b *Builder) Build(engineID string, src Source, available bool, message string) (Catalog, error) {
	fingerprint := ""
	if fp, ok := src.(Fingerprinter); ok {
		if v, err := fp.Fingerprint(); err == nil {
			fingerprint = v
		}
	}

	b.mu.Lock()
	if entry, ok := b.cached[engineID]; ok && fingerprint != "" && entry.fingerprint == fingerprint {
		cached := entry.catalog
		cached.Available = available
		cached.Message = message
		b.mu.Unlock()
		return cached, nil
	}
	b.mu.Unlock()

	voices, err := src.Voices()
	if err != nil {
		return Catalog{}, err
	}

	catalog := Catalog{
		Voices:       voices,
		AccentGroups: buildAccentGroups(voices),
		Filters:      buildFilters(voices),
		Count:        len(voices),
		Available:    available,
		Message:      message,
	}

	if fingerprint != "" {
		b.mu.Lock()
		b.cached[engineID] = &cacheEntry{fingerprint: fingerprint, catalog: catalog}
		b.mu.Unlock()
	}

	return catalog, nil
}

func buildAccentGroups(voices []types.VoiceProfile) []Group {
	byAccent := make(map[string]*Group)
	for _, v := range voices {
		key := v.Accent.ID
		if key == "" {
			key = DefaultAccent.ID
		}
		group, ok := byAccent[key]
		if !ok {
			group = &Group{ID: key, Label: v.Accent.Label, Flag: v.Accent.Flag}
			byAccent[key] = group
		}
		group.Voice = append(group.Voice, v.VoiceID)
		group.Count++
	}

	groups := make([]Group, 0, len(byAccent))
	for _, g := range byAccent {
		sort.Strings(g.Voice)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups
}

func buildFilters(voices []types.VoiceProfile) Filters {
	genders := make(map[string]struct{})
	locales := make(map[string]struct{})
	accents := make(map[string]struct{})
	families := make(map[string]*AccentFamily)

	for _, v := range voices {
		if v.Gender != "" {
			genders[v.Gender] = struct{}{}
		}
		if v.Locale != "" {
			locales[v.Locale] = struct{}{}
		}
		accentKey := v.Accent.ID
		if accentKey == "" {
			accentKey = DefaultAccent.ID
		}
		accents[accentKey] = struct{}{}

		family, ok := families[accentKey]
		if !ok {
			family = &AccentFamily{ID: accentKey, Label: v.Accent.Label, Flag: v.Accent.Flag, Genders: map[string]int{}}
			families[accentKey] = family
		}
		family.Total++
		genderKey := v.Gender
		if genderKey == "" {
			genderKey = "unspecified"
		}
		family.Genders[genderKey]++
	}

	out := Filters{
		Genders: sortedSet(genders),
		Locales: sortedSet(locales),
		Accents: sortedSet(accents),
	}
	for _, f := range families {
		out.AccentFamilies = append(out.AccentFamilies, *f)
	}
	sort.Slice(out.AccentFamilies, func(i, j int) bool { return out.AccentFamilies[i].ID < out.AccentFamilies[j].ID })
	return out
}

func sortedSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// slugify mirrors the favorites store's slug rule: lowercase alphanumerics
// pass through, each space/hyphen/underscore becomes one hyphen (runs are
// not collapsed), other characters are dropped, and the result is trimmed
// of leading/trailing hyphens.
func slugify(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return strings.ToLower(value)
	}
	return slug
}

// uniquifySlug appends a numeric suffix until slug is not present in taken,
// matching the favorites store's _unique_slug collision policy.
func uniquifySlug(slug string, taken map[string]struct{}) string {
	candidate := slug
	suffix := 1
	for {
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
		suffix++
		candidate = slug + "-" + strconv.Itoa(suffix)
	}
}

// loadSidecar merges "<file>.meta.json" into profile if present; a missing
// or malformed sidecar is recovered from locally per the error handling
// policy for optional metadata.
func loadSidecar(path string, profile *types.VoiceProfile) {
	data, err := os.ReadFile(path + ".meta.json")
	if err != nil {
		return
	}
	var meta struct {
		Language string   `json:"language"`
		Gender   string   `json:"gender"`
		Tags     []string `json:"tags"`
		Notes    string   `json:"notes"`
		Accent   string   `json:"accent"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return
	}
	if meta.Language != "" {
		profile.Locale = meta.Language
	}
	if meta.Gender != "" {
		profile.Gender = meta.Gender
	}
	if len(meta.Tags) > 0 {
		profile.Tags = meta.Tags
	}
	if meta.Notes != "" {
		profile.Notes = meta.Notes
	}
	if meta.Accent != "" {
		profile.Accent = ResolveAccent(meta.Accent, profile.Locale)
	}
}

func supportedExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".wav", ".mp3", ".flac", ".ogg", ".m4a":
		return true
	default:
		return false
	}
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
