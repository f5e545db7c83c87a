// Package favorites persists named synthesis presets ("profiles" — an
// engine, voice, and field bundle a client can recall by id or slug) to a
// single JSON document, grounded directly on the original Python
// FavoritesStore: same schema version, same slug-uniquification rule, same
// merge/replace import semantics.
package favorites

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
)

// SchemaVersion is bumped whenever Profile's persisted shape changes.
const SchemaVersion = 1

// Profile is one saved synthesis preset.
type Profile struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	Engine      string         `json:"engine"`
	VoiceID     string         `json:"voiceId"`
	Slug        string         `json:"slug,omitempty"`
	Language    string         `json:"language,omitempty"`
	Speed       *float64       `json:"speed,omitempty"`
	TrimSilence *bool          `json:"trimSilence,omitempty"`
	Style       string         `json:"style,omitempty"`       // OpenVoice
	Seed        *int           `json:"seed,omitempty"`        // ChatTTS
	ServerURL   string         `json:"serverUrl,omitempty"`   // XTTS
	Tags        []string       `json:"tags,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	CreatedAt   string         `json:"createdAt,omitempty"`
	UpdatedAt   string         `json:"updatedAt,omitempty"`
}

// document is the on-disk envelope.
type document struct {
	SchemaVersion int       `json:"schemaVersion"`
	Profiles      []Profile `json:"profiles"`
}

// Store is the favorites persistence contract. JSONStore (the default) and
// postgres.Store in the postgres subpackage implement it.
type Store interface {
	List(ctx context.Context) ([]Profile, error)
	Get(ctx context.Context, id string) (Profile, bool, error)
	GetBySlug(ctx context.Context, slug string) (Profile, bool, error)
	Create(ctx context.Context, fields map[string]any) (Profile, error)
	Update(ctx context.Context, id string, patch map[string]any) (Profile, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Export(ctx context.Context) (map[string]any, error)
	Import(ctx context.Context, payload map[string]any, mode string) (int, error)
}

// Lookup adapts a Store into engine.FavoriteLookup, the narrow interface
// the dispatcher needs to expand a favorite reference in a raw synthesis
// request.
type Lookup struct {
	Store Store
}

// ResolveFavorite looks a favorite up by id (tried first) or slug, and if
// found, flattens its fields into the map shape a synthesis request
// expects.
func (l Lookup) ResolveFavorite(ctx context.Context, idOrSlug string) (map[string]any, bool) {
	return ResolveFavorite(ctx, l.Store, idOrSlug)
}

// ResolveFavorite is the free-function form Lookup.ResolveFavorite
// delegates to, usable directly by callers that already hold a Store.
func ResolveFavorite(ctx context.Context, store Store, idOrSlug string) (map[string]any, bool) {
	profile, ok, err := store.Get(ctx, idOrSlug)
	if err != nil || !ok {
		profile, ok, err = store.GetBySlug(ctx, idOrSlug)
	}
	if err != nil || !ok {
		return nil, false
	}
	fields := map[string]any{
		"engine": profile.Engine,
		"voice":  profile.VoiceID,
	}
	if profile.Language != "" {
		fields["language"] = profile.Language
	}
	if profile.Speed != nil {
		fields["speed"] = *profile.Speed
	}
	if profile.TrimSilence != nil {
		fields["trim_silence"] = *profile.TrimSilence
	}
	if profile.Style != "" {
		fields["style"] = profile.Style
	}
	if profile.Seed != nil {
		fields["seed"] = *profile.Seed
	}
	if profile.ServerURL != "" {
		fields["serverUrl"] = profile.ServerURL
	}
	return fields, true
}

func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

func newID() string {
	return "fav_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func slugify(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return strings.ToLower(value)
	}
	return slug
}

func uniqueSlug(base string, existing []Profile, excludeID string) string {
	base = slugify(base)
	taken := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		if p.Slug == "" || p.ID == excludeID {
			continue
		}
		taken[p.Slug] = struct{}{}
	}
	candidate := base
	for suffix := 2; ; suffix++ {
		if _, exists := taken[candidate]; !exists || candidate == "" {
			return candidate
		}
		candidate = base + "-" + strconv.Itoa(suffix)
	}
}

func sortByRecency(profiles []Profile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		return recencyKey(profiles[i]) > recencyKey(profiles[j])
	})
}

func recencyKey(p Profile) string {
	if p.UpdatedAt != "" {
		return p.UpdatedAt
	}
	return p.CreatedAt
}

var errMissingField = func(field string) error {
	return apperr.BadRequest("favorites: missing required field %q", field)
}
