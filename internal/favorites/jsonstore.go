package favorites

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
)

var _ Store = (*JSONStore)(nil)

// JSONStore is the default Store implementation: one JSON document on
// disk, guarded by an in-process mutex and committed via
// write-temp-then-rename, mirroring the original FavoritesStore's
// threading.Lock plus os.replace discipline.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONStore returns a ready-to-use JSONStore at path, creating an empty
// document if none exists yet.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{path: path}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindEngineFailure, "favorites: create directory", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.write(document{SchemaVersion: SchemaVersion, Profiles: []Profile{}}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *JSONStore) read() document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return document{SchemaVersion: SchemaVersion, Profiles: []Profile{}}
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{SchemaVersion: SchemaVersion, Profiles: []Profile{}}
	}
	return doc
}

func (s *JSONStore) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindEngineFailure, "favorites: marshal", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperr.Wrap(apperr.KindEngineFailure, "favorites: write", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return apperr.Wrap(apperr.KindEngineFailure, "favorites: commit", err)
	}
	return nil
}

func (s *JSONStore) List(context.Context) ([]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles := s.read().Profiles
	sortByRecency(profiles)
	return profiles, nil
}

func (s *JSONStore) Get(_ context.Context, id string) (Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.read().Profiles {
		if p.ID == id {
			return p, true, nil
		}
	}
	return Profile{}, false, nil
}

func (s *JSONStore) GetBySlug(_ context.Context, slug string) (Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.read().Profiles {
		if p.Slug == slug {
			return p, true, nil
		}
	}
	return Profile{}, false, nil
}

// Create validates the required label/engine/voiceId fields, assigns an id
// and a unique slug, stamps timestamps, and appends the profile.
func (s *JSONStore) Create(_ context.Context, fields map[string]any) (Profile, error) {
	label, _ := fields["label"].(string)
	engine, _ := fields["engine"].(string)
	voiceID, _ := fields["voiceId"].(string)
	if label == "" {
		return Profile{}, errMissingField("label")
	}
	if engine == "" {
		return Profile{}, errMissingField("engine")
	}
	if voiceID == "" {
		return Profile{}, errMissingField("voiceId")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()

	now := nowISO()
	slugSeed, _ := fields["slug"].(string)
	if slugSeed == "" {
		slugSeed = label
	}

	profile := Profile{
		ID:      newID(),
		Label:   label,
		Engine:  engine,
		VoiceID: voiceID,
		Slug:    uniqueSlug(slugSeed, doc.Profiles, ""),
		Tags:    stringSlice(fields["tags"]),
		Meta:    mapField(fields["meta"]),

		CreatedAt: now,
		UpdatedAt: now,
	}
	applyOptionalFields(&profile, fields)

	doc.Profiles = append(doc.Profiles, profile)
	if err := s.write(doc); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// Update patches an existing profile's mutable fields in place.
func (s *JSONStore) Update(_ context.Context, id string, patch map[string]any) (Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()

	idx := -1
	for i, p := range doc.Profiles {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Profile{}, false, nil
	}

	profile := doc.Profiles[idx]
	if v, ok := patch["label"].(string); ok {
		profile.Label = v
	}
	if v, ok := patch["engine"].(string); ok {
		profile.Engine = v
	}
	if v, ok := patch["voiceId"].(string); ok {
		profile.VoiceID = v
	}
	if v, ok := patch["tags"]; ok {
		profile.Tags = stringSlice(v)
	}
	if v, ok := patch["meta"]; ok {
		profile.Meta = mapField(v)
	}
	applyOptionalFields(&profile, patch)
	if slug, ok := patch["slug"].(string); ok && slug != "" {
		profile.Slug = uniqueSlug(slug, doc.Profiles, profile.ID)
	}
	profile.UpdatedAt = nowISO()

	doc.Profiles[idx] = profile
	if err := s.write(doc); err != nil {
		return Profile{}, false, err
	}
	return profile, true, nil
}

func (s *JSONStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()

	next := doc.Profiles[:0]
	removed := false
	for _, p := range doc.Profiles {
		if p.ID == id {
			removed = true
			continue
		}
		next = append(next, p)
	}
	if !removed {
		return false, nil
	}
	doc.Profiles = next
	if err := s.write(doc); err != nil {
		return false, err
	}
	return true, nil
}

func (s *JSONStore) Export(context.Context) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()
	return map[string]any{"schemaVersion": doc.SchemaVersion, "profiles": doc.Profiles}, nil
}

// Import appends (mode "merge", the default) or replaces (mode "replace")
// the document's profiles from payload["profiles"], re-minting any id
// colliding with an existing one and uniquifying slugs the same way
// Create does. payload["profiles"] may be a decoded JSON array or the
// []Profile that Export returns.
func (s *JSONStore) Import(_ context.Context, payload map[string]any, mode string) (int, error) {
	rawProfiles, _ := payload["profiles"].([]any)
	if typed, ok := payload["profiles"].([]Profile); ok {
		data, _ := json.Marshal(typed)
		_ = json.Unmarshal(data, &rawProfiles)
	}
	if rawProfiles == nil {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()

	profiles := doc.Profiles
	if mode == "replace" {
		profiles = nil
	}
	existingIDs := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		existingIDs[p.ID] = struct{}{}
	}

	count := 0
	now := nowISO()
	for _, raw := range rawProfiles {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		label, _ := fields["label"].(string)
		engine, _ := fields["engine"].(string)
		voiceID, _ := fields["voiceId"].(string)
		if label == "" || engine == "" || voiceID == "" {
			continue
		}

		id, _ := fields["id"].(string)
		if id == "" || hasID(existingIDs, id) {
			id = newID()
		}
		slugSeed, _ := fields["slug"].(string)
		if slugSeed == "" {
			slugSeed = label
		}

		profile := Profile{
			ID:        id,
			Label:     label,
			Engine:    engine,
			VoiceID:   voiceID,
			Slug:      uniqueSlug(slugSeed, profiles, ""),
			Tags:      stringSlice(fields["tags"]),
			Meta:      mapField(fields["meta"]),
			CreatedAt: now,
			UpdatedAt: now,
		}
		applyOptionalFields(&profile, fields)
		if createdAt, ok := fields["createdAt"].(string); ok && createdAt != "" {
			profile.CreatedAt = createdAt
		}

		profiles = append(profiles, profile)
		existingIDs[profile.ID] = struct{}{}
		count++
	}

	doc.Profiles = profiles
	if err := s.write(doc); err != nil {
		return 0, err
	}
	return count, nil
}

func hasID(ids map[string]struct{}, id string) bool {
	_, ok := ids[id]
	return ok
}

func applyOptionalFields(p *Profile, fields map[string]any) {
	if v, ok := fields["language"].(string); ok {
		p.Language = v
	}
	if v, ok := fields["speed"].(float64); ok {
		p.Speed = &v
	}
	if v, ok := fields["trimSilence"].(bool); ok {
		p.TrimSilence = &v
	}
	if v, ok := fields["style"].(string); ok {
		p.Style = v
	}
	if v, ok := fields["seed"].(float64); ok {
		seed := int(v)
		p.Seed = &seed
	}
	if v, ok := fields["serverUrl"].(string); ok {
		p.ServerURL = v
	}
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func mapField(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m
}
