// Package postgres provides a PostgreSQL-backed alternative to the default
// JSON-file favorites.Store, for deployments that run the favorites catalog
// alongside other relational state rather than as a standalone file.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/favorites"
)

var _ favorites.Store = (*Store)(nil)

const ddl = `
CREATE TABLE IF NOT EXISTS favorites (
    id           TEXT             PRIMARY KEY,
    label        TEXT             NOT NULL,
    engine       TEXT             NOT NULL,
    voice_id     TEXT             NOT NULL,
    slug         TEXT             NOT NULL UNIQUE,
    language     TEXT             NOT NULL DEFAULT '',
    speed        DOUBLE PRECISION,
    trim_silence BOOLEAN,
    style        TEXT             NOT NULL DEFAULT '',
    seed         INTEGER,
    server_url   TEXT             NOT NULL DEFAULT '',
    tags         JSONB            NOT NULL DEFAULT '[]',
    meta         JSONB            NOT NULL DEFAULT '{}',
    created_at   TIMESTAMPTZ      NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ      NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_favorites_engine ON favorites (engine);
`

// Store is a pgx-pool-backed favorites.Store. One pool is shared across all
// method calls; Close releases it.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn, runs Migrate, and returns a ready-to-use Store.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindEngineFailure, "favorites postgres: connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.KindEngineFailure, "favorites postgres: ping", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Migrate creates the favorites table and its indexes if they don't already
// exist. Idempotent; safe to call on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return apperr.Wrap(apperr.KindEngineFailure, "favorites postgres: migrate", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

type row struct {
	id          string
	label       string
	engine      string
	voiceID     string
	slug        string
	language    string
	speed       *float64
	trimSilence *bool
	style       string
	seed        *int32
	serverURL   string
	tags        []byte
	meta        []byte
	createdAt   time.Time
	updatedAt   time.Time
}

func (r row) toProfile() favorites.Profile {
	p := favorites.Profile{
		ID:        r.id,
		Label:     r.label,
		Engine:    r.engine,
		VoiceID:   r.voiceID,
		Slug:      r.slug,
		Language:  r.language,
		Style:     r.style,
		ServerURL: r.serverURL,
		CreatedAt: r.createdAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt: r.updatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	p.Speed = r.speed
	p.TrimSilence = r.trimSilence
	if r.seed != nil {
		seed := int(*r.seed)
		p.Seed = &seed
	}
	_ = json.Unmarshal(r.tags, &p.Tags)
	_ = json.Unmarshal(r.meta, &p.Meta)
	return p
}

const selectColumns = `id, label, engine, voice_id, slug, language, speed, trim_silence, style, seed, server_url, tags, meta, created_at, updated_at`

func scanRow(scanner interface{ Scan(...any) error }) (row, error) {
	var r row
	err := scanner.Scan(&r.id, &r.label, &r.engine, &r.voiceID, &r.slug, &r.language,
		&r.speed, &r.trimSilence, &r.style, &r.seed, &r.serverURL, &r.tags, &r.meta,
		&r.createdAt, &r.updatedAt)
	return r, err
}

func (s *Store) List(ctx context.Context) ([]favorites.Profile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+` FROM favorites ORDER BY updated_at DESC, created_at DESC`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindEngineFailure, "favorites postgres: list", err)
	}
	defer rows.Close()

	var profiles []favorites.Profile
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindEngineFailure, "favorites postgres: scan", err)
		}
		profiles = append(profiles, r.toProfile())
	}
	return profiles, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (favorites.Profile, bool, error) {
	return s.getBy(ctx, "id", id)
}

func (s *Store) GetBySlug(ctx context.Context, slug string) (favorites.Profile, bool, error) {
	return s.getBy(ctx, "slug", slug)
}

func (s *Store) getBy(ctx context.Context, column, value string) (favorites.Profile, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM favorites WHERE `+column+` = $1`, value)
	r, err := scanRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return favorites.Profile{}, false, nil
	}
	if err != nil {
		return favorites.Profile{}, false, apperr.Wrap(apperr.KindEngineFailure, "favorites postgres: get", err)
	}
	return r.toProfile(), true, nil
}

// Create validates the required fields, assigns an id and a slug unique
// within the table (retrying with a numeric suffix on a unique-constraint
// collision, the same convention JSONStore applies in memory), and inserts
// the row.
func (s *Store) Create(ctx context.Context, fields map[string]any) (favorites.Profile, error) {
	label, _ := fields["label"].(string)
	engine, _ := fields["engine"].(string)
	voiceID, _ := fields["voiceId"].(string)
	if label == "" {
		return favorites.Profile{}, apperr.BadRequest("favorites: missing required field %q", "label")
	}
	if engine == "" {
		return favorites.Profile{}, apperr.BadRequest("favorites: missing required field %q", "engine")
	}
	if voiceID == "" {
		return favorites.Profile{}, apperr.BadRequest("favorites: missing required field %q", "voiceId")
	}

	slugSeed, _ := fields["slug"].(string)
	if slugSeed == "" {
		slugSeed = label
	}
	base := slugify(slugSeed)

	p := favorites.Profile{ID: newID(), Label: label, Engine: engine, VoiceID: voiceID}
	applyOptionalFields(&p, fields)
	p.Tags = stringSlice(fields["tags"])
	p.Meta = mapField(fields["meta"])

	tagsJSON, _ := json.Marshal(p.Tags)
	metaJSON, _ := json.Marshal(p.Meta)

	for attempt := 0; attempt < 20; attempt++ {
		slug := base
		if attempt > 0 {
			slug = fmt.Sprintf("%s-%d", base, attempt+1)
		}
		const q = `
			INSERT INTO favorites (id, label, engine, voice_id, slug, language, speed, trim_silence, style, seed, server_url, tags, meta)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING created_at, updated_at`
		var createdAt, updatedAt time.Time
		err := s.pool.QueryRow(ctx, q, p.ID, p.Label, p.Engine, p.VoiceID, slug, p.Language,
			p.Speed, p.TrimSilence, p.Style, seedArg(p.Seed), p.ServerURL, tagsJSON, metaJSON).
			Scan(&createdAt, &updatedAt)
		if err == nil {
			p.Slug = slug
			p.CreatedAt = createdAt.UTC().Format("2006-01-02T15:04:05Z")
			p.UpdatedAt = updatedAt.UTC().Format("2006-01-02T15:04:05Z")
			return p, nil
		}
		if isUniqueViolation(err) {
			continue
		}
		return favorites.Profile{}, apperr.Wrap(apperr.KindEngineFailure, "favorites postgres: create", err)
	}
	return favorites.Profile{}, apperr.Wrap(apperr.KindEngineFailure, "favorites postgres: create", fmt.Errorf("could not mint a unique slug for %q", base))
}

// Update patches the mutable fields of the row identified by id, rebuilding
// the SET clause dynamically the way the teacher's session store builds its
// WHERE clause, so an untouched field is never overwritten with a zero value.
func (s *Store) Update(ctx context.Context, id string, patch map[string]any) (favorites.Profile, bool, error) {
	existing, ok, err := s.Get(ctx, id)
	if err != nil || !ok {
		return favorites.Profile{}, ok, err
	}

	sets := []string{}
	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if v, ok := patch["label"].(string); ok {
		sets = append(sets, "label = "+next(v))
	}
	if v, ok := patch["engine"].(string); ok {
		sets = append(sets, "engine = "+next(v))
	}
	if v, ok := patch["voiceId"].(string); ok {
		sets = append(sets, "voice_id = "+next(v))
	}
	if v, ok := patch["language"].(string); ok {
		sets = append(sets, "language = "+next(v))
	}
	if v, ok := patch["speed"].(float64); ok {
		sets = append(sets, "speed = "+next(v))
	}
	if v, ok := patch["trimSilence"].(bool); ok {
		sets = append(sets, "trim_silence = "+next(v))
	}
	if v, ok := patch["style"].(string); ok {
		sets = append(sets, "style = "+next(v))
	}
	if v, ok := patch["seed"].(float64); ok {
		sets = append(sets, "seed = "+next(int32(v)))
	}
	if v, ok := patch["serverUrl"].(string); ok {
		sets = append(sets, "server_url = "+next(v))
	}
	if v, ok := patch["tags"]; ok {
		tagsJSON, _ := json.Marshal(stringSlice(v))
		sets = append(sets, "tags = "+next(tagsJSON))
	}
	if v, ok := patch["meta"]; ok {
		metaJSON, _ := json.Marshal(mapField(v))
		sets = append(sets, "meta = "+next(metaJSON))
	}
	if v, ok := patch["slug"].(string); ok && v != "" && v != existing.Slug {
		sets = append(sets, "slug = "+next(slugify(v)))
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE favorites SET %s WHERE id = $%d RETURNING `+selectColumns, strings.Join(sets, ", "), len(args))
	r, err := scanRow(s.pool.QueryRow(ctx, q, args...))
	if err != nil {
		return favorites.Profile{}, false, apperr.Wrap(apperr.KindEngineFailure, "favorites postgres: update", err)
	}
	return r.toProfile(), true, nil
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM favorites WHERE id = $1`, id)
	if err != nil {
		return false, apperr.Wrap(apperr.KindEngineFailure, "favorites postgres: delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) Export(ctx context.Context) (map[string]any, error) {
	profiles, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"schemaVersion": favorites.SchemaVersion, "profiles": profiles}, nil
}

// Import inserts (mode "merge", the default) or replaces (mode "replace")
// the table's contents from payload["profiles"], reusing Create's
// slug-uniquification for every incoming profile. payload["profiles"] may
// be a decoded JSON array or the []favorites.Profile that Export returns.
func (s *Store) Import(ctx context.Context, payload map[string]any, mode string) (int, error) {
	rawProfiles, _ := payload["profiles"].([]any)
	if typed, ok := payload["profiles"].([]favorites.Profile); ok {
		data, _ := json.Marshal(typed)
		_ = json.Unmarshal(data, &rawProfiles)
	}
	if rawProfiles == nil {
		return 0, nil
	}

	if mode == "replace" {
		if _, err := s.pool.Exec(ctx, `DELETE FROM favorites`); err != nil {
			return 0, apperr.Wrap(apperr.KindEngineFailure, "favorites postgres: import replace", err)
		}
	}

	count := 0
	for _, raw := range rawProfiles {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if _, err := s.Create(ctx, fields); err != nil {
			continue
		}
		count++
	}
	return count, nil
}

func seedArg(seed *int) any {
	if seed == nil {
		return nil
	}
	return int32(*seed)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

// newID, slugify, applyOptionalFields, stringSlice, and mapField duplicate
// favorites.JSONStore's unexported helpers of the same name: the slug and id
// conventions are part of the Store contract every implementation must honor,
// but the helpers themselves aren't exported across the package boundary.
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

func applyOptionalFields(p *favorites.Profile, fields map[string]any) {
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
