package favorites_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/favorites"
)

func newStore(t *testing.T) *favorites.JSONStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "favorites.json")
	store, err := favorites.NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	return store
}

func TestCreate_RejectsMissingRequiredFields(t *testing.T) {
	store := newStore(t)
	_, err := store.Create(context.Background(), map[string]any{"engine": "xtts", "voiceId": "v1"})
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("KindOf(err) = %v, want KindBadRequest", apperr.KindOf(err))
	}
}

func TestCreate_AssignsUniqueSlugsForDuplicateLabels(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	a, err := store.Create(ctx, map[string]any{"label": "My Voice", "engine": "xtts", "voiceId": "v1"})
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	b, err := store.Create(ctx, map[string]any{"label": "My Voice", "engine": "xtts", "voiceId": "v2"})
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}

	if a.Slug == b.Slug {
		t.Fatalf("expected distinct slugs, both are %q", a.Slug)
	}
	if a.Slug != "my-voice" {
		t.Errorf("a.Slug = %q, want my-voice", a.Slug)
	}
	if b.Slug != "my-voice-2" {
		t.Errorf("b.Slug = %q, want my-voice-2", b.Slug)
	}
}

func TestGetBySlug_FindsCreatedProfile(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, map[string]any{"label": "Narrator", "engine": "chattts", "voiceId": "v9"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, ok, err := store.GetBySlug(ctx, created.Slug)
	if err != nil || !ok {
		t.Fatalf("GetBySlug: found=%v err=%v", ok, err)
	}
	if found.ID != created.ID {
		t.Errorf("found.ID = %q, want %q", found.ID, created.ID)
	}
}

func TestUpdate_PatchesFieldsAndStampsUpdatedAt(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, map[string]any{"label": "Old", "engine": "xtts", "voiceId": "v1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Timestamps have one-second resolution; step past the creation second.
	time.Sleep(1100 * time.Millisecond)

	updated, ok, err := store.Update(ctx, created.ID, map[string]any{"label": "New"})
	if err != nil || !ok {
		t.Fatalf("Update: ok=%v err=%v", ok, err)
	}
	if updated.Label != "New" {
		t.Errorf("Label = %q, want New", updated.Label)
	}
	if updated.UpdatedAt == created.UpdatedAt {
		t.Error("expected UpdatedAt to change")
	}
}

func TestDelete_RemovesProfile(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, map[string]any{"label": "Temp", "engine": "xtts", "voiceId": "v1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := store.Delete(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	_, found, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("expected profile to be gone after delete")
	}
}

func TestExportImport_RoundTripsWithMerge(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, map[string]any{"label": "A", "engine": "xtts", "voiceId": "v1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	exported, err := store.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	other := newStore(t)
	n, err := other.Import(ctx, exported, "merge")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 1 {
		t.Fatalf("Import count = %d, want 1", n)
	}

	list, err := other.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Label != "A" {
		t.Fatalf("List = %+v", list)
	}
}

func TestResolveFavorite_FlattensProfileFields(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	speed := 1.2
	created, err := store.Create(ctx, map[string]any{
		"label": "Quick", "engine": "xtts", "voiceId": "v1", "speed": speed,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	fields, ok := favorites.ResolveFavorite(ctx, store, created.ID)
	if !ok {
		t.Fatal("expected ResolveFavorite to find the profile")
	}
	if fields["engine"] != "xtts" || fields["voice"] != "v1" {
		t.Fatalf("fields = %+v", fields)
	}
	if fields["speed"] != speed {
		t.Errorf("fields[speed] = %v, want %v", fields["speed"], speed)
	}
}
