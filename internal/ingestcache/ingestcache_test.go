package ingestcache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/ingestcache"
)

func TestResolveOrDownload_OnlyInvokesFetcherOnce(t *testing.T) {
	dir := t.TempDir()
	editsDir := t.TempDir()
	cache := ingestcache.New(dir, editsDir, time.Hour)

	calls := 0
	fetcher := func(ctx context.Context, destTemplate string) error {
		calls++
		return os.WriteFile(destTemplate+".m4a", []byte("audio"), 0o644)
	}

	url := "https://www.youtube.com/watch?v=abcdef123456"

	first, err := cache.ResolveOrDownload(context.Background(), url, fetcher)
	if err != nil {
		t.Fatalf("ResolveOrDownload (first): %v", err)
	}
	second, err := cache.ResolveOrDownload(context.Background(), url, fetcher)
	if err != nil {
		t.Fatalf("ResolveOrDownload (second): %v", err)
	}

	if calls != 1 {
		t.Errorf("fetcher calls: got %d, want 1", calls)
	}
	if first != second {
		t.Errorf("paths differ between calls: %q vs %q", first, second)
	}
}

func TestResolveOrDownload_PrefersExtensionOrder(t *testing.T) {
	dir := t.TempDir()
	cache := ingestcache.New(dir, t.TempDir(), time.Hour)

	fetcher := func(ctx context.Context, destTemplate string) error {
		if err := os.WriteFile(destTemplate+".webm", []byte("w"), 0o644); err != nil {
			return err
		}
		return os.WriteFile(destTemplate+".m4a", []byte("m"), 0o644)
	}

	path, err := cache.ResolveOrDownload(context.Background(), "https://youtu.be/zzzzzzzzzzz", fetcher)
	if err != nil {
		t.Fatalf("ResolveOrDownload: %v", err)
	}
	if filepath.Ext(path) != ".m4a" {
		t.Errorf("extension: got %q, want .m4a", filepath.Ext(path))
	}
}

func TestSaveLoadMetadata_RoundTrip(t *testing.T) {
	cache := ingestcache.New(t.TempDir(), t.TempDir(), time.Hour)

	type info struct {
		Title string `json:"title"`
	}
	if err := cache.SaveMetadata("abc123", info{Title: "hello"}); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}

	var out info
	if err := cache.LoadMetadata("abc123", &out); err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if out.Title != "hello" {
		t.Errorf("title: got %q, want hello", out.Title)
	}
}

func TestLoadMetadata_MissingReturnsNotFound(t *testing.T) {
	cache := ingestcache.New(t.TempDir(), t.TempDir(), time.Hour)
	var out map[string]any
	err := cache.LoadMetadata("nope", &out)
	if err == nil {
		t.Fatal("expected an error for missing metadata")
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("kind: got %v, want not_found", apperr.KindOf(err))
	}
}

func TestReap_GatedByInterval(t *testing.T) {
	dir := t.TempDir()
	cache := ingestcache.New(dir, t.TempDir(), time.Hour)

	stale := filepath.Join(dir, "old.m4a")
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	oldTime := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, oldTime, oldTime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	cache.Reap(24 * time.Hour)
	if _, err := os.Stat(stale); err == nil {
		t.Fatal("expected stale file to be removed on first reap")
	}

	// Second reap within the interval should be a no-op even for newly
	// stale files.
	fresh := filepath.Join(dir, "new.m4a")
	if err := os.WriteFile(fresh, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Chtimes(fresh, oldTime, oldTime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	cache.Reap(24 * time.Hour)
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("expected gated reap to leave newly stale file untouched")
	}
}
