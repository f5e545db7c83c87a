package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Astrocyte74/tts-hub/internal/favorites"
)

func newFavoritesRouter(t *testing.T) *Router {
	t.Helper()
	store, err := favorites.NewJSONStore(filepath.Join(t.TempDir(), "favorites.json"))
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	return New(Config{Favorites: store})
}

func TestHandleFavorites_CreateListGetDelete(t *testing.T) {
	r := newFavoritesRouter(t)

	createBody := bytes.NewBufferString(`{"label":"Narrator","engine":"kokoro","voiceId":"af_bella"}`)
	createReq := httptest.NewRequest(http.MethodPost, "/favorites", createBody)
	createRec := httptest.NewRecorder()
	r.handleFavorites(createRec, createReq)
	if createRec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body = %s", createRec.Code, createRec.Body.String())
	}
	var created favorites.Profile
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a generated id")
	}

	listReq := httptest.NewRequest(http.MethodGet, "/favorites", nil)
	listRec := httptest.NewRecorder()
	r.handleFavorites(listRec, listReq)
	var list struct {
		Profiles []favorites.Profile `json:"profiles"`
		Count    int                 `json:"count"`
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 1 || len(list.Profiles) != 1 {
		t.Fatalf("list = %+v, want 1 profile", list)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/favorites/"+created.ID, nil)
	getReq.SetPathValue("id", created.ID)
	getRec := httptest.NewRecorder()
	r.handleFavorites(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status = %d", getRec.Code)
	}

	delReq := httptest.NewRequest(http.MethodDelete, "/favorites/"+created.ID, nil)
	delReq.SetPathValue("id", created.ID)
	delRec := httptest.NewRecorder()
	r.handleFavorites(delRec, delReq)
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", delRec.Code)
	}

	getReq2 := httptest.NewRequest(http.MethodGet, "/favorites/"+created.ID, nil)
	getReq2.SetPathValue("id", created.ID)
	getRec2 := httptest.NewRecorder()
	r.handleFavorites(getRec2, getReq2)
	if getRec2.Code != http.StatusNotFound {
		t.Fatalf("get-after-delete status = %d, want 404", getRec2.Code)
	}
}

func TestHandleFavorites_ExportImportRoundTrip(t *testing.T) {
	r := newFavoritesRouter(t)

	createBody := bytes.NewBufferString(`{"label":"Promo","engine":"xtts","voiceId":"ref_1"}`)
	createReq := httptest.NewRequest(http.MethodPost, "/favorites", createBody)
	createRec := httptest.NewRecorder()
	r.handleFavorites(createRec, createReq)

	exportReq := httptest.NewRequest(http.MethodGet, "/favorites/export", nil)
	exportRec := httptest.NewRecorder()
	r.handleFavorites(exportRec, exportReq)
	if exportRec.Code != http.StatusOK {
		t.Fatalf("export status = %d", exportRec.Code)
	}

	importReq := httptest.NewRequest(http.MethodPost, "/favorites/import", bytes.NewReader(exportRec.Body.Bytes()))
	importRec := httptest.NewRecorder()
	r.handleFavorites(importRec, importReq)
	if importRec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", importRec.Code, importRec.Body.String())
	}
}

func TestAuthMiddleware_RejectsMissingToken(t *testing.T) {
	r := New(Config{AuthToken: "secret"})
	protected := r.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/favorites", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddleware_AcceptsMatchingToken(t *testing.T) {
	r := New(Config{AuthToken: "secret"})
	protected := r.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/favorites", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAuthMiddleware_NoopWhenTokenUnset(t *testing.T) {
	r := New(Config{})
	protected := r.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/favorites", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
