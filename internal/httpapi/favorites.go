package httpapi

import (
	"net/http"
	"strings"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
)

// handleFavorites dispatches every /favorites route by method and suffix:
// GET/POST on the collection, GET/PATCH/DELETE on /favorites/<id>, and the
// /export, /import sub-routes. Bearer-token auth is applied by the caller
// via authMiddleware before this handler runs.
func (r *Router) handleFavorites(w http.ResponseWriter, req *http.Request) {
	if r.cfg.Favorites == nil {
		writeError(w, apperr.NotImplemented("favorites store is not configured"))
		return
	}

	id := req.PathValue("id")
	path := strings.TrimSuffix(req.URL.Path, "/")
	switch {
	case strings.HasSuffix(path, "/favorites/export") && req.Method == http.MethodGet:
		r.handleFavoritesExport(w, req)
	case strings.HasSuffix(path, "/favorites/import") && req.Method == http.MethodPost:
		r.handleFavoritesImport(w, req)
	case id != "":
		switch req.Method {
		case http.MethodGet:
			r.handleFavoriteGet(w, req, id)
		case http.MethodPatch:
			r.handleFavoriteUpdate(w, req, id)
		case http.MethodDelete:
			r.handleFavoriteDelete(w, req, id)
		}
	default:
		switch req.Method {
		case http.MethodGet:
			r.handleFavoritesList(w, req)
		case http.MethodPost:
			r.handleFavoriteCreate(w, req)
		}
	}
}

func (r *Router) handleFavoritesList(w http.ResponseWriter, req *http.Request) {
	profiles, err := r.cfg.Favorites.List(req.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles, "count": len(profiles)})
}

func (r *Router) handleFavoriteCreate(w http.ResponseWriter, req *http.Request) {
	body, err := decodeJSON(req)
	if err != nil {
		writeError(w, err)
		return
	}
	profile, err := r.cfg.Favorites.Create(req.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (r *Router) handleFavoriteGet(w http.ResponseWriter, req *http.Request, id string) {
	profile, ok, err := r.cfg.Favorites.Get(req.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, apperr.NotFound("favorite %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (r *Router) handleFavoriteUpdate(w http.ResponseWriter, req *http.Request, id string) {
	body, err := decodeJSON(req)
	if err != nil {
		writeError(w, err)
		return
	}
	profile, ok, err := r.cfg.Favorites.Update(req.Context(), id, body)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, apperr.NotFound("favorite %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (r *Router) handleFavoriteDelete(w http.ResponseWriter, req *http.Request, id string) {
	ok, err := r.cfg.Favorites.Delete(req.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": ok})
}

func (r *Router) handleFavoritesExport(w http.ResponseWriter, req *http.Request) {
	doc, err := r.cfg.Favorites.Export(req.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (r *Router) handleFavoritesImport(w http.ResponseWriter, req *http.Request) {
	body, err := decodeJSON(req)
	if err != nil {
		writeError(w, err)
		return
	}
	mode, _ := body["mode"].(string)
	if mode == "" {
		mode = "merge"
	}
	count, err := r.cfg.Favorites.Import(req.Context(), body, mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": count, "mode": mode})
}
