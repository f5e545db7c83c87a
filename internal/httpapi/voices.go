package httpapi

import (
	"net/http"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/voicecatalog"
)

// voicesResponse is the shape shared by /voices and /voices_grouped,
// mirroring the distilled service's {engine, available, voices, groups,
// count} envelope with both "accentGroups" and "groups" set to the same
// value for client compatibility.
type voicesResponse struct {
	Engine       string                `json:"engine"`
	Available    bool                  `json:"available"`
	Voices       []interface{}         `json:"voices,omitempty"`
	AccentGroups []voicecatalog.Group  `json:"accentGroups"`
	Groups       []voicecatalog.Group  `json:"groups"`
	Count        int                   `json:"count"`
	Message      string                `json:"message,omitempty"`
}

func (r *Router) resolveEngineID(req *http.Request) string {
	return req.URL.Query().Get("engine")
}

func (r *Router) handleVoices(w http.ResponseWriter, req *http.Request) {
	engineID := r.resolveEngineID(req)
	catalog, err := r.cfg.Engines.FetchVoices(req.Context(), engineID)
	if err != nil {
		writeError(w, err)
		return
	}
	if engineID == "" {
		engineID = firstOrEmpty(r.cfg.Engines.IDs())
	}

	voices := make([]interface{}, len(catalog.Voices))
	for i, v := range catalog.Voices {
		voices[i] = v
	}

	writeJSON(w, http.StatusOK, voicesResponse{
		Engine:       engineID,
		Available:    catalog.Available,
		Voices:       voices,
		AccentGroups: catalog.AccentGroups,
		Groups:       catalog.AccentGroups,
		Count:        catalog.Count,
		Message:      catalog.Message,
	})
}

func (r *Router) handleVoicesGrouped(w http.ResponseWriter, req *http.Request) {
	engineID := r.resolveEngineID(req)
	catalog, err := r.cfg.Engines.FetchVoices(req.Context(), engineID)
	if err != nil {
		writeError(w, err)
		return
	}
	if engineID == "" {
		engineID = firstOrEmpty(r.cfg.Engines.IDs())
	}
	writeJSON(w, http.StatusOK, voicesResponse{
		Engine:       engineID,
		Available:    catalog.Available,
		AccentGroups: catalog.AccentGroups,
		Groups:       catalog.AccentGroups,
		Count:        catalog.Count,
		Message:      catalog.Message,
	})
}

// voicesCatalogResponse additionally surfaces Filters and the full list of
// registered engine ids, per the "voices + normalized filters + engines"
// contract.
type voicesCatalogResponse struct {
	Engine    string              `json:"engine"`
	Engines   []string            `json:"engines"`
	Available bool                `json:"available"`
	Voices    []interface{}       `json:"voices"`
	Filters   voicecatalog.Filters `json:"filters"`
	Count     int                 `json:"count"`
	Message   string              `json:"message,omitempty"`
}

func (r *Router) handleVoicesCatalog(w http.ResponseWriter, req *http.Request) {
	engineID := r.resolveEngineID(req)
	catalog, err := r.cfg.Engines.FetchVoices(req.Context(), engineID)
	if err != nil {
		writeError(w, err)
		return
	}
	if engineID == "" {
		engineID = firstOrEmpty(r.cfg.Engines.IDs())
	}
	voices := make([]interface{}, len(catalog.Voices))
	for i, v := range catalog.Voices {
		voices[i] = v
	}
	writeJSON(w, http.StatusOK, voicesCatalogResponse{
		Engine:    engineID,
		Engines:   r.cfg.Engines.IDs(),
		Available: catalog.Available,
		Voices:    voices,
		Filters:   catalog.Filters,
		Count:     catalog.Count,
		Message:   catalog.Message,
	})
}

// handleVoicePreview implements POST /voices/preview:
// {engine, voiceId, language?, force?, ...extras} => {preview_url}.
func (r *Router) handleVoicePreview(w http.ResponseWriter, req *http.Request) {
	body, err := decodeJSON(req)
	if err != nil {
		writeError(w, err)
		return
	}
	engineID, _ := body["engine"].(string)
	voiceID, _ := body["voiceId"].(string)
	if voiceID == "" {
		voiceID, _ = body["voice_id"].(string)
	}
	if engineID == "" || voiceID == "" {
		writeError(w, apperr.BadRequest("fields 'engine' and 'voiceId' are required"))
		return
	}
	language, _ := body["language"].(string)
	force, _ := body["force"].(bool)

	backend, err := r.cfg.Engines.Backend(engineID)
	if err != nil {
		writeError(w, err)
		return
	}

	extras := map[string]any{}
	for k, v := range body {
		switch k {
		case "engine", "voiceId", "voice_id", "language", "force":
		default:
			extras[k] = v
		}
	}

	path, err := r.cfg.Previews.GetOrCreate(req.Context(), backend, engineID, voiceID, language, extras, force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"preview_url": toAudioURL(r.cfg.OutputDir, path)})
}

func firstOrEmpty(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
