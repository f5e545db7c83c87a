package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
)

// customVoiceSidecar is the "<id>.wav.meta.json" document a custom
// reference clip may carry, matching voicecatalog's loadSidecar shape.
type customVoiceSidecar struct {
	Language string   `json:"language,omitempty"`
	Gender   string   `json:"gender,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Accent   string   `json:"accent,omitempty"`
}

// handleCustomVoiceCreate implements POST /xtts/custom_voice: a multipart
// "file" upload saved into the cloning engine's reference directory as
// "<id>.wav" (id from the query, else the upload's file stem). URL-sourced
// clips are not supported: a request without a multipart body is rejected
// with bad_request. The saved bytes are not checked to be a valid WAV.
func (r *Router) handleCustomVoiceCreate(w http.ResponseWriter, req *http.Request) {
	if r.cfg.XTTSReferenceDir == "" {
		writeError(w, apperr.NotImplemented("custom voice upload is not configured"))
		return
	}
	if err := os.MkdirAll(r.cfg.XTTSReferenceDir, 0o755); err != nil {
		writeError(w, apperr.Wrap(apperr.KindEngineFailure, "custom_voice: create reference dir", err))
		return
	}

	id := req.URL.Query().Get("id")

	contentType := req.Header.Get("Content-Type")
	if len(contentType) >= 10 && contentType[:10] == "multipart/" {
		if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, apperr.BadRequest("invalid multipart upload: %v", err))
			return
		}
		file, header, err := req.FormFile("file")
		if err != nil {
			writeError(w, apperr.BadRequest("field 'file' is required"))
			return
		}
		defer file.Close()
		if id == "" {
			id = stemOf(header.Filename)
		}

		dest := filepath.Join(r.cfg.XTTSReferenceDir, id+".wav")
		out, err := os.Create(dest)
		if err != nil {
			writeError(w, apperr.Wrap(apperr.KindEngineFailure, "custom_voice: create file", err))
			return
		}
		defer out.Close()
		if _, err := io.Copy(out, file); err != nil {
			writeError(w, apperr.Wrap(apperr.KindEngineFailure, "custom_voice: save file", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "path": "/audio/" + filepath.Base(dest)})
		return
	}

	writeError(w, apperr.BadRequest("custom_voice upload requires a multipart 'file' field"))
}

func stemOf(name string) string {
	base := filepath.Base(name)
	return base[:len(base)-len(filepath.Ext(base))]
}

func (r *Router) sidecarPath(id string) string {
	return filepath.Join(r.cfg.XTTSReferenceDir, id+".wav.meta.json")
}

// handleCustomVoiceGet implements GET /xtts/custom_voice/<id>: sidecar
// metadata read.
func (r *Router) handleCustomVoiceGet(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	data, err := os.ReadFile(r.sidecarPath(id))
	if err != nil {
		writeJSON(w, http.StatusOK, customVoiceSidecar{})
		return
	}
	var sidecar customVoiceSidecar
	_ = json.Unmarshal(data, &sidecar)
	writeJSON(w, http.StatusOK, sidecar)
}

// handleCustomVoicePatch implements PATCH /xtts/custom_voice/<id>: merges
// the patch fields into the existing sidecar, creating one if absent.
func (r *Router) handleCustomVoicePatch(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	var sidecar customVoiceSidecar
	if data, err := os.ReadFile(r.sidecarPath(id)); err == nil {
		_ = json.Unmarshal(data, &sidecar)
	}

	body, err := decodeJSON(req)
	if err != nil {
		writeError(w, err)
		return
	}
	if v, ok := body["language"].(string); ok {
		sidecar.Language = v
	}
	if v, ok := body["gender"].(string); ok {
		sidecar.Gender = v
	}
	if v, ok := body["notes"].(string); ok {
		sidecar.Notes = v
	}
	if v, ok := body["accent"].(string); ok {
		sidecar.Accent = v
	}
	if v, ok := body["tags"].([]any); ok {
		tags := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		sidecar.Tags = tags
	}

	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindEngineFailure, "custom_voice: marshal sidecar", err))
		return
	}
	if err := os.WriteFile(r.sidecarPath(id), data, 0o644); err != nil {
		writeError(w, apperr.Wrap(apperr.KindEngineFailure, "custom_voice: write sidecar", err))
		return
	}
	writeJSON(w, http.StatusOK, sidecar)
}

// handleCustomVoiceDelete implements DELETE /xtts/custom_voice/<id>:
// removes the reference clip and its sidecar. Deleting an already-missing
// entity is a recoverable no-op per the error handling policy.
func (r *Router) handleCustomVoiceDelete(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	_ = os.Remove(filepath.Join(r.cfg.XTTSReferenceDir, id+".wav"))
	_ = os.Remove(r.sidecarPath(id))
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// handlePresetCreate implements POST /chattts/presets: create a dialogue
// preset, written the way [voicecatalog.LoadPresets] reads them back — a
// ".json" sidecar with {label, speaker}.
func (r *Router) handlePresetCreate(w http.ResponseWriter, req *http.Request) {
	if r.cfg.ChatTTSPresetDir == "" {
		writeError(w, apperr.NotImplemented("dialogue presets are not configured"))
		return
	}
	body, err := decodeJSON(req)
	if err != nil {
		writeError(w, err)
		return
	}
	id, _ := body["id"].(string)
	label, _ := body["label"].(string)
	speaker, _ := body["speaker"].(string)
	if id == "" || speaker == "" {
		writeError(w, apperr.BadRequest("fields 'id' and 'speaker' are required"))
		return
	}
	if label == "" {
		label = id
	}

	if err := os.MkdirAll(r.cfg.ChatTTSPresetDir, 0o755); err != nil {
		writeError(w, apperr.Wrap(apperr.KindEngineFailure, "chattts: create preset dir", err))
		return
	}
	data, err := json.MarshalIndent(map[string]string{"label": label, "speaker": speaker}, "", "  ")
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindEngineFailure, "chattts: marshal preset", err))
		return
	}
	dest := filepath.Join(r.cfg.ChatTTSPresetDir, id+".json")
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		writeError(w, apperr.Wrap(apperr.KindEngineFailure, "chattts: write preset", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "label": label, "speaker": speaker})
}
