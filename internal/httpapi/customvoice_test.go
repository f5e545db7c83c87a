package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestRouter(t *testing.T, cfg Config) (*Router, string, string) {
	t.Helper()
	refDir := t.TempDir()
	presetDir := t.TempDir()
	cfg.XTTSReferenceDir = refDir
	cfg.ChatTTSPresetDir = presetDir
	return New(cfg), refDir, presetDir
}

func multipartUpload(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestHandleCustomVoiceCreate_SavesUpload(t *testing.T) {
	r, refDir, _ := newTestRouter(t, Config{})

	body, contentType := multipartUpload(t, "file", "announcer.wav", []byte("RIFF....WAVEfmt "))
	req := httptest.NewRequest(http.MethodPost, "/xtts/custom_voice?id=announcer", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	r.handleCustomVoiceCreate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["id"] != "announcer" {
		t.Errorf("id = %v, want announcer", resp["id"])
	}

	_ = refDir
}

func TestHandleCustomVoiceCreate_RequiresMultipart(t *testing.T) {
	r, _, _ := newTestRouter(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/xtts/custom_voice", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	r.handleCustomVoiceCreate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCustomVoiceCreate_NotConfigured(t *testing.T) {
	r := New(Config{})

	body, contentType := multipartUpload(t, "file", "a.wav", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/xtts/custom_voice", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	r.handleCustomVoiceCreate(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}

func TestCustomVoiceCRUD_RoundTrip(t *testing.T) {
	r, _, _ := newTestRouter(t, Config{})

	body, contentType := multipartUpload(t, "file", "narrator.wav", []byte("RIFF....WAVEfmt "))
	createReq := httptest.NewRequest(http.MethodPost, "/xtts/custom_voice?id=narrator", body)
	createReq.Header.Set("Content-Type", contentType)
	createRec := httptest.NewRecorder()
	r.handleCustomVoiceCreate(createRec, createReq)
	if createRec.Code != http.StatusOK {
		t.Fatalf("create status = %d", createRec.Code)
	}

	patchBody := bytes.NewBufferString(`{"language":"en-GB","tags":["warm","deep"]}`)
	patchReq := httptest.NewRequest(http.MethodPatch, "/xtts/custom_voice/narrator", patchBody)
	patchReq.SetPathValue("id", "narrator")
	patchRec := httptest.NewRecorder()
	r.handleCustomVoicePatch(patchRec, patchReq)
	if patchRec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", patchRec.Code, patchRec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/xtts/custom_voice/narrator", nil)
	getReq.SetPathValue("id", "narrator")
	getRec := httptest.NewRecorder()
	r.handleCustomVoiceGet(getRec, getReq)

	var sidecar customVoiceSidecar
	if err := json.Unmarshal(getRec.Body.Bytes(), &sidecar); err != nil {
		t.Fatalf("decode sidecar: %v", err)
	}
	if sidecar.Language != "en-GB" {
		t.Errorf("language = %q, want en-GB", sidecar.Language)
	}
	if len(sidecar.Tags) != 2 {
		t.Errorf("tags = %v, want 2 entries", sidecar.Tags)
	}

	delReq := httptest.NewRequest(http.MethodDelete, "/xtts/custom_voice/narrator", nil)
	delReq.SetPathValue("id", "narrator")
	delRec := httptest.NewRecorder()
	r.handleCustomVoiceDelete(delRec, delReq)
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", delRec.Code)
	}

	getReq2 := httptest.NewRequest(http.MethodGet, "/xtts/custom_voice/narrator", nil)
	getReq2.SetPathValue("id", "narrator")
	getRec2 := httptest.NewRecorder()
	r.handleCustomVoiceGet(getRec2, getReq2)
	var empty customVoiceSidecar
	_ = json.Unmarshal(getRec2.Body.Bytes(), &empty)
	if empty.Language != "" {
		t.Errorf("expected empty sidecar after delete, got %+v", empty)
	}
}

func TestHandleCustomVoiceGet_MissingReturnsEmptySidecar(t *testing.T) {
	r, _, _ := newTestRouter(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/xtts/custom_voice/ghost", nil)
	req.SetPathValue("id", "ghost")
	rec := httptest.NewRecorder()

	r.handleCustomVoiceGet(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var sidecar customVoiceSidecar
	if err := json.Unmarshal(rec.Body.Bytes(), &sidecar); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sidecar != (customVoiceSidecar{}) {
		t.Errorf("expected zero-value sidecar, got %+v", sidecar)
	}
}

func TestHandlePresetCreate(t *testing.T) {
	r, _, _ := newTestRouter(t, Config{})

	body := bytes.NewBufferString(`{"id":"host","label":"Show Host","speaker":"spk_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/chattts/presets", body)
	rec := httptest.NewRecorder()

	r.handlePresetCreate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["speaker"] != "spk_1" {
		t.Errorf("speaker = %v, want spk_1", resp["speaker"])
	}
}

func TestHandlePresetCreate_RequiresSpeaker(t *testing.T) {
	r, _, _ := newTestRouter(t, Config{})

	body := bytes.NewBufferString(`{"id":"host"}`)
	req := httptest.NewRequest(http.MethodPost, "/chattts/presets", body)
	rec := httptest.NewRecorder()

	r.handlePresetCreate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
