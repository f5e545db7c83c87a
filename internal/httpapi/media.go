package httpapi

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/ingestcache"
	"github.com/Astrocyte74/tts-hub/internal/mediajobs"
	"github.com/Astrocyte74/tts-hub/pkg/mediaio"
)

const maxUploadBytes = 200 << 20 // 200 MiB

// handleMediaTranscribe implements POST /media/transcribe: either a
// multipart file upload or {source: "youtube", url}.
func (r *Router) handleMediaTranscribe(w http.ResponseWriter, req *http.Request) {
	srcPath, cleanup, err := r.resolveMediaSource(req)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()

	allowStub := req.URL.Query().Get("allow_stub") == "1"
	result, err := r.cfg.MediaJobs.Transcribe(req.Context(), srcPath, allowStub)
	if err != nil {
		writeError(w, err)
		return
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordMediaJobStage(req.Context(), "transcribe")
	}
	writeJSON(w, http.StatusOK, result)
}

// resolveMediaSource saves either a multipart "file" field or a
// {source:"youtube", url} JSON body to a temp file, returning its path and
// a cleanup func the caller must defer.
func (r *Router) resolveMediaSource(req *http.Request) (string, func(), error) {
	noop := func() {}

	contentType := req.Header.Get("Content-Type")
	if len(contentType) >= 10 && contentType[:10] == "multipart/" {
		if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
			return "", noop, apperr.BadRequest("invalid multipart upload: %v", err)
		}
		file, header, err := req.FormFile("file")
		if err != nil {
			return "", noop, apperr.BadRequest("field 'file' is required")
		}
		defer file.Close()

		tmp, err := os.CreateTemp("", "upload-*-"+header.Filename)
		if err != nil {
			return "", noop, apperr.Wrap(apperr.KindEngineFailure, "media: create temp file", err)
		}
		if _, err := io.Copy(tmp, file); err != nil {
			tmp.Close()
			return "", noop, apperr.Wrap(apperr.KindEngineFailure, "media: save upload", err)
		}
		tmp.Close()
		return tmp.Name(), func() { _ = os.Remove(tmp.Name()) }, nil
	}

	body, err := decodeJSON(req)
	if err != nil {
		return "", noop, err
	}
	url, _ := body["url"].(string)
	if url == "" {
		return "", noop, apperr.BadRequest("either a multipart 'file' or {source, url} is required")
	}

	if r.cfg.IngestCache == nil {
		return "", noop, apperr.NotImplemented("URL-sourced media ingestion is not configured")
	}
	path, err := r.cfg.IngestCache.ResolveOrDownload(req.Context(), url, youtubeDLFetcher)
	if err != nil {
		return "", noop, err
	}
	return path, noop, nil
}

// youtubeDLFetcher is a placeholder fetcher; a real deployment wires this to
// an external downloader binary the way cliengine wires subprocess engines.
var youtubeDLFetcher ingestcache.Fetcher = func(_ context.Context, _ string) error {
	return apperr.NotImplemented("media: no URL downloader is configured")
}

// handleMediaAlign implements POST /media/align: {jobId}.
func (r *Router) handleMediaAlign(w http.ResponseWriter, req *http.Request) {
	body, err := decodeJSON(req)
	if err != nil {
		writeError(w, err)
		return
	}
	jobID, _ := body["jobId"].(string)
	if jobID == "" {
		writeError(w, apperr.BadRequest("field 'jobId' is required"))
		return
	}
	transcript, err := r.cfg.MediaJobs.Align(req.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordMediaJobStage(req.Context(), "align")
	}
	writeJSON(w, http.StatusOK, transcript)
}

// handleMediaAlignRegion implements POST /media/align_region:
// {jobId, start, end, margin?}.
func (r *Router) handleMediaAlignRegion(w http.ResponseWriter, req *http.Request) {
	body, err := decodeJSON(req)
	if err != nil {
		writeError(w, err)
		return
	}
	jobID, _ := body["jobId"].(string)
	start, _ := body["start"].(float64)
	end, _ := body["end"].(float64)
	margin, _ := body["margin"].(float64)
	if jobID == "" {
		writeError(w, apperr.BadRequest("field 'jobId' is required"))
		return
	}
	result, err := r.cfg.MediaJobs.AlignRegion(req.Context(), jobID, start, end, margin)
	if err != nil {
		writeError(w, err)
		return
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordMediaJobStage(req.Context(), "align_region")
	}
	writeJSON(w, http.StatusOK, result)
}

// handleMediaReplacePreview implements POST /media/replace_preview.
func (r *Router) handleMediaReplacePreview(w http.ResponseWriter, req *http.Request) {
	body, err := decodeJSON(req)
	if err != nil {
		writeError(w, err)
		return
	}
	jobID, _ := body["jobId"].(string)
	if jobID == "" {
		writeError(w, apperr.BadRequest("field 'jobId' is required"))
		return
	}
	preq := replacePreviewRequestFromBody(jobID, body)

	result, err := r.cfg.MediaJobs.ReplacePreview(req.Context(), preq)
	if err != nil {
		writeError(w, err)
		return
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordMediaJobStage(req.Context(), "replace_preview")
	}
	writeJSON(w, http.StatusOK, result)
}

// handleMediaApply implements POST /media/apply: {jobId, format?}.
func (r *Router) handleMediaApply(w http.ResponseWriter, req *http.Request) {
	body, err := decodeJSON(req)
	if err != nil {
		writeError(w, err)
		return
	}
	jobID, _ := body["jobId"].(string)
	format, _ := body["format"].(string)
	if jobID == "" {
		writeError(w, apperr.BadRequest("field 'jobId' is required"))
		return
	}
	result, err := r.cfg.MediaJobs.Apply(req.Context(), jobID, format)
	if err != nil {
		writeError(w, err)
		return
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.RecordMediaJobStage(req.Context(), "apply")
	}
	writeJSON(w, http.StatusOK, result)
}

// handleMediaProbe implements POST /media/probe: multipart probe of media
// metadata without creating a job.
func (r *Router) handleMediaProbe(w http.ResponseWriter, req *http.Request) {
	srcPath, cleanup, err := r.resolveMediaSource(req)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()

	probe, err := mediaio.Probe(req.Context(), srcPath)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, probe)
}

// handleMediaEstimate implements POST /media/estimate: URL duration +
// metadata, resolving/downloading through the ingest cache without creating
// a media job.
func (r *Router) handleMediaEstimate(w http.ResponseWriter, req *http.Request) {
	body, err := decodeJSON(req)
	if err != nil {
		writeError(w, err)
		return
	}
	url, _ := body["url"].(string)
	if url == "" {
		writeError(w, apperr.BadRequest("field 'url' is required"))
		return
	}
	if r.cfg.IngestCache == nil {
		writeError(w, apperr.NotImplemented("URL-sourced media estimation is not configured"))
		return
	}
	path, err := r.cfg.IngestCache.ResolveOrDownload(req.Context(), url, youtubeDLFetcher)
	if err != nil {
		writeError(w, err)
		return
	}
	probe, err := mediaio.Probe(req.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"duration": probe.Duration, "has_video": probe.HasVideo})
}

// replacePreviewRequestFromBody maps the /media/replace_preview JSON body
// into a [mediajobs.ReplacePreviewRequest], defaulting trimSilence to true
// and alignReplace to false like the rest of the synthesis payload fields.
func replacePreviewRequestFromBody(jobID string, body map[string]any) mediajobs.ReplacePreviewRequest {
	start, _ := body["start"].(float64)
	end, _ := body["end"].(float64)
	text, _ := body["text"].(string)
	voice, _ := body["voice"].(string)
	language, _ := body["language"].(string)
	speed := 1.0
	if v, ok := body["speed"].(float64); ok && v > 0 {
		speed = v
	}
	margin, _ := body["marginMs"].(float64)
	fadeMS := 0
	if v, ok := body["fadeMs"].(float64); ok {
		fadeMS = int(v)
	}
	duckDB, _ := body["duckDb"].(float64)
	trimSilence := true
	if v, ok := body["trimSilence"].(bool); ok {
		trimSilence = v
	}
	alignReplace, _ := body["alignReplace"].(bool)

	return mediajobs.ReplacePreviewRequest{
		JobID:        jobID,
		Start:        start,
		End:          end,
		Text:         text,
		Voice:        voice,
		Language:     language,
		Speed:        speed,
		MarginMS:     margin,
		FadeMS:       fadeMS,
		DuckDB:       duckDB,
		TrimSilence:  trimSilence,
		AlignReplace: alignReplace,
	}
}

// handleMediaStats implements GET /media/stats: aggregate ETA info.
func (r *Router) handleMediaStats(w http.ResponseWriter, req *http.Request) {
	if r.cfg.Stats == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, r.cfg.Stats.Summaries())
}
