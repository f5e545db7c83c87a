package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/pkg/audiocodec"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// handleSynthesize implements POST /synthesise (alias /synthesize):
// normalized synthesis through the dispatcher.
func (r *Router) handleSynthesize(w http.ResponseWriter, req *http.Request) {
	body, err := decodeJSON(req)
	if err != nil {
		writeError(w, err)
		return
	}

	started := time.Now()
	result, err := r.cfg.Engines.Dispatch(req.Context(), body, false)
	elapsed := time.Since(started).Seconds()

	engineID, _ := body["engine"].(string)
	if engineID == "" {
		engineID = result.Engine
	}
	if r.cfg.Metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
			r.cfg.Metrics.RecordEngineError(req.Context(), engineID, string(apperr.KindOf(err)))
		}
		r.cfg.Metrics.RecordEngineRequest(req.Context(), engineID, status)
		r.cfg.Metrics.EngineDuration.Record(req.Context(), elapsed)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if r.cfg.Stats != nil {
		_ = r.cfg.Stats.Record("synthesize", elapsed, 0)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":          result.Filename,
		"engine":      result.Engine,
		"voice":       result.Voice,
		"sample_rate": result.SampleRate,
		"path":        toAudioURL(r.cfg.OutputDir, result.Path),
		"filename":    result.Filename,
	})
}

// handleAudition implements POST /audition: concatenate multiple voices on
// one engine with optional announcer interstitials between clips.
func (r *Router) handleAudition(w http.ResponseWriter, req *http.Request) {
	body, err := decodeJSON(req)
	if err != nil {
		writeError(w, err)
		return
	}

	engineID, _ := body["engine"].(string)
	backend, err := r.cfg.Engines.Backend(engineID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !backend.Supports("audition") {
		writeError(w, apperr.BadRequest("engine %q does not support auditions", backend.ID()))
		return
	}

	voiceIDs, err := stringListField(body, "voices", "voice")
	if err != nil {
		writeError(w, err)
		return
	}
	if len(voiceIDs) < 2 {
		writeError(w, apperr.BadRequest("provide at least two voices to build an audition"))
		return
	}

	text, _ := body["text"].(string)
	language, _ := body["language"].(string)
	speed := 1.0
	if v, ok := body["speed"].(float64); ok && v > 0 {
		speed = v
	}
	gapSeconds := 1.0
	if v, ok := body["gapSeconds"].(float64); ok {
		gapSeconds = v
	}

	announcerCfg, _ := body["announcer"].(map[string]any)
	announcerEnabled, _ := announcerCfg["enabled"].(bool)

	var clips [][]float32
	sampleRate := 0

	for _, voiceID := range voiceIDs {
		var segments [][]float32

		if announcerEnabled {
			announcerText, _ := announcerCfg["template"].(string)
			if announcerText == "" {
				announcerText = fmt.Sprintf("Now auditioning %s", voiceID)
			}
			announcerVoice, _ := announcerCfg["voice"].(string)
			if announcerVoice == "" {
				announcerVoice = voiceID
			}
			annResult, err := backend.Synthesize(req.Context(), types.SynthRequest{
				Engine: backend.ID(), Text: announcerText, Voice: announcerVoice, Language: language, Speed: speed,
			})
			if err != nil {
				writeError(w, err)
				return
			}
			samples, rate, err := audiocodec.Load(annResult.Path, 0)
			if err != nil {
				writeError(w, apperr.Wrap(apperr.KindEngineFailure, "audition: load announcer clip", err))
				return
			}
			switch {
			case sampleRate == 0:
				sampleRate = rate
			case sampleRate != rate:
				writeError(w, apperr.EngineFailure("sample rate mismatch between announcer segments"))
				return
			}
			segments = append(segments, samples)
		}

		result, err := backend.Synthesize(req.Context(), types.SynthRequest{
			Engine: backend.ID(), Text: text, Voice: voiceID, Language: language, Speed: speed,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		samples, rate, err := audiocodec.Load(result.Path, 0)
		if err != nil {
			writeError(w, apperr.Wrap(apperr.KindEngineFailure, "audition: load voice clip", err))
			return
		}
		switch {
		case sampleRate == 0:
			sampleRate = rate
		case sampleRate != rate:
			writeError(w, apperr.EngineFailure("sample rate mismatch between voices"))
			return
		}
		segments = append(segments, samples)
		clips = append(clips, concatFloat32(segments...))
	}

	gap := make([]float32, int(float64(sampleRate)*gapSeconds))
	combined := concatFloat32WithGap(clips, gap)

	filename := fmt.Sprintf("%d-%s-audition.wav", time.Now().Unix(), uuid.NewString()[:10])
	outPath := r.cfg.OutputDir + "/" + filename
	if err := audiocodec.Save(outPath, combined, sampleRate); err != nil {
		writeError(w, apperr.Wrap(apperr.KindEngineFailure, "audition: save combined clip", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":          filename,
		"engine":      backend.ID(),
		"voice":       "audition",
		"voices":      voiceIDs,
		"path":        "/audio/" + filename,
		"filename":    filename,
		"sample_rate": sampleRate,
	})
}

func stringListField(body map[string]any, keys ...string) ([]string, error) {
	for _, key := range keys {
		raw, ok := body[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			return []string{v}, nil
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				s, _ := item.(string)
				if s != "" {
					out = append(out, s)
				}
			}
			return out, nil
		}
	}
	return nil, apperr.BadRequest("field 'voices' must be a list of voice ids")
}

func concatFloat32(segments ...[]float32) []float32 {
	total := 0
	for _, s := range segments {
		total += len(s)
	}
	out := make([]float32, 0, total)
	for _, s := range segments {
		out = append(out, s...)
	}
	return out
}

func concatFloat32WithGap(clips [][]float32, gap []float32) []float32 {
	total := 0
	for _, c := range clips {
		total += len(c) + len(gap)
	}
	out := make([]float32, 0, total)
	for i, c := range clips {
		out = append(out, c...)
		if i < len(clips)-1 {
			out = append(out, gap...)
		}
	}
	return out
}
