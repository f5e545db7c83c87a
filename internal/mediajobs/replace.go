package mediajobs

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/pkg/audiocodec"
	"github.com/Astrocyte74/tts-hub/pkg/mediaio"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// ReplacePreviewRequest is the validated input to ReplacePreview.
type ReplacePreviewRequest struct {
	JobID         string
	Start         float64
	End           float64
	Text          string
	Voice         string // engine id, slug, or validated in-scope path
	Language      string
	Speed         float64
	MarginMS      float64
	FadeMS        int
	DuckDB        float64
	TrimSilence   bool
	AlignReplace  bool
}

// ReplacePreviewResult is the response shape for ReplacePreview.
type ReplacePreviewResult struct {
	PreviewURL    string       `json:"preview_url"`
	DiffURL       string       `json:"diff_url"`
	ReplaceWords  []types.Word `json:"replace_words,omitempty"`
}

const (
	defaultFadeMS      = 20
	cloningEngine      = "xtts"
	referenceClipSecs  = 6.0
)

// ReplacePreview synthesizes a replacement for [start,end] of jobID's
// audio, time-stretches it to the region's length, crossfade-splices it
// into the source, and writes both a preview and a before/after diff clip,
// updating latest_preview.wav.
func (s *Service) ReplacePreview(ctx context.Context, req ReplacePreviewRequest) (ReplacePreviewResult, error) {
	meta, err := s.loadMeta(req.JobID)
	if err != nil {
		return ReplacePreviewResult{}, err
	}
	transcript, err := s.loadTranscript(req.JobID)
	if err != nil {
		return ReplacePreviewResult{}, err
	}
	if req.Start < 0 || req.End <= req.Start || req.End > meta.Duration {
		return ReplacePreviewResult{}, apperr.BadRequest("replace_preview: region [%.3f,%.3f] is out of bounds for a %.3fs source", req.Start, req.End, meta.Duration)
	}

	sourcePath := filepath.Join(s.jobDir(req.JobID), sourceWAVName)
	source, rate, err := audiocodec.Load(sourcePath, canonicalSampleRate)
	if err != nil {
		return ReplacePreviewResult{}, apperr.Wrap(apperr.KindEngineFailure, "replace_preview: load source", err)
	}

	engineID, voiceRef, err := s.resolveReference(req, source, rate)
	if err != nil {
		return ReplacePreviewResult{}, err
	}

	language := req.Language
	if language == "" {
		language = transcript.Language
	}
	if language == "" {
		language = "en"
	}

	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}

	// Dispatch (not the narrower Synthesize) so that, when voiceRef is a
	// filesystem path, cliengine.Prepare re-validates it against job_dir —
	// resolveReference may have just written it there itself, but an
	// explicit req.Voice path must pass the same scope check.
	synthResult, err := s.Engines.Dispatch(ctx, map[string]any{
		"engine":   engineID,
		"text":     req.Text,
		"voice":    voiceRef,
		"language": language,
		"speed":    speed,
		"job_dir":  s.jobDir(req.JobID),
	}, false)
	if err != nil {
		return ReplacePreviewResult{}, err
	}

	replacement, repRate, err := audiocodec.Load(synthResult.Path, canonicalSampleRate)
	if err != nil {
		return ReplacePreviewResult{}, apperr.Wrap(apperr.KindEngineFailure, "replace_preview: load synthesized replacement", err)
	}
	if req.TrimSilence {
		replacement = audiocodec.TrimSilence(replacement, repRate, 45, 30, 30)
	}

	regionStart := int(req.Start * float64(rate))
	regionEnd := int(req.End * float64(rate))
	targetLen := regionEnd - regionStart
	stretched := audiocodec.TimeStretchToLength(replacement, rate, targetLen)

	fadeMs := req.FadeMS
	if fadeMs <= 0 {
		fadeMs = defaultFadeMS
	}
	duckGain := clamp01(math.Pow(10, req.DuckDB/20))

	spliced := audiocodec.CrossfadeSplice(source, stretched, rate, regionStart, regionEnd, fadeMs, duckGain)

	ts := time.Now().Unix()
	previewName := fmt.Sprintf("preview-%d.wav", ts)
	previewPath := filepath.Join(s.jobDir(req.JobID), previewName)
	if err := audiocodec.Save(previewPath, spliced, rate); err != nil {
		return ReplacePreviewResult{}, apperr.Wrap(apperr.KindEngineFailure, "replace_preview: write preview", err)
	}

	diffName := fmt.Sprintf("diff-%d.wav", ts)
	diffClip := buildDiffClip(source, spliced, rate, regionStart, regionEnd)
	diffPath := filepath.Join(s.jobDir(req.JobID), diffName)
	if err := audiocodec.Save(diffPath, diffClip, rate); err != nil {
		return ReplacePreviewResult{}, apperr.Wrap(apperr.KindEngineFailure, "replace_preview: write diff clip", err)
	}

	latestPath := filepath.Join(s.jobDir(req.JobID), latestPreviewName)
	if err := audiocodec.Save(latestPath, spliced, rate); err != nil {
		return ReplacePreviewResult{}, apperr.Wrap(apperr.KindEngineFailure, "replace_preview: update latest preview", err)
	}

	result := ReplacePreviewResult{
		PreviewURL: audioURL(req.JobID, previewName),
		DiffURL:    audioURL(req.JobID, diffName),
	}

	if req.AlignReplace {
		words, err := s.STT.AlignFull(ctx, stretched, rate, types.Transcript{
			Segments: []types.Segment{{Text: req.Text, Start: 0, End: float64(targetLen) / float64(rate)}},
		})
		if err == nil {
			for i := range words.Words {
				words.Words[i].Start += req.Start
				words.Words[i].End += req.Start
			}
			result.ReplaceWords = words.Words
		}
	}

	meta.State = StatePreviewPending
	if err := s.saveMeta(meta); err != nil {
		return ReplacePreviewResult{}, err
	}

	return result, nil
}

// resolveReference picks the cloning engine's voice reference: an explicit
// engine id / slug / validated in-scope path, or a borrowed clip cut from
// the source region itself when none is given.
func (s *Service) resolveReference(req ReplacePreviewRequest, source []float32, rate int) (engineID, voiceRef string, err error) {
	engineID = cloningEngine
	if req.Voice != "" {
		return engineID, req.Voice, nil
	}

	// Borrow a clip: cut up to referenceClipSecs of source audio starting at
	// the region so the cloning engine has a voice sample to imitate.
	start := int(req.Start * float64(rate))
	end := start + int(referenceClipSecs*float64(rate))
	if end > len(source) {
		end = len(source)
	}
	if start >= end {
		return "", "", apperr.BadRequest("replace_preview: region too short to borrow a reference clip")
	}

	borrowed := source[start:end]
	borrowedPath := filepath.Join(s.jobDir(req.JobID), "borrowed_reference.wav")
	if err := audiocodec.Save(borrowedPath, borrowed, rate); err != nil {
		return "", "", apperr.Wrap(apperr.KindEngineFailure, "replace_preview: save borrowed reference", err)
	}
	return engineID, borrowedPath, nil
}

func buildDiffClip(source, replaced []float32, rate, regionStart, regionEnd int) []float32 {
	pad := rate / 2 // half a second of context either side
	from := regionStart - pad
	if from < 0 {
		from = 0
	}
	to := regionEnd + pad
	if to > len(source) {
		to = len(source)
	}
	if to > len(replaced) {
		to = len(replaced)
	}
	sourceTo := to
	if sourceTo > len(source) {
		sourceTo = len(source)
	}
	before := append([]float32(nil), source[from:sourceTo]...)
	after := append([]float32(nil), replaced[from:to]...)
	return append(before, after...)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ApplyResult is the response shape for Apply.
type ApplyResult struct {
	FinalURL  string `json:"final_url"`
	Mode      string `json:"mode"`
	Container string `json:"container"`
}

// Apply produces the finished edit: if the job's original had video, the
// latest preview audio is remuxed with the source video into format (or
// the original container); otherwise the preview audio itself becomes
// final.wav.
func (s *Service) Apply(ctx context.Context, jobID, format string) (ApplyResult, error) {
	meta, err := s.loadMeta(jobID)
	if err != nil {
		return ApplyResult{}, err
	}
	latestPath := filepath.Join(s.jobDir(jobID), latestPreviewName)
	if _, err := os.Stat(latestPath); err != nil {
		return ApplyResult{}, apperr.NotFound("apply: no preview has been generated for job %q yet", jobID)
	}

	if !meta.HasVideo {
		finalPath := filepath.Join(s.jobDir(jobID), "final.wav")
		if err := copyFile(latestPath, finalPath); err != nil {
			return ApplyResult{}, apperr.Wrap(apperr.KindEngineFailure, "apply: write final audio", err)
		}
		meta.State = StateApplied
		if err := s.saveMeta(meta); err != nil {
			return ApplyResult{}, err
		}
		return ApplyResult{FinalURL: audioURL(jobID, "final.wav"), Mode: "audio", Container: "wav"}, nil
	}

	container := format
	if container == "" {
		container = defaultContainer(meta.SourceExt)
	}
	videoSrc := filepath.Join(s.jobDir(jobID), "source"+meta.SourceExt)
	finalName := "final." + container
	finalPath := filepath.Join(s.jobDir(jobID), finalName)

	if err := mediaio.Remux(ctx, videoSrc, latestPath, finalPath, container); err != nil {
		return ApplyResult{}, err
	}

	meta.State = StateApplied
	if err := s.saveMeta(meta); err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{FinalURL: audioURL(jobID, finalName), Mode: "video", Container: container}, nil
}

func defaultContainer(sourceExt string) string {
	switch sourceExt {
	case ".webm":
		return "webm"
	case ".mov":
		return "mov"
	default:
		return "mp4"
	}
}
