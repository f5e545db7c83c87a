// Package mediajobs implements the media edit pipeline: transcription,
// forced alignment (full or windowed), voice-replacement preview, and
// remuxing a finished edit back into its original container.
//
// Each job is a directory under Service.EditsDir named by its id. All
// mutating state — transcript.json, job_meta.json, preview-*.wav,
// latest_preview.wav, final.* — lives on disk rather than in memory, so the
// service itself is stateless and safe to share across requests. Per §5,
// job directories are a one-writer-per-endpoint convention: the service
// does not serialize concurrent calls on the same job id beyond the
// write-temp-then-rename atomicity of individual file writes.
package mediajobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/engine"
	"github.com/Astrocyte74/tts-hub/internal/stt"
	"github.com/Astrocyte74/tts-hub/pkg/audiocodec"
	"github.com/Astrocyte74/tts-hub/pkg/mediaio"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// State is the job's position in its lifecycle. No terminal state is
// enforced; clients may repeat any step.
type State string

const (
	StateCreated        State = "created"
	StateTranscribed    State = "transcribed"
	StateAligned        State = "aligned"
	StateRegionAligned  State = "region_aligned"
	StatePreviewPending State = "preview_pending"
	StateApplied        State = "applied"
)

// Meta is the persisted job_meta.json document.
type Meta struct {
	JobID     string    `json:"job_id"`
	State     State     `json:"state"`
	SourceExt string    `json:"source_ext"`
	HasVideo  bool      `json:"has_video"`
	Duration  float64   `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	canonicalSampleRate = 24000
	sourceWAVName       = "source.wav"
	metaName            = "job_meta.json"
	transcriptName      = "transcript.json"
	latestPreviewName   = "latest_preview.wav"
)

// Service wires the engine registry and STT service into the job
// directory lifecycle.
type Service struct {
	EditsDir string
	Engines  *engine.Registry
	STT      *stt.Service
}

// New returns a ready-to-use Service rooted at editsDir.
func New(editsDir string, engines *engine.Registry, sttSvc *stt.Service) *Service {
	return &Service{EditsDir: editsDir, Engines: engines, STT: sttSvc}
}

func (s *Service) jobDir(jobID string) string {
	return filepath.Join(s.EditsDir, jobID)
}

// writeJSONAtomic marshals v and commits it at dest via write-temp-then-
// rename, matching ingestcache's atomic-replace discipline.
func writeJSONAtomic(dest string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindEngineFailure, "mediajobs: marshal", err)
	}
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperr.Wrap(apperr.KindEngineFailure, "mediajobs: write", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return apperr.Wrap(apperr.KindEngineFailure, "mediajobs: commit", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return apperr.NotFound("mediajobs: %s", path)
		}
		return apperr.Wrap(apperr.KindEngineFailure, "mediajobs: read", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Wrap(apperr.KindEngineFailure, "mediajobs: parse "+path, err)
	}
	return nil
}

func (s *Service) loadMeta(jobID string) (Meta, error) {
	var meta Meta
	err := readJSON(filepath.Join(s.jobDir(jobID), metaName), &meta)
	return meta, err
}

func (s *Service) saveMeta(meta Meta) error {
	meta.UpdatedAt = time.Now()
	return writeJSONAtomic(filepath.Join(s.jobDir(meta.JobID), metaName), meta)
}

func (s *Service) loadTranscript(jobID string) (types.Transcript, error) {
	var t types.Transcript
	err := readJSON(filepath.Join(s.jobDir(jobID), transcriptName), &t)
	return t, err
}

func (s *Service) saveTranscript(jobID string, t types.Transcript) error {
	return writeJSONAtomic(filepath.Join(s.jobDir(jobID), transcriptName), t)
}

// TranscribeResult is the response shape for Transcribe.
type TranscribeResult struct {
	JobID             string           `json:"job_id"`
	Media             MediaInfo        `json:"media"`
	Transcript        types.Transcript `json:"transcript"`
	WhisperXAvailable bool             `json:"whisperx_available"`
}

// MediaInfo summarizes the job's canonical audio.
type MediaInfo struct {
	AudioURL string  `json:"audio_url"`
	Duration float64 `json:"duration"`
}

// Transcribe creates a new job from srcPath (already saved to a temp
// location by the HTTP layer), probes it, normalizes its audio to the
// canonical WAV, transcribes it, and persists both the transcript and job
// metadata.
func (s *Service) Transcribe(ctx context.Context, srcPath string, allowStub bool) (TranscribeResult, error) {
	jobID := uuid.NewString()
	dir := s.jobDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return TranscribeResult{}, apperr.Wrap(apperr.KindEngineFailure, "mediajobs: create job dir", err)
	}

	ext := filepath.Ext(srcPath)
	if ext == "" {
		ext = ".bin"
	}
	sourceCopy := filepath.Join(dir, "source"+ext)
	if err := copyFile(srcPath, sourceCopy); err != nil {
		return TranscribeResult{}, apperr.Wrap(apperr.KindEngineFailure, "mediajobs: save original", err)
	}

	probe, err := mediaio.Probe(ctx, sourceCopy)
	if err != nil {
		return TranscribeResult{}, err
	}

	wavPath := filepath.Join(dir, sourceWAVName)
	if err := mediaio.NormalizeToWAV(ctx, sourceCopy, wavPath, 0, 0); err != nil {
		return TranscribeResult{}, err
	}

	samples, rate, err := audiocodec.Load(wavPath, canonicalSampleRate)
	if err != nil {
		return TranscribeResult{}, apperr.Wrap(apperr.KindEngineFailure, "mediajobs: load normalized audio", err)
	}

	started := time.Now()
	transcript, err := s.STT.Transcribe(ctx, samples, rate, "", allowStub)
	if err != nil {
		return TranscribeResult{}, err
	}
	elapsed := time.Since(started).Seconds()
	transcript.Stats = &types.TranscribeStats{
		ElapsedSeconds: elapsed,
		DurationSecs:   transcript.Duration,
	}
	if elapsed > 0 {
		transcript.Stats.RTF = transcript.Duration / elapsed
	}

	if err := s.saveTranscript(jobID, transcript); err != nil {
		return TranscribeResult{}, err
	}

	meta := Meta{
		JobID:     jobID,
		State:     StateTranscribed,
		SourceExt: ext,
		HasVideo:  probe.HasVideo,
		Duration:  probe.Duration,
		CreatedAt: time.Now(),
	}
	if err := s.saveMeta(meta); err != nil {
		return TranscribeResult{}, err
	}

	return TranscribeResult{
		JobID: jobID,
		Media: MediaInfo{
			AudioURL: audioURL(jobID, sourceWAVName),
			Duration: probe.Duration,
		},
		Transcript:        transcript,
		WhisperXAvailable: s.STT.Available(transcript.Language),
	}, nil
}

// Align runs a full forced-alignment pass over an existing job's audio
// against its persisted transcript.
func (s *Service) Align(ctx context.Context, jobID string) (types.Transcript, error) {
	meta, err := s.loadMeta(jobID)
	if err != nil {
		return types.Transcript{}, err
	}
	transcript, err := s.loadTranscript(jobID)
	if err != nil {
		return types.Transcript{}, err
	}

	samples, rate, err := audiocodec.Load(filepath.Join(s.jobDir(jobID), sourceWAVName), canonicalSampleRate)
	if err != nil {
		return types.Transcript{}, apperr.Wrap(apperr.KindEngineFailure, "mediajobs: load audio", err)
	}

	updated, err := s.STT.AlignFull(ctx, samples, rate, transcript)
	if err != nil {
		return types.Transcript{}, err
	}
	if err := s.saveTranscript(jobID, updated); err != nil {
		return types.Transcript{}, err
	}

	meta.State = StateAligned
	if err := s.saveMeta(meta); err != nil {
		return types.Transcript{}, err
	}
	return updated, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func audioURL(jobID, filename string) string {
	return fmt.Sprintf("/audio/media_edits/%s/%s", jobID, filename)
}
