// Package stats records per-operation-kind performance samples (elapsed
// time, audio duration, and the derived real-time factor) to a persisted
// JSON file, bounding each kind's history so the file never grows
// unbounded, and reporting an aggregate summary per kind.
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
)

// maxSamplesPerKind bounds each op kind's rolling history.
const maxSamplesPerKind = 100

// Sample is one recorded operation.
type Sample struct {
	ElapsedSeconds float64   `json:"elapsed"`
	DurationSecs   float64   `json:"duration,omitempty"`
	RTF            float64   `json:"rtf,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// Summary is the aggregate reported per op kind.
type Summary struct {
	Count  int     `json:"count"`
	AvgRTF float64 `json:"avg_rtf"`
}

// document is the on-disk shape: one bounded sample slice per op kind.
type document map[string][]Sample

// Recorder persists samples to Path, guarded by a mutex around each
// read-modify-write so concurrent requests never interleave writes.
type Recorder struct {
	Path string

	mu sync.Mutex
}

// New returns a ready-to-use Recorder backed by path.
func New(path string) *Recorder {
	return &Recorder{Path: path}
}

// Record appends a sample under kind, trimming that kind's history to
// maxSamplesPerKind. A failed write is returned as an error; it is up to
// the caller whether that fails the surrounding operation.
func (r *Recorder) Record(kind string, elapsed, duration float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.read()
	rtf := 0.0
	if elapsed > 0 {
		rtf = duration / elapsed
	}
	sample := Sample{ElapsedSeconds: elapsed, DurationSecs: duration, RTF: rtf, RecordedAt: time.Now()}

	samples := append(doc[kind], sample)
	if len(samples) > maxSamplesPerKind {
		samples = samples[len(samples)-maxSamplesPerKind:]
	}
	doc[kind] = samples

	return r.write(doc)
}

// Summaries computes avg_rtf and count per op kind from the persisted
// samples. An empty or unreadable file reports an empty map rather than an
// error.
func (r *Recorder) Summaries() map[string]Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.read()
	out := make(map[string]Summary, len(doc))
	for kind, samples := range doc {
		if len(samples) == 0 {
			continue
		}
		var sumRTF float64
		rtfCount := 0
		for _, s := range samples {
			if s.RTF > 0 {
				sumRTF += s.RTF
				rtfCount++
			}
		}
		summary := Summary{Count: len(samples)}
		if rtfCount > 0 {
			summary.AvgRTF = sumRTF / float64(rtfCount)
		}
		out[kind] = summary
	}
	return out
}

func (r *Recorder) read() document {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return document{}
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}
	}
	return doc
}

func (r *Recorder) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindEngineFailure, "stats: marshal", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return apperr.Wrap(apperr.KindEngineFailure, "stats: create directory", err)
	}
	tmp := r.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperr.Wrap(apperr.KindEngineFailure, "stats: write", err)
	}
	if err := os.Rename(tmp, r.Path); err != nil {
		return apperr.Wrap(apperr.KindEngineFailure, "stats: commit", err)
	}
	return nil
}
