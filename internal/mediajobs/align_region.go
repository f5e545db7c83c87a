package mediajobs

import (
	"context"
	"math"
	"path/filepath"
	"sort"

	"github.com/Astrocyte74/tts-hub/pkg/audiocodec"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

// defaultMarginSeconds widens the requested [start,end] window before
// alignment, giving the aligner enough context to anchor boundary words.
const defaultMarginSeconds = 0.75

// DiffEntry describes one windowed word whose boundary moved between the
// prior transcript and the re-aligned one.
type DiffEntry struct {
	Index     int     `json:"idx"`
	Text      string  `json:"text"`
	Boundary  string  `json:"boundary"` // "start" or "end"
	DeltaMS   float64 `json:"delta_ms"`
	Direction string  `json:"direction"` // "earlier" or "later"
}

// DiffStats summarizes how much a region re-alignment changed word timing,
// comparing word pairs by index within the window and ignoring text
// mismatches for the delta calculation itself.
type DiffStats struct {
	Compared     int         `json:"compared"`
	Changed      int         `json:"changed"`
	TextMismatch int         `json:"text_mismatch"`
	MeanAbsMS    float64     `json:"mean_abs_ms"`
	MedianAbsMS  float64     `json:"median_abs_ms"`
	P95AbsMS     float64     `json:"p95_abs_ms"`
	MaxAbsMS     float64     `json:"max_abs_ms"`
	Top          []DiffEntry `json:"top"`
}

// AlignRegionResult bundles the updated transcript with the diff against
// the prior words covering the same window.
type AlignRegionResult struct {
	Transcript types.Transcript `json:"transcript"`
	Diff       DiffStats        `json:"diff"`
}

// AlignRegion re-aligns [start,end] (widened by margin, or
// defaultMarginSeconds if margin is zero) within jobID's audio and reports
// a diff against the prior words in that window.
func (s *Service) AlignRegion(ctx context.Context, jobID string, start, end, margin float64) (AlignRegionResult, error) {
	meta, err := s.loadMeta(jobID)
	if err != nil {
		return AlignRegionResult{}, err
	}
	prior, err := s.loadTranscript(jobID)
	if err != nil {
		return AlignRegionResult{}, err
	}
	if margin <= 0 {
		margin = defaultMarginSeconds
	}

	priorWindow := wordsInWindow(prior.Words, start, end)

	samples, rate, err := audiocodec.Load(jobWAVPath(s, jobID), canonicalSampleRate)
	if err != nil {
		return AlignRegionResult{}, err
	}

	updated, err := s.STT.AlignRegion(ctx, samples, rate, prior, start, end, margin)
	if err != nil {
		return AlignRegionResult{}, err
	}
	if err := s.saveTranscript(jobID, updated); err != nil {
		return AlignRegionResult{}, err
	}

	meta.State = StateRegionAligned
	if err := s.saveMeta(meta); err != nil {
		return AlignRegionResult{}, err
	}

	newWindow := wordsInWindow(updated.Words, start, end)
	diff := computeDiff(priorWindow, newWindow)

	return AlignRegionResult{Transcript: updated, Diff: diff}, nil
}

func jobWAVPath(s *Service, jobID string) string {
	return filepath.Join(s.jobDir(jobID), sourceWAVName)
}

func wordsInWindow(words []types.Word, start, end float64) []types.Word {
	var out []types.Word
	for _, w := range words {
		if w.Start < end && w.End > start {
			out = append(out, w)
		}
	}
	return out
}

// computeDiff compares prior and updated word-by-word at matching indices
// within the window, reporting boundary deltas in milliseconds. Text
// mismatches at an index are counted but do not exclude that index's
// timing delta from the aggregate statistics.
func computeDiff(prior, updated []types.Word) DiffStats {
	n := len(prior)
	if len(updated) < n {
		n = len(updated)
	}

	var stats DiffStats
	var absDeltas []float64
	var entries []DiffEntry

	for i := 0; i < n; i++ {
		stats.Compared++
		if prior[i].Text != updated[i].Text {
			stats.TextMismatch++
		}

		startDeltaMS := (updated[i].Start - prior[i].Start) * 1000
		endDeltaMS := (updated[i].End - prior[i].End) * 1000

		if math.Abs(startDeltaMS) > 0.01 {
			stats.Changed++
			absDeltas = append(absDeltas, math.Abs(startDeltaMS))
			entries = append(entries, diffEntry(i, updated[i].Text, "start", startDeltaMS))
		}
		if math.Abs(endDeltaMS) > 0.01 {
			absDeltas = append(absDeltas, math.Abs(endDeltaMS))
			entries = append(entries, diffEntry(i, updated[i].Text, "end", endDeltaMS))
		}
	}

	if len(absDeltas) > 0 {
		stats.MeanAbsMS = mean(absDeltas)
		stats.MedianAbsMS = percentile(absDeltas, 0.5)
		stats.P95AbsMS = percentile(absDeltas, 0.95)
		stats.MaxAbsMS = maxOf(absDeltas)
	}

	sort.Slice(entries, func(i, j int) bool {
		return math.Abs(entries[i].DeltaMS) > math.Abs(entries[j].DeltaMS)
	})
	if len(entries) > 10 {
		entries = entries[:10]
	}
	stats.Top = entries

	return stats
}

func diffEntry(idx int, text, boundary string, deltaMS float64) DiffEntry {
	direction := "later"
	if deltaMS < 0 {
		direction = "earlier"
	}
	return DiffEntry{Index: idx, Text: text, Boundary: boundary, DeltaMS: deltaMS, Direction: direction}
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// percentile computes p using nearest-rank on a sorted copy of v.
func percentile(v []float64, p float64) float64 {
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
