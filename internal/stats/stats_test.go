package stats_test

import (
	"path/filepath"
	"testing"

	"github.com/Astrocyte74/tts-hub/internal/stats"
)

func TestRecord_ComputesRTFAndSummarizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media_stats.json")
	rec := stats.New(path)

	if err := rec.Record("transcribe", 2.0, 10.0); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := rec.Record("transcribe", 5.0, 10.0); err != nil {
		t.Fatalf("Record: %v", err)
	}

	summaries := rec.Summaries()
	summary, ok := summaries["transcribe"]
	if !ok {
		t.Fatal("expected a transcribe summary")
	}
	if summary.Count != 2 {
		t.Errorf("Count = %d, want 2", summary.Count)
	}
	wantAvg := (5.0 + 2.0) / 2
	if summary.AvgRTF != wantAvg {
		t.Errorf("AvgRTF = %v, want %v", summary.AvgRTF, wantAvg)
	}
}

func TestRecord_BoundsHistoryPerKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media_stats.json")
	rec := stats.New(path)

	for i := 0; i < 150; i++ {
		if err := rec.Record("align", 1.0, 1.0); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	summary := rec.Summaries()["align"]
	if summary.Count != 100 {
		t.Errorf("Count = %d, want 100 (bounded)", summary.Count)
	}
}

func TestSummaries_EmptyFileReturnsEmptyMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.json")
	rec := stats.New(path)

	if len(rec.Summaries()) != 0 {
		t.Error("expected an empty summary map for a nonexistent file")
	}
}
