// Package mediaio wraps ffprobe/ffmpeg subprocess invocations for the media
// edit pipeline: container probing, canonicalization to the internal WAV
// format, and remuxing a replacement audio track back into the source
// container.
package mediaio

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/execrunner"
)

// AudioInfo describes the primary audio stream of a probed file.
type AudioInfo struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// VideoInfo describes the primary video stream of a probed file.
type VideoInfo struct {
	Codec  string  `json:"codec"`
	Width  int     `json:"w"`
	Height int     `json:"h"`
	FPS    float64 `json:"fps"`
}

// ProbeResult is the normalized shape returned by [Probe].
type ProbeResult struct {
	Duration  float64    `json:"duration"`
	Size      int64      `json:"size"`
	Format    string     `json:"format"`
	HasVideo  bool       `json:"has_video"`
	Audio     *AudioInfo `json:"audio,omitempty"`
	Video     *VideoInfo `json:"video,omitempty"`
}

const probeTimeout = 20 * time.Second

// Probe runs ffprobe on path and returns a normalized summary of its
// container, audio, and video streams.
func Probe(ctx context.Context, path string) (ProbeResult, error) {
	if !execrunner.Lookup("ffprobe") {
		return ProbeResult{}, apperr.EngineUnavailable("ffprobe is not installed")
	}

	result, err := execrunner.Run(ctx, execrunner.Spec{
		Command: "ffprobe",
		Args: []string{
			"-v", "error",
			"-print_format", "json",
			"-show_format", "-show_streams",
			path,
		},
		Timeout: probeTimeout,
	})
	if err != nil {
		return ProbeResult{}, apperr.Wrap(apperr.KindEngineUnavailable, "probe failed", err)
	}
	if result.ExitCode != 0 {
		return ProbeResult{}, apperr.New(apperr.KindEngineFailure, "ffprobe: "+execrunner.TrimmedOutput(result))
	}

	if !json.Valid([]byte(result.Stdout)) {
		return ProbeResult{}, fmt.Errorf("mediaio: ffprobe produced invalid JSON for %q", path)
	}

	root := gjson.Parse(result.Stdout)
	out := ProbeResult{
		Duration: root.Get("format.duration").Float(),
		Size:     root.Get("format.size").Int(),
		Format:   root.Get("format.format_name").String(),
	}

	for _, stream := range root.Get("streams").Array() {
		switch stream.Get("codec_type").String() {
		case "audio":
			if out.Audio == nil {
				out.Audio = &AudioInfo{
					Codec:      stream.Get("codec_name").String(),
					SampleRate: int(stream.Get("sample_rate").Int()),
					Channels:   int(stream.Get("channels").Int()),
				}
			}
		case "video":
			out.HasVideo = true
			if out.Video == nil {
				out.Video = &VideoInfo{
					Codec:  stream.Get("codec_name").String(),
					Width:  int(stream.Get("width").Int()),
					Height: int(stream.Get("height").Int()),
					FPS:    parseFrameRate(stream.Get("r_frame_rate").String()),
				}
			}
		}
	}

	return out, nil
}

// Duration is a fast path returning only a file's duration in seconds.
func Duration(ctx context.Context, path string) (float64, error) {
	if !execrunner.Lookup("ffprobe") {
		return 0, apperr.EngineUnavailable("ffprobe is not installed")
	}
	result, err := execrunner.Run(ctx, execrunner.Spec{
		Command: "ffprobe",
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		},
		Timeout: probeTimeout,
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindEngineUnavailable, "duration probe failed", err)
	}
	if result.ExitCode != 0 {
		return 0, apperr.New(apperr.KindEngineFailure, "ffprobe: "+execrunner.TrimmedOutput(result))
	}
	d, err := strconv.ParseFloat(trimmed(result.Stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("mediaio: parse duration %q: %w", path, err)
	}
	return d, nil
}

// HasVideoStream reports whether path contains at least one video stream.
func HasVideoStream(ctx context.Context, path string) (bool, error) {
	info, err := Probe(ctx, path)
	if err != nil {
		return false, err
	}
	return info.HasVideo, nil
}

func parseFrameRate(s string) float64 {
	// ffprobe reports r_frame_rate as "num/den".
	var num, den float64
	if _, err := fmt.Sscanf(s, "%f/%f", &num, &den); err != nil || den == 0 {
		return 0
	}
	return num / den
}

func trimmed(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}
