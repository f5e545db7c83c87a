package mediaio

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/internal/execrunner"
)

// canonicalSampleRate is the internal WAV format's fixed sample rate.
const canonicalSampleRate = 24000

const transformTimeout = 5 * time.Minute

// NormalizeToWAV canonicalizes src (any container ffmpeg understands) into a
// mono 24 kHz PCM WAV at dst. If end is nonzero, only [start, end] seconds of
// src are extracted.
func NormalizeToWAV(ctx context.Context, src, dst string, start, end float64) error {
	if !execrunner.Lookup("ffmpeg") {
		return apperr.EngineUnavailable("ffmpeg is not installed")
	}

	args := []string{"-y", "-i", src}
	if start > 0 {
		args = append(args, "-ss", formatSeconds(start))
	}
	if end > 0 {
		duration := end - start
		if duration <= 0 {
			return apperr.BadRequest("normalize_to_wav: end must be greater than start")
		}
		args = append(args, "-t", formatSeconds(duration))
	}
	args = append(args,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(canonicalSampleRate),
		"-c:a", "pcm_s16le",
		dst,
	)

	result, err := execrunner.Run(ctx, execrunner.Spec{
		Command: "ffmpeg",
		Args:    args,
		Timeout: transformTimeout,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindEngineUnavailable, "normalize_to_wav failed", err)
	}
	if result.ExitCode != 0 {
		return apperr.New(apperr.KindEngineFailure, "ffmpeg: "+execrunner.TrimmedOutput(result))
	}
	return nil
}

// audioRule describes the codec/bitrate/sample-rate ffmpeg should use for a
// given output container, and the re-encode codec to fall back to when
// stream copy of the source video fails.
type audioRule struct {
	codec         string
	bitrate       string
	sampleRate    int
	videoFallback string
}

func rulesForContainer(container string) audioRule {
	switch strings.ToLower(container) {
	case "webm":
		return audioRule{codec: "libopus", bitrate: "160k", sampleRate: 48000, videoFallback: "libvpx-vp9"}
	case "mp4", "m4v", "mov":
		return audioRule{codec: "aac", bitrate: "192k", sampleRate: 48000, videoFallback: "libx264"}
	default:
		return audioRule{codec: "aac", bitrate: "192k", sampleRate: 48000, videoFallback: "libx264"}
	}
}

// Remux copies the video stream from videoSrc and encodes audioSrc per the
// container's audio-codec rule into dst, built as the named container. On a
// codec-copy failure the video stream is re-encoded with the container's
// fallback codec and the mux retried once.
func Remux(ctx context.Context, videoSrc, audioSrc, dst, container string) error {
	if !execrunner.Lookup("ffmpeg") {
		return apperr.EngineUnavailable("ffmpeg is not installed")
	}

	rule := rulesForContainer(container)

	copyArgs := []string{
		"-y",
		"-i", videoSrc,
		"-i", audioSrc,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", rule.codec,
		"-b:a", rule.bitrate,
		"-ar", strconv.Itoa(rule.sampleRate),
		"-shortest",
		dst,
	}

	result, err := execrunner.Run(ctx, execrunner.Spec{
		Command: "ffmpeg",
		Args:    copyArgs,
		Timeout: transformTimeout,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindEngineUnavailable, "remux failed", err)
	}
	if result.ExitCode == 0 {
		return nil
	}

	// Codec-copy failed; retry with a container-appropriate video re-encode.
	reencodeArgs := []string{
		"-y",
		"-i", videoSrc,
		"-i", audioSrc,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", rule.videoFallback,
		"-c:a", rule.codec,
		"-b:a", rule.bitrate,
		"-ar", strconv.Itoa(rule.sampleRate),
		"-shortest",
		dst,
	}
	retry, err := execrunner.Run(ctx, execrunner.Spec{
		Command: "ffmpeg",
		Args:    reencodeArgs,
		Timeout: transformTimeout,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindEngineUnavailable, "remux re-encode failed", err)
	}
	if retry.ExitCode != 0 {
		return apperr.New(apperr.KindEngineFailure, "ffmpeg: "+execrunner.TrimmedOutput(retry)+"; "+execrunner.TrimmedOutput(result))
	}
	return nil
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}
