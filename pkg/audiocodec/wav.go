// Package audiocodec provides pure-audio primitives used by the media edit
// pipeline: PCM load/save, loudness measurement, silence trimming,
// pitch-preserving time stretching, and crossfade splicing.
//
// All functions operate on mono float32 sample slices normalised to
// [-1.0, 1.0] and are free of side effects beyond the explicit path
// parameters passed to Load/Save. None of the transforms raise on
// degenerate input — empty or short buffers are handled by returning
// zero-length or unchanged output (or, where a length is requested,
// zero-filled output of that length), matching the "no-op on empty" contract
// the pipeline callers rely on.
package audiocodec

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

const (
	wavHeaderSize = 44
	bitsPerSample = 16
)

// Load reads a WAV file and returns its samples down-mixed to mono float32
// together with its sample rate. If targetRate is non-zero and differs
// from the file's native rate, the result is resampled and targetRate is
// returned; otherwise the native rate is returned.
func Load(path string, targetRate int) ([]float32, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("audiocodec: read %q: %w", path, err)
	}
	samples, rate, channels, err := decodeWAV(data)
	if err != nil {
		return nil, 0, fmt.Errorf("audiocodec: decode %q: %w", path, err)
	}
	mono := downmix(samples, channels)
	if targetRate > 0 && targetRate != rate {
		mono = Resample(mono, rate, targetRate)
		rate = targetRate
	}
	return mono, rate, nil
}

// Save writes mono float32 samples as a 16-bit PCM WAV file at the given
// sample rate.
func Save(path string, samples []float32, rate int) error {
	buf := encodeWAV(samples, rate)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("audiocodec: write %q: %w", path, err)
	}
	return nil
}

// Encode wraps mono float32 samples into an in-memory 16-bit PCM WAV
// container, for callers (the HTTP whisper client's multipart upload) that
// need the bytes without writing a temp file.
func Encode(samples []float32, rate int) ([]byte, error) {
	return encodeWAV(samples, rate), nil
}

// decodeWAV parses a RIFF/WAVE container holding 16-bit PCM and returns
// interleaved float32 samples, the sample rate, and the channel count.
func decodeWAV(data []byte) ([]float32, int, int, error) {
	if len(data) < wavHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var (
		channels   int
		sampleRate int
		bits       int
		dataStart  = -1
		dataLen    int
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		switch id {
		case "fmt ":
			if body+16 > len(data) {
				return nil, 0, 0, fmt.Errorf("truncated fmt chunk")
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			dataStart = body
			dataLen = size
		}
		pos = body + size
		if size%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if dataStart < 0 || channels <= 0 || bits != bitsPerSample {
		return nil, 0, 0, fmt.Errorf("unsupported or missing data/fmt chunk (bits=%d)", bits)
	}
	if dataStart+dataLen > len(data) {
		dataLen = len(data) - dataStart
	}

	raw := data[dataStart : dataStart+dataLen]
	n := len(raw) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
		samples[i] = float32(v) / 32768.0
	}
	return samples, sampleRate, channels, nil
}

// downmix averages interleaved multi-channel samples down to mono. A
// channels value of 1 returns the input unchanged.
func downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// encodeWAV wraps mono float32 samples into a 16-bit PCM WAV container.
func encodeWAV(samples []float32, rate int) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, wavHeaderSize+dataSize)

	byteRate := rate * 1 * bitsPerSample / 8
	blockAlign := 1 * bitsPerSample / 8

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(rate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		clamped := clampFloat(s, -1, 1)
		v := int16(math.Round(float64(clamped) * 32767))
		binary.LittleEndian.PutUint16(buf[wavHeaderSize+i*2:wavHeaderSize+i*2+2], uint16(v))
	}
	return buf
}

func clampFloat(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
