package audiocodec

import "math"

// RMS returns the root-mean-square energy of samples. An empty slice
// returns zero.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// rmsDB converts an RMS amplitude to decibels relative to full scale (1.0).
// An RMS of zero maps to a large negative sentinel rather than -Inf so
// comparisons against a threshold behave predictably.
func rmsDB(rms float64) float64 {
	if rms <= 0 {
		return -120
	}
	return 20 * math.Log10(rms)
}

// TrimSilence removes leading and trailing silence from samples using an
// energy threshold expressed in decibels below full scale, then restores
// prepad/postpad milliseconds of audio around the detected speech region.
// An empty input, or input with no frame above topDB, is returned unchanged.
func TrimSilence(samples []float32, rate int, topDB float64, prepadMs, postpadMs int) []float32 {
	if len(samples) == 0 || rate <= 0 {
		return samples
	}

	const frameMs = 10
	frameLen := max(1, rate*frameMs/1000)

	first, last := -1, -1
	for start := 0; start < len(samples); start += frameLen {
		end := min(start+frameLen, len(samples))
		if rmsDB(RMS(samples[start:end])) >= -topDB {
			if first == -1 {
				first = start
			}
			last = end
		}
	}

	if first == -1 {
		// Nothing above the threshold; leave input unchanged rather than
		// return an empty buffer.
		return samples
	}

	prepad := rate * prepadMs / 1000
	postpad := rate * postpadMs / 1000
	from := max(0, first-prepad)
	to := min(len(samples), last+postpad)
	out := make([]float32, to-from)
	copy(out, samples[from:to])
	return out
}

// TimeStretchToLength time-stretches samples to exactly targetLen samples
// while preserving pitch. It decomposes the overall stretch ratio into a
// chain of factors each within [0.5, 2.0] — the range over which the
// overlap-add stretcher produces acceptable quality — falling back to a
// plain resample-based stretch (which does not preserve pitch) for
// degenerate inputs too short to window.
//
// The output is always forced to exactly targetLen samples by truncation or
// zero-padding, regardless of which path produced it.
func TimeStretchToLength(samples []float32, rate int, targetLen int) []float32 {
	if targetLen <= 0 {
		return nil
	}
	if len(samples) == 0 {
		return make([]float32, targetLen)
	}

	ratio := float64(targetLen) / float64(len(samples))

	var out []float32
	if len(samples) < minOLAWindowSamples(rate) {
		out = phaseVocoderFallback(samples, ratio)
	} else {
		out = chainedOLAStretch(samples, rate, ratio)
	}

	return forceLength(out, targetLen)
}

// forceLength truncates or zero-pads samples to exactly n elements.
func forceLength(samples []float32, n int) []float32 {
	if len(samples) == n {
		return samples
	}
	out := make([]float32, n)
	copy(out, samples)
	return out
}

// chainedOLAStretch decomposes ratio into a chain of per-stage factors each
// within [0.5, 2.0] and applies overlap-add stretching at each stage in
// sequence, so a single degenerate 10x stretch never has to pass through an
// OLA stage outside its well-behaved range.
func chainedOLAStretch(samples []float32, rate int, ratio float64) []float32 {
	if ratio <= 0 {
		return phaseVocoderFallback(samples, ratio)
	}

	const minFactor, maxFactor = 0.5, 2.0
	stages := stretchChain(ratio, minFactor, maxFactor)

	cur := samples
	for _, factor := range stages {
		cur = olaStretch(cur, rate, factor)
	}
	return cur
}

// stretchChain splits an overall ratio into per-stage factors each within
// [lo, hi] whose product equals ratio.
func stretchChain(ratio, lo, hi float64) []float64 {
	if ratio >= lo && ratio <= hi {
		return []float64{ratio}
	}

	var stages []float64
	remaining := ratio
	step := hi
	if remaining < lo {
		step = lo
	}
	for remaining < lo || remaining > hi {
		stages = append(stages, step)
		remaining /= step
		if len(stages) > 32 {
			// Safety valve for pathological ratios; fold the remainder into
			// the last stage rather than loop indefinitely.
			break
		}
	}
	stages = append(stages, remaining)
	return stages
}

// minOLAWindowSamples is the shortest input the OLA stretcher will accept;
// shorter buffers fall back to a plain resample.
func minOLAWindowSamples(rate int) int {
	if rate <= 0 {
		return 1 << 30
	}
	return rate / 20 // 50ms
}

// olaStretch is a classic overlap-add time-scale modification: the input is
// split into overlapping analysis windows advanced at a fixed analysis hop,
// and re-synthesised at a synthesis hop scaled by factor, preserving pitch
// because no resampling occurs within a window.
func olaStretch(samples []float32, rate int, factor float64) []float32 {
	windowLen := minOLAWindowSamples(rate) * 2 // 100ms window
	if windowLen > len(samples) {
		windowLen = len(samples)
	}
	if windowLen < 2 {
		return phaseVocoderFallback(samples, factor)
	}

	analysisHop := windowLen / 2
	synthesisHop := int(math.Round(float64(analysisHop) * factor))
	if synthesisHop < 1 {
		synthesisHop = 1
	}

	window := hannWindow(windowLen)

	outLen := int(float64(len(samples))*factor) + windowLen
	out := make([]float32, outLen)
	weight := make([]float32, outLen)

	outPos := 0
	for inPos := 0; inPos < len(samples); inPos += analysisHop {
		end := min(inPos+windowLen, len(samples))
		seg := samples[inPos:end]
		for i, s := range seg {
			idx := outPos + i
			if idx >= len(out) {
				break
			}
			w := window[i]
			out[idx] += s * w
			weight[idx] += w
		}
		outPos += synthesisHop
		if inPos+windowLen >= len(samples) {
			break
		}
	}

	finalLen := outPos + windowLen
	if finalLen > len(out) {
		finalLen = len(out)
	}
	result := make([]float32, finalLen)
	for i := 0; i < finalLen; i++ {
		if weight[i] > 1e-6 {
			result[i] = out[i] / weight[i]
		}
	}
	return result
}

func hannWindow(n int) []float32 {
	w := make([]float32, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = float32(0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// phaseVocoderFallback covers degenerate inputs (too short to window, or a
// non-positive ratio) with a simple resample of the time axis. It does not
// preserve pitch, but guarantees a defined, non-panicking result for inputs
// the OLA stretcher cannot handle.
func phaseVocoderFallback(samples []float32, ratio float64) []float32 {
	if len(samples) == 0 {
		return nil
	}
	if ratio <= 0 {
		ratio = 1
	}
	targetLen := int(math.Round(float64(len(samples)) * ratio))
	if targetLen <= 0 {
		return nil
	}
	out := make([]float32, targetLen)
	for i := range out {
		srcPos := float64(i) / ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		out[i] = float32(float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac)
	}
	return out
}

// SoftLimiter applies a tanh-based soft limiter when the input's peak
// magnitude exceeds ceiling, then clamps any remaining excursion to a hard
// peak of 1.0. Samples are returned unmodified (save for the hard clamp) if
// the peak never exceeds ceiling.
func SoftLimiter(samples []float32, ceiling float64) []float32 {
	peak := peakOf(samples)
	if peak <= ceiling {
		return samples
	}

	out := make([]float32, len(samples))
	for i, s := range samples {
		v := float64(s)
		// tanh bounds every sample strictly below the ceiling while passing
		// small values through almost unchanged.
		limited := ceiling * math.Tanh(v/ceiling)
		out[i] = float32(clampFloat(float32(limited), -1, 1))
	}
	return out
}

func peakOf(samples []float32) float64 {
	var peak float64
	for _, s := range samples {
		v := math.Abs(float64(s))
		if v > peak {
			peak = v
		}
	}
	return peak
}

// CrossfadeSplice replaces source[i0:i1] with replacement, stretching
// replacement to exactly i1-i0 samples if its length differs, loudness
// matching it to the RMS of a neighborhood straddling the splice region, and
// applying symmetric equal-power crossfades at both boundaries. If
// duckGain is in (0, 1], the source is attenuated by that factor inside the
// region before the replacement is blended in and smoothly restored to full
// volume over the trailing crossfade. A soft limiter is applied if the
// result's peak exceeds 0.98, followed by a hard clamp to 1.0.
func CrossfadeSplice(source, replacement []float32, rate int, i0, i1 int, fadeMs int, duckGain float64) []float32 {
	i0 = max(0, min(i0, len(source)))
	i1 = max(i0, min(i1, len(source)))
	regionLen := i1 - i0

	if regionLen > 0 && len(replacement) != regionLen {
		replacement = TimeStretchToLength(replacement, rate, regionLen)
	}

	const neighborhoodSecs = 0.5
	nbHalf := int(float64(rate) * neighborhoodSecs / 2)
	nbFrom := max(0, i0-nbHalf)
	nbTo := min(len(source), i1+nbHalf)
	targetRMS := RMS(source[nbFrom:nbTo])
	replacement = loudnessMatch(replacement, targetRMS)

	fadeLen := rate * fadeMs / 1000
	if regionLen > 0 {
		fadeLen = min(fadeLen, regionLen/4)
	}
	fadeLen = max(0, fadeLen)

	out := make([]float32, len(source))
	copy(out, source)

	duck := duckGain > 0 && duckGain <= 1
	for i := 0; i < regionLen; i++ {
		srcIdx := i0 + i
		var srcVal float32
		if duck {
			switch {
			case i < regionLen-fadeLen:
				srcVal = source[srcIdx] * float32(duckGain)
			case fadeLen > 0:
				// smoothly restore to full volume over the trailing crossfade
				t := float64(i-(regionLen-fadeLen)) / float64(fadeLen)
				gain := duckGain + (1-duckGain)*t
				srcVal = source[srcIdx] * float32(gain)
			default:
				srcVal = source[srcIdx]
			}
		} else {
			srcVal = source[srcIdx]
		}

		replVal := float32(0)
		if i < len(replacement) {
			replVal = replacement[i]
		}

		switch {
		case fadeLen > 0 && i < fadeLen:
			t := float64(i) / float64(fadeLen)
			fadeIn, fadeOut := equalPowerGains(t)
			out[srcIdx] = srcVal*float32(fadeOut) + replVal*float32(fadeIn)
		case fadeLen > 0 && i >= regionLen-fadeLen:
			t := float64(i-(regionLen-fadeLen)) / float64(fadeLen)
			fadeIn, fadeOut := equalPowerGains(t)
			out[srcIdx] = replVal*float32(fadeOut) + srcVal*float32(fadeIn)
		default:
			out[srcIdx] = replVal
		}
	}

	if peakOf(out) > 0.98 {
		out = SoftLimiter(out, 0.98)
	}
	for i, s := range out {
		out[i] = clampFloat(s, -1, 1)
	}
	return out
}

// equalPowerGains returns the (in, out) gain pair for an equal-power
// crossfade at position t in [0, 1].
func equalPowerGains(t float64) (gainIn, gainOut float64) {
	t = math.Max(0, math.Min(1, t))
	return math.Sin(t * math.Pi / 2), math.Cos(t * math.Pi / 2)
}

// loudnessMatch scales samples so its RMS equals target. Silent input, or a
// non-positive target, is returned unchanged.
func loudnessMatch(samples []float32, target float64) []float32 {
	if target <= 0 || len(samples) == 0 {
		return samples
	}
	cur := RMS(samples)
	if cur <= 1e-9 {
		return samples
	}
	gain := float32(target / cur)
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s * gain
	}
	return out
}
