package audiocodec

// Resample resamples mono float32 PCM from srcRate to dstRate using linear
// interpolation. If srcRate == dstRate, or either rate is non-positive, the
// input is returned unchanged.
//
// Grounded on the teacher's int16 ResampleMono16 (same linear-interpolation
// scheme), adapted to operate on normalised float32 samples.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(samples) == 0 {
		return samples
	}

	srcLen := len(samples)
	dstLen := int(int64(srcLen) * int64(dstRate) / int64(srcRate))
	if dstLen <= 0 {
		return nil
	}

	out := make([]float32, dstLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range out {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)

		s0 := samples[idx]
		var s1 float32
		if idx+1 < srcLen {
			s1 = samples[idx+1]
		} else {
			s1 = s0
		}
		out[i] = float32(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}
