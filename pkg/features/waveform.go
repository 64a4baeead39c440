package features

// PadOrTrim returns a copy of wave with exactly n samples: the first n
// samples when wave is longer, wave followed by zeros when shorter.
func PadOrTrim(wave []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, wave)
	return out
}

// NormalizeAmplitude centers x on zero and scales it by 1/(max|x|+eps) in
// place. A silent waveform stays silent.
func NormalizeAmplitude(x []float64, eps float64) {
	if len(x) == 0 {
		return
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	mean := sum / float64(len(x))

	var peak float64
	for i, v := range x {
		v -= mean
		x[i] = v
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}

	scale := 1 / (peak + eps)
	for i := range x {
		x[i] *= scale
	}
}
