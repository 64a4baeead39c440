package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// hzToMel uses the HTK formula with the natural log: 1127 * ln(1 + f/700).
func hzToMel(hz float64) float64 {
	return 1127.0 * math.Log(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Exp(mel/1127.0) - 1.0)
}

// MelWeights builds a (numSpectrogramBins x numMels) matrix that projects a
// linear magnitude spectrum onto triangular mel bands spanning
// [lowerHz, upperHz].
//
// Band edges are spaced uniformly on the mel scale and the triangles are
// evaluated in mel space. The DC bin row is all zeros and the filters are
// not area normalized.
func MelWeights(numMels, numSpectrogramBins, sampleRate int, lowerHz, upperHz float64) *mat.Dense {
	w := mat.NewDense(numSpectrogramBins, numMels, nil)
	if numSpectrogramBins < 2 {
		return w
	}

	nyquist := float64(sampleRate) / 2
	lowMel := hzToMel(lowerHz)
	highMel := hzToMel(upperHz)
	edges := make([]float64, numMels+2)
	for i := range edges {
		edges[i] = lowMel + (highMel-lowMel)*float64(i)/float64(numMels+1)
	}

	for k := 1; k < numSpectrogramBins; k++ {
		binMel := hzToMel(nyquist * float64(k) / float64(numSpectrogramBins-1))
		for m := 0; m < numMels; m++ {
			lower, center, upper := edges[m], edges[m+1], edges[m+2]
			lowerSlope := (binMel - lower) / (center - lower)
			upperSlope := (upper - binMel) / (upper - center)
			if v := math.Min(lowerSlope, upperSlope); v > 0 {
				w.Set(k, m, v)
			}
		}
	}
	return w
}
