package features

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// hannWindow returns a periodic Hann window of length n:
// w[i] = 0.5 - 0.5*cos(2*pi*i/n).
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// NumFrames returns the number of STFT frames for n samples. No padding is
// added at the end, so a waveform shorter than one window has zero frames.
func (e *Extractor) NumFrames(n int) int {
	if n < e.cfg.WindowSize {
		return 0
	}
	return 1 + (n-e.cfg.WindowSize)/e.cfg.Stride
}

// STFT returns the magnitude short-time Fourier transform of x as
// [frames][FFTSize/2+1].
func (e *Extractor) STFT(x []float64) [][]float64 {
	numFrames := e.NumFrames(len(x))
	if numFrames == 0 {
		return nil
	}

	fft := e.fftPlans.Get().(*fourier.FFT)
	defer e.fftPlans.Put(fft)

	nfft := e.cfg.FFTSize
	bins := nfft/2 + 1
	frame := make([]float64, nfft)
	coeffs := make([]complex128, bins)
	out := make([][]float64, numFrames)

	for t := 0; t < numFrames; t++ {
		start := t * e.cfg.Stride
		for i, w := range e.window {
			frame[i] = x[start+i] * w
		}
		// Zero-pad
		for i := len(e.window); i < nfft; i++ {
			frame[i] = 0
		}

		coeffs = fft.Coefficients(coeffs, frame)
		mag := make([]float64, bins)
		for k, c := range coeffs {
			mag[k] = cmplx.Abs(c)
		}
		out[t] = mag
	}
	return out
}
