// Package features turns speech waveforms into fixed-shape tensors for the
// dysarthria classifiers.
//
// Two feature kinds are produced from the same front-end:
//
//	Spectrogram: normalized waveform -> |STFT| -> 27-bin log-mel,  shape (Time, Mel, 1)
//	MFCC:        raw waveform        -> |STFT| -> 40-bin log-mel -> DCT-II, shape (Coeff, Time, 1)
//
// Default parameters (one canonical configuration for every model):
//
//	SampleRate:      16000
//	WindowSize:      2048
//	Stride:          512
//	FFTSize:         2048
//	SpectrogramMels: 27
//	NumMFCC:         40
//	MaxFrames:       174  (TargetLength = 90624 samples)
//	LowerEdgeHz:     20
//	UpperEdgeHz:     8000
//
// Every waveform is padded or trimmed to TargetLength first, so the output
// shape never depends on the recording duration.
package features

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// ErrUnknownKind is returned for feature kinds other than KindSpectrogram
// and KindMFCC.
var ErrUnknownKind = errors.New("features: unknown feature kind")

// Kind selects the feature variant.
type Kind int

const (
	KindSpectrogram Kind = iota + 1
	KindMFCC
)

// String returns the identifier used in configuration and on the CLI.
func (k Kind) String() string {
	switch k {
	case KindSpectrogram:
		return "stft"
	case KindMFCC:
		return "mfcc"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses "stft" (alias "spectrogram") or "mfcc".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stft", "spectrogram":
		return KindSpectrogram, nil
	case "mfcc":
		return KindMFCC, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Config controls feature extraction parameters.
type Config struct {
	SampleRate      int     // audio sample rate in Hz (default 16000)
	WindowSize      int     // STFT frame length in samples (default 2048)
	Stride          int     // STFT frame step in samples (default 512)
	FFTSize         int     // FFT length (default 2048)
	SpectrogramMels int     // mel bins of the spectrogram variant (default 27)
	NumMFCC         int     // mel bins and kept coefficients of the MFCC variant (default 40)
	MaxFrames       int     // frames per tensor (default 174)
	LowerEdgeHz     float64 // lowest mel band edge (default 20)
	UpperEdgeHz     float64 // highest mel band edge (default SampleRate/2)
	Epsilon         float64 // guard for amplitude division and log (default 1e-6)
}

// DefaultConfig returns the configuration every model in this repository
// was trained with.
func DefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		WindowSize:      2048,
		Stride:          512,
		FFTSize:         2048,
		SpectrogramMels: 27,
		NumMFCC:         40,
		MaxFrames:       174,
		LowerEdgeHz:     20,
		UpperEdgeHz:     8000,
		Epsilon:         1e-6,
	}
}

// TargetLength is the waveform length that yields exactly MaxFrames frames.
func (c Config) TargetLength() int {
	return (c.MaxFrames-1)*c.Stride + c.WindowSize
}

// Validate reports the first inconsistent parameter.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("features: sample rate must be positive, got %d", c.SampleRate)
	case c.WindowSize <= 0 || c.Stride <= 0:
		return fmt.Errorf("features: window %d and stride %d must be positive", c.WindowSize, c.Stride)
	case c.FFTSize < c.WindowSize:
		return fmt.Errorf("features: fft size %d smaller than window %d", c.FFTSize, c.WindowSize)
	case c.SpectrogramMels <= 0 || c.NumMFCC <= 0:
		return fmt.Errorf("features: mel bin counts must be positive")
	case c.MaxFrames <= 0:
		return fmt.Errorf("features: max frames must be positive, got %d", c.MaxFrames)
	case c.LowerEdgeHz < 0 || c.UpperEdgeHz <= c.LowerEdgeHz:
		return fmt.Errorf("features: invalid mel band [%g, %g]", c.LowerEdgeHz, c.UpperEdgeHz)
	case c.UpperEdgeHz > float64(c.SampleRate)/2:
		return fmt.Errorf("features: upper edge %g above nyquist", c.UpperEdgeHz)
	case c.Epsilon <= 0:
		return fmt.Errorf("features: epsilon must be positive")
	}
	return nil
}

// Extractor computes spectrogram and MFCC tensors. It is safe for
// concurrent use.
type Extractor struct {
	cfg      Config
	window   []float64
	specMel  *mat.Dense // (FFTSize/2+1) x SpectrogramMels
	mfccMel  *mat.Dense // (FFTSize/2+1) x NumMFCC
	dct      *mat.Dense // NumMFCC x NumMFCC
	fftPlans sync.Pool
}

// New creates an Extractor for cfg.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bins := cfg.FFTSize/2 + 1
	e := &Extractor{
		cfg:     cfg,
		window:  hannWindow(cfg.WindowSize),
		specMel: MelWeights(cfg.SpectrogramMels, bins, cfg.SampleRate, cfg.LowerEdgeHz, cfg.UpperEdgeHz),
		mfccMel: MelWeights(cfg.NumMFCC, bins, cfg.SampleRate, cfg.LowerEdgeHz, cfg.UpperEdgeHz),
		dct:     dctMatrix(cfg.NumMFCC),
	}
	fftSize := cfg.FFTSize
	e.fftPlans.New = func() any { return fourier.NewFFT(fftSize) }
	return e, nil
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config { return e.cfg }

// Shape returns the tensor shape produced for kind.
func (e *Extractor) Shape(kind Kind) ([3]int, error) {
	switch kind {
	case KindSpectrogram:
		return [3]int{e.cfg.MaxFrames, e.cfg.SpectrogramMels, 1}, nil
	case KindMFCC:
		return [3]int{e.cfg.NumMFCC, e.cfg.MaxFrames, 1}, nil
	}
	return [3]int{}, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
}

// Extract dispatches to Spectrogram or MFCC.
func (e *Extractor) Extract(wave []float64, kind Kind) (Tensor, error) {
	switch kind {
	case KindSpectrogram:
		return e.Spectrogram(wave), nil
	case KindMFCC:
		return e.MFCC(wave), nil
	}
	return Tensor{}, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
}

// Spectrogram returns the log-mel spectrogram of wave with shape
// (MaxFrames, SpectrogramMels, 1). The waveform is padded or trimmed, mean
// centered and peak normalized before the STFT.
func (e *Extractor) Spectrogram(wave []float64) Tensor {
	x := PadOrTrim(wave, e.cfg.TargetLength())
	NormalizeAmplitude(x, e.cfg.Epsilon)

	logMel := e.logMel(x, e.specMel)
	frames, mels := logMel.Dims()

	t := Tensor{Shape: [3]int{frames, mels, 1}, Data: make([]float32, frames*mels)}
	for i := 0; i < frames; i++ {
		row := logMel.RawRowView(i)
		for j, v := range row {
			t.Data[i*mels+j] = float32(v)
		}
	}
	return t
}

// MFCC returns the first NumMFCC cepstral coefficients of wave with shape
// (NumMFCC, MaxFrames, 1). No amplitude normalization is applied.
func (e *Extractor) MFCC(wave []float64) Tensor {
	x := PadOrTrim(wave, e.cfg.TargetLength())

	logMel := e.logMel(x, e.mfccMel)
	var ceps mat.Dense
	ceps.Mul(logMel, e.dct)

	frames, _ := ceps.Dims()
	n := e.cfg.NumMFCC
	t := Tensor{Shape: [3]int{n, frames, 1}, Data: make([]float32, n*frames)}
	for f := 0; f < frames; f++ {
		row := ceps.RawRowView(f)
		for k := 0; k < n; k++ {
			t.Data[k*frames+f] = float32(row[k])
		}
	}
	return t
}

// logMel computes log(|STFT| x weights + eps) as a (frames x mels) matrix.
func (e *Extractor) logMel(x []float64, weights *mat.Dense) *mat.Dense {
	mag := e.STFT(x)
	bins := len(mag[0])
	flat := make([]float64, 0, len(mag)*bins)
	for _, row := range mag {
		flat = append(flat, row...)
	}

	var out mat.Dense
	out.Mul(mat.NewDense(len(mag), bins, flat), weights)
	out.Apply(func(_, _ int, v float64) float64 {
		return math.Log(v + e.cfg.Epsilon)
	}, &out)
	return &out
}
