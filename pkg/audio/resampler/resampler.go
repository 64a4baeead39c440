// Package resampler converts mono waveforms between sample rates using a
// pure Go polyphase resampler (no CGO).
package resampler

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/audio/wav"
)

// Resample converts mono samples from srcRate to dstRate. Equal rates
// return a copy of samples.
func Resample(samples []float64, srcRate, dstRate int) ([]float64, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", srcRate, dstRate)
	}
	if srcRate == dstRate || len(samples) == 0 {
		return append([]float64(nil), samples...), nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: create %d -> %d: %w", srcRate, dstRate, err)
	}
	out, err := r.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("resampler: flush: %w", err)
	}
	out = append(out, tail...)

	// The flushed filter tail can overshoot by a few samples.
	if want := int(math.Round(float64(len(samples)) * float64(dstRate) / float64(srcRate))); len(out) > want {
		out = out[:want]
	}
	return out, nil
}

// Conform returns w at the given sample rate. w is returned unchanged when
// it already has that rate.
func Conform(w *wav.Waveform, rate int) (*wav.Waveform, error) {
	if w.SampleRate == rate {
		return w, nil
	}
	samples, err := Resample(w.Samples, w.SampleRate, rate)
	if err != nil {
		return nil, err
	}
	return &wav.Waveform{
		Samples:    samples,
		SampleRate: rate,
		Channels:   w.Channels,
		BitDepth:   w.BitDepth,
	}, nil
}
