// Package serving turns uploaded recordings into class predictions for a
// named model.
package serving

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/audio/resampler"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/audio/wav"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/dataset"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/features"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/model"
)

// Prediction is the result for one recording.
type Prediction struct {
	Model         string             `json:"model" yaml:"model"`
	Label         string             `json:"label" yaml:"label"`
	Confidence    float64            `json:"confidence" yaml:"confidence"`
	Probabilities map[string]float64 `json:"probabilities" yaml:"probabilities"`
	NumSamples    int                `json:"num_samples" yaml:"num_samples"`
}

// Predictor serves predictions from cached models.
type Predictor struct {
	Cache     *model.Cache
	Extractor *features.Extractor

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

func (p *Predictor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Features extracts the input tensor of arch from a decoded waveform already
// at the extractor's sample rate. The result has a leading batch dimension
// of 1.
func (p *Predictor) Features(wave []float64, arch model.Architecture) (features.BatchTensor, error) {
	t, err := p.Extractor.Extract(wave, arch.Input.Kind)
	if err != nil {
		return features.BatchTensor{}, err
	}
	if arch.Input.Channels > 1 {
		if t, err = t.Replicate(arch.Input.Channels); err != nil {
			return features.BatchTensor{}, err
		}
	}
	return t.Batch(), nil
}

// PredictWAV classifies a WAVE file held in data with the model called name.
// The name is checked before the audio is decoded.
func (p *Predictor) PredictWAV(ctx context.Context, name string, data []byte) (*Prediction, error) {
	arch, err := model.ParseArch(name)
	if err != nil {
		return nil, err
	}

	w, err := wav.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	numSamples := len(w.Samples)
	if w, err = resampler.Conform(w, p.Extractor.Config().SampleRate); err != nil {
		return nil, fmt.Errorf("serving: resample: %w", err)
	}
	batch, err := p.Features(w.Samples, arch)
	if err != nil {
		return nil, err
	}

	m, err := p.Cache.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if got, want := m.InputShape(), batch.Item(0).Shape; got != want {
		return nil, fmt.Errorf("serving: model %s expects input %v, features are %v", arch.ID, got, want)
	}

	start := time.Now()
	out, err := m.Predict(ctx, []features.Tensor{batch.Item(0)})
	if err != nil {
		return nil, fmt.Errorf("serving: predict: %w", err)
	}
	probs := out[0]
	classes := m.Classes()
	best := model.Argmax(probs)

	pred := &Prediction{
		Model:         string(arch.ID),
		Label:         displayName(classes[best]),
		Confidence:    float64(probs[best]),
		Probabilities: make(map[string]float64, len(classes)),
		NumSamples:    numSamples,
	}
	for i, c := range classes {
		pred.Probabilities[displayName(c)] = float64(probs[i])
	}
	p.logger().Debug("prediction", "model", arch.ID, "label", pred.Label, "confidence", pred.Confidence, "elapsed", time.Since(start))
	return pred, nil
}

func displayName(class string) string {
	if l, err := dataset.ParseLabel(class); err == nil {
		return l.Title()
	}
	return class
}
