package serving_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/audio/wav"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/features"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/model"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/serving"
)

func newPredictor(t *testing.T, loads *atomic.Int32) *serving.Predictor {
	t.Helper()
	ex, err := features.New(features.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	cache := model.NewCache(model.LoaderFunc(func(_ context.Context, arch model.Architecture) (model.Model, error) {
		if loads != nil {
			loads.Add(1)
		}
		return model.NewLinear(arch.ID, arch.Shape(ex.Config()), []string{"control", "dysarthric"}), nil
	}))
	t.Cleanup(func() { cache.Close() })
	return &serving.Predictor{Cache: cache, Extractor: ex}
}

func toneWAV(t *testing.T, n, rate int) []byte {
	t.Helper()
	w := &wav.Waveform{Samples: make([]float64, n), SampleRate: rate, Channels: 1, BitDepth: 16}
	for i := range w.Samples {
		w.Samples[i] = 0.3 * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
	}
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := wav.WriteFile(path, w); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestFeaturesShape(t *testing.T) {
	p := newPredictor(t, nil)
	wave := make([]float64, 16000)

	tests := []struct {
		arch model.ArchID
		want [4]int
	}{
		{model.ArchCNNSTFT, [4]int{1, 174, 27, 1}},
		{model.ArchMobileNetV3, [4]int{1, 40, 174, 3}},
		{model.ArchNASNetMobile, [4]int{1, 40, 174, 3}},
	}
	for _, tt := range tests {
		t.Run(string(tt.arch), func(t *testing.T) {
			arch, ok := model.Lookup(tt.arch)
			if !ok {
				t.Fatalf("%s not registered", tt.arch)
			}
			b, err := p.Features(wave, arch)
			if err != nil {
				t.Fatal(err)
			}
			if b.Shape != tt.want {
				t.Errorf("shape = %v, want %v", b.Shape, tt.want)
			}
			if len(b.Data) != tt.want[0]*tt.want[1]*tt.want[2]*tt.want[3] {
				t.Errorf("len(data) = %d", len(b.Data))
			}
		})
	}
}

func TestPredictWAV(t *testing.T) {
	var loads atomic.Int32
	p := newPredictor(t, &loads)
	data := toneWAV(t, 24000, 16000)
	ctx := context.Background()

	for range 2 {
		pred, err := p.PredictWAV(ctx, "cnn_stft", data)
		if err != nil {
			t.Fatalf("PredictWAV: %v", err)
		}
		if pred.Model != "cnn_stft" || pred.NumSamples != 24000 {
			t.Errorf("prediction = %+v", pred)
		}
		// An untrained head is uniform; ties go to the first class.
		if pred.Label != "Control" || math.Abs(pred.Confidence-0.5) > 1e-6 {
			t.Errorf("label %q confidence %f", pred.Label, pred.Confidence)
		}
		if len(pred.Probabilities) != 2 || math.Abs(pred.Probabilities["Dysarthric"]-0.5) > 1e-6 {
			t.Errorf("probabilities = %v", pred.Probabilities)
		}
	}
	if n := loads.Load(); n != 1 {
		t.Errorf("model loaded %d times, want 1", n)
	}
}

func TestPredictWAVUnknownModel(t *testing.T) {
	var loads atomic.Int32
	p := newPredictor(t, &loads)
	_, err := p.PredictWAV(context.Background(), "resnet50", []byte("not a wav"))
	if !errors.Is(err, model.ErrUnknownArch) {
		t.Fatalf("err = %v, want ErrUnknownArch", err)
	}
	if loads.Load() != 0 {
		t.Error("loader called for unknown model")
	}
}

func TestPredictWAVInvalidAudio(t *testing.T) {
	p := newPredictor(t, nil)
	_, err := p.PredictWAV(context.Background(), "mobilenetv3", []byte("RIFF....garbage"))
	if !errors.Is(err, wav.ErrInvalid) {
		t.Fatalf("err = %v, want wav.ErrInvalid", err)
	}
}
