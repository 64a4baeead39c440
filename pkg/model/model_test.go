package model_test

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/audio/wav"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/dataset"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/features"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/model"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/pipeline"
)

func TestParseArch(t *testing.T) {
	tests := []struct {
		name  string
		kind  features.Kind
		ch    int
		shape [3]int
	}{
		{"cnn_stft", features.KindSpectrogram, 1, [3]int{174, 27, 1}},
		{"MobileNetV3", features.KindMFCC, 3, [3]int{40, 174, 3}},
		{"efficientnetb0", features.KindMFCC, 3, [3]int{40, 174, 3}},
		{"nasnetmobile", features.KindMFCC, 3, [3]int{40, 174, 3}},
	}
	for _, tt := range tests {
		a, err := model.ParseArch(tt.name)
		if err != nil {
			t.Fatalf("ParseArch(%q): %v", tt.name, err)
		}
		if a.Input.Kind != tt.kind || a.Input.Channels != tt.ch {
			t.Errorf("%s: input %v x%d", tt.name, a.Input.Kind, a.Input.Channels)
		}
		if got := a.Shape(features.DefaultConfig()); got != tt.shape {
			t.Errorf("%s: shape %v, want %v", tt.name, got, tt.shape)
		}
	}
	if _, err := model.ParseArch("resnet50"); !errors.Is(err, model.ErrUnknownArch) {
		t.Errorf("err = %v, want ErrUnknownArch", err)
	}
	if ids := model.ListArchs(); len(ids) < 4 || !slices.IsSorted(ids) {
		t.Errorf("ListArchs = %v", ids)
	}
}

func TestLinearUntrainedIsUniform(t *testing.T) {
	m := model.NewLinear(model.ArchCNNSTFT, [3]int{2, 3, 1}, []string{"control", "dysarthric"})
	in := features.Tensor{Shape: [3]int{2, 3, 1}, Data: []float32{1, 2, 3, 4, 5, 6}}

	probs, err := m.Predict(context.Background(), []features.Tensor{in, in})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range probs {
		if p[0] != 0.5 || p[1] != 0.5 {
			t.Errorf("probs = %v, want uniform", p)
		}
	}

	bad := features.Tensor{Shape: [3]int{3, 2, 1}, Data: make([]float32, 6)}
	if _, err := m.Predict(context.Background(), []features.Tensor{bad}); err == nil {
		t.Error("expected shape mismatch error")
	}

	m.Close()
	if _, err := m.Predict(context.Background(), []features.Tensor{in}); !errors.Is(err, model.ErrClosed) {
		t.Errorf("err after Close = %v", err)
	}
}

func TestArtifactThroughLocalStore(t *testing.T) {
	ctx := context.Background()
	store, err := model.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := model.ReadArtifact(ctx, store, model.ArchMobileNetV3); !errors.Is(err, model.ErrModelNotFound) {
		t.Fatalf("missing artifact err = %v", err)
	}

	m := model.NewLinear(model.ArchMobileNetV3, [3]int{1, 2, 3}, []string{"control", "dysarthric"})
	if err := model.WriteArtifact(ctx, store, m.Artifact("run-1")); err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	if ok, _ := store.Exists(ctx, model.ArtifactName(model.ArchMobileNetV3)); !ok {
		t.Fatal("artifact not written")
	}

	a, err := model.ReadArtifact(ctx, store, model.ArchMobileNetV3)
	if err != nil {
		t.Fatalf("ReadArtifact: %v", err)
	}
	if a.RunID != "run-1" || a.Shape != [3]int{1, 2, 3} {
		t.Errorf("artifact = %+v", a)
	}
	loaded, err := a.Linear()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.InputShape() != m.InputShape() || !slices.Equal(loaded.Classes(), m.Classes()) {
		t.Errorf("loaded model differs: %v %v", loaded.InputShape(), loaded.Classes())
	}

	a.Weights = a.Weights[:1]
	if _, err := a.Linear(); err == nil {
		t.Error("expected error for truncated weights")
	}
}

type countingLoader struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (l *countingLoader) Load(ctx context.Context, arch model.Architecture) (model.Model, error) {
	l.calls.Add(1)
	time.Sleep(l.delay)
	if l.err != nil {
		return nil, l.err
	}
	return model.NewLinear(arch.ID, arch.Shape(features.DefaultConfig()), []string{"control", "dysarthric"}), nil
}

func TestCacheLoadsOncePerArch(t *testing.T) {
	loader := &countingLoader{delay: 20 * time.Millisecond}
	cache := model.NewCache(loader)
	defer cache.Close()

	var wg sync.WaitGroup
	got := make([]model.Model, 16)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := cache.Get(context.Background(), "cnn_stft")
			if err != nil {
				t.Error(err)
				return
			}
			got[i] = m
		}()
	}
	wg.Wait()

	if n := loader.calls.Load(); n != 1 {
		t.Fatalf("loader called %d times, want 1", n)
	}
	for i := range got {
		if got[i] != got[0] {
			t.Fatalf("Get %d returned a different instance", i)
		}
	}

	if _, err := cache.Get(context.Background(), "nasnetmobile"); err != nil {
		t.Fatal(err)
	}
	if ids := cache.Loaded(); !slices.Equal(ids, []model.ArchID{model.ArchCNNSTFT, model.ArchNASNetMobile}) {
		t.Errorf("Loaded = %v", ids)
	}
}

func TestCacheRejectsUnknownBeforeLoading(t *testing.T) {
	loader := &countingLoader{}
	cache := model.NewCache(loader)
	if _, err := cache.Get(context.Background(), "vgg16"); !errors.Is(err, model.ErrUnknownArch) {
		t.Fatalf("err = %v", err)
	}
	if loader.calls.Load() != 0 {
		t.Error("loader was called for an unknown architecture")
	}
}

func TestCacheDoesNotKeepFailures(t *testing.T) {
	loader := &countingLoader{err: errors.New("disk on fire")}
	cache := model.NewCache(loader)
	for i := 0; i < 2; i++ {
		if _, err := cache.Get(context.Background(), "cnn_stft"); err == nil {
			t.Fatal("expected error")
		}
	}
	if n := loader.calls.Load(); n != 2 {
		t.Errorf("loader called %d times, want 2", n)
	}
}

func TestCacheClose(t *testing.T) {
	cache := model.NewCache(&countingLoader{})
	m, err := cache.Get(context.Background(), "cnn_stft")
	if err != nil {
		t.Fatal(err)
	}
	if err := cache.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Predict(context.Background(), nil); !errors.Is(err, model.ErrClosed) {
		t.Errorf("model still usable after cache Close: %v", err)
	}
	if _, err := cache.Get(context.Background(), "cnn_stft"); !errors.Is(err, model.ErrClosed) {
		t.Errorf("Get after Close err = %v", err)
	}
}

func TestStoreLoader(t *testing.T) {
	ctx := context.Background()
	store, err := model.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	arch, _ := model.ParseArch("efficientnetb0")

	strict := &model.StoreLoader{Store: store}
	if _, err := strict.Load(ctx, arch); !errors.Is(err, model.ErrModelNotFound) {
		t.Fatalf("err = %v, want ErrModelNotFound", err)
	}

	lenient := &model.StoreLoader{Store: store, AllowUntrained: true}
	m, err := lenient.Load(ctx, arch)
	if err != nil {
		t.Fatal(err)
	}
	if m.InputShape() != [3]int{40, 174, 3} {
		t.Errorf("placeholder shape = %v", m.InputShape())
	}
}

// toneLoader returns a low tone for control recordings and a high tone for
// dysarthric ones.
type toneLoader struct{}

func (toneLoader) Load(_ context.Context, path string) (*wav.Waveform, error) {
	freq := 3000.0
	if len(path) > 0 && path[0] == 'c' {
		freq = 200
	}
	freq += float64(len(path) % 7 * 10)
	x := make([]float64, 16000)
	for i := range x {
		x[i] = 0.4 * math.Sin(2*math.Pi*freq*float64(i)/16000)
	}
	return &wav.Waveform{Samples: x, SampleRate: 16000}, nil
}

func TestTrainSeparatesTones(t *testing.T) {
	var samples []dataset.Sample
	for i := 0; i < 6; i++ {
		samples = append(samples,
			dataset.Sample{Path: "c/" + string(rune('a'+i)) + ".wav", Label: dataset.Control},
			dataset.Sample{Path: "d/" + string(rune('a'+i)) + ".wav", Label: dataset.Dysarthric},
		)
	}
	arch, _ := model.ParseArch("cnn_stft")
	build := func(shuffle bool) *pipeline.Pipeline {
		p, err := pipeline.Build(samples, pipeline.Options{
			Input:     arch.Input,
			BatchSize: 4,
			Shuffle:   shuffle,
			Loader:    toneLoader{},
		})
		if err != nil {
			t.Fatal(err)
		}
		return p
	}

	var epochs int
	res, err := model.Train(context.Background(), arch, build(true), build(false), model.TrainOptions{
		Epochs:       5,
		LearningRate: 1e-2,
		OnEpoch:      func(model.EpochStats) { epochs++ },
	})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if epochs != 5 || len(res.History) != 5 {
		t.Fatalf("epochs = %d, history = %d", epochs, len(res.History))
	}
	best := res.History[res.BestEpoch-1]
	if best.ValAccuracy != 1 {
		t.Errorf("best val accuracy = %f, want 1 (history %+v)", best.ValAccuracy, res.History)
	}
	if res.Model.Arch() != model.ArchCNNSTFT || res.Model.InputShape() != [3]int{174, 27, 1} {
		t.Errorf("model = %s %v", res.Model.Arch(), res.Model.InputShape())
	}
}

// brokenLoader fails for paths under bad/ and behaves like toneLoader
// otherwise.
type brokenLoader struct{ toneLoader }

func (l brokenLoader) Load(ctx context.Context, path string) (*wav.Waveform, error) {
	if strings.HasPrefix(path, "bad/") {
		return nil, wav.ErrInvalid
	}
	return l.toneLoader.Load(ctx, path)
}

func TestTrainReportsSkippedFiles(t *testing.T) {
	samples := []dataset.Sample{
		{Path: "c/a.wav", Label: dataset.Control},
		{Path: "d/a.wav", Label: dataset.Dysarthric},
		{Path: "bad/a.wav", Label: dataset.Control},
	}
	arch, _ := model.ParseArch("cnn_stft")
	build := func(samples []dataset.Sample) *pipeline.Pipeline {
		p, err := pipeline.Build(samples, pipeline.Options{
			Input:     arch.Input,
			BatchSize: 2,
			OnCorrupt: pipeline.CorruptSkip,
			Loader:    brokenLoader{},
		})
		if err != nil {
			t.Fatal(err)
		}
		return p
	}

	res, err := model.Train(context.Background(), arch, build(samples), build(samples[1:]), model.TrainOptions{
		Epochs:       2,
		LearningRate: 1e-2,
	})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if res.TrainSkipped != 1 || res.ValSkipped != 1 {
		t.Errorf("skipped train=%d val=%d, want 1 and 1", res.TrainSkipped, res.ValSkipped)
	}
}

func TestTrainRejectsMismatchedInput(t *testing.T) {
	samples := []dataset.Sample{{Path: "c/a.wav", Label: dataset.Control}}
	p, err := pipeline.Build(samples, pipeline.Options{
		Input:  pipeline.Input{Kind: features.KindMFCC, Channels: 1},
		Loader: toneLoader{},
	})
	if err != nil {
		t.Fatal(err)
	}
	arch, _ := model.ParseArch("mobilenetv3")
	if _, err := model.Train(context.Background(), arch, p, nil, model.TrainOptions{Epochs: 1}); err == nil {
		t.Fatal("expected input mismatch error")
	}
}
