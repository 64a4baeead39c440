package evaluate

import (
	"context"
	"math"
	"testing"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/audio/wav"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/dataset"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/features"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/model"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/pipeline"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestConfusionAndPerClass(t *testing.T) {
	yTrue := []int{0, 0, 0, 1, 1, 1, 1}
	yPred := []int{0, 0, 1, 1, 1, 1, 0}
	cm := ConfusionMatrix(yTrue, yPred, 2)
	if cm[0][0] != 2 || cm[0][1] != 1 || cm[1][0] != 1 || cm[1][1] != 3 {
		t.Fatalf("cm = %v", cm)
	}
	if acc := Accuracy(cm); !approx(acc, 5.0/7) {
		t.Errorf("accuracy = %f", acc)
	}

	per := PerClass(cm)
	if !approx(per[0].Precision, 2.0/3) || !approx(per[0].Recall, 2.0/3) || per[0].Support != 3 {
		t.Errorf("class 0 = %+v", per[0])
	}
	if !approx(per[1].Precision, 3.0/4) || !approx(per[1].Recall, 3.0/4) || !approx(per[1].F1, 3.0/4) {
		t.Errorf("class 1 = %+v", per[1])
	}

	macro, weighted := Averages(per)
	if !approx(macro.Recall, (2.0/3+3.0/4)/2) || macro.Support != 7 {
		t.Errorf("macro = %+v", macro)
	}
	if !approx(weighted.Recall, 5.0/7) {
		t.Errorf("weighted recall = %f, want accuracy", weighted.Recall)
	}
}

func TestPerClassWithoutPredictions(t *testing.T) {
	per := PerClass([][]int{{3, 0}, {2, 0}})
	if per[1].Precision != 0 || per[1].Recall != 0 || per[1].F1 != 0 {
		t.Errorf("class 1 = %+v", per[1])
	}
}

func TestROC(t *testing.T) {
	tests := []struct {
		name     string
		positive []bool
		scores   []float64
		auc      float64
	}{
		{"perfect", []bool{false, false, true, true}, []float64{0.1, 0.2, 0.8, 0.9}, 1},
		{"inverted", []bool{true, true, false, false}, []float64{0.1, 0.2, 0.8, 0.9}, 0},
		{"textbook", []bool{false, false, true, true}, []float64{0.1, 0.4, 0.35, 0.8}, 0.75},
		{"all tied", []bool{false, true, false, true}, []float64{0.5, 0.5, 0.5, 0.5}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			curve := ROC(tt.positive, tt.scores)
			if curve[0] != (Point{0, 0}) {
				t.Errorf("first point = %v", curve[0])
			}
			if last := curve[len(curve)-1]; last != (Point{1, 1}) {
				t.Errorf("last point = %v", last)
			}
			if auc := AUC(curve); !approx(auc, tt.auc) {
				t.Errorf("AUC = %f, want %f", auc, tt.auc)
			}
		})
	}
}

func TestPrecisionRecall(t *testing.T) {
	curve := PrecisionRecall([]bool{false, true, true}, []float64{0.2, 0.9, 0.6})
	want := []Point{{0, 1}, {0.5, 1}, {1, 1}, {1, 2.0 / 3}}
	if len(curve) != len(want) {
		t.Fatalf("curve = %v", curve)
	}
	for i := range want {
		if !approx(curve[i].X, want[i].X) || !approx(curve[i].Y, want[i].Y) {
			t.Errorf("point %d = %v, want %v", i, curve[i], want[i])
		}
	}
}

func TestDownsample(t *testing.T) {
	curve := make([]Point, 200)
	for i := range curve {
		curve[i] = Point{X: float64(i)}
	}
	out := Downsample(curve, 50)
	if len(out) != 50 || out[0].X != 0 || out[49].X != 199 {
		t.Fatalf("len %d first %v last %v", len(out), out[0], out[len(out)-1])
	}
	if short := Downsample(curve[:10], 50); len(short) != 10 {
		t.Errorf("short curve resampled to %d", len(short))
	}
}

func TestScore(t *testing.T) {
	probs := [][]float32{{0.9, 0.1}, {0.4, 0.6}, {0.2, 0.8}, {0.7, 0.3}}
	r, err := Score([]string{"control", "dysarthric"}, []int{0, 0, 1, 1}, probs)
	if err != nil {
		t.Fatal(err)
	}
	if r.Accuracy != 0.5 || r.Samples != 4 || r.RunID == "" {
		t.Errorf("report = %+v", r)
	}
	if !approx(r.AUROC, 0.75) {
		t.Errorf("AUROC = %f", r.AUROC)
	}
	if _, ok := r.PerClass["dysarthric"]; !ok {
		t.Error("missing per-class entry")
	}

	if _, err := Score([]string{"a", "b"}, []int{0}, nil); err == nil {
		t.Error("expected length mismatch error")
	}
}

type silentLoader struct{}

func (silentLoader) Load(context.Context, string) (*wav.Waveform, error) {
	return &wav.Waveform{Samples: make([]float64, 800), SampleRate: 16000}, nil
}

func TestRun(t *testing.T) {
	samples := []dataset.Sample{
		{Path: "a.wav", Label: dataset.Control},
		{Path: "b.wav", Label: dataset.Dysarthric},
		{Path: "c.wav", Label: dataset.Dysarthric},
	}
	p, err := pipeline.Build(samples, pipeline.Options{
		Input:     pipeline.Input{Kind: features.KindSpectrogram, Channels: 1},
		BatchSize: 2,
		Loader:    silentLoader{},
	})
	if err != nil {
		t.Fatal(err)
	}
	m := model.NewLinear(model.ArchCNNSTFT, [3]int{174, 27, 1}, []string{"control", "dysarthric"})

	r, err := Run(context.Background(), m, p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Model != "cnn_stft" || r.Samples != 3 || len(r.Predictions) != 3 {
		t.Fatalf("report = %+v", r)
	}
	if r.Predictions[1].Path != "b.wav" || r.Predictions[1].True != "dysarthric" {
		t.Errorf("prediction = %+v", r.Predictions[1])
	}
	// Uniform probabilities resolve ties to the first class.
	if r.Predictions[2].Predicted != "control" || r.Predictions[2].Confidence != 0.5 {
		t.Errorf("prediction = %+v", r.Predictions[2])
	}
}
