package evaluate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/model"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/pipeline"
)

// CurvePoints is the number of points kept per curve in a report.
const CurvePoints = 50

// SamplePrediction records the prediction for one file.
type SamplePrediction struct {
	Path       string  `json:"file" yaml:"file" msgpack:"file"`
	True       string  `json:"true" yaml:"true" msgpack:"true"`
	Predicted  string  `json:"pred" yaml:"pred" msgpack:"pred"`
	Confidence float64 `json:"confidence" yaml:"confidence" msgpack:"confidence"`
}

// Report is the evaluation of one model on one dataset partition.
type Report struct {
	RunID     string    `json:"run_id" yaml:"run_id" msgpack:"run_id"`
	Model     string    `json:"model" yaml:"model" msgpack:"model"`
	Dataset   string    `json:"dataset" yaml:"dataset" msgpack:"dataset"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" msgpack:"created_at"`

	Classes         []string                `json:"classes" yaml:"classes" msgpack:"classes"`
	Accuracy        float64                 `json:"accuracy" yaml:"accuracy" msgpack:"accuracy"`
	PerClass        map[string]ClassMetrics `json:"per_class" yaml:"per_class" msgpack:"per_class"`
	MacroAvg        ClassMetrics            `json:"macro_avg" yaml:"macro_avg" msgpack:"macro_avg"`
	WeightedAvg     ClassMetrics            `json:"weighted_avg" yaml:"weighted_avg" msgpack:"weighted_avg"`
	ConfusionMatrix [][]int                 `json:"confusion_matrix" yaml:"confusion_matrix" msgpack:"confusion_matrix"`

	// Binary tasks only; the positive class is the last class.
	ROC   []Point `json:"roc,omitempty" yaml:"roc,omitempty" msgpack:"roc,omitempty"`
	AUROC float64 `json:"auc,omitempty" yaml:"auc,omitempty" msgpack:"auc,omitempty"`
	PR    []Point `json:"pr,omitempty" yaml:"pr,omitempty" msgpack:"pr,omitempty"`

	Samples         int                `json:"samples" yaml:"samples" msgpack:"samples"`
	Skipped         int                `json:"skipped" yaml:"skipped" msgpack:"skipped"`
	InferenceMillis float64            `json:"inference_ms_per_sample" yaml:"inference_ms_per_sample" msgpack:"inference_ms"`
	Predictions     []SamplePrediction `json:"predictions,omitempty" yaml:"predictions,omitempty" msgpack:"predictions,omitempty"`

	// Set when the report follows a training run.
	History   []model.EpochStats `json:"history,omitempty" yaml:"history,omitempty" msgpack:"history,omitempty"`
	BestEpoch int                `json:"best_epoch,omitempty" yaml:"best_epoch,omitempty" msgpack:"best_epoch,omitempty"`
}

// Score builds a report from true class indices and predicted probability
// vectors.
func Score(classes []string, yTrue []int, probs [][]float32) (*Report, error) {
	if len(yTrue) != len(probs) {
		return nil, fmt.Errorf("evaluate: %d labels for %d predictions", len(yTrue), len(probs))
	}
	k := len(classes)
	yPred := make([]int, len(probs))
	for i, p := range probs {
		if len(p) != k {
			return nil, fmt.Errorf("evaluate: prediction %d has %d classes, want %d", i, len(p), k)
		}
		if yTrue[i] < 0 || yTrue[i] >= k {
			return nil, fmt.Errorf("evaluate: label %d out of range", yTrue[i])
		}
		yPred[i] = model.Argmax(p)
	}

	cm := ConfusionMatrix(yTrue, yPred, k)
	per := PerClass(cm)
	r := &Report{
		RunID:           uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		Classes:         append([]string(nil), classes...),
		Accuracy:        Accuracy(cm),
		PerClass:        make(map[string]ClassMetrics, k),
		ConfusionMatrix: cm,
		Samples:         len(yTrue),
	}
	for i, c := range classes {
		r.PerClass[c] = per[i]
	}
	r.MacroAvg, r.WeightedAvg = Averages(per)

	if k == 2 && len(yTrue) > 0 {
		positive := make([]bool, len(yTrue))
		scores := make([]float64, len(yTrue))
		for i := range yTrue {
			positive[i] = yTrue[i] == 1
			scores[i] = float64(probs[i][1])
		}
		roc := ROC(positive, scores)
		r.AUROC = AUC(roc)
		r.ROC = Downsample(roc, CurvePoints)
		r.PR = Downsample(PrecisionRecall(positive, scores), CurvePoints)
	}
	return r, nil
}

// Run predicts every element of p with m and scores the result. Per-file
// predictions are kept in the report.
func Run(ctx context.Context, m model.Model, p *pipeline.Pipeline) (*Report, error) {
	classes := p.Mapping().Names()
	var (
		yTrue   []int
		probs   [][]float32
		preds   []SamplePrediction
		elapsed time.Duration
	)
	for b, err := range p.Batches(ctx) {
		if err != nil {
			return nil, err
		}
		start := time.Now()
		out, err := m.Predict(ctx, b.Inputs)
		if err != nil {
			return nil, fmt.Errorf("evaluate: predict: %w", err)
		}
		elapsed += time.Since(start)

		for i, pr := range out {
			best := model.Argmax(pr)
			yTrue = append(yTrue, b.Classes[i])
			probs = append(probs, pr)
			preds = append(preds, SamplePrediction{
				Path:       b.Paths[i],
				True:       classes[b.Classes[i]],
				Predicted:  classes[best],
				Confidence: float64(pr[best]),
			})
		}
	}
	if len(yTrue) == 0 {
		return nil, pipeline.ErrEmpty
	}

	r, err := Score(classes, yTrue, probs)
	if err != nil {
		return nil, err
	}
	r.Model = string(m.Arch())
	r.Predictions = preds
	r.Skipped = len(p.Skipped())
	r.InferenceMillis = float64(elapsed.Microseconds()) / 1000 / float64(len(yTrue))
	return r, nil
}
