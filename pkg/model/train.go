package model

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/features"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/pipeline"
)

// TrainOptions configures Train.
type TrainOptions struct {
	Epochs       int     // default 40
	LearningRate float64 // Adam step size, default 1e-4
	L2           float64 // weight decay, default 0

	// Patience stops training after this many epochs without improvement.
	// Zero trains for all epochs.
	Patience int

	// OnEpoch is called after every epoch.
	OnEpoch func(EpochStats)

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

// EpochStats reports one training epoch.
type EpochStats struct {
	Epoch       int     `json:"epoch" yaml:"epoch" msgpack:"epoch"`
	Loss        float64 `json:"loss" yaml:"loss" msgpack:"loss"`
	Accuracy    float64 `json:"accuracy" yaml:"accuracy" msgpack:"accuracy"`
	ValLoss     float64 `json:"val_loss" yaml:"val_loss" msgpack:"val_loss"`
	ValAccuracy float64 `json:"val_accuracy" yaml:"val_accuracy" msgpack:"val_accuracy"`
}

// TrainResult is the outcome of Train.
type TrainResult struct {
	Model     *Linear
	History   []EpochStats
	BestEpoch int

	// Files dropped by the corrupt-file policy in the last epoch.
	TrainSkipped int
	ValSkipped   int
}

// Train fits a Linear head for arch on the training pipeline.
//
// A first pass computes per-feature standardization statistics. Each epoch
// then runs Adam over the training batches and scores the validation
// pipeline, if any. The returned model holds the weights of the epoch with
// the best validation accuracy (best training loss without validation).
func Train(ctx context.Context, arch Architecture, train, val *pipeline.Pipeline, opts TrainOptions) (*TrainResult, error) {
	if opts.Epochs <= 0 {
		opts.Epochs = 40
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 1e-4
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if train.Len() == 0 {
		return nil, pipeline.ErrEmpty
	}
	if train.Input() != arch.Input {
		return nil, fmt.Errorf("model: %s expects %v x%d input, pipeline produces %v x%d",
			arch.ID, arch.Input.Kind, arch.Input.Channels, train.Input().Kind, train.Input().Channels)
	}

	m := NewLinear(arch.ID, train.Shape(), train.Mapping().Names())
	mean, std, err := featureStats(ctx, train)
	if err != nil {
		return nil, err
	}
	m.setStandardization(mean, std)

	opt := newAdam(opts.LearningRate, len(m.weights.RawMatrix().Data), len(m.bias))
	res := &TrainResult{}
	var best *Linear
	bestScore := math.Inf(-1)

	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		var lossSum float64
		var correct, total int
		for b, err := range train.Batches(ctx) {
			if err != nil {
				return nil, err
			}
			loss, hits, err := m.step(b, opt, opts.L2)
			if err != nil {
				return nil, err
			}
			lossSum += loss * float64(b.Len())
			correct += hits
			total += b.Len()
		}
		if total == 0 {
			return nil, pipeline.ErrEmpty
		}
		st := EpochStats{Epoch: epoch, Loss: lossSum / float64(total), Accuracy: float64(correct) / float64(total)}

		score := -st.Loss
		if val != nil && val.Len() > 0 {
			st.ValLoss, st.ValAccuracy, err = m.score(ctx, val)
			if err != nil {
				return nil, err
			}
			score = st.ValAccuracy
		}
		res.History = append(res.History, st)
		if opts.OnEpoch != nil {
			opts.OnEpoch(st)
		}
		log.Info("epoch finished",
			"arch", arch.ID,
			"epoch", epoch,
			"loss", st.Loss,
			"accuracy", st.Accuracy,
			"val_loss", st.ValLoss,
			"val_accuracy", st.ValAccuracy)

		if score > bestScore {
			bestScore = score
			best = m.clone()
			res.BestEpoch = epoch
		}
		if opts.Patience > 0 && epoch-res.BestEpoch >= opts.Patience {
			log.Info("early stopping", "arch", arch.ID, "epoch", epoch, "best_epoch", res.BestEpoch)
			break
		}
	}

	res.Model = best
	res.TrainSkipped = len(train.Skipped())
	if val != nil {
		res.ValSkipped = len(val.Skipped())
	}
	return res, nil
}

// step runs one Adam update on a batch and returns the mean cross-entropy
// before the update and the number of correct predictions.
func (m *Linear) step(b *pipeline.Batch, opt *adam, l2 float64) (loss float64, correct int, err error) {
	x, err := m.design(b.Inputs)
	if err != nil {
		return 0, 0, err
	}
	probs := m.forward(x)
	n, k := probs.Dims()

	// grad = (probs - onehot) / n
	grad := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		p := probs.RawRowView(i)
		y := b.Classes[i]
		loss -= math.Log(math.Max(p[y], 1e-12))
		if argmax64(p) == y {
			correct++
		}
		g := grad.RawRowView(i)
		for j := range g {
			g[j] = p[j] / float64(n)
		}
		g[y] -= 1 / float64(n)
	}
	loss /= float64(n)

	var dw mat.Dense
	dw.Mul(x.T(), grad)
	if l2 > 0 {
		dw.Add(&dw, scaled(l2, m.weights))
	}
	db := make([]float64, k)
	for i := 0; i < n; i++ {
		for j, v := range grad.RawRowView(i) {
			db[j] += v
		}
	}

	m.mu.Lock()
	opt.update(m.weights.RawMatrix().Data, dw.RawMatrix().Data, m.bias, db)
	m.mu.Unlock()
	return loss, correct, nil
}

// score returns mean cross-entropy and accuracy on one pass of p.
func (m *Linear) score(ctx context.Context, p *pipeline.Pipeline) (loss, accuracy float64, err error) {
	var correct, total int
	for b, err := range p.Batches(ctx) {
		if err != nil {
			return 0, 0, err
		}
		probs, err := m.Predict(ctx, b.Inputs)
		if err != nil {
			return 0, 0, err
		}
		for i, pr := range probs {
			y := b.Classes[i]
			loss -= math.Log(math.Max(float64(pr[y]), 1e-12))
			if Argmax(pr) == y {
				correct++
			}
		}
		total += b.Len()
	}
	if total == 0 {
		return 0, 0, nil
	}
	return loss / float64(total), float64(correct) / float64(total), nil
}

// featureStats computes per-feature mean and standard deviation over one
// pass of p.
func featureStats(ctx context.Context, p *pipeline.Pipeline) (mean, std []float64, err error) {
	var sum, sumSq []float64
	var n int
	for b, err := range p.Batches(ctx) {
		if err != nil {
			return nil, nil, err
		}
		for _, t := range b.Inputs {
			if sum == nil {
				sum = make([]float64, len(t.Data))
				sumSq = make([]float64, len(t.Data))
			}
			accumulate(sum, sumSq, t)
			n++
		}
	}
	if n == 0 {
		return nil, nil, pipeline.ErrEmpty
	}
	mean = make([]float64, len(sum))
	std = make([]float64, len(sum))
	for i := range sum {
		mean[i] = sum[i] / float64(n)
		std[i] = math.Sqrt(math.Max(sumSq[i]/float64(n)-mean[i]*mean[i], 0))
	}
	return mean, std, nil
}

func accumulate(sum, sumSq []float64, t features.Tensor) {
	for i, v := range t.Data {
		f := float64(v)
		sum[i] += f
		sumSq[i] += f * f
	}
}

func argmax64(p []float64) int {
	best := 0
	for i, v := range p {
		if v > p[best] {
			best = i
		}
	}
	return best
}

func scaled(f float64, m *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Scale(f, m)
	return &out
}

// adam holds first and second moment estimates for weights and bias.
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	mw, vw, mb, vb        []float64
}

func newAdam(lr float64, nw, nb int) *adam {
	return &adam{
		lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7,
		mw: make([]float64, nw), vw: make([]float64, nw),
		mb: make([]float64, nb), vb: make([]float64, nb),
	}
}

func (a *adam) update(w, dw, b, db []float64) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	apply := func(p, g, m, v []float64) {
		for i := range p {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
			v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]
			p[i] -= a.lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + a.eps)
		}
	}
	apply(w, dw, a.mw, a.vw)
	apply(b, db, a.mb, a.vb)
}
