package model

import (
	"context"
	"math"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/features"
)

// Model maps a batch of input tensors to class probabilities.
//
// Implementations must be safe for concurrent Predict calls. Close releases
// resources; the model must not be used afterwards.
type Model interface {
	Arch() ArchID
	InputShape() [3]int
	Classes() []string
	Predict(ctx context.Context, inputs []features.Tensor) ([][]float32, error)
	Close() error
}

// Argmax returns the index of the largest probability.
func Argmax(p []float32) int {
	best := 0
	for i, v := range p {
		if v > p[best] {
			best = i
		}
	}
	return best
}

// softmax converts logits to probabilities in place.
func softmax(z []float64) {
	peak := math.Inf(-1)
	for _, v := range z {
		peak = math.Max(peak, v)
	}
	var sum float64
	for i, v := range z {
		z[i] = math.Exp(v - peak)
		sum += z[i]
	}
	for i := range z {
		z[i] /= sum
	}
}
