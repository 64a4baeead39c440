package model

import (
	"context"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/features"
)

// Linear is a softmax classification head over the flattened input tensor.
// Inputs are standardized with per-feature mean and standard deviation
// before the affine map.
type Linear struct {
	arch    ArchID
	shape   [3]int
	classes []string

	weights *mat.Dense // features x classes
	bias    []float64
	mean    []float64
	std     []float64

	mu     sync.RWMutex
	closed bool
}

// NewLinear returns an untrained head: zero weights and identity
// standardization, so every input maps to the uniform distribution.
func NewLinear(arch ArchID, shape [3]int, classes []string) *Linear {
	d := shape[0] * shape[1] * shape[2]
	m := &Linear{
		arch:    arch,
		shape:   shape,
		classes: append([]string(nil), classes...),
		weights: mat.NewDense(d, len(classes), nil),
		bias:    make([]float64, len(classes)),
		mean:    make([]float64, d),
		std:     make([]float64, d),
	}
	for i := range m.std {
		m.std[i] = 1
	}
	return m
}

func (m *Linear) Arch() ArchID       { return m.arch }
func (m *Linear) InputShape() [3]int { return m.shape }
func (m *Linear) Classes() []string  { return append([]string(nil), m.classes...) }

// Close marks the model closed.
func (m *Linear) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Predict returns one probability vector per input.
func (m *Linear) Predict(ctx context.Context, inputs []features.Tensor) ([][]float32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	x, err := m.design(inputs)
	if err != nil {
		return nil, err
	}
	probs := m.forward(x)

	out := make([][]float32, len(inputs))
	for i := range out {
		row := probs.RawRowView(i)
		out[i] = make([]float32, len(row))
		for j, v := range row {
			out[i][j] = float32(v)
		}
	}
	return out, nil
}

// design builds the standardized (n x features) input matrix.
func (m *Linear) design(inputs []features.Tensor) (*mat.Dense, error) {
	d := len(m.mean)
	data := make([]float64, len(inputs)*d)
	for i, t := range inputs {
		if t.Shape != m.shape {
			return nil, fmt.Errorf("model: %s: input %d has shape %v, want %v", m.arch, i, t.Shape, m.shape)
		}
		row := data[i*d : (i+1)*d]
		for j, v := range t.Data {
			row[j] = (float64(v) - m.mean[j]) / m.std[j]
		}
	}
	return mat.NewDense(len(inputs), d, data), nil
}

// forward returns softmax(x*W + b).
func (m *Linear) forward(x *mat.Dense) *mat.Dense {
	var z mat.Dense
	z.Mul(x, m.weights)
	n, _ := z.Dims()
	for i := 0; i < n; i++ {
		row := z.RawRowView(i)
		for j := range row {
			row[j] += m.bias[j]
		}
		softmax(row)
	}
	return &z
}

// setStandardization installs per-feature statistics. Near-constant
// features get unit scale.
func (m *Linear) setStandardization(mean, std []float64) {
	copy(m.mean, mean)
	for i, s := range std {
		if s < 1e-8 || math.IsNaN(s) {
			s = 1
		}
		m.std[i] = s
	}
}

// clone returns a deep copy of the trainable state.
func (m *Linear) clone() *Linear {
	c := NewLinear(m.arch, m.shape, m.classes)
	c.weights.Copy(m.weights)
	copy(c.bias, m.bias)
	copy(c.mean, m.mean)
	copy(c.std, m.std)
	return c
}

var _ Model = (*Linear)(nil)
