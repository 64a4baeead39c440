package features

import "fmt"

// Tensor is a dense float32 tensor with shape (H, W, C) stored row-major.
type Tensor struct {
	Shape [3]int
	Data  []float32
}

// Len returns the number of elements.
func (t Tensor) Len() int {
	return t.Shape[0] * t.Shape[1] * t.Shape[2]
}

// At returns the element at (i, j, c).
func (t Tensor) At(i, j, c int) float32 {
	return t.Data[(i*t.Shape[1]+j)*t.Shape[2]+c]
}

// Replicate copies the single channel of t into channels identical
// channels, as required by backbones that expect 3-channel input.
func (t Tensor) Replicate(channels int) (Tensor, error) {
	if t.Shape[2] != 1 {
		return Tensor{}, fmt.Errorf("features: replicate needs 1 channel, have %d", t.Shape[2])
	}
	if channels < 1 {
		return Tensor{}, fmt.Errorf("features: invalid channel count %d", channels)
	}
	if channels == 1 {
		return t, nil
	}
	pixels := t.Shape[0] * t.Shape[1]
	out := Tensor{
		Shape: [3]int{t.Shape[0], t.Shape[1], channels},
		Data:  make([]float32, pixels*channels),
	}
	for p := 0; p < pixels; p++ {
		v := t.Data[p]
		for c := 0; c < channels; c++ {
			out.Data[p*channels+c] = v
		}
	}
	return out, nil
}

// BatchTensor is a stack of same-shaped tensors with shape (N, H, W, C).
type BatchTensor struct {
	Shape [4]int
	Data  []float32
}

// Batch returns t with a leading batch dimension of 1.
func (t Tensor) Batch() BatchTensor {
	return BatchTensor{
		Shape: [4]int{1, t.Shape[0], t.Shape[1], t.Shape[2]},
		Data:  t.Data,
	}
}

// Stack concatenates tensors along a new leading batch dimension.
func Stack(ts []Tensor) (BatchTensor, error) {
	if len(ts) == 0 {
		return BatchTensor{}, fmt.Errorf("features: stack of zero tensors")
	}
	shape := ts[0].Shape
	size := ts[0].Len()
	data := make([]float32, 0, size*len(ts))
	for i, t := range ts {
		if t.Shape != shape {
			return BatchTensor{}, fmt.Errorf("features: tensor %d has shape %v, want %v", i, t.Shape, shape)
		}
		data = append(data, t.Data...)
	}
	return BatchTensor{
		Shape: [4]int{len(ts), shape[0], shape[1], shape[2]},
		Data:  data,
	}, nil
}

// Item returns the i-th tensor of the batch. The data is shared.
func (b BatchTensor) Item(i int) Tensor {
	size := b.Shape[1] * b.Shape[2] * b.Shape[3]
	return Tensor{
		Shape: [3]int{b.Shape[1], b.Shape[2], b.Shape[3]},
		Data:  b.Data[i*size : (i+1)*size],
	}
}
