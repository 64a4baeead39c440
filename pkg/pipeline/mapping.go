package pipeline

import (
	"fmt"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/dataset"
)

// ClassMapping assigns every label a class index. Index order is the order
// the labels were given in.
type ClassMapping struct {
	labels []dataset.Label
	index  map[dataset.Label]int
}

// NewClassMapping returns a mapping with labels[i] at index i.
func NewClassMapping(labels ...dataset.Label) (ClassMapping, error) {
	if len(labels) == 0 {
		return ClassMapping{}, fmt.Errorf("pipeline: empty class mapping")
	}
	m := ClassMapping{labels: labels, index: make(map[dataset.Label]int, len(labels))}
	for i, l := range labels {
		if _, dup := m.index[l]; dup {
			return ClassMapping{}, fmt.Errorf("pipeline: duplicate label %q in class mapping", l)
		}
		m.index[l] = i
	}
	return m, nil
}

// DefaultMapping maps control to 0 and dysarthric to 1.
func DefaultMapping() ClassMapping {
	m, _ := NewClassMapping(dataset.Labels...)
	return m
}

// Index returns the class index of l.
func (m ClassMapping) Index(l dataset.Label) (int, bool) {
	i, ok := m.index[l]
	return i, ok
}

// Len returns the number of classes.
func (m ClassMapping) Len() int { return len(m.labels) }

// Label returns the label at class index i.
func (m ClassMapping) Label(i int) dataset.Label { return m.labels[i] }

// Names returns the label names in index order.
func (m ClassMapping) Names() []string {
	out := make([]string, len(m.labels))
	for i, l := range m.labels {
		out[i] = string(l)
	}
	return out
}

// OneHot returns the one-hot encoding of class index i.
func (m ClassMapping) OneHot(i int) []float32 {
	v := make([]float32, len(m.labels))
	v[i] = 1
	return v
}
