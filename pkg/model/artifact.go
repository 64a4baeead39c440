package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

// ErrModelNotFound is returned when no artifact exists for an architecture.
var ErrModelNotFound = errors.New("model: artifact not found")

const artifactVersion = 1

// Artifact is the serialized form of a trained Linear model.
type Artifact struct {
	Version   int       `msgpack:"version"`
	Arch      ArchID    `msgpack:"arch"`
	Shape     [3]int    `msgpack:"shape"`
	Classes   []string  `msgpack:"classes"`
	Weights   []float32 `msgpack:"weights"` // features x classes, row-major
	Bias      []float32 `msgpack:"bias"`
	Mean      []float32 `msgpack:"mean"`
	Std       []float32 `msgpack:"std"`
	RunID     string    `msgpack:"run_id"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// ArtifactName returns the store path of the best checkpoint of arch.
func ArtifactName(arch ArchID) string {
	return string(arch) + "_best.msgpack"
}

// Artifact captures the model state.
func (m *Linear) Artifact(runID string) *Artifact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Artifact{
		Version:   artifactVersion,
		Arch:      m.arch,
		Shape:     m.shape,
		Classes:   append([]string(nil), m.classes...),
		Weights:   toFloat32(m.weights.RawMatrix().Data),
		Bias:      toFloat32(m.bias),
		Mean:      toFloat32(m.mean),
		Std:       toFloat32(m.std),
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
	}
}

// Linear rebuilds the model from the artifact.
func (a *Artifact) Linear() (*Linear, error) {
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("model: unsupported artifact version %d", a.Version)
	}
	d := a.Shape[0] * a.Shape[1] * a.Shape[2]
	k := len(a.Classes)
	switch {
	case k == 0:
		return nil, fmt.Errorf("model: artifact %s has no classes", a.Arch)
	case len(a.Weights) != d*k || len(a.Bias) != k || len(a.Mean) != d || len(a.Std) != d:
		return nil, fmt.Errorf("model: artifact %s is inconsistent with shape %v and %d classes", a.Arch, a.Shape, k)
	}
	m := NewLinear(a.Arch, a.Shape, a.Classes)
	m.weights = mat.NewDense(d, k, toFloat64(a.Weights))
	m.bias = toFloat64(a.Bias)
	m.mean = toFloat64(a.Mean)
	m.std = toFloat64(a.Std)
	return m, nil
}

// WriteArtifact encodes a into the store under ArtifactName(a.Arch).
func WriteArtifact(ctx context.Context, store Store, a *Artifact) error {
	data, err := msgpack.Marshal(a)
	if err != nil {
		return fmt.Errorf("model: encode artifact: %w", err)
	}
	w, err := store.Write(ctx, ArtifactName(a.Arch))
	if err != nil {
		return fmt.Errorf("model: write artifact: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("model: write artifact: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("model: write artifact: %w", err)
	}
	return nil
}

// ReadArtifact loads the artifact of arch from the store.
func ReadArtifact(ctx context.Context, store Store, arch ArchID) (*Artifact, error) {
	r, err := store.Read(ctx, ArtifactName(arch))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, ArtifactName(arch))
		}
		return nil, fmt.Errorf("model: read artifact: %w", err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("model: read artifact: %w", err)
	}
	var a Artifact
	if err := msgpack.Unmarshal(buf.Bytes(), &a); err != nil {
		return nil, fmt.Errorf("model: decode artifact %s: %w", ArtifactName(arch), err)
	}
	if a.Arch != arch {
		return nil, fmt.Errorf("model: artifact %s holds architecture %q", ArtifactName(arch), a.Arch)
	}
	return &a, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
