package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/features"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/pipeline"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("model: closed")

// Loader materializes a model for an architecture.
type Loader interface {
	Load(ctx context.Context, arch Architecture) (Model, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, arch Architecture) (Model, error)

func (f LoaderFunc) Load(ctx context.Context, arch Architecture) (Model, error) {
	return f(ctx, arch)
}

// StoreLoader loads Linear models from artifacts in a Store.
type StoreLoader struct {
	Store    Store
	Features features.Config // used for untrained placeholders

	// AllowUntrained returns a uniform untrained model with the right input
	// shape when no artifact exists, instead of ErrModelNotFound.
	AllowUntrained bool

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

func (l *StoreLoader) Load(ctx context.Context, arch Architecture) (Model, error) {
	log := l.Logger
	if log == nil {
		log = slog.Default()
	}
	a, err := ReadArtifact(ctx, l.Store, arch.ID)
	if errors.Is(err, ErrModelNotFound) && l.AllowUntrained {
		cfg := l.Features
		if cfg.MaxFrames == 0 {
			cfg = features.DefaultConfig()
		}
		log.Warn("model artifact missing, using untrained placeholder", "arch", arch.ID, "path", ArtifactName(arch.ID))
		return NewLinear(arch.ID, arch.Shape(cfg), pipeline.DefaultMapping().Names()), nil
	}
	if err != nil {
		return nil, err
	}
	m, err := a.Linear()
	if err != nil {
		return nil, err
	}
	log.Info("model loaded", "arch", arch.ID, "run_id", a.RunID, "created_at", a.CreatedAt)
	return m, nil
}

// Cache lazily loads models by architecture and keeps them until Close.
//
// At most one model exists per architecture: concurrent first requests for
// the same architecture share a single load. Failed loads are not cached.
type Cache struct {
	loader Loader

	mu     sync.RWMutex
	models map[ArchID]Model
	closed bool
	group  singleflight.Group
}

// NewCache returns an empty cache backed by loader.
func NewCache(loader Loader) *Cache {
	return &Cache{loader: loader, models: make(map[ArchID]Model)}
}

// Get returns the model for name, loading it on first use. Unknown names
// fail with ErrUnknownArch without touching the loader.
func (c *Cache) Get(ctx context.Context, name string) (Model, error) {
	arch, err := ParseArch(name)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	m, ok := c.models[arch.ID]
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		return m, nil
	}

	// The shared load must not be cancelled by the first caller leaving.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(string(arch.ID), func() (any, error) {
		c.mu.RLock()
		m, ok := c.models[arch.ID]
		c.mu.RUnlock()
		if ok {
			return m, nil
		}

		m, err := c.loader.Load(loadCtx, arch)
		if err != nil {
			return nil, fmt.Errorf("model: load %s: %w", arch.ID, err)
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			m.Close()
			return nil, ErrClosed
		}
		c.models[arch.ID] = m
		return m, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Model), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Loaded returns the architectures currently held, sorted.
func (c *Cache) Loaded() []ArchID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]ArchID, 0, len(c.models))
	for id := range c.models {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close releases every model. Further Get calls fail with ErrClosed.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	var errs []error
	for id, m := range c.models {
		if err := m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("model: close %s: %w", id, err))
		}
	}
	c.models = nil
	return errors.Join(errs...)
}
