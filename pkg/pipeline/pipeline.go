// Package pipeline assembles labeled recordings into streaming batches of
// feature tensors and one-hot labels.
//
// Each element flows through
//
//	load (read + decode + resample) -> extract -> replicate channels -> one-hot
//
// on a bounded worker pool. Elements keep their input order unless shuffling
// is enabled, in which case a bounded shuffle buffer reorders them. A file
// path always travels with its own label and tensor.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/dataset"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/features"
)

// CorruptPolicy decides what happens when a recording cannot be loaded.
type CorruptPolicy int

const (
	// CorruptAbort stops the stream with an error naming the file.
	CorruptAbort CorruptPolicy = iota
	// CorruptSkip drops the file, logs a warning and records it in
	// Pipeline.Skipped.
	CorruptSkip
)

func (p CorruptPolicy) String() string {
	if p == CorruptSkip {
		return "skip"
	}
	return "abort"
}

// ParseCorruptPolicy parses "abort" or "skip".
func ParseCorruptPolicy(s string) (CorruptPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "abort", "":
		return CorruptAbort, nil
	case "skip":
		return CorruptSkip, nil
	}
	return 0, fmt.Errorf("pipeline: unknown corrupt-file policy %q", s)
}

// Input describes the tensor a model consumes.
type Input struct {
	Kind     features.Kind
	Channels int // 1, or 3 for backbones pretrained on RGB images
}

// Options configures a Pipeline. Zero values select the defaults noted on
// each field.
type Options struct {
	Mapping       ClassMapping  // default DefaultMapping()
	Input         Input         // required Kind; Channels default 1
	BatchSize     int           // default 32
	Shuffle       bool          // shuffle elements, for training
	ShuffleBuffer int           // default 1000
	Seed          uint64        // shuffle seed; each pass over the data reseeds with Seed+pass
	Workers       int           // default GOMAXPROCS
	Prefetch      int           // batches prepared ahead of the consumer, default 2
	OnCorrupt     CorruptPolicy // default CorruptAbort
	ReadTimeout   time.Duration // per-file read bound, default 30s
	Loader        Loader        // default FileLoader at the extractor sample rate
	Extractor     *features.Extractor

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Batch is a group of consecutive stream elements.
type Batch struct {
	Inputs  []features.Tensor
	Labels  [][]float32 // one-hot
	Classes []int       // class index of each element
	Paths   []string
}

// Len returns the number of elements in b.
func (b *Batch) Len() int { return len(b.Inputs) }

// SkippedFile is a recording dropped under CorruptSkip.
type SkippedFile struct {
	Path string
	Err  error
}

// Pipeline streams batches for a fixed list of samples. A Pipeline may be
// iterated any number of times; each pass reloads every file.
type Pipeline struct {
	samples []dataset.Sample
	classes []int
	opts    Options
	log     *slog.Logger
	pass    atomic.Uint64

	mu      sync.Mutex
	skipped []SkippedFile
}

// Build validates samples and options. Every label must be in the mapping,
// so misconfiguration surfaces before any file is read.
func Build(samples []dataset.Sample, opts Options) (*Pipeline, error) {
	if opts.Mapping.Len() == 0 {
		opts.Mapping = DefaultMapping()
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = 32
	}
	if opts.BatchSize < 0 {
		return nil, fmt.Errorf("pipeline: invalid batch size %d", opts.BatchSize)
	}
	if opts.ShuffleBuffer <= 0 {
		opts.ShuffleBuffer = 1000
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Prefetch <= 0 {
		opts.Prefetch = 2
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.Input.Channels == 0 {
		opts.Input.Channels = 1
	}
	if opts.Input.Channels != 1 && opts.Input.Channels != 3 {
		return nil, fmt.Errorf("pipeline: unsupported channel count %d", opts.Input.Channels)
	}
	if opts.Extractor == nil {
		ex, err := features.New(features.DefaultConfig())
		if err != nil {
			return nil, err
		}
		opts.Extractor = ex
	}
	if _, err := opts.Extractor.Shape(opts.Input.Kind); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if opts.Loader == nil {
		opts.Loader = &FileLoader{
			SampleRate:  opts.Extractor.Config().SampleRate,
			ReadTimeout: opts.ReadTimeout,
		}
	}

	classes := make([]int, len(samples))
	for i, s := range samples {
		idx, ok := opts.Mapping.Index(s.Label)
		if !ok {
			return nil, fmt.Errorf("pipeline: %s: label %q not in class mapping %v", s.Path, s.Label, opts.Mapping.Names())
		}
		classes[i] = idx
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		samples: samples,
		classes: classes,
		opts:    opts,
		log:     log,
	}, nil
}

// Len returns the number of samples.
func (p *Pipeline) Len() int { return len(p.samples) }

// Steps returns the number of batches in one pass, assuming no file is
// skipped.
func (p *Pipeline) Steps() int {
	return (len(p.samples) + p.opts.BatchSize - 1) / p.opts.BatchSize
}

// Mapping returns the class mapping.
func (p *Pipeline) Mapping() ClassMapping { return p.opts.Mapping }

// Input returns the tensor description of every element.
func (p *Pipeline) Input() Input { return p.opts.Input }

// Shape returns the shape of every element tensor.
func (p *Pipeline) Shape() [3]int {
	s, _ := p.opts.Extractor.Shape(p.opts.Input.Kind)
	s[2] = p.opts.Input.Channels
	return s
}

// Skipped returns the files dropped during the most recent pass.
func (p *Pipeline) Skipped() []SkippedFile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SkippedFile(nil), p.skipped...)
}

type element struct {
	index  int
	tensor features.Tensor
}

// Batches streams one pass over the samples. The sequence ends after the
// last batch or with a single non-nil error; breaking out of the loop stops
// the workers.
func (p *Pipeline) Batches(ctx context.Context) iter.Seq2[*Batch, error] {
	return func(yield func(*Batch, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		pass := p.pass.Add(1) - 1
		p.mu.Lock()
		p.skipped = nil
		p.mu.Unlock()

		elements, wait := p.produce(ctx)

		var (
			rng     = rand.New(rand.NewPCG(p.opts.Seed, pass))
			buf     []element
			batch   = p.newBatch()
			stopped bool
		)
		add := func(el element) bool {
			p.appendElement(batch, el)
			if batch.Len() < p.opts.BatchSize {
				return true
			}
			full := batch
			batch = p.newBatch()
			return yield(full, nil)
		}

		for el := range elements {
			if p.opts.Shuffle {
				if len(buf) < p.opts.ShuffleBuffer {
					buf = append(buf, el)
					continue
				}
				j := rng.IntN(len(buf))
				el, buf[j] = buf[j], el
			}
			if !add(el) {
				stopped = true
				break
			}
		}
		if stopped {
			cancel()
			_ = wait()
			return
		}
		if err := wait(); err != nil {
			yield(nil, err)
			return
		}

		rng.Shuffle(len(buf), func(i, j int) { buf[i], buf[j] = buf[j], buf[i] })
		for _, el := range buf {
			if !add(el) {
				return
			}
		}
		if batch.Len() > 0 {
			yield(batch, nil)
		}
	}
}

func (p *Pipeline) newBatch() *Batch {
	n := p.opts.BatchSize
	return &Batch{
		Inputs:  make([]features.Tensor, 0, n),
		Labels:  make([][]float32, 0, n),
		Classes: make([]int, 0, n),
		Paths:   make([]string, 0, n),
	}
}

func (p *Pipeline) appendElement(b *Batch, el element) {
	class := p.classes[el.index]
	b.Inputs = append(b.Inputs, el.tensor)
	b.Labels = append(b.Labels, p.opts.Mapping.OneHot(class))
	b.Classes = append(b.Classes, class)
	b.Paths = append(b.Paths, p.samples[el.index].Path)
}

type result struct {
	tensor features.Tensor
	err    error
}

type job struct {
	index int
	out   chan<- result
}

// produce starts the worker pool and returns the elements in input order.
// The returned wait function joins every goroutine and reports the first
// error.
func (p *Pipeline) produce(ctx context.Context) (<-chan element, func() error) {
	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan job)
	pending := make(chan chan result, p.opts.Prefetch*p.opts.BatchSize)
	out := make(chan element)

	// Feeder: reserve an ordered slot, then hand the sample to a worker.
	g.Go(func() error {
		defer close(jobs)
		defer close(pending)
		for i := range p.samples {
			slot := make(chan result, 1)
			select {
			case pending <- slot:
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case jobs <- job{index: i, out: slot}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for range p.opts.Workers {
		g.Go(func() error {
			for j := range jobs {
				t, err := p.transform(ctx, j.index)
				j.out <- result{tensor: t, err: err}
			}
			return nil
		})
	}

	// Collector: emit results in slot order, applying the corrupt policy.
	var index int
	g.Go(func() error {
		defer close(out)
		for slot := range pending {
			var r result
			select {
			case r = <-slot:
			case <-ctx.Done():
				return ctx.Err()
			}
			i := index
			index++

			if r.err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				path := p.samples[i].Path
				if p.opts.OnCorrupt == CorruptAbort {
					return fmt.Errorf("pipeline: %s: %w", path, r.err)
				}
				p.log.Warn("skipping unreadable recording", "path", path, "error", r.err)
				p.mu.Lock()
				p.skipped = append(p.skipped, SkippedFile{Path: path, Err: r.err})
				p.mu.Unlock()
				continue
			}

			select {
			case out <- element{index: i, tensor: r.tensor}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return out, g.Wait
}

// transform loads sample i and turns it into a model input tensor.
func (p *Pipeline) transform(ctx context.Context, i int) (features.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return features.Tensor{}, err
	}
	w, err := p.opts.Loader.Load(ctx, p.samples[i].Path)
	if err != nil {
		return features.Tensor{}, err
	}
	t, err := p.opts.Extractor.Extract(w.Samples, p.opts.Input.Kind)
	if err != nil {
		return features.Tensor{}, err
	}
	if p.opts.Input.Channels > 1 {
		return t.Replicate(p.opts.Input.Channels)
	}
	return t, nil
}

// Collect drains one pass into memory. Intended for small evaluation sets.
func (p *Pipeline) Collect(ctx context.Context) ([]*Batch, error) {
	var out []*Batch
	for b, err := range p.Batches(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, b)
	}
	return out, nil
}

// ErrEmpty is returned by consumers that need at least one element.
var ErrEmpty = errors.New("pipeline: no samples")
