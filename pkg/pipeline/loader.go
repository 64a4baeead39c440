package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/audio/resampler"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/audio/wav"
)

// Loader reads one recording as a mono waveform at the extractor's sample
// rate. Implementations must be safe for concurrent use.
type Loader interface {
	Load(ctx context.Context, path string) (*wav.Waveform, error)
}

// FileLoader reads WAVE files from the local file system.
type FileLoader struct {
	SampleRate  int           // target rate; recordings at other rates are resampled
	ReadTimeout time.Duration // per-file read bound; zero means no bound
}

// Load reads, decodes and resamples the file at path.
func (l *FileLoader) Load(ctx context.Context, path string) (*wav.Waveform, error) {
	data, err := readFile(ctx, path, l.ReadTimeout)
	if err != nil {
		return nil, err
	}
	w, err := wav.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if l.SampleRate > 0 {
		if w, err = resampler.Conform(w, l.SampleRate); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return w, nil
}

// readFile reads path, giving up when ctx ends or timeout elapses. A read
// that is abandoned finishes in the background.
func readFile(ctx context.Context, path string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := os.ReadFile(path)
		ch <- result{data, err}
	}()

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("read %s: %w", path, ctx.Err())
	}
}
