package results

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/dataset"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/evaluate"
)

// Key namespaces.
const (
	EvalPrefix  = "eval"
	StatsPrefix = "stats"
)

// ErrAmbiguous is returned when a run ID prefix matches several reports.
var ErrAmbiguous = errors.New("results: ambiguous run id")

// SaveReport stores r under eval/<run-id>.
func SaveReport(ctx context.Context, s Store, r *evaluate.Report) error {
	if r.RunID == "" {
		return errors.New("results: report has no run id")
	}
	return put(ctx, s, Key{EvalPrefix, r.RunID}, r)
}

// LoadReport returns the report whose run ID is id or, failing that, the
// only report whose run ID starts with id.
func LoadReport(ctx context.Context, s Store, id string) (*evaluate.Report, error) {
	var r evaluate.Report
	err := get(ctx, s, Key{EvalPrefix, id}, &r)
	if err == nil {
		return &r, nil
	}
	if !errors.Is(err, ErrNotFound) || id == "" {
		return nil, err
	}

	var match *evaluate.Report
	for e, err := range s.List(ctx, Key{EvalPrefix}) {
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(e.Key[len(e.Key)-1], id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%w: %q", ErrAmbiguous, id)
		}
		match = new(evaluate.Report)
		if err := msgpack.Unmarshal(e.Value, match); err != nil {
			return nil, fmt.Errorf("results: decode %s: %w", e.Key, err)
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: run %q", ErrNotFound, id)
	}
	return match, nil
}

// Reports returns all stored reports, newest first.
func Reports(ctx context.Context, s Store) ([]*evaluate.Report, error) {
	var out []*evaluate.Report
	for e, err := range s.List(ctx, Key{EvalPrefix}) {
		if err != nil {
			return nil, err
		}
		r := new(evaluate.Report)
		if err := msgpack.Unmarshal(e.Value, r); err != nil {
			return nil, fmt.Errorf("results: decode %s: %w", e.Key, err)
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b *evaluate.Report) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// SaveStats stores st under stats/<dataset>.
func SaveStats(ctx context.Context, s Store, st dataset.Stats) error {
	if st.Dataset == "" {
		return errors.New("results: stats have no dataset name")
	}
	return put(ctx, s, Key{StatsPrefix, strings.ToLower(st.Dataset)}, st)
}

// LoadStats returns the statistics stored for a dataset.
func LoadStats(ctx context.Context, s Store, name string) (dataset.Stats, error) {
	var st dataset.Stats
	err := get(ctx, s, Key{StatsPrefix, strings.ToLower(name)}, &st)
	return st, err
}

// AllStats returns the statistics of every stored dataset, ordered by name.
func AllStats(ctx context.Context, s Store) ([]dataset.Stats, error) {
	var out []dataset.Stats
	for e, err := range s.List(ctx, Key{StatsPrefix}) {
		if err != nil {
			return nil, err
		}
		var st dataset.Stats
		if err := msgpack.Unmarshal(e.Value, &st); err != nil {
			return nil, fmt.Errorf("results: decode %s: %w", e.Key, err)
		}
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b dataset.Stats) int { return cmp.Compare(a.Dataset, b.Dataset) })
	return out, nil
}

func put(ctx context.Context, s Store, key Key, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("results: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

func get(ctx context.Context, s Store, key Key, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return err
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("results: decode %s: %w", key, err)
	}
	return nil
}
