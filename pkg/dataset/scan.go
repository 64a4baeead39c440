package dataset

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Scanner labels the recordings of a dataset directory.
type Scanner struct {
	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

func (s *Scanner) logger() *slog.Logger {
	if s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Scan labels the recordings under root with the default scanner.
func Scan(ctx context.Context, root string, conv Convention) (*Listing, error) {
	return (&Scanner{}).Scan(ctx, root, conv)
}

// ResolveRoot returns root when it is an existing directory. Otherwise the
// parent directory is searched, in lexical order, for a directory whose name
// equals the base name of root ignoring case, or equals one of the
// convention's alternative names. ok is false when nothing matches.
func (s *Scanner) ResolveRoot(root string, conv Convention) (resolved string, ok bool) {
	log := s.logger()
	if fi, err := os.Stat(root); err == nil && fi.IsDir() {
		return root, true
	}

	parent, base := filepath.Dir(root), filepath.Base(root)
	entries, err := os.ReadDir(parent)
	if err != nil {
		log.Warn("dataset directory not found", "dataset", conv.Name, "path", root)
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if strings.EqualFold(e.Name(), base) || matchesAny(e.Name(), conv.AltNames) {
			resolved = filepath.Join(parent, e.Name())
			log.Info("dataset directory matched", "dataset", conv.Name, "path", resolved)
			return resolved, true
		}
	}
	log.Warn("dataset directory not found", "dataset", conv.Name, "path", root)
	return "", false
}

// Scan resolves root and labels every recording below it.
//
// A missing root or a tree without recordings yields an empty listing and a
// warning, not an error. Only context cancellation is returned as an error.
func (s *Scanner) Scan(ctx context.Context, root string, conv Convention) (*Listing, error) {
	log := s.logger()
	listing := &Listing{Dataset: conv.Name, Strategy: StrategyNone}

	resolved, ok := s.ResolveRoot(root, conv)
	if !ok {
		return listing, nil
	}
	listing.Root = resolved

	control, err := collectAudio(ctx, filepath.Join(resolved, string(Control)))
	if err != nil {
		return nil, err
	}
	dysarthric, err := collectAudio(ctx, filepath.Join(resolved, string(Dysarthric)))
	if err != nil {
		return nil, err
	}

	if len(control) > 0 || len(dysarthric) > 0 {
		listing.Strategy = StrategyExplicit
		listing.Samples = make([]Sample, 0, len(control)+len(dysarthric))
		listing.Samples = appendSamples(listing.Samples, resolved, control, Control)
		listing.Samples = appendSamples(listing.Samples, resolved, dysarthric, Dysarthric)
	} else if conv.SpeakerFallback {
		log.Info("explicit split not found, scanning for speaker codes", "dataset", conv.Name, "root", resolved)
		all, err := collectAudio(ctx, resolved)
		if err != nil {
			return nil, err
		}
		for _, p := range all {
			rel, _ := filepath.Rel(resolved, p)
			label, ok := ClassifyPath(strings.Split(filepath.ToSlash(rel), "/"))
			if !ok {
				continue
			}
			if label == Control {
				control = append(control, p)
			} else {
				dysarthric = append(dysarthric, p)
			}
		}
		if len(control) > 0 || len(dysarthric) > 0 {
			listing.Strategy = StrategySpeaker
			listing.Samples = appendSamples(listing.Samples, resolved, control, Control)
			listing.Samples = appendSamples(listing.Samples, resolved, dysarthric, Dysarthric)
		}
	}

	if len(listing.Samples) == 0 {
		log.Warn("no recordings found", "dataset", conv.Name, "root", resolved)
	} else {
		log.Info("dataset scanned",
			"dataset", conv.Name,
			"strategy", listing.Strategy,
			"control", len(control),
			"dysarthric", len(dysarthric))
	}
	return listing, nil
}

func appendSamples(dst []Sample, root string, paths []string, label Label) []Sample {
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		dst = append(dst, Sample{Path: p, Label: label, Speaker: SpeakerID(rel)})
	}
	return dst
}

// collectAudio walks dir in lexical order and returns every .wav file (any
// case). Hidden entries are skipped. A missing dir yields no files.
func collectAudio(ctx context.Context, dir string) ([]string, error) {
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return nil, nil
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped.
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".wav") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func matchesAny(name string, candidates []string) bool {
	for _, c := range candidates {
		if strings.EqualFold(name, c) {
			return true
		}
	}
	return false
}
