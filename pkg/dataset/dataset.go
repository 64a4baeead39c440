// Package dataset discovers labeled speech recordings on disk.
//
// Two directory conventions are supported:
//
//	root/control/**/*.wav       root/dysarthric/**/*.wav     (explicit split)
//	root/FC01/.../*.wav         root/M03/.../*.wav           (speaker-encoded)
//
// The speaker-encoded convention is only consulted for datasets that opt in
// (TORGO) and only when the explicit split yields no files. Everything here
// is read-only: scanning never modifies the tree.
package dataset

import (
	"fmt"
	"strings"
)

// Label is a diagnostic class.
type Label string

const (
	Control    Label = "control"
	Dysarthric Label = "dysarthric"
)

// Labels lists every label in class-index order.
var Labels = []Label{Control, Dysarthric}

// ParseLabel accepts "control" or "dysarthric" in any case.
func ParseLabel(s string) (Label, error) {
	switch l := Label(strings.ToLower(strings.TrimSpace(s))); l {
	case Control, Dysarthric:
		return l, nil
	}
	return "", fmt.Errorf("dataset: unknown label %q", s)
}

// Title returns the display form of l ("Control", "Dysarthric").
func (l Label) Title() string {
	if l == "" {
		return ""
	}
	return strings.ToUpper(string(l[:1])) + string(l[1:])
}

// UnknownSpeaker is the speaker ID of recordings whose path carries no
// speaker code.
const UnknownSpeaker = "unknown"

// Sample is one labeled recording.
type Sample struct {
	Path    string `json:"path" yaml:"path" msgpack:"path"`
	Label   Label  `json:"label" yaml:"label" msgpack:"label"`
	Speaker string `json:"speaker" yaml:"speaker" msgpack:"speaker"`
}

// Convention describes how a dataset lays out its files.
type Convention struct {
	// Name is the dataset name used in logs and reports.
	Name string
	// AltNames are directory names accepted in place of the requested root
	// when the root itself does not exist.
	AltNames []string
	// SpeakerFallback enables labeling by speaker code when the explicit
	// control/dysarthric split is empty.
	SpeakerFallback bool
}

var (
	UASpeech = Convention{Name: "UASpeech"}
	TORGO    = Convention{Name: "TORGO", AltNames: []string{"TORGO_smalldataset"}, SpeakerFallback: true}
)

// LookupConvention returns the built-in convention for name, or a plain
// convention without fallbacks for any other dataset.
func LookupConvention(name string) Convention {
	for _, c := range []Convention{UASpeech, TORGO} {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return Convention{Name: name}
}

// Strategy records which labeling strategy produced a Listing.
type Strategy string

const (
	StrategyNone     Strategy = "none"
	StrategyExplicit Strategy = "explicit"
	StrategySpeaker  Strategy = "speaker"
)

// Listing is the result of a scan: control samples first, then dysarthric.
type Listing struct {
	Dataset  string
	Root     string // resolved root, empty when not found
	Strategy Strategy
	Samples  []Sample
}

// Paths returns the sample paths in listing order.
func (l *Listing) Paths() []string {
	out := make([]string, len(l.Samples))
	for i, s := range l.Samples {
		out[i] = s.Path
	}
	return out
}

// Labels returns the sample labels in listing order.
func (l *Listing) Labels() []Label {
	out := make([]Label, len(l.Samples))
	for i, s := range l.Samples {
		out[i] = s.Label
	}
	return out
}

// Speakers returns the sample speaker IDs in listing order.
func (l *Listing) Speakers() []string {
	out := make([]string, len(l.Samples))
	for i, s := range l.Samples {
		out[i] = s.Speaker
	}
	return out
}

// Count returns the number of samples with label.
func (l *Listing) Count(label Label) int {
	n := 0
	for _, s := range l.Samples {
		if s.Label == label {
			n++
		}
	}
	return n
}
