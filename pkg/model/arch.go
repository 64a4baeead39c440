// Package model defines the classifier architectures, the deployable model
// format and the lazily populated model cache.
//
// Every architecture is bound to one input representation:
//
//	cnn_stft        spectrogram, 1 channel   (174, 27, 1)
//	mobilenetv3     MFCC, 3 channels         (40, 174, 3)
//	efficientnetb0  MFCC, 3 channels         (40, 174, 3)
//	nasnetmobile    MFCC, 3 channels         (40, 174, 3)
//
// The binding is resolved once from the architecture tag; unknown tags are
// rejected before any file is touched.
package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/features"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/pipeline"
)

// ErrUnknownArch is returned for architecture tags that are not registered.
var ErrUnknownArch = errors.New("model: unknown architecture")

// ArchID identifies a classifier architecture.
type ArchID string

const (
	// ArchCNNSTFT is the lightweight CNN over log-mel spectrograms.
	ArchCNNSTFT ArchID = "cnn_stft"

	// ArchMobileNetV3 is MobileNetV3-Small over 3-channel MFCC.
	ArchMobileNetV3 ArchID = "mobilenetv3"

	// ArchEfficientNetB0 is EfficientNet-B0 over 3-channel MFCC.
	ArchEfficientNetB0 ArchID = "efficientnetb0"

	// ArchNASNetMobile is NASNet-Mobile over 3-channel MFCC.
	ArchNASNetMobile ArchID = "nasnetmobile"
)

// Architecture describes a registered classifier.
type Architecture struct {
	ID          ArchID
	DisplayName string
	Input       pipeline.Input
}

// Shape returns the input tensor shape under the extractor configuration.
func (a Architecture) Shape(cfg features.Config) [3]int {
	if a.Input.Kind == features.KindSpectrogram {
		return [3]int{cfg.MaxFrames, cfg.SpectrogramMels, a.Input.Channels}
	}
	return [3]int{cfg.NumMFCC, cfg.MaxFrames, a.Input.Channels}
}

var registry = map[ArchID]Architecture{
	ArchCNNSTFT: {
		ID:          ArchCNNSTFT,
		DisplayName: "Lightweight CNN-STFT",
		Input:       pipeline.Input{Kind: features.KindSpectrogram, Channels: 1},
	},
	ArchMobileNetV3: {
		ID:          ArchMobileNetV3,
		DisplayName: "MobileNetV3Small",
		Input:       pipeline.Input{Kind: features.KindMFCC, Channels: 3},
	},
	ArchEfficientNetB0: {
		ID:          ArchEfficientNetB0,
		DisplayName: "EfficientNetB0",
		Input:       pipeline.Input{Kind: features.KindMFCC, Channels: 3},
	},
	ArchNASNetMobile: {
		ID:          ArchNASNetMobile,
		DisplayName: "NASNetMobile",
		Input:       pipeline.Input{Kind: features.KindMFCC, Channels: 3},
	},
}

// Lookup returns the architecture registered under id.
func Lookup(id ArchID) (Architecture, bool) {
	a, ok := registry[id]
	return a, ok
}

// ParseArch resolves a user-supplied name (case-insensitive).
func ParseArch(name string) (Architecture, error) {
	if a, ok := Lookup(ArchID(strings.ToLower(strings.TrimSpace(name)))); ok {
		return a, nil
	}
	return Architecture{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownArch, name, ListArchs())
}

// ListArchs returns the registered architecture IDs in sorted order.
func ListArchs() []ArchID {
	ids := make([]ArchID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
