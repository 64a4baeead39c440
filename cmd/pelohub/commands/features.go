package commands

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/audio/resampler"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/audio/wav"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/cli"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/features"
)

var (
	featuresKind     string
	featuresChannels int
)

type featuresResult struct {
	File       string  `json:"file" yaml:"file"`
	SampleRate int     `json:"sample_rate" yaml:"sample_rate"`
	Duration   string  `json:"duration" yaml:"duration"`
	Kind       string  `json:"kind" yaml:"kind"`
	Shape      []int   `json:"shape" yaml:"shape"`
	Min        float32 `json:"min" yaml:"min"`
	Max        float32 `json:"max" yaml:"max"`
	Mean       float64 `json:"mean" yaml:"mean"`
}

func (r featuresResult) Table() *cli.Table {
	shape := make([]string, len(r.Shape))
	for i, n := range r.Shape {
		shape[i] = fmt.Sprint(n)
	}
	return cli.NewTable("FILE", "KIND", "SHAPE", "MIN", "MAX", "MEAN").AlignRight(3, 4, 5).
		Append(r.File, r.Kind, strings.Join(shape, "x"),
			fmt.Sprintf("%.3f", r.Min), fmt.Sprintf("%.3f", r.Max), fmt.Sprintf("%.3f", r.Mean))
}

var featuresCmd = &cobra.Command{
	Use:   "features <file.wav>",
	Short: "Extract a feature tensor from a WAVE file",
	Long: `Decode a WAVE file, resample it to 16 kHz and extract either the
log-mel spectrogram (stft) or the MFCC matrix (mfcc). Prints the tensor
shape with leading batch dimension and value summary.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := features.ParseKind(featuresKind)
		if err != nil {
			return err
		}
		ex, err := newExtractor()
		if err != nil {
			return err
		}
		w, err := wav.ReadFile(args[0])
		if err != nil {
			return err
		}
		if w, err = resampler.Conform(w, ex.Config().SampleRate); err != nil {
			return err
		}
		t, err := ex.Extract(w.Samples, kind)
		if err != nil {
			return err
		}
		if featuresChannels > 1 {
			if t, err = t.Replicate(featuresChannels); err != nil {
				return err
			}
		}
		b := t.Batch()

		res := featuresResult{
			File:       args[0],
			SampleRate: w.SampleRate,
			Duration:   w.Duration().String(),
			Kind:       kind.String(),
			Shape:      b.Shape[:],
			Min:        float32(math.Inf(1)),
			Max:        float32(math.Inf(-1)),
		}
		for _, v := range b.Data {
			res.Min = min(res.Min, v)
			res.Max = max(res.Max, v)
			res.Mean += float64(v)
		}
		if len(b.Data) > 0 {
			res.Mean /= float64(len(b.Data))
		}
		return output(cmd, res, "")
	},
}

func init() {
	featuresCmd.Flags().StringVar(&featuresKind, "kind", "stft", "feature kind: stft or mfcc")
	featuresCmd.Flags().IntVar(&featuresChannels, "channels", 1, "replicate the tensor across this many channels")
	rootCmd.AddCommand(featuresCmd)
}
