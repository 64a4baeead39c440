package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/cli"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/model"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/serving"
)

var predictArch string

type predictionView struct {
	File string `json:"file" yaml:"file"`
	*serving.Prediction
}

func (v predictionView) Table() *cli.Table {
	t := cli.NewTable("FILE", "MODEL", "LABEL", "CONFIDENCE", "SAMPLES").AlignRight(3, 4)
	t.Append(v.File, v.Model, v.Label, fmt.Sprintf("%.2f%%", 100*v.Confidence), fmt.Sprint(v.NumSamples))
	return t
}

// MarshalYAML flattens the prediction next to the file name.
func (v predictionView) MarshalYAML() (any, error) {
	m := map[string]any{
		"file":          v.File,
		"model":         v.Model,
		"label":         v.Label,
		"confidence":    v.Confidence,
		"probabilities": v.Probabilities,
		"num_samples":   v.NumSamples,
	}
	return m, nil
}

var predictCmd = &cobra.Command{
	Use:   "predict <file.wav>...",
	Short: "Classify WAVE files",
	Long: `Classify one or more WAVE recordings as control or dysarthric speech.

The model artifact <arch>_best.msgpack is loaded from the model store once
and reused for every file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		arch, err := model.ParseArch(predictArch)
		if err != nil {
			return err
		}
		for _, path := range args {
			if !strings.EqualFold(filepath.Ext(path), ".wav") {
				return fmt.Errorf("%s: only .wav files are supported", path)
			}
		}

		cache, err := newModelCache()
		if err != nil {
			return err
		}
		defer cache.Close()
		ex, err := newExtractor()
		if err != nil {
			return err
		}
		p := &serving.Predictor{Cache: cache, Extractor: ex, Logger: slog.Default()}

		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			pred, err := p.PredictWAV(ctx, string(arch.ID), data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := output(cmd, predictionView{File: path, Prediction: pred}, ""); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	predictCmd.Flags().StringVar(&predictArch, "arch", string(model.ArchCNNSTFT), "model architecture")
	rootCmd.AddCommand(predictCmd)
}
