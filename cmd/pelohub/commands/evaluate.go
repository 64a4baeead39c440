package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/evaluate"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/model"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/results"
)

var (
	evalArch      string
	evalRoot      string
	evalBySpeaker bool
	evalNoSave    bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <dataset>",
	Short: "Evaluate a trained model on the test partition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		arch, err := model.ParseArch(evalArch)
		if err != nil {
			return err
		}
		listing, err := scanDataset(ctx, args[0], evalRoot)
		if err != nil {
			return err
		}
		sp := splitDataset(listing.Samples, evalBySpeaker)
		if len(sp.Test) == 0 {
			return fmt.Errorf("dataset %s has no test recordings", args[0])
		}

		cache, err := newModelCache()
		if err != nil {
			return err
		}
		defer cache.Close()
		m, err := cache.Get(ctx, string(arch.ID))
		if err != nil {
			return err
		}

		ex, err := newExtractor()
		if err != nil {
			return err
		}
		testP, err := buildPipeline(sp.Test, arch, ex, false)
		if err != nil {
			return err
		}
		report, err := evaluate.Run(ctx, m, testP)
		if err != nil {
			return err
		}
		report.Dataset = listing.Dataset

		if !evalNoSave {
			rs, err := openResults()
			if err != nil {
				return err
			}
			defer rs.Close()
			if err := results.SaveReport(ctx, rs, report); err != nil {
				return err
			}
		}
		return output(cmd, reportView{report}, "")
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evalArch, "arch", string(model.ArchCNNSTFT), "model architecture")
	evaluateCmd.Flags().StringVar(&evalRoot, "root", "", "dataset directory (default <data.root>/<dataset>)")
	evaluateCmd.Flags().BoolVar(&evalBySpeaker, "by-speaker", false, "speaker-independent split")
	evaluateCmd.Flags().BoolVar(&evalNoSave, "no-save", false, "do not store the report")
	rootCmd.AddCommand(evaluateCmd)
}
