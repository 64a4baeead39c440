package commands

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/cli"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/evaluate"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/model"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/pipeline"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/results"
)

var (
	trainArch      string
	trainRoot      string
	trainEpochs    int
	trainBySpeaker bool
)

type trainResult struct {
	RunID        string             `json:"run_id" yaml:"run_id"`
	Model        string             `json:"model" yaml:"model"`
	Dataset      string             `json:"dataset" yaml:"dataset"`
	Artifact     string             `json:"artifact" yaml:"artifact"`
	Train        int                `json:"train" yaml:"train"`
	Val          int                `json:"val" yaml:"val"`
	Test         int                `json:"test" yaml:"test"`
	BestEpoch    int                `json:"best_epoch" yaml:"best_epoch"`
	TestAccuracy float64            `json:"test_accuracy" yaml:"test_accuracy"`
	TrainSkipped int                `json:"train_skipped" yaml:"train_skipped"`
	ValSkipped   int                `json:"val_skipped" yaml:"val_skipped"`
	TestSkipped  int                `json:"test_skipped" yaml:"test_skipped"`
	History      []model.EpochStats `json:"history" yaml:"history"`
}

func (r trainResult) Table() *cli.Table {
	t := cli.NewTable("EPOCH", "LOSS", "ACCURACY", "VAL LOSS", "VAL ACCURACY", "").AlignRight(0, 1, 2, 3, 4)
	for _, h := range r.History {
		mark := ""
		if h.Epoch == r.BestEpoch {
			mark = "best"
		}
		t.Append(strconv.Itoa(h.Epoch),
			fmt.Sprintf("%.4f", h.Loss), fmt.Sprintf("%.4f", h.Accuracy),
			fmt.Sprintf("%.4f", h.ValLoss), fmt.Sprintf("%.4f", h.ValAccuracy), mark)
	}
	return t
}

var trainCmd = &cobra.Command{
	Use:   "train <dataset>",
	Short: "Train a classifier head and save its artifact",
	Long: `Train the softmax classification head of an architecture on a dataset.

The dataset is split into train, validation and test partitions. The weights
of the epoch with the best validation accuracy are saved as
<arch>_best.msgpack in the model store, the test partition is evaluated and
the report, including the epoch history, is stored in the results store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		arch, err := model.ParseArch(trainArch)
		if err != nil {
			return err
		}
		listing, err := scanDataset(ctx, args[0], trainRoot)
		if err != nil {
			return err
		}
		if len(listing.Samples) == 0 {
			return fmt.Errorf("no recordings found for dataset %s", args[0])
		}
		sp := splitDataset(listing.Samples, trainBySpeaker)

		ex, err := newExtractor()
		if err != nil {
			return err
		}
		trainP, err := buildPipeline(sp.Train, arch, ex, true)
		if err != nil {
			return err
		}
		var valP *pipeline.Pipeline
		if len(sp.Val) > 0 {
			if valP, err = buildPipeline(sp.Val, arch, ex, false); err != nil {
				return err
			}
		}

		tc := globalConfig.Training
		epochs := tc.Epochs
		if trainEpochs > 0 {
			epochs = trainEpochs
		}
		res, err := model.Train(ctx, arch, trainP, valP, model.TrainOptions{
			Epochs:       epochs,
			LearningRate: tc.LearningRate,
			L2:           tc.L2,
			Patience:     tc.Patience,
			Logger:       slog.Default(),
		})
		if err != nil {
			return err
		}

		runID := uuid.NewString()
		store, err := openModelStore()
		if err != nil {
			return err
		}
		if err := model.WriteArtifact(ctx, store, res.Model.Artifact(runID)); err != nil {
			return err
		}

		var report *evaluate.Report
		if len(sp.Test) > 0 {
			testP, err := buildPipeline(sp.Test, arch, ex, false)
			if err != nil {
				return err
			}
			if report, err = evaluate.Run(ctx, res.Model, testP); err != nil {
				return err
			}
		} else {
			report = &evaluate.Report{Classes: trainP.Mapping().Names()}
		}
		report.RunID = runID
		report.Model = string(arch.ID)
		report.Dataset = listing.Dataset
		report.History = res.History
		report.BestEpoch = res.BestEpoch

		rs, err := openResults()
		if err != nil {
			return err
		}
		defer rs.Close()
		if err := results.SaveReport(ctx, rs, report); err != nil {
			return err
		}

		printer(cmd).Success("saved %s (run %s)", model.ArtifactName(arch.ID), runID)
		return output(cmd, trainResult{
			RunID:        runID,
			Model:        string(arch.ID),
			Dataset:      listing.Dataset,
			Artifact:     model.ArtifactName(arch.ID),
			Train:        len(sp.Train),
			Val:          len(sp.Val),
			Test:         len(sp.Test),
			BestEpoch:    res.BestEpoch,
			TestAccuracy: report.Accuracy,
			TrainSkipped: res.TrainSkipped,
			ValSkipped:   res.ValSkipped,
			TestSkipped:  report.Skipped,
			History:      res.History,
		}, "")
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainArch, "arch", string(model.ArchCNNSTFT), "model architecture")
	trainCmd.Flags().StringVar(&trainRoot, "root", "", "dataset directory (default <data.root>/<dataset>)")
	trainCmd.Flags().IntVar(&trainEpochs, "epochs", 0, "number of epochs (default training.epochs)")
	trainCmd.Flags().BoolVar(&trainBySpeaker, "by-speaker", false, "speaker-independent split")
	rootCmd.AddCommand(trainCmd)
}
