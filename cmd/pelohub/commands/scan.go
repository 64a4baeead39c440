package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/cli"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/dataset"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/results"
)

var (
	scanRoot   string
	scanList   bool
	scanNoSave bool
)

// scanResult is the output of the scan command.
type scanResult struct {
	Dataset  string           `json:"dataset" yaml:"dataset"`
	Root     string           `json:"root" yaml:"root"`
	Strategy dataset.Strategy `json:"strategy" yaml:"strategy"`
	Stats    dataset.Stats    `json:"stats" yaml:"stats"`
	Samples  []dataset.Sample `json:"samples,omitempty" yaml:"samples,omitempty"`
}

func (r scanResult) Table() *cli.Table {
	t := cli.NewTable("CATEGORY", "SPEAKERS", "TOTAL", "TRAIN", "TEST").AlignRight(1, 2, 3, 4)
	for _, c := range r.Stats.Categories {
		t.Append(c.Category, strconv.Itoa(c.Speakers), strconv.Itoa(c.Total), strconv.Itoa(c.Train), strconv.Itoa(c.Test))
	}
	return t
}

var scanCmd = &cobra.Command{
	Use:   "scan <dataset>",
	Short: "Label a dataset directory and store its statistics",
	Long: `Label every recording of a dataset as control or dysarthric.

The dataset directory is <data.root>/<dataset> unless --root is given. A
directory with the same name in another case, or TORGO_smalldataset for
TORGO, is accepted in its place.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		listing, err := scanDataset(ctx, args[0], scanRoot)
		if err != nil {
			return err
		}

		res := scanResult{
			Dataset:  listing.Dataset,
			Root:     listing.Root,
			Strategy: listing.Strategy,
			Stats:    dataset.Summarize(listing.Dataset, listing.Samples, 1-globalConfig.Training.HoldoutFraction),
		}
		if scanList {
			res.Samples = listing.Samples
		}

		if !scanNoSave && len(listing.Samples) > 0 {
			store, err := openResults()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := results.SaveStats(ctx, store, res.Stats); err != nil {
				return err
			}
		}
		return output(cmd, res, "")
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanRoot, "root", "", "dataset directory (default <data.root>/<dataset>)")
	scanCmd.Flags().BoolVar(&scanList, "list", false, "include every labeled sample in the output")
	scanCmd.Flags().BoolVar(&scanNoSave, "no-save", false, "do not store the statistics")
	rootCmd.AddCommand(scanCmd)
}
