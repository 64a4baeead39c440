package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/cli"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/dataset"
)

var (
	splitRoot      string
	splitBySpeaker bool
)

// partition summarizes one side of a split.
type partition struct {
	Name       string `json:"name" yaml:"name"`
	Control    int    `json:"control" yaml:"control"`
	Dysarthric int    `json:"dysarthric" yaml:"dysarthric"`
	Speakers   int    `json:"speakers" yaml:"speakers"`
}

type splitResult struct {
	Dataset    string      `json:"dataset" yaml:"dataset"`
	Strategy   string      `json:"strategy" yaml:"strategy"`
	Partitions []partition `json:"partitions" yaml:"partitions"`
}

func (r splitResult) Table() *cli.Table {
	t := cli.NewTable("PARTITION", "CONTROL", "DYSARTHRIC", "SPEAKERS").AlignRight(1, 2, 3)
	for _, p := range r.Partitions {
		t.Append(p.Name, strconv.Itoa(p.Control), strconv.Itoa(p.Dysarthric), strconv.Itoa(p.Speakers))
	}
	return t
}

func summarizePartition(name string, samples []dataset.Sample) partition {
	p := partition{Name: name}
	speakers := make(map[string]struct{})
	for _, s := range samples {
		switch s.Label {
		case dataset.Control:
			p.Control++
		case dataset.Dysarthric:
			p.Dysarthric++
		}
		speakers[s.Speaker] = struct{}{}
	}
	p.Speakers = len(speakers)
	return p
}

var splitCmd = &cobra.Command{
	Use:   "split <dataset>",
	Short: "Show the train/validation/test partition of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		listing, err := scanDataset(cmd.Context(), args[0], splitRoot)
		if err != nil {
			return err
		}
		sp := splitDataset(listing.Samples, splitBySpeaker)

		strategy := globalConfig.Training.Split
		if splitBySpeaker {
			strategy = "speaker"
		}
		return output(cmd, splitResult{
			Dataset:  listing.Dataset,
			Strategy: strategy,
			Partitions: []partition{
				summarizePartition("train", sp.Train),
				summarizePartition("val", sp.Val),
				summarizePartition("test", sp.Test),
			},
		}, "")
	},
}

func init() {
	splitCmd.Flags().StringVar(&splitRoot, "root", "", "dataset directory (default <data.root>/<dataset>)")
	splitCmd.Flags().BoolVar(&splitBySpeaker, "by-speaker", false, "keep every speaker in a single partition")
	rootCmd.AddCommand(splitCmd)
}
