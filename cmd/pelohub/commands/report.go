package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/cli"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/evaluate"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/results"
)

var reportQuery string

// reportView renders an evaluation report as a per-class table and
// marshals as the report itself.
type reportView struct {
	*evaluate.Report
}

func (v reportView) MarshalJSON() ([]byte, error) { return json.Marshal(v.Report) }
func (v reportView) MarshalYAML() (any, error)    { return v.Report, nil }

func (v reportView) Table() *cli.Table {
	t := cli.NewTable("CLASS", "PRECISION", "RECALL", "F1", "SUPPORT").AlignRight(1, 2, 3, 4)
	row := func(name string, m evaluate.ClassMetrics) {
		t.Append(name, fmt.Sprintf("%.4f", m.Precision), fmt.Sprintf("%.4f", m.Recall),
			fmt.Sprintf("%.4f", m.F1), strconv.Itoa(m.Support))
	}
	for _, c := range v.Classes {
		row(c, v.PerClass[c])
	}
	row("macro avg", v.MacroAvg)
	row("weighted avg", v.WeightedAvg)
	t.Append("accuracy", "", "", fmt.Sprintf("%.4f", v.Accuracy), strconv.Itoa(v.Samples))
	if v.AUROC > 0 {
		t.Append("auc", "", "", fmt.Sprintf("%.4f", v.AUROC), "")
	}
	return t
}

// reportSummary is one row of the report list.
type reportSummary struct {
	RunID     string    `json:"run_id" yaml:"run_id"`
	Model     string    `json:"model" yaml:"model"`
	Dataset   string    `json:"dataset" yaml:"dataset"`
	Accuracy  float64   `json:"accuracy" yaml:"accuracy"`
	AUROC     float64   `json:"auc" yaml:"auc"`
	Samples   int       `json:"samples" yaml:"samples"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

type reportList []reportSummary

func (l reportList) Table() *cli.Table {
	t := cli.NewTable("RUN", "MODEL", "DATASET", "ACCURACY", "AUC", "SAMPLES", "CREATED").AlignRight(3, 4, 5)
	for _, r := range l {
		id := r.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		t.Append(id, r.Model, r.Dataset, fmt.Sprintf("%.4f", r.Accuracy), fmt.Sprintf("%.4f", r.AUROC),
			strconv.Itoa(r.Samples), r.CreatedAt.Local().Format(time.DateTime))
	}
	return t
}

type statsList []statsRow

type statsRow struct {
	Dataset  string `json:"dataset" yaml:"dataset"`
	Category string `json:"category" yaml:"category"`
	Speakers int    `json:"speakers" yaml:"speakers"`
	Total    int    `json:"total" yaml:"total"`
}

func (l statsList) Table() *cli.Table {
	t := cli.NewTable("DATASET", "CATEGORY", "SPEAKERS", "TOTAL").AlignRight(2, 3)
	for _, r := range l {
		t.Append(r.Dataset, r.Category, strconv.Itoa(r.Speakers), strconv.Itoa(r.Total))
	}
	return t
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List and show stored evaluation reports",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evaluation reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := openResults()
		if err != nil {
			return err
		}
		defer rs.Close()
		all, err := results.Reports(cmd.Context(), rs)
		if err != nil {
			return err
		}
		list := make(reportList, 0, len(all))
		for _, r := range all {
			list = append(list, reportSummary{
				RunID:     r.RunID,
				Model:     r.Model,
				Dataset:   r.Dataset,
				Accuracy:  r.Accuracy,
				AUROC:     r.AUROC,
				Samples:   r.Samples,
				CreatedAt: r.CreatedAt,
			})
		}
		return output(cmd, list, reportQuery)
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show an evaluation report",
	Long: `Show an evaluation report. A unique prefix of the run ID is enough.

Use --query to select part of the report with a jq expression, e.g.
  pelohub report show 3f2c --query '.confusion_matrix'
  pelohub report show 3f2c --query '.predictions[] | select(.true != .pred) | .file'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := openResults()
		if err != nil {
			return err
		}
		defer rs.Close()
		r, err := results.LoadReport(cmd.Context(), rs, args[0])
		if err != nil {
			return err
		}
		return output(cmd, reportView{r}, reportQuery)
	},
}

var reportStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored dataset statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := openResults()
		if err != nil {
			return err
		}
		defer rs.Close()
		all, err := results.AllStats(cmd.Context(), rs)
		if err != nil {
			return err
		}
		var rows statsList
		for _, st := range all {
			for _, c := range st.Categories {
				rows = append(rows, statsRow{Dataset: st.Dataset, Category: c.Category, Speakers: c.Speakers, Total: c.Total})
			}
		}
		return output(cmd, rows, reportQuery)
	},
}

func init() {
	reportCmd.PersistentFlags().StringVarP(&reportQuery, "query", "q", "", "jq expression applied to the output")
	reportCmd.AddCommand(reportListCmd, reportShowCmd, reportStatsCmd)
	rootCmd.AddCommand(reportCmd)
}
