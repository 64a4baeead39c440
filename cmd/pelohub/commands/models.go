package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/cli"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/features"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/model"
)

type modelInfo struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Features string `json:"features" yaml:"features"`
	Shape    []int  `json:"shape" yaml:"shape"`
	Artifact string `json:"artifact" yaml:"artifact"`
	Trained  bool   `json:"trained" yaml:"trained"`
}

type modelList []modelInfo

func (l modelList) Table() *cli.Table {
	t := cli.NewTable("ID", "NAME", "FEATURES", "SHAPE", "TRAINED")
	for _, m := range l {
		shape := make([]string, len(m.Shape))
		for i, n := range m.Shape {
			shape[i] = fmt.Sprint(n)
		}
		trained := "no"
		if m.Trained {
			trained = "yes"
		}
		t.Append(m.ID, m.Name, m.Features, strings.Join(shape, "x"), trained)
	}
	return t
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List model architectures and their artifacts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openModelStore()
		if err != nil {
			return err
		}
		cfg := features.DefaultConfig()

		var list modelList
		for _, id := range model.ListArchs() {
			arch, _ := model.Lookup(id)
			shape := arch.Shape(cfg)
			info := modelInfo{
				ID:       string(id),
				Name:     arch.DisplayName,
				Features: arch.Input.Kind.String(),
				Shape:    shape[:],
				Artifact: model.ArtifactName(id),
			}
			ok, err := store.Exists(cmd.Context(), info.Artifact)
			if err != nil {
				slog.Warn("cannot check model artifact", "arch", id, "error", err)
			}
			info.Trained = ok
			list = append(list, info)
		}
		return output(cmd, list, "")
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
