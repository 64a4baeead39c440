// Package main is the entry point for the pelohub CLI.
//
// Usage:
//
//	pelohub [flags] <command> [args]
//
// Commands:
//
//	scan       - Label a dataset directory and store its statistics
//	split      - Show the train/validation/test partition of a dataset
//	features   - Extract a feature tensor from a WAVE file
//	train      - Train a classifier head and save its artifact
//	evaluate   - Evaluate a trained model on the test partition
//	predict    - Classify a WAVE file
//	report     - List and show stored evaluation reports
//	models     - List model architectures
//	version    - Show version information
package main

import (
	"os"

	"github.com/HenryAi-SIBERMU/PeloHub/cmd/pelohub/commands"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/cli"
)

func main() {
	if err := commands.Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}
