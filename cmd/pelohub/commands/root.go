package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HenryAi-SIBERMU/PeloHub/cmd/pelohub/internal/config"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/cli"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/dataset"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/features"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/model"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/pipeline"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/results"
)

var (
	// Global flags
	configPath   string
	verbose      bool
	formatOutput string
	logFormat    string

	// Global configuration (loaded before every command)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pelohub",
	Short: "Dysarthric speech classification toolkit",
	Long: `pelohub - label, featurize, train and evaluate dysarthria classifiers.

Datasets are directories with control/ and dysarthric/ subtrees, or TORGO
style speaker trees (F01, FC01, M03, MC02, ...).

Configuration is read from --config, $PELOHUB_CONFIG or the OS config
directory (pelohub/config.yaml). Without a file the defaults apply.

Examples:
  # Label a dataset and print its statistics
  pelohub scan TORGO

  # Train and evaluate the spectrogram model
  pelohub train UASpeech --arch cnn_stft
  pelohub evaluate UASpeech --arch cnn_stft

  # Classify a recording
  pelohub predict sample.wav --arch mobilenetv3 --format json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(cmd.ErrOrStderr()); err != nil {
			return err
		}
		if _, err := cli.ParseFormat(formatOutput); err != nil {
			return err
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		globalConfig = cfg
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $PELOHUB_CONFIG or <config dir>/pelohub/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "yaml", "output format: yaml, json or table")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
}

func setupLogging(w io.Writer) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(logFormat) {
	case "text", "":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unsupported log format: %s (want text or json)", logFormat)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// output writes v to the command's stdout in the selected format.
func output(cmd *cobra.Command, v any, query string) error {
	format, err := cli.ParseFormat(formatOutput)
	if err != nil {
		return err
	}
	return cli.Output(v, cli.OutputOptions{
		Format: format,
		Query:  query,
		Writer: cmd.OutOrStdout(),
	})
}

// printer writes styled status lines next to the command output.
func printer(cmd *cobra.Command) *cli.Printer {
	return &cli.Printer{Out: cmd.ErrOrStderr(), Err: cmd.ErrOrStderr(), Styles: cli.NewStyles(cli.DefaultTheme)}
}

// scanDataset labels the named dataset. root overrides the configured
// location.
func scanDataset(ctx context.Context, name, root string) (*dataset.Listing, error) {
	if root == "" {
		root = globalConfig.DatasetRoot(name)
	}
	return (&dataset.Scanner{Logger: slog.Default()}).Scan(ctx, root, dataset.LookupConvention(name))
}

// splitDataset partitions samples with the configured strategy.
// bySpeaker forces the speaker-independent split.
func splitDataset(samples []dataset.Sample, bySpeaker bool) dataset.Split {
	opts := globalConfig.SplitOptions()
	if bySpeaker || strings.EqualFold(globalConfig.Training.Split, config.SplitSpeaker) {
		return dataset.SplitBySpeaker(samples, opts)
	}
	return dataset.SplitStratified(samples, opts)
}

func newExtractor() (*features.Extractor, error) {
	return features.New(features.DefaultConfig())
}

// buildPipeline assembles the batch pipeline of arch over samples.
func buildPipeline(samples []dataset.Sample, arch model.Architecture, ex *features.Extractor, shuffle bool) (*pipeline.Pipeline, error) {
	pc := globalConfig.Pipeline
	timeout, err := globalConfig.ReadTimeout()
	if err != nil {
		return nil, err
	}
	policy, err := pipeline.ParseCorruptPolicy(pc.OnCorrupt)
	if err != nil {
		return nil, err
	}
	return pipeline.Build(samples, pipeline.Options{
		Input:         arch.Input,
		BatchSize:     pc.BatchSize,
		Shuffle:       shuffle,
		ShuffleBuffer: pc.ShuffleBuffer,
		Seed:          pc.Seed,
		Workers:       pc.Workers,
		Prefetch:      pc.Prefetch,
		OnCorrupt:     policy,
		ReadTimeout:   timeout,
		Extractor:     ex,
		Logger:        slog.Default(),
	})
}

// openModelStore returns the configured artifact store.
func openModelStore() (model.Store, error) {
	mc := globalConfig.Models
	if strings.EqualFold(mc.Backend, "s3") {
		return model.NewS3Store(model.NewS3Client(mc.S3), mc.S3.Bucket, mc.S3.Prefix), nil
	}
	return model.NewLocalStore(mc.Dir)
}

// openResults returns the configured results store. The caller closes it.
func openResults() (results.Store, error) {
	rc := globalConfig.Results
	return results.OpenBadger(results.BadgerOptions{
		Dir:      rc.Dir,
		InMemory: rc.InMemory,
		Logger:   slog.Default(),
	})
}

// newModelCache returns a cache loading artifacts from the model store.
func newModelCache() (*model.Cache, error) {
	store, err := openModelStore()
	if err != nil {
		return nil, err
	}
	return model.NewCache(&model.StoreLoader{
		Store:          store,
		Features:       features.DefaultConfig(),
		AllowUntrained: globalConfig.Models.AllowUntrained,
		Logger:         slog.Default(),
	}), nil
}
