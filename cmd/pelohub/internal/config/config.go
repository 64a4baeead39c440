// Package config loads the pelohub configuration file.
//
// The file is looked up in order at:
//
//	--config flag
//	$PELOHUB_CONFIG
//	os.UserConfigDir()/pelohub/config.yaml
//
// A missing file yields the defaults. Example:
//
//	data:
//	  root: ./data
//	  datasets: [UASpeech, TORGO]
//	pipeline:
//	  workers: 8
//	  batch_size: 32
//	  read_timeout: 30s
//	  on_corrupt: skip
//	training:
//	  epochs: 40
//	  learning_rate: 0.0001
//	  split: speaker
//	models:
//	  backend: s3
//	  s3:
//	    bucket: pelohub-models
//	    region: ap-southeast-1
//	results:
//	  dir: ./outputs/results
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/dataset"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/model"
	"github.com/HenryAi-SIBERMU/PeloHub/pkg/pipeline"
)

const (
	// appDir is the directory name under os.UserConfigDir().
	appDir = "pelohub"

	// EnvConfig names the environment variable holding the config path.
	EnvConfig = "PELOHUB_CONFIG"
)

// Config is the root of the configuration file.
type Config struct {
	// Path is the file the configuration was read from, empty for defaults.
	Path string `yaml:"-"`

	Data     DataConfig     `yaml:"data"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Training TrainingConfig `yaml:"training"`
	Models   ModelsConfig   `yaml:"models"`
	Results  ResultsConfig  `yaml:"results"`
}

// DataConfig locates the datasets.
type DataConfig struct {
	Root     string   `yaml:"root"`
	Datasets []string `yaml:"datasets"`
}

// PipelineConfig tunes the batch pipeline.
type PipelineConfig struct {
	Workers       int    `yaml:"workers,omitempty"` // 0 means GOMAXPROCS
	BatchSize     int    `yaml:"batch_size"`
	ShuffleBuffer int    `yaml:"shuffle_buffer"`
	Prefetch      int    `yaml:"prefetch"`
	Seed          uint64 `yaml:"seed"`
	ReadTimeout   string `yaml:"read_timeout"`
	OnCorrupt     string `yaml:"on_corrupt"`
}

// TrainingConfig sets the training run and the data split.
type TrainingConfig struct {
	Epochs          int     `yaml:"epochs"`
	LearningRate    float64 `yaml:"learning_rate"`
	L2              float64 `yaml:"l2,omitempty"`
	Patience        int     `yaml:"patience,omitempty"`
	HoldoutFraction float64 `yaml:"holdout_fraction"`
	TestFraction    float64 `yaml:"test_fraction"`
	Seed            uint64  `yaml:"seed"`
	Split           string  `yaml:"split"` // stratified or speaker
}

// ModelsConfig selects where model artifacts live.
type ModelsConfig struct {
	Backend        string         `yaml:"backend"` // local or s3
	Dir            string         `yaml:"dir,omitempty"`
	S3             model.S3Config `yaml:"s3,omitempty"`
	AllowUntrained bool           `yaml:"allow_untrained,omitempty"`
}

// ResultsConfig selects the results store.
type ResultsConfig struct {
	Dir      string `yaml:"dir,omitempty"`
	InMemory bool   `yaml:"in_memory,omitempty"`
}

// Split strategies.
const (
	SplitStratified = "stratified"
	SplitSpeaker    = "speaker"
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	split := dataset.DefaultSplitOptions()
	return &Config{
		Data: DataConfig{
			Root:     "data",
			Datasets: []string{dataset.UASpeech.Name, dataset.TORGO.Name},
		},
		Pipeline: PipelineConfig{
			BatchSize:     32,
			ShuffleBuffer: 1000,
			Prefetch:      2,
			Seed:          42,
			ReadTimeout:   "30s",
			OnCorrupt:     "skip",
		},
		Training: TrainingConfig{
			Epochs:          40,
			LearningRate:    1e-4,
			HoldoutFraction: split.HoldoutFraction,
			TestFraction:    split.TestFraction,
			Seed:            split.Seed,
			Split:           SplitStratified,
		},
		Models:  ModelsConfig{Backend: "local", Dir: "models"},
		Results: ResultsConfig{Dir: filepath.Join("outputs", "results")},
	}
}

// DefaultPath returns os.UserConfigDir()/pelohub/config.yaml.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, "config.yaml"), nil
}

// Load reads the configuration at path. An empty path falls back to
// $PELOHUB_CONFIG and then DefaultPath. A missing file at an implicit
// location yields Default; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Pipeline.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.batch_size must be positive, got %d", c.Pipeline.BatchSize))
	}
	if c.Pipeline.Workers < 0 {
		errs = append(errs, fmt.Errorf("pipeline.workers must not be negative, got %d", c.Pipeline.Workers))
	}
	if _, err := c.ReadTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := pipeline.ParseCorruptPolicy(c.Pipeline.OnCorrupt); err != nil {
		errs = append(errs, fmt.Errorf("pipeline.on_corrupt: %w", err))
	}
	if c.Training.Epochs <= 0 {
		errs = append(errs, fmt.Errorf("training.epochs must be positive, got %d", c.Training.Epochs))
	}
	if c.Training.LearningRate <= 0 {
		errs = append(errs, fmt.Errorf("training.learning_rate must be positive, got %g", c.Training.LearningRate))
	}
	if f := c.Training.HoldoutFraction; f <= 0 || f >= 1 {
		errs = append(errs, fmt.Errorf("training.holdout_fraction must be in (0, 1), got %g", f))
	}
	if f := c.Training.TestFraction; f <= 0 || f > 1 {
		errs = append(errs, fmt.Errorf("training.test_fraction must be in (0, 1], got %g", f))
	}
	switch strings.ToLower(c.Training.Split) {
	case SplitStratified, SplitSpeaker:
	default:
		errs = append(errs, fmt.Errorf("training.split must be %q or %q, got %q", SplitStratified, SplitSpeaker, c.Training.Split))
	}
	switch strings.ToLower(c.Models.Backend) {
	case "local":
		if c.Models.Dir == "" {
			errs = append(errs, errors.New("models.dir is required for the local backend"))
		}
	case "s3":
		if c.Models.S3.Bucket == "" {
			errs = append(errs, errors.New("models.s3.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("models.backend must be local or s3, got %q", c.Models.Backend))
	}
	if !c.Results.InMemory && c.Results.Dir == "" {
		errs = append(errs, errors.New("results.dir is required unless results.in_memory is set"))
	}
	return errors.Join(errs...)
}

// ReadTimeout returns the parsed pipeline.read_timeout. Empty means no
// bound.
func (c *Config) ReadTimeout() (time.Duration, error) {
	if c.Pipeline.ReadTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Pipeline.ReadTimeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("pipeline.read_timeout: invalid duration %q", c.Pipeline.ReadTimeout)
	}
	return d, nil
}

// DatasetRoot returns the directory of a named dataset.
func (c *Config) DatasetRoot(name string) string {
	return filepath.Join(c.Data.Root, name)
}

// SplitOptions returns the dataset split settings.
func (c *Config) SplitOptions() dataset.SplitOptions {
	return dataset.SplitOptions{
		HoldoutFraction: c.Training.HoldoutFraction,
		TestFraction:    c.Training.TestFraction,
		Seed:            c.Training.Seed,
	}
}
