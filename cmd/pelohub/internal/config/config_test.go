package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadMissingImplicit(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != "" || cfg.Pipeline.BatchSize != 32 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadMissingExplicit(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadFromEnv(t *testing.T) {
	path := writeFile(t, `
data:
  root: /srv/audio
  datasets: [TORGO]
training:
  epochs: 5
  learning_rate: 0.001
  holdout_fraction: 0.3
  test_fraction: 0.5
  seed: 7
  split: speaker
`)
	t.Setenv(EnvConfig, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q", cfg.Path)
	}
	if cfg.Data.Root != "/srv/audio" || len(cfg.Data.Datasets) != 1 || cfg.Data.Datasets[0] != "TORGO" {
		t.Errorf("data = %+v", cfg.Data)
	}
	if cfg.Training.Epochs != 5 || cfg.Training.Split != SplitSpeaker {
		t.Errorf("training = %+v", cfg.Training)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Pipeline.BatchSize != 32 || cfg.Models.Backend != "local" {
		t.Errorf("defaults lost: pipeline %+v models %+v", cfg.Pipeline, cfg.Models)
	}
	if got := cfg.SplitOptions(); got.HoldoutFraction != 0.3 || got.Seed != 7 {
		t.Errorf("SplitOptions = %+v", got)
	}
	if got := cfg.DatasetRoot("TORGO"); got != filepath.Join("/srv/audio", "TORGO") {
		t.Errorf("DatasetRoot = %q", got)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.BatchSize = 0
	cfg.Pipeline.ReadTimeout = "soon"
	cfg.Pipeline.OnCorrupt = "ignore"
	cfg.Training.Split = "random"
	cfg.Models.Backend = "s3"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"batch_size", "read_timeout", "on_corrupt", "training.split", "models.s3.bucket"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("data: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestReadTimeout(t *testing.T) {
	cfg := Default()
	d, err := cfg.ReadTimeout()
	if err != nil || d != 30*time.Second {
		t.Fatalf("ReadTimeout = %v, %v", d, err)
	}
	cfg.Pipeline.ReadTimeout = ""
	if d, err := cfg.ReadTimeout(); err != nil || d != 0 {
		t.Fatalf("empty ReadTimeout = %v, %v", d, err)
	}
}
