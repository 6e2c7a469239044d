package api

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerbox/nerbox/internal/config"
	"github.com/nerbox/nerbox/internal/executor"
	"github.com/nerbox/nerbox/internal/models"
)

type trainFunc func(ctx context.Context, spec executor.TrialSpec, report executor.ReportFunc) (map[string]float64, error)

func (f trainFunc) Train(ctx context.Context, spec executor.TrialSpec, report executor.ReportFunc) (map[string]float64, error) {
	return f(ctx, spec, report)
}

// lrF1 grades a trial by its learning rate so tests can predict the best run.
func lrF1(scores map[float64]float64) trainFunc {
	return func(ctx context.Context, spec executor.TrialSpec, report executor.ReportFunc) (map[string]float64, error) {
		lr := spec.Hyperparams["lr_max"].(float64)
		return map[string]float64{"f1": scores[lr]}, nil
	}
}

func testClient(t *testing.T, trainer executor.Trainer) *Client {
	t.Helper()
	cfg := &config.Config{
		BaseDir:       t.TempDir(),
		Metric:        "f1",
		Device:        "cpu",
		MaxConcurrent: 1,
	}

	configDir := cfg.Context().ConfigDir
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	configYAML := `dataset: conll2003
model: bert-base
metric: f1
hyperparameters:
  lr_max: [1e-5, 3e-5]
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "exp_default.yml"), []byte(configYAML), 0o644))

	client, err := New(cfg, WithTrainer(trainer))
	require.NoError(t, err)
	return client
}

func TestRunExperimentGridScenario(t *testing.T) {
	client := testClient(t, lrF1(map[float64]float64{1e-5: 0.88, 3e-5: 0.91}))

	results, err := client.RunExperiment(context.Background(), "exp_default", RunOptions{RunName: "sweep"})
	require.NoError(t, err)

	require.Len(t, results.Runs, 2)
	for _, run := range results.Runs {
		assert.Equal(t, "exp_default", run.ExperimentName)
		assert.Equal(t, models.RunStatusFinished, run.Status)
	}
	require.NotNil(t, results.BestRun)
	assert.Equal(t, "sweep-run-002", results.BestRun.ID)
	assert.Equal(t, 0.91, results.BestRun.Metrics["f1"])
}

func TestRunExperimentTieBreak(t *testing.T) {
	client := testClient(t, lrF1(map[float64]float64{1e-5: 0.91, 3e-5: 0.91}))

	results, err := client.RunExperiment(context.Background(), "exp_default", RunOptions{RunName: "sweep"})
	require.NoError(t, err)
	assert.Equal(t, "sweep-run-001", results.BestRun.ID)
}

func TestRunExperimentNotFound(t *testing.T) {
	client := testClient(t, lrF1(nil))
	_, err := client.RunExperiment(context.Background(), "missing", RunOptions{})
	require.ErrorIs(t, err, models.ErrConfigNotFound)
}

func TestRunExperimentInvalidDeviceOverride(t *testing.T) {
	client := testClient(t, lrF1(nil))
	_, err := client.RunExperiment(context.Background(), "exp_default", RunOptions{Device: "tpu"})
	var invalid *models.ConfigInvalidError
	require.ErrorAs(t, err, &invalid)
}

func TestRunExperimentUnknownRunSection(t *testing.T) {
	trainer := lrF1(map[float64]float64{2e-5: 0.9})
	client := testClient(t, trainer)

	configDir := client.cfg.Context().ConfigDir
	configYAML := `dataset: conll2003
model: bert-base
hyperparameters:
  lr_max: 2e-5
runs:
  runA: {}
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "exp_named.yml"), []byte(configYAML), 0o644))

	_, err := client.RunExperiment(context.Background(), "exp_named", RunOptions{RunName: "runZ"})
	var invalid *models.ConfigInvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "runs.runZ", invalid.Field)

	results, err := client.RunExperiment(context.Background(), "exp_named", RunOptions{RunName: "runA"})
	require.NoError(t, err)
	assert.Equal(t, "runA", results.BestRun.ID)
}

func TestGetExperimentsAndBestRuns(t *testing.T) {
	client := testClient(t, lrF1(map[float64]float64{1e-5: 0.7, 3e-5: 0.8}))

	// Before any run: config known, no runs tracked.
	experiments, err := client.GetExperiments(context.Background())
	require.NoError(t, err)
	require.Len(t, experiments, 1)
	assert.Equal(t, "exp_default", experiments[0].Name)
	assert.True(t, experiments[0].HasConfig)
	assert.Zero(t, experiments[0].Runs)

	_, err = client.GetExperimentResults(context.Background(), "exp_default")
	require.ErrorIs(t, err, models.ErrNoRunsFound)

	_, err = client.RunExperiment(context.Background(), "exp_default", RunOptions{RunName: "sweep"})
	require.NoError(t, err)

	experiments, err = client.GetExperiments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, experiments[0].Runs)

	best, err := client.GetExperimentsBestRuns(context.Background())
	require.NoError(t, err)
	require.Contains(t, best, "exp_default")
	assert.Equal(t, "sweep-run-002", best["exp_default"].RunID)
	assert.Equal(t, 0.8, best["exp_default"].Value)
}

func TestShowExperimentConfig(t *testing.T) {
	client := testClient(t, lrF1(nil))

	rendered, err := client.ShowExperimentConfig("exp_default")
	require.NoError(t, err)
	assert.Contains(t, rendered, "dataset: conll2003")

	_, err = client.ShowExperimentConfig("missing")
	require.ErrorIs(t, err, models.ErrConfigNotFound)
}

func TestGetBestModel(t *testing.T) {
	trainer := trainFunc(func(ctx context.Context, spec executor.TrialSpec, report executor.ReportFunc) (map[string]float64, error) {
		// A real trainer leaves a checkpoint behind.
		err := os.WriteFile(filepath.Join(spec.ArtifactDir, "model.bin"), []byte("weights"), 0o644)
		return map[string]float64{"f1": 0.9}, err
	})
	client := testClient(t, trainer)

	_, err := client.RunExperiment(context.Background(), "exp_default", RunOptions{RunName: "sweep"})
	require.NoError(t, err)

	path, err := client.GetBestModel(context.Background(), "exp_default")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(path, "model.bin"))
}
