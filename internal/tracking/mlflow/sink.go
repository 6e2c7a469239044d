package mlflow

import (
	"context"
	"fmt"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/nerbox/nerbox/internal/models"
)

// StartRun creates an MLflow run under the experiment of the given name,
// creating the experiment on first use. It returns the MLflow run ID.
func (c *Client) StartRun(ctx context.Context, experiment, runName string, tags map[string]string) (string, error) {
	experimentID, err := c.ensureExperiment(ctx, experiment)
	if err != nil {
		return "", err
	}

	runTags := make([]ml.RunTag, 0, len(tags)+1)
	for key, value := range tags {
		runTags = append(runTags, ml.RunTag{Key: key, Value: value})
	}
	runTags = append(runTags, ml.RunTag{Key: "mlflow.runName", Value: runName})

	resp, err := c.client.Experiments.CreateRun(ctx, ml.CreateRun{
		ExperimentId: experimentID,
		RunName:      runName,
		StartTime:    time.Now().UnixMilli(),
		Tags:         runTags,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return resp.Run.Info.RunId, nil
}

func (c *Client) EndRun(ctx context.Context, runID string, status models.RunStatus) error {
	var mlStatus ml.UpdateRunStatus
	switch status {
	case models.RunStatusRunning:
		mlStatus = ml.UpdateRunStatusRunning
	case models.RunStatusFailed:
		mlStatus = ml.UpdateRunStatusFailed
	default:
		mlStatus = ml.UpdateRunStatusFinished
	}

	updateRun := ml.UpdateRun{
		RunId:  runID,
		Status: mlStatus,
	}
	if status.Terminal() {
		updateRun.EndTime = time.Now().UnixMilli()
	}

	if _, err := c.client.Experiments.UpdateRun(ctx, updateRun); err != nil {
		return fmt.Errorf("failed to end run: %w", err)
	}
	return nil
}

func (c *Client) LogParam(ctx context.Context, runID, key, value string) error {
	err := c.client.Experiments.LogParam(ctx, ml.LogParam{
		RunId: runID,
		Key:   key,
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to log parameter %s: %w", key, err)
	}
	return nil
}

func (c *Client) LogMetric(ctx context.Context, runID, key string, value float64, step int64) error {
	err := c.client.Experiments.LogMetric(ctx, ml.LogMetric{
		RunId:     runID,
		Key:       key,
		Value:     value,
		Timestamp: time.Now().UnixMilli(),
		Step:      step,
	})
	if err != nil {
		return fmt.Errorf("failed to log metric %s: %w", key, err)
	}
	return nil
}

// ensureExperiment resolves the MLflow experiment ID for a name, creating the
// experiment if the server does not know it yet.
func (c *Client) ensureExperiment(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.experimentIDs[name]; ok {
		return id, nil
	}

	resp, err := c.client.Experiments.GetByName(ctx, ml.GetByNameRequest{
		ExperimentName: name,
	})
	if err == nil && resp.Experiment != nil {
		c.experimentIDs[name] = resp.Experiment.ExperimentId
		return resp.Experiment.ExperimentId, nil
	}

	created, err := c.client.Experiments.CreateExperiment(ctx, ml.CreateExperiment{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create experiment %s: %w", name, err)
	}
	c.experimentIDs[name] = created.ExperimentId
	return created.ExperimentId, nil
}
