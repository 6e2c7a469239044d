// Package tracking persists run metadata and metrics. The local filesystem
// store is the system of record queried by the results aggregator; an MLflow
// sink can mirror the same writes to an external tracking server.
package tracking

import (
	"context"

	"github.com/nerbox/nerbox/internal/models"
)

// Store is the tracking backend written by the run executor and read by the
// results aggregator. Writes for different runs never contend: every run has
// its own (experiment, run ID) keyed location.
type Store interface {
	CreateRun(ctx context.Context, run *models.Run) error
	// UpdateRun replaces the stored record for run.ID with the given state.
	UpdateRun(ctx context.Context, run *models.Run) error
	LogParams(ctx context.Context, experiment, runID string, params map[string]string) error
	// LogEpoch appends one epoch of metric values to the run's history.
	LogEpoch(ctx context.Context, experiment, runID string, epoch models.EpochMetrics) error

	GetRun(ctx context.Context, experiment, runID string) (*models.Run, error)
	ListRuns(ctx context.Context, experiment string) ([]models.Run, error)
	ListExperiments(ctx context.Context) ([]string, error)
}

// Sink receives a mirror of run lifecycle events and metrics. Mirror failures
// are logged, never fatal to the run.
type Sink interface {
	StartRun(ctx context.Context, experiment, runName string, tags map[string]string) (string, error)
	EndRun(ctx context.Context, runID string, status models.RunStatus) error
	LogParam(ctx context.Context, runID, key, value string) error
	LogMetric(ctx context.Context, runID, key string, value float64, step int64) error
}
