// Package results reduces the tracked runs of an experiment to a best-run
// view. Aggregation is a point-in-time snapshot: runs that are still pending
// or running are listed but never ranked, and never block the caller.
package results

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nerbox/nerbox/internal/artifact"
	"github.com/nerbox/nerbox/internal/models"
	"github.com/nerbox/nerbox/internal/store"
	"github.com/nerbox/nerbox/internal/tracking"
)

type Aggregator struct {
	configs   *store.Store
	runs      tracking.Store
	artifacts *artifact.Store
	// defaultMetric ranks experiments whose config no longer resolves.
	defaultMetric string
}

func New(configs *store.Store, runs tracking.Store, artifacts *artifact.Store, defaultMetric string) *Aggregator {
	return &Aggregator{
		configs:       configs,
		runs:          runs,
		artifacts:     artifacts,
		defaultMetric: defaultMetric,
	}
}

// Summarize computes the experiment-level view over all tracked runs of the
// named experiment.
func (a *Aggregator) Summarize(ctx context.Context, experiment string) (*models.ExperimentResults, error) {
	runs, err := a.runs.ListRuns(ctx, experiment)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for experiment %q: %w", experiment, err)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("experiment %q: %w", experiment, models.ErrNoRunsFound)
	}

	metric := a.primaryMetric(experiment)
	results := &models.ExperimentResults{
		ExperimentName: experiment,
		Metric:         metric,
		Runs:           runs,
	}

	best, err := bestRun(runs, metric)
	if err != nil {
		return nil, fmt.Errorf("experiment %q: %w", experiment, err)
	}
	results.BestRun = best
	results.BestArtifact = a.artifacts.RunDir(experiment, best.ID)
	return results, nil
}

// SummarizeAll maps every tracked experiment to its best-run summary.
// Experiments without a completed run are skipped rather than failing the
// fleet-level overview.
func (a *Aggregator) SummarizeAll(ctx context.Context) (map[string]models.BestRunSummary, error) {
	experiments, err := a.runs.ListExperiments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}

	out := make(map[string]models.BestRunSummary)
	for _, experiment := range experiments {
		results, err := a.Summarize(ctx, experiment)
		if errors.Is(err, models.ErrNoRunsFound) || errors.Is(err, models.ErrNoCompletedRuns) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[experiment] = models.BestRunSummary{
			ExperimentName: experiment,
			RunID:          results.BestRun.ID,
			Metric:         results.Metric,
			Value:          results.BestRun.Metrics[results.Metric],
			ArtifactPath:   results.BestArtifact,
		}
	}
	return out, nil
}

// BestArtifact resolves the best run's checkpoint location, verifying that
// the artifact actually exists on disk.
func (a *Aggregator) BestArtifact(ctx context.Context, experiment string) (string, error) {
	results, err := a.Summarize(ctx, experiment)
	if err != nil {
		return "", err
	}
	return a.artifacts.Resolve(experiment, results.BestRun.ID)
}

func (a *Aggregator) primaryMetric(experiment string) string {
	if cfg, err := a.configs.Resolve(experiment); err == nil && cfg.Metric != "" {
		return cfg.Metric
	}
	return a.defaultMetric
}

// bestRun selects the finished run with the highest value of the primary
// metric. Ties break toward the lower run ID; finished runs missing the
// metric are not ranked.
func bestRun(runs []models.Run, metric string) (*models.Run, error) {
	var candidates []models.Run
	finished := 0
	for _, run := range runs {
		if run.Status != models.RunStatusFinished {
			continue
		}
		finished++
		if _, ok := run.Metrics[metric]; ok {
			candidates = append(candidates, run)
		}
	}
	if finished == 0 {
		return nil, models.ErrNoCompletedRuns
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no finished run reported metric %q: %w", metric, models.ErrNoCompletedRuns)
	}

	sort.Slice(candidates, func(i, j int) bool {
		vi, vj := candidates[i].Metrics[metric], candidates[j].Metrics[metric]
		if vi != vj {
			return vi > vj
		}
		return candidates[i].ID < candidates[j].ID
	})
	best := candidates[0]
	return &best, nil
}
