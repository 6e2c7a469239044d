// Package executor schedules and supervises the training runs of one
// experiment. Trials execute independently: a failed run is recorded as
// FAILED with its reason and never aborts its siblings.
package executor

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nerbox/nerbox/internal/artifact"
	"github.com/nerbox/nerbox/internal/models"
	"github.com/nerbox/nerbox/internal/search"
	"github.com/nerbox/nerbox/internal/tracking"
)

// ErrStopTraining is the cancellation cause used to halt a trial when the
// early-stopping policy triggers. Trainers may inspect context.Cause to
// distinguish it from an interrupt.
var ErrStopTraining = errors.New("stop training: monitored metric stopped improving")

const reasonInterrupted = "interrupted"

type Executor struct {
	store         tracking.Store
	sink          tracking.Sink
	artifacts     *artifact.Store
	trainer       Trainer
	maxConcurrent int
}

type Option func(*Executor)

// WithSink mirrors run events and metrics to an external tracking server.
func WithSink(sink tracking.Sink) Option {
	return func(e *Executor) { e.sink = sink }
}

// WithMaxConcurrent sets the default worker count, overridable per
// experiment via search.max_concurrent.
func WithMaxConcurrent(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxConcurrent = n
		}
	}
}

func New(store tracking.Store, artifacts *artifact.Store, trainer Trainer, opts ...Option) *Executor {
	e := &Executor{
		store:         store,
		artifacts:     artifacts,
		trainer:       trainer,
		maxConcurrent: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute expands the experiment into trials and launches them on a bounded
// worker pool. It returns a finite stream of completed runs; the stream is
// closed once every trial has reached a terminal status. Expansion errors
// (nothing could be scheduled) are returned directly.
//
// For search-generated trials, a non-empty group prefixes the run IDs so
// repeated executions of the same experiment do not collide. Explicitly
// named run sections keep their stable names.
func (e *Executor) Execute(ctx context.Context, cfg *models.ExperimentConfig, group string) (<-chan models.Run, error) {
	trials, err := search.Trials(cfg)
	if err != nil {
		return nil, err
	}
	if len(trials) == 0 {
		return nil, &models.ConfigInvalidError{Field: "hyperparameters", Reason: "no trials to schedule"}
	}
	if group != "" && len(cfg.Runs) == 0 {
		for i := range trials {
			trials[i].Name = group + "-" + trials[i].Name
		}
	}

	workers := e.maxConcurrent
	if cfg.Search.MaxConcurrent > 0 {
		workers = cfg.Search.MaxConcurrent
	}

	log.WithFields(log.Fields{
		"experiment": cfg.Name,
		"trials":     len(trials),
		"workers":    workers,
	}).Info("starting experiment")

	// Buffered to the trial count so workers never block on a caller that
	// stops reading the stream.
	out := make(chan models.Run, len(trials))
	go func() {
		defer close(out)
		var g errgroup.Group
		g.SetLimit(workers)
		for _, trial := range trials {
			trial := trial
			g.Go(func() error {
				out <- e.runTrial(ctx, cfg, trial)
				return nil
			})
		}
		g.Wait()
	}()
	return out, nil
}

// runTrial drives a single run through its lifecycle. All failure modes end
// in a FAILED record with a reason; errors never escape to the caller.
func (e *Executor) runTrial(ctx context.Context, cfg *models.ExperimentConfig, trial search.Trial) models.Run {
	logger := log.WithFields(log.Fields{"experiment": cfg.Name, "run": trial.Name})

	run := models.Run{
		ID:             trial.Name,
		ExperimentName: cfg.Name,
		Status:         models.RunStatusPending,
		Hyperparams:    trial.Params,
		StartTime:      time.Now(),
	}

	if err := e.store.CreateRun(ctx, &run); err != nil {
		return e.finishRun(ctx, logger, &run, "", nil, err)
	}
	if err := e.store.LogParams(ctx, cfg.Name, run.ID, trial.Params.Strings()); err != nil {
		logger.WithError(err).Warn("failed to record run params")
	}

	sinkRunID := e.mirrorStart(ctx, logger, cfg, &run)

	artifactDir, err := e.artifacts.EnsureRunDir(cfg.Name, run.ID)
	if err != nil {
		return e.finishRun(ctx, logger, &run, sinkRunID, nil, err)
	}
	run.ArtifactPath = artifactDir

	run.Status = models.RunStatusRunning
	if err := e.store.UpdateRun(ctx, &run); err != nil {
		logger.WithError(err).Warn("failed to record run start")
	}

	stopper := newEarlyStopping(trial.Params)
	trialCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var lastEpoch models.EpochMetrics
	report := func(epoch models.EpochMetrics) error {
		lastEpoch = epoch
		run.Epochs = epoch.Epoch
		if err := e.store.LogEpoch(ctx, cfg.Name, run.ID, epoch); err != nil {
			logger.WithError(err).Warn("failed to record epoch metrics")
		}
		e.mirrorEpoch(ctx, logger, sinkRunID, epoch)
		if stopper.update(epoch.Metrics) {
			logger.WithField("epoch", epoch.Epoch).Info("early stopping triggered")
			run.StoppedEarly = true
			cancel(ErrStopTraining)
		}
		return nil
	}

	final, err := e.trainer.Train(trialCtx, e.trialSpec(cfg, trial, artifactDir), report)
	if run.StoppedEarly && errors.Is(context.Cause(trialCtx), ErrStopTraining) {
		// The trainer was halted on purpose; its exit error is expected.
		err = nil
	}

	metrics := final
	if len(metrics) == 0 {
		metrics = lastEpoch.Metrics
	}
	return e.finishRun(ctx, logger, &run, sinkRunID, metrics, err)
}

func (e *Executor) trialSpec(cfg *models.ExperimentConfig, trial search.Trial, artifactDir string) TrialSpec {
	return TrialSpec{
		Experiment:  cfg.Name,
		RunID:       trial.Name,
		Dataset:     cfg.DatasetName,
		Model:       cfg.ModelName,
		Uncased:     cfg.Uncased,
		Device:      cfg.Device,
		FP16:        cfg.FP16,
		Hyperparams: trial.Params,
		ArtifactDir: artifactDir,
	}
}

// finishRun records the terminal state of a run in the tracking store and
// the mirror sink.
func (e *Executor) finishRun(
	ctx context.Context,
	logger *log.Entry,
	run *models.Run,
	sinkRunID string,
	metrics map[string]float64,
	trainErr error,
) models.Run {
	now := time.Now()
	run.EndTime = &now
	run.Metrics = metrics

	if trainErr != nil {
		reason := trainErr.Error()
		if ctx.Err() != nil {
			reason = reasonInterrupted
		}
		run.Status = models.RunStatusFailed
		run.Reason = reason
		logger.WithField("reason", reason).Warn("run failed")
	} else {
		run.Status = models.RunStatusFinished
		logger.WithField("metrics", run.Metrics).Info("run finished")
	}

	// Terminal status is written with a fresh context so an interrupt still
	// leaves a FAILED record behind instead of a pending one.
	writeCtx := context.WithoutCancel(ctx)
	if err := e.store.UpdateRun(writeCtx, run); err != nil {
		logger.WithError(err).Error("failed to record terminal run status")
	}
	e.mirrorEnd(writeCtx, logger, sinkRunID, run.Status)
	return *run
}

func (e *Executor) mirrorStart(ctx context.Context, logger *log.Entry, cfg *models.ExperimentConfig, run *models.Run) string {
	if e.sink == nil {
		return ""
	}
	sinkRunID, err := e.sink.StartRun(ctx, cfg.Name, run.ID, map[string]string{
		"dataset": cfg.DatasetName,
		"model":   cfg.ModelName,
	})
	if err != nil {
		logger.WithError(err).Warn("tracking mirror unavailable")
		return ""
	}
	for key, value := range run.Hyperparams.Strings() {
		if err := e.sink.LogParam(ctx, sinkRunID, key, value); err != nil {
			logger.WithError(err).Warn("failed to mirror param")
		}
	}
	return sinkRunID
}

func (e *Executor) mirrorEpoch(ctx context.Context, logger *log.Entry, sinkRunID string, epoch models.EpochMetrics) {
	if e.sink == nil || sinkRunID == "" {
		return
	}
	for key, value := range epoch.Metrics {
		if err := e.sink.LogMetric(ctx, sinkRunID, key, value, int64(epoch.Epoch)); err != nil {
			logger.WithError(err).Warn("failed to mirror metric")
		}
	}
}

func (e *Executor) mirrorEnd(ctx context.Context, logger *log.Entry, sinkRunID string, status models.RunStatus) {
	if e.sink == nil || sinkRunID == "" {
		return
	}
	if err := e.sink.EndRun(ctx, sinkRunID, status); err != nil {
		logger.WithError(err).Warn("failed to mirror run end")
	}
}
