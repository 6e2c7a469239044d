// Package api is the programmatic command surface. The CLI delegates every
// operation here, so both entry points share one implementation and one
// error taxonomy.
package api

import (
	"context"
	"fmt"

	petname "github.com/dustinkirkland/golang-petname"
	log "github.com/sirupsen/logrus"

	"github.com/nerbox/nerbox/internal/artifact"
	"github.com/nerbox/nerbox/internal/config"
	"github.com/nerbox/nerbox/internal/datasets"
	"github.com/nerbox/nerbox/internal/executor"
	"github.com/nerbox/nerbox/internal/models"
	"github.com/nerbox/nerbox/internal/results"
	"github.com/nerbox/nerbox/internal/store"
	"github.com/nerbox/nerbox/internal/tracking"
	"github.com/nerbox/nerbox/internal/tracking/mlflow"
)

type Client struct {
	cfg       *config.Config
	configs   *store.Store
	runs      tracking.Store
	artifacts *artifact.Store
	exec      *executor.Executor
	agg       *results.Aggregator
	pipeline  *datasets.Pipeline
}

type options struct {
	trainer executor.Trainer
	sink    tracking.Sink
}

type Option func(*options)

// WithTrainer replaces the script trainer, used by tests and embedders that
// train in-process.
func WithTrainer(t executor.Trainer) Option {
	return func(o *options) { o.trainer = t }
}

// WithSink replaces the MLflow mirror selected by the tracking URI.
func WithSink(s tracking.Sink) Option {
	return func(o *options) { o.sink = s }
}

func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	paths := cfg.Context()
	configs := store.New(paths.ConfigDir)
	runs := tracking.NewLocalStore(paths.TrackingDir)
	artifacts := artifact.NewStore(paths.ArtifactsDir)

	trainer := o.trainer
	if trainer == nil {
		trainer = &executor.ScriptTrainer{Command: cfg.TrainCommand}
	}

	sink := o.sink
	if sink == nil && cfg.TrackingEnabled() {
		client, err := mlflow.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to set up tracking mirror: %w", err)
		}
		sink = client
	}

	execOpts := []executor.Option{executor.WithMaxConcurrent(cfg.MaxConcurrent)}
	if sink != nil {
		execOpts = append(execOpts, executor.WithSink(sink))
	}

	return &Client{
		cfg:       cfg,
		configs:   configs,
		runs:      runs,
		artifacts: artifacts,
		exec:      executor.New(runs, artifacts, trainer, execOpts...),
		agg:       results.New(configs, runs, artifacts, cfg.Metric),
		pipeline:  datasets.NewPipeline(datasets.Builtin(), paths.DataDir),
	}, nil
}

// RunOptions override parts of the experiment config for one execution.
type RunOptions struct {
	// RunName selects a single named run section, or names the run group
	// for search-generated trials. Defaults to a generated group name.
	RunName string
	Device  string
	FP16    *bool
}

// RunExperiment resolves the named experiment, executes its trials to
// completion, and returns the experiment results including the runs that
// just finished.
func (c *Client) RunExperiment(ctx context.Context, name string, opts RunOptions) (*models.ExperimentResults, error) {
	cfg, err := c.configs.Resolve(name)
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, opts); err != nil {
		return nil, err
	}

	group := opts.RunName
	if len(cfg.Runs) > 0 {
		group = ""
		if opts.RunName != "" {
			overrides, ok := cfg.Runs[opts.RunName]
			if !ok {
				return nil, &models.ConfigInvalidError{
					Field:  "runs." + opts.RunName,
					Reason: "no run with that name is defined",
				}
			}
			cfg.Runs = map[string]models.HParamMap{opts.RunName: overrides}
		}
	} else if group == "" {
		group = petname.Generate(2, "-")
	}

	runs, err := c.exec.Execute(ctx, cfg, group)
	if err != nil {
		return nil, err
	}
	for run := range runs {
		logger := log.WithFields(log.Fields{
			"experiment": name,
			"run":        run.ID,
			"status":     run.Status,
		})
		if err := run.Err(); err != nil {
			logger.WithError(err).Warn("run failed")
		} else {
			logger.Debug("run completed")
		}
	}

	return c.agg.Summarize(ctx, name)
}

func applyOverrides(cfg *models.ExperimentConfig, opts RunOptions) error {
	if opts.Device != "" {
		cfg.Device = models.Device(opts.Device)
	}
	if opts.FP16 != nil {
		cfg.FP16 = *opts.FP16
	}
	return cfg.Validate()
}

// ShowExperimentConfig returns the raw config file for inspection.
func (c *Client) ShowExperimentConfig(name string) (string, error) {
	return c.configs.Render(name)
}

// ExperimentInfo is one row of the experiment listing.
type ExperimentInfo struct {
	Name      string
	HasConfig bool
	Runs      int
}

// GetExperiments lists every experiment known from either a config file or
// tracked runs.
func (c *Client) GetExperiments(ctx context.Context) ([]ExperimentInfo, error) {
	configured, err := c.configs.List()
	if err != nil {
		return nil, err
	}
	tracked, err := c.runs.ListExperiments(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]*ExperimentInfo)
	order := make([]string, 0, len(configured)+len(tracked))
	for _, name := range configured {
		index[name] = &ExperimentInfo{Name: name, HasConfig: true}
		order = append(order, name)
	}
	for _, name := range tracked {
		info, ok := index[name]
		if !ok {
			info = &ExperimentInfo{Name: name}
			index[name] = info
			order = append(order, name)
		}
		runs, err := c.runs.ListRuns(ctx, name)
		if err != nil {
			return nil, err
		}
		info.Runs = len(runs)
	}

	out := make([]ExperimentInfo, 0, len(order))
	for _, name := range order {
		out = append(out, *index[name])
	}
	return out, nil
}

// GetExperimentResults summarizes the named experiment's runs.
func (c *Client) GetExperimentResults(ctx context.Context, name string) (*models.ExperimentResults, error) {
	return c.agg.Summarize(ctx, name)
}

// GetExperimentsBestRuns returns the fleet-level best-run overview.
func (c *Client) GetExperimentsBestRuns(ctx context.Context) (map[string]models.BestRunSummary, error) {
	return c.agg.SummarizeAll(ctx)
}

// GetBestModel resolves the best run's checkpoint location on disk.
func (c *Client) GetBestModel(ctx context.Context, name string) (string, error) {
	return c.agg.BestArtifact(ctx, name)
}

// SetUpDataset formats a raw corpus into normalized training files.
func (c *Client) SetUpDataset(name string, modify bool, valFraction float64, verbose bool) (*datasets.SetupResult, error) {
	return c.pipeline.SetUp(name, modify, valFraction, verbose)
}

// AnalyzeData computes statistics over a formatted dataset.
func (c *Client) AnalyzeData(name string, verbose bool) (*datasets.Analysis, error) {
	return c.pipeline.Analyze(name, verbose)
}
