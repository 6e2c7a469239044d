package executor

import (
	"context"

	"github.com/nerbox/nerbox/internal/models"
)

// TrialSpec describes one training trial handed to the trainer.
type TrialSpec struct {
	Experiment  string
	RunID       string
	Dataset     string
	Model       string
	Uncased     bool
	Device      models.Device
	FP16        bool
	Hyperparams models.HParamMap
	// ArtifactDir is where the trainer must place the model checkpoint and
	// its vocabulary/config files.
	ArtifactDir string
}

// ReportFunc receives the validation metrics of one completed epoch.
type ReportFunc func(models.EpochMetrics) error

// Trainer is the external training collaborator. Implementations report
// metrics after every epoch and must stop promptly once ctx is done; when the
// executor halts a trial through early stopping, context.Cause(ctx) is
// ErrStopTraining. The returned map is the trial's final metric set and may
// be nil, in which case the last reported epoch counts.
type Trainer interface {
	Train(ctx context.Context, spec TrialSpec, report ReportFunc) (map[string]float64, error)
}
