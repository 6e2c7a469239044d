package models

import "time"

type RunStatus string

const (
	RunStatusPending  RunStatus = "PENDING"
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == RunStatusFinished || s == RunStatusFailed
}

// Run is one training trial under an experiment, with a fixed hyperparameter
// assignment. Runs are keyed by (ExperimentName, ID); the ID doubles as the
// deterministic tie-breaker for best-run selection.
type Run struct {
	ID             string             `json:"run_id"`
	ExperimentName string             `json:"experiment_name"`
	Status         RunStatus          `json:"status"`
	Reason         string             `json:"reason,omitempty"`
	Hyperparams    HParamMap          `json:"hyperparams,omitempty"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
	Epochs         int                `json:"epochs,omitempty"`
	StoppedEarly   bool               `json:"stopped_early,omitempty"`
	ArtifactPath   string             `json:"artifact_path,omitempty"`
	StartTime      time.Time          `json:"start_time"`
	EndTime        *time.Time         `json:"end_time,omitempty"`
}

// Err returns the run's failure as a typed error, or nil if the run did not
// fail.
func (r *Run) Err() error {
	if r.Status != RunStatusFailed {
		return nil
	}
	return &RunFailedError{RunID: r.ID, Reason: r.Reason}
}

// EpochMetrics is one epoch's worth of reported metric values.
type EpochMetrics struct {
	Epoch   int                `json:"epoch"`
	Metrics map[string]float64 `json:"metrics"`
}
