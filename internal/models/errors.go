package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the CLI and the programmatic API. Both surfaces
// report the same kinds for the same inputs.
var (
	ErrConfigNotFound      = errors.New("experiment config not found")
	ErrNoRunsFound         = errors.New("no runs found for experiment")
	ErrNoCompletedRuns     = errors.New("no completed runs for experiment")
	ErrDatasetNotFound     = errors.New("dataset not found")
	ErrArtifactUnavailable = errors.New("model artifact unavailable")
)

// ConfigInvalidError reports a missing or malformed experiment config field.
type ConfigInvalidError struct {
	Field  string
	Reason string
}

func (e *ConfigInvalidError) Error() string {
	return fmt.Sprintf("invalid experiment config: field %q: %s", e.Field, e.Reason)
}

// RunFailedError carries the failure reason of a single run. It is recorded
// on the run itself and never aborts sibling runs.
type RunFailedError struct {
	RunID  string
	Reason string
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("run %s failed: %s", e.RunID, e.Reason)
}
