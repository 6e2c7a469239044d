package models

// ExperimentResults is a point-in-time view over all runs of one experiment.
// It is recomputed on demand and never persisted.
type ExperimentResults struct {
	ExperimentName string
	Metric         string
	Runs           []Run
	BestRun        *Run
	// BestArtifact references the best run's model checkpoint directory.
	// The artifact itself is resolved lazily by the caller.
	BestArtifact string
}

// Finished returns the subset of runs eligible for best-run selection.
func (r *ExperimentResults) Finished() []Run {
	var out []Run
	for _, run := range r.Runs {
		if run.Status == RunStatusFinished {
			out = append(out, run)
		}
	}
	return out
}

// BestRunSummary is one row of the fleet-level overview.
type BestRunSummary struct {
	ExperimentName string
	RunID          string
	Metric         string
	Value          float64
	ArtifactPath   string
}
