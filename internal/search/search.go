// Package search expands an experiment's hyperparameter space into concrete
// trials. Explicit run sections take precedence; otherwise the configured
// strategy (grid or random) is applied to the search dimensions.
package search

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/nerbox/nerbox/internal/models"
)

// Trial is one hyperparameter assignment scheduled for execution. Names are
// zero-padded so lexicographic order matches creation order.
type Trial struct {
	Name   string
	Params models.HParamMap
}

// Trials expands the experiment config into its list of trials. The result is
// deterministic for a given config (random search is seeded).
func Trials(cfg *models.ExperimentConfig) ([]Trial, error) {
	if len(cfg.Runs) > 0 {
		return namedTrials(cfg), nil
	}

	switch cfg.Search.Strategy {
	case models.SearchRandom:
		return randomTrials(cfg.Hyperparameters, cfg.Search.MaxTrials, cfg.Search.Seed)
	case models.SearchGrid, "":
		return gridTrials(cfg.Hyperparameters)
	default:
		return nil, fmt.Errorf("unknown search strategy: %s", cfg.Search.Strategy)
	}
}

// namedTrials builds one trial per explicit run section, applying its
// overrides on top of the base hyperparameters.
func namedTrials(cfg *models.ExperimentConfig) []Trial {
	names := make([]string, 0, len(cfg.Runs))
	for name := range cfg.Runs {
		names = append(names, name)
	}
	sort.Strings(names)

	base := cfg.Hyperparameters.Constants()
	trials := make([]Trial, 0, len(names))
	for _, name := range names {
		params := base.Clone()
		for k, v := range cfg.Runs[name] {
			params[k] = v
		}
		trials = append(trials, Trial{Name: name, Params: params})
	}
	return trials
}

// trialName zero-pads to the trial count's width so that lexicographic order
// of the generated names matches creation order at any scale.
func trialName(i, total int) string {
	width := len(strconv.Itoa(total))
	if width < 3 {
		width = 3
	}
	return fmt.Sprintf("run-%0*d", width, i+1)
}
