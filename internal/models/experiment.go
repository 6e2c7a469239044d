package models

import (
	"fmt"
	"sort"
)

type Device string

const (
	DeviceCPU Device = "cpu"
	DeviceGPU Device = "gpu"
)

// SearchStrategy selects how the hyperparameter space is turned into trials.
type SearchStrategy string

const (
	SearchGrid   SearchStrategy = "grid"
	SearchRandom SearchStrategy = "random"
)

type SearchConfig struct {
	Strategy      SearchStrategy `yaml:"strategy,omitempty"`
	MaxTrials     int            `yaml:"max_trials,omitempty"`
	Seed          int64          `yaml:"seed,omitempty"`
	MaxConcurrent int            `yaml:"max_concurrent,omitempty"`
}

// ExperimentConfig is the parsed form of one <name>.yml experiment file.
// It is immutable once execution starts.
type ExperimentConfig struct {
	Name string `yaml:"-"`

	DatasetName string `yaml:"dataset"`
	ModelName   string `yaml:"model"`
	Uncased     bool   `yaml:"uncased,omitempty"`
	Device      Device `yaml:"device,omitempty"`
	FP16        bool   `yaml:"fp16,omitempty"`
	Checkpoints bool   `yaml:"checkpoints,omitempty"`

	// Metric is the primary evaluation metric used for best-run selection.
	Metric string `yaml:"metric,omitempty"`

	Search          SearchConfig         `yaml:"search,omitempty"`
	Hyperparameters Hyperparameters      `yaml:"hyperparameters,omitempty"`
	Runs            map[string]HParamMap `yaml:"runs,omitempty"`
}

// HParamMap is a concrete hyperparameter assignment (scalar values only).
type HParamMap map[string]interface{}

// Strings renders an assignment as string key-value pairs for tracking.
func (h HParamMap) Strings() map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

// Clone returns a shallow copy of the assignment.
func (h HParamMap) Clone() HParamMap {
	out := make(HParamMap, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Hyperparameters maps hyperparameter names to their configured values or
// search dimensions.
type Hyperparameters map[string]Hyperparameter

// Names returns the hyperparameter names in sorted order, so that grid
// expansion is deterministic.
func (h Hyperparameters) Names() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Constants returns the fixed (non-search) part of the space as an assignment.
func (h Hyperparameters) Constants() HParamMap {
	out := make(HParamMap)
	for name, param := range h {
		if !param.IsSearch() {
			out[name] = param.Const
		}
	}
	return out
}

func (c *ExperimentConfig) Validate() error {
	if c.DatasetName == "" {
		return &ConfigInvalidError{Field: "dataset", Reason: "required"}
	}
	if c.ModelName == "" {
		return &ConfigInvalidError{Field: "model", Reason: "required"}
	}
	switch c.Device {
	case "", DeviceCPU, DeviceGPU:
	default:
		return &ConfigInvalidError{Field: "device", Reason: fmt.Sprintf("unknown device %q (valid: cpu, gpu)", c.Device)}
	}
	switch c.Search.Strategy {
	case "", SearchGrid, SearchRandom:
	default:
		return &ConfigInvalidError{
			Field:  "search.strategy",
			Reason: fmt.Sprintf("unknown strategy %q (valid: grid, random)", c.Search.Strategy),
		}
	}
	if c.Search.Strategy == SearchRandom && c.Search.MaxTrials <= 0 {
		return &ConfigInvalidError{Field: "search.max_trials", Reason: "must be positive for random search"}
	}
	for name, param := range c.Hyperparameters {
		if err := param.validate(); err != nil {
			return &ConfigInvalidError{Field: "hyperparameters." + name, Reason: err.Error()}
		}
	}
	for runName, overrides := range c.Runs {
		for key := range overrides {
			if _, ok := c.Hyperparameters[key]; !ok {
				return &ConfigInvalidError{
					Field:  fmt.Sprintf("runs.%s.%s", runName, key),
					Reason: "overrides a hyperparameter that is not declared",
				}
			}
		}
	}
	return nil
}
