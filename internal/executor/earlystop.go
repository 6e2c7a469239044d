package executor

import (
	"fmt"
	"strconv"

	"github.com/nerbox/nerbox/internal/models"
)

// Reserved hyperparameter keys configuring the early-stopping policy.
const (
	hpMonitor  = "monitor"
	hpMode     = "mode"
	hpMinDelta = "min_delta"
	hpPatience = "patience"
)

// earlyStopping halts a trial once the monitored metric has not improved by
// at least minDelta for patience consecutive epochs. A negative patience or
// an empty monitor disables the policy.
type earlyStopping struct {
	monitor  string
	mode     string // "min" or "max"
	minDelta float64
	patience int

	best float64
	wait int
	seen bool
}

func newEarlyStopping(params models.HParamMap) *earlyStopping {
	return &earlyStopping{
		monitor:  stringParam(params, hpMonitor, ""),
		mode:     stringParam(params, hpMode, "min"),
		minDelta: floatParam(params, hpMinDelta, 0),
		patience: intParam(params, hpPatience, -1),
	}
}

func (e *earlyStopping) enabled() bool {
	return e.monitor != "" && e.patience >= 0
}

// update records one epoch and reports whether training should stop.
func (e *earlyStopping) update(metrics map[string]float64) bool {
	if !e.enabled() {
		return false
	}
	value, ok := metrics[e.monitor]
	if !ok {
		return false
	}

	if !e.seen {
		e.seen = true
		e.best = value
		return false
	}

	improved := false
	switch e.mode {
	case "max":
		improved = value > e.best+e.minDelta
	default:
		improved = value < e.best-e.minDelta
	}

	if improved {
		e.best = value
		e.wait = 0
		return false
	}

	e.wait++
	return e.wait >= e.patience
}

func stringParam(params models.HParamMap, key, fallback string) string {
	if v, ok := params[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return fallback
}

func floatParam(params models.HParamMap, key string, fallback float64) float64 {
	v, ok := params[key]
	if !ok {
		return fallback
	}
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func intParam(params models.HParamMap, key string, fallback int) int {
	v, ok := params[key]
	if !ok {
		return fallback
	}
	switch val := v.(type) {
	case int:
		return val
	case float64:
		return int(val)
	case string:
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}
