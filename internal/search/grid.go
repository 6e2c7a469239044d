package search

import (
	"fmt"
	"math"

	"github.com/nerbox/nerbox/internal/models"
)

// gridTrials builds one trial per point of the cartesian product over all
// search dimensions. Constant parameters are carried into every trial.
func gridTrials(hparams models.Hyperparameters) ([]Trial, error) {
	axes, err := gridAxes(hparams)
	if err != nil {
		return nil, err
	}

	points := cartesianProduct(axes)
	base := hparams.Constants()

	trials := make([]Trial, 0, len(points))
	for i, point := range points {
		params := base.Clone()
		for k, v := range point {
			params[k] = v
		}
		trials = append(trials, Trial{Name: trialName(i, len(points)), Params: params})
	}
	return trials, nil
}

type axis struct {
	name   string
	values []interface{}
}

func gridAxes(hparams models.Hyperparameters) ([]axis, error) {
	var axes []axis
	for _, name := range hparams.Names() {
		param := hparams[name]
		if !param.IsSearch() {
			continue
		}
		values, err := gridValues(param)
		if err != nil {
			return nil, fmt.Errorf("hyperparameter %s: %w", name, err)
		}
		axes = append(axes, axis{name: name, values: values})
	}
	return axes, nil
}

// gridValues returns the gridded values for a single search dimension.
func gridValues(param models.Hyperparameter) ([]interface{}, error) {
	if len(param.Values) > 0 {
		return param.Values, nil
	}

	r := param.Range
	if r.Count < 2 {
		return nil, fmt.Errorf("range dimension needs count >= 2 for grid search")
	}

	values := make([]interface{}, 0, r.Count)
	for i := 0; i < r.Count; i++ {
		frac := float64(i) / float64(r.Count-1)
		val := r.Min + frac*(r.Max-r.Min)
		if r.LogBase != 0 {
			val = math.Pow(r.LogBase, val)
		}
		if r.Int {
			values = append(values, int(math.Round(val)))
		} else {
			values = append(values, val)
		}
	}
	return values, nil
}

func cartesianProduct(axes []axis) []models.HParamMap {
	if len(axes) == 0 {
		// A space with no search dimensions still yields a single trial.
		return []models.HParamMap{{}}
	}

	inner := cartesianProduct(axes[1:])
	result := make([]models.HParamMap, 0, len(axes[0].values)*len(inner))
	for _, value := range axes[0].values {
		for _, point := range inner {
			combined := point.Clone()
			combined[axes[0].name] = value
			result = append(result, combined)
		}
	}
	return result
}
