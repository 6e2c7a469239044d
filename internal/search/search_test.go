package search

import (
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerbox/nerbox/internal/models"
)

func listParams(counts []int) models.Hyperparameters {
	hparams := make(models.Hyperparameters, len(counts))
	for i, count := range counts {
		values := make([]interface{}, count)
		for j := range values {
			values[j] = j
		}
		hparams[strconv.Itoa(i)] = models.Hyperparameter{Values: values}
	}
	return hparams
}

func checkGrid(t *testing.T, counts []int) {
	t.Helper()
	numTrials := 1
	for _, count := range counts {
		numTrials *= count
	}
	trials, err := gridTrials(listParams(counts))
	require.NoError(t, err)
	assert.Len(t, trials, numTrials)
}

func TestGridFunctionality(t *testing.T) {
	checkGrid(t, []int{1})
	checkGrid(t, []int{4})
	checkGrid(t, []int{1, 4})
	checkGrid(t, []int{3, 4})
	checkGrid(t, []int{2, 3, 4})
	checkGrid(t, []int{2, 2, 3, 3, 4, 5})
}

func TestGridCarriesConstants(t *testing.T) {
	hparams := models.Hyperparameters{
		"lr_max":      {Values: []interface{}{1e-5, 3e-5}},
		"lr_schedule": {Const: "constant"},
	}
	trials, err := gridTrials(hparams)
	require.NoError(t, err)
	require.Len(t, trials, 2)

	assert.Equal(t, "run-001", trials[0].Name)
	assert.Equal(t, "run-002", trials[1].Name)
	for _, trial := range trials {
		assert.Equal(t, "constant", trial.Params["lr_schedule"])
	}
	assert.Equal(t, 1e-5, trials[0].Params["lr_max"])
	assert.Equal(t, 3e-5, trials[1].Params["lr_max"])
}

func TestGridRangeValues(t *testing.T) {
	values, err := gridValues(models.Hyperparameter{
		Range: &models.RangeParam{Min: 0, Max: 10, Count: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{0.0, 5.0, 10.0}, values)

	values, err = gridValues(models.Hyperparameter{
		Range: &models.RangeParam{Min: 16, Max: 64, Count: 2, Int: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{16, 64}, values)

	values, err = gridValues(models.Hyperparameter{
		Range: &models.RangeParam{Min: -5, Max: -3, Count: 3, LogBase: 10},
	})
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.InDelta(t, 1e-5, values[0].(float64), 1e-12)
	assert.InDelta(t, 1e-4, values[1].(float64), 1e-11)
	assert.InDelta(t, 1e-3, values[2].(float64), 1e-10)

	_, err = gridValues(models.Hyperparameter{
		Range: &models.RangeParam{Min: 0, Max: 1},
	})
	require.Error(t, err)
}

func TestGridNoSearchDimensions(t *testing.T) {
	trials, err := gridTrials(models.Hyperparameters{
		"batch_size": {Const: 32},
	})
	require.NoError(t, err)
	require.Len(t, trials, 1)
	assert.Equal(t, 32, trials[0].Params["batch_size"])
}

func TestRandomDeterministic(t *testing.T) {
	hparams := models.Hyperparameters{
		"lr_max":     {Range: &models.RangeParam{Min: -5, Max: -4, LogBase: 10}},
		"batch_size": {Values: []interface{}{16, 32, 64}},
		"mode":       {Const: "min"},
	}

	first, err := randomTrials(hparams, 4, 7)
	require.NoError(t, err)
	second, err := randomTrials(hparams, 4, 7)
	require.NoError(t, err)

	require.Len(t, first, 4)
	assert.Equal(t, first, second)
	for _, trial := range first {
		lr := trial.Params["lr_max"].(float64)
		assert.GreaterOrEqual(t, lr, 1e-5)
		assert.LessOrEqual(t, lr, 1e-4)
		assert.Contains(t, []interface{}{16, 32, 64}, trial.Params["batch_size"])
		assert.Equal(t, "min", trial.Params["mode"])
	}
}

func TestTrialNamesStayOrderedPastThreeDigits(t *testing.T) {
	values := make([]interface{}, 1200)
	for i := range values {
		values[i] = i
	}
	trials, err := gridTrials(models.Hyperparameters{
		"lr_max": {Values: values},
	})
	require.NoError(t, err)
	require.Len(t, trials, 1200)

	assert.Equal(t, "run-0001", trials[0].Name)
	assert.Equal(t, "run-1000", trials[999].Name)
	assert.Equal(t, "run-1200", trials[1199].Name)
	assert.True(t, sort.SliceIsSorted(trials, func(i, j int) bool {
		return trials[i].Name < trials[j].Name
	}))
}

func TestNamedRunsTakePrecedence(t *testing.T) {
	cfg := &models.ExperimentConfig{
		Name:        "exp",
		DatasetName: "conll2003",
		ModelName:   "bert-base",
		Hyperparameters: models.Hyperparameters{
			"lr_max":     {Const: 2e-5},
			"max_epochs": {Const: 20},
		},
		Runs: map[string]models.HParamMap{
			"runB": {"lr_max": 3e-5},
			"runA": {},
		},
	}

	trials, err := Trials(cfg)
	require.NoError(t, err)
	require.Len(t, trials, 2)

	assert.Equal(t, "runA", trials[0].Name)
	assert.Equal(t, 2e-5, trials[0].Params["lr_max"])
	assert.Equal(t, "runB", trials[1].Name)
	assert.Equal(t, 3e-5, trials[1].Params["lr_max"])
	assert.Equal(t, 20, trials[1].Params["max_epochs"])
}
