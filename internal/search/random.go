package search

import (
	"math"
	"math/rand"

	"github.com/nerbox/nerbox/internal/models"
)

// randomTrials samples maxTrials independent assignments from the search
// space. The generator is seeded so a config always expands to the same
// trials.
func randomTrials(hparams models.Hyperparameters, maxTrials int, seed int64) ([]Trial, error) {
	rng := rand.New(rand.NewSource(seed))

	trials := make([]Trial, 0, maxTrials)
	for i := 0; i < maxTrials; i++ {
		trials = append(trials, Trial{Name: trialName(i, maxTrials), Params: sampleAll(hparams, rng)})
	}
	return trials, nil
}

func sampleAll(hparams models.Hyperparameters, rng *rand.Rand) models.HParamMap {
	params := make(models.HParamMap, len(hparams))
	for _, name := range hparams.Names() {
		params[name] = sampleOne(hparams[name], rng)
	}
	return params
}

func sampleOne(param models.Hyperparameter, rng *rand.Rand) interface{} {
	switch {
	case len(param.Values) > 0:
		return param.Values[rng.Intn(len(param.Values))]
	case param.Range != nil:
		r := param.Range
		val := r.Min + rng.Float64()*(r.Max-r.Min)
		if r.LogBase != 0 {
			val = math.Pow(r.LogBase, val)
		}
		if r.Int {
			return int(math.Round(val))
		}
		return val
	default:
		return param.Const
	}
}
