package executor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/nerbox/nerbox/internal/models"
)

// ScriptTrainer shells out to an external training command, one process per
// trial. The process reports progress on stdout as JSON lines:
//
//	{"epoch": 1, "metrics": {"val_loss": 0.41, "f1": 0.82}}
//	...
//	{"final": {"val_loss": 0.30, "f1": 0.90}}
//
// and writes the model checkpoint into the directory given via --output_dir.
type ScriptTrainer struct {
	Command string
}

type scriptLine struct {
	Epoch   int                `json:"epoch"`
	Metrics map[string]float64 `json:"metrics"`
	Final   map[string]float64 `json:"final"`
}

func (t *ScriptTrainer) Train(ctx context.Context, spec TrialSpec, report ReportFunc) (map[string]float64, error) {
	if t.Command == "" {
		return nil, errors.New("no training command configured")
	}

	cmd := exec.CommandContext(ctx, t.Command, t.args(spec)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open trainer stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start training command %q", t.Command)
	}

	var final map[string]float64
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var line scriptLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			// Training frameworks are chatty; ignore anything that is not a
			// progress line.
			continue
		}
		if line.Final != nil {
			final = line.Final
			continue
		}
		if line.Metrics == nil {
			continue
		}
		if err := report(models.EpochMetrics{Epoch: line.Epoch, Metrics: line.Metrics}); err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return final, err
		}
	}

	if err := cmd.Wait(); err != nil {
		return final, errors.Wrapf(err, "training command %q", t.Command)
	}
	if err := scanner.Err(); err != nil {
		return final, errors.Wrap(err, "failed to read trainer output")
	}
	return final, nil
}

// args builds the command line the original training scripts expect, with
// hyperparameters appended in sorted order.
func (t *ScriptTrainer) args(spec TrialSpec) []string {
	args := []string{
		"--experiment_name", spec.Experiment,
		"--run_name", spec.RunID,
		"--dataset_name", spec.Dataset,
		"--pretrained_model_name", spec.Model,
		"--device", string(spec.Device),
		"--fp16", strconv.FormatBool(spec.FP16),
		"--uncased", strconv.FormatBool(spec.Uncased),
		"--output_dir", spec.ArtifactDir,
	}

	keys := make([]string, 0, len(spec.Hyperparams))
	for key := range spec.Hyperparams {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "--"+key, fmt.Sprintf("%v", spec.Hyperparams[key]))
	}
	return args
}
