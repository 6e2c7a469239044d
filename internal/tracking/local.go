package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/nerbox/nerbox/internal/models"
)

const (
	runFile     = "run.json"
	paramsFile  = "params.json"
	metricsFile = "metrics.ndjson"
)

// LocalStore keeps one directory per run under <root>/<experiment>/<runID>.
// run.json holds the run record, params.json the assignment, metrics.ndjson
// the appended epoch history.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) runDir(experiment, runID string) string {
	return filepath.Join(s.root, experiment, runID)
}

func (s *LocalStore) CreateRun(_ context.Context, run *models.Run) error {
	dir := s.runDir(run.ExperimentName, run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run dir: %w", err)
	}
	return s.writeRun(dir, run)
}

func (s *LocalStore) UpdateRun(_ context.Context, run *models.Run) error {
	dir := s.runDir(run.ExperimentName, run.ID)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("run %s/%s not tracked: %w", run.ExperimentName, run.ID, err)
	}
	return s.writeRun(dir, run)
}

// writeRun replaces run.json atomically so a concurrent reader never sees a
// torn record.
func (s *LocalStore) writeRun(dir string, run *models.Run) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	tmp := filepath.Join(dir, runFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}
	return os.Rename(tmp, filepath.Join(dir, runFile))
}

func (s *LocalStore) LogParams(_ context.Context, experiment, runID string, params map[string]string) error {
	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	path := filepath.Join(s.runDir(experiment, runID), paramsFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write params: %w", err)
	}
	return nil
}

func (s *LocalStore) LogEpoch(_ context.Context, experiment, runID string, epoch models.EpochMetrics) error {
	path := filepath.Join(s.runDir(experiment, runID), metricsFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(epoch); err != nil {
		return fmt.Errorf("failed to append epoch metrics: %w", err)
	}
	return nil
}

func (s *LocalStore) GetRun(_ context.Context, experiment, runID string) (*models.Run, error) {
	return s.readRun(s.runDir(experiment, runID))
}

func (s *LocalStore) readRun(dir string) (*models.Run, error) {
	data, err := os.ReadFile(filepath.Join(dir, runFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}
	var run models.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
	}
	return &run, nil
}

// ListRuns returns the experiment's runs sorted by run ID. Runs whose record
// cannot be read yet (still being created) are skipped, not errors.
func (s *LocalStore) ListRuns(_ context.Context, experiment string) ([]models.Run, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, experiment))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read experiment dir: %w", err)
	}

	var runs []models.Run
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		run, err := s.readRun(filepath.Join(s.root, experiment, entry.Name()))
		if err != nil {
			continue
		}
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID < runs[j].ID })
	return runs, nil
}

func (s *LocalStore) ListExperiments(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tracking dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
