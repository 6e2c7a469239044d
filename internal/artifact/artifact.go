// Package artifact manages the filesystem locations of trained model
// checkpoints. Every run writes to its own directory keyed by
// (experiment name, run ID), so concurrent runs never share a location.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nerbox/nerbox/internal/models"
)

type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// RunDir returns the artifact location for a run without touching disk.
func (s *Store) RunDir(experiment, runID string) string {
	return filepath.Join(s.root, experiment, runID)
}

// EnsureRunDir creates the run's artifact directory and returns its path.
func (s *Store) EnsureRunDir(experiment, runID string) (string, error) {
	dir := s.RunDir(experiment, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact dir: %w", err)
	}
	return dir, nil
}

// Resolve checks that the run's artifact location exists and holds at least
// one file. The artifact content itself is left to the caller.
func (s *Store) Resolve(experiment, runID string) (string, error) {
	dir := s.RunDir(experiment, runID)
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return "", fmt.Errorf("run %s/%s: %w", experiment, runID, models.ErrArtifactUnavailable)
	}
	return dir, nil
}
