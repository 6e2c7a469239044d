// Package store resolves named experiment configurations from the config
// directory. One YAML file per experiment, discoverable by name; the store is
// read-only and safe for concurrent use.
package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerbox/nerbox/internal/models"
)

type Store struct {
	configDir string
}

func New(configDir string) *Store {
	return &Store{configDir: configDir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.configDir, name+".yml")
}

// Resolve loads and validates the configuration for the named experiment.
func (s *Store) Resolve(name string) (*models.ExperimentConfig, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("experiment %q: %w", name, models.ErrConfigNotFound)
		}
		return nil, fmt.Errorf("failed to open config for experiment %q: %w", name, err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("experiment %q: %w", name, err)
	}
	cfg.Name = name
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("experiment %q: %w", name, err)
	}
	return cfg, nil
}

// Parse decodes an experiment config without validating it.
func Parse(r io.Reader) (*models.ExperimentConfig, error) {
	var cfg models.ExperimentConfig
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, &models.ConfigInvalidError{Field: "(file)", Reason: err.Error()}
	}
	return &cfg, nil
}

// Render returns the raw config file for inspection without execution.
func (s *Store) Render(name string) (string, error) {
	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("experiment %q: %w", name, models.ErrConfigNotFound)
		}
		return "", fmt.Errorf("failed to read config for experiment %q: %w", name, err)
	}
	return string(raw), nil
}

// List enumerates the experiment names with a config file, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yml") {
			names = append(names, strings.TrimSuffix(name, ".yml"))
		}
	}
	sort.Strings(names)
	return names, nil
}
