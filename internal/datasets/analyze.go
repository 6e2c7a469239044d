package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/nerbox/nerbox/internal/models"
)

// PhaseStats summarizes one formatted phase of a dataset.
type PhaseStats struct {
	Sentences int
	Tokens    int
	TagCounts map[string]int
}

// Analysis is the per-phase breakdown of a formatted dataset.
type Analysis struct {
	Dataset string
	Phases  map[string]PhaseStats
}

// Analyze reads the formatted files of a dataset and computes sentence,
// token, and tag statistics. The dataset must have been set up first.
func (p *Pipeline) Analyze(name string, verbose bool) (*Analysis, error) {
	if _, err := p.registry.Get(name); err != nil {
		return nil, err
	}

	analysis := &Analysis{
		Dataset: name,
		Phases:  make(map[string]PhaseStats),
	}

	for _, phase := range phases {
		path := filepath.Join(p.dataDir, name, phase+".csv")
		stats, err := analyzePhase(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("dataset %q, phase %s: %w", name, phase, err)
		}
		analysis.Phases[phase] = stats

		logger := log.WithFields(log.Fields{
			"dataset":   name,
			"phase":     phase,
			"sentences": stats.Sentences,
			"tokens":    stats.Tokens,
		})
		logger.Info("analyzed phase")
		if verbose {
			for tag, count := range stats.TagCounts {
				logger.WithFields(log.Fields{"tag": tag, "count": count}).Info("tag distribution")
			}
		}
	}

	if len(analysis.Phases) == 0 {
		return nil, fmt.Errorf("dataset %q has no formatted files, run setup first: %w", name, models.ErrDatasetNotFound)
	}
	return analysis, nil
}

func analyzePhase(path string) (PhaseStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return PhaseStats{}, err
	}
	defer f.Close()

	stats := PhaseStats{TagCounts: make(map[string]int)}
	r := csv.NewReader(f)
	r.Comma = '\t'
	header := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return PhaseStats{}, err
		}
		if header {
			header = false
			continue
		}
		if len(record) != 2 {
			return PhaseStats{}, fmt.Errorf("malformed record with %d columns", len(record))
		}
		tags := strings.Fields(record[0])
		stats.Sentences++
		stats.Tokens += len(tags)
		for _, tag := range tags {
			stats.TagCounts[tag]++
		}
	}
	return stats, nil
}
