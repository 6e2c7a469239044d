package datasets

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/nerbox/nerbox/internal/models"
)

// splitSeed keeps the carved validation split reproducible across setups.
const splitSeed = 42

var phases = []string{"train", "val", "test"}

// SetupResult reports what a dataset setup produced.
type SetupResult struct {
	Dataset   string
	Sentences map[string]int
	Tags      []string
	OutputDir string
}

// Pipeline reads raw corpora from <dataDir>/<name>/raw and writes the
// normalized per-phase TSV files plus the tag mapping next to them.
type Pipeline struct {
	registry *Registry
	dataDir  string
}

func NewPipeline(registry *Registry, dataDir string) *Pipeline {
	return &Pipeline{registry: registry, dataDir: dataDir}
}

// SetUp formats the named dataset. A validation phase missing from the raw
// corpus is carved out of train with the given fraction.
func (p *Pipeline) SetUp(name string, modify bool, valFraction float64, verbose bool) (*SetupResult, error) {
	formatter, err := p.registry.Get(name)
	if err != nil {
		return nil, err
	}
	if valFraction <= 0 || valFraction >= 1 {
		return nil, fmt.Errorf("val fraction must be in (0, 1), got %v", valFraction)
	}

	rawDir := filepath.Join(p.dataDir, name, "raw")
	if _, err := os.Stat(rawDir); err != nil {
		return nil, fmt.Errorf("raw data for dataset %q missing under %s: %w", name, rawDir, models.ErrDatasetNotFound)
	}

	parsed := make(map[string][]Sentence)
	for phase, rawFile := range formatter.RawFiles() {
		sentences, err := p.parseRaw(formatter, filepath.Join(rawDir, rawFile))
		if err != nil {
			return nil, fmt.Errorf("dataset %q, phase %s: %w", name, phase, err)
		}
		parsed[phase] = sentences
	}

	if _, ok := parsed["val"]; !ok {
		train, val := carveValidation(parsed["train"], valFraction)
		parsed["train"] = train
		parsed["val"] = val
	}

	outDir := filepath.Join(p.dataDir, name)
	result := &SetupResult{
		Dataset:   name,
		Sentences: make(map[string]int),
		OutputDir: outDir,
	}

	tags := make(map[string]bool)
	for _, phase := range phases {
		sentences := parsed[phase]
		if sentences == nil {
			continue
		}
		normalized := normalizeTags(sentences, formatter, modify)
		for _, sentence := range normalized {
			for _, tag := range sentence.Tags {
				tags[tag] = true
			}
		}
		if err := writePhase(filepath.Join(outDir, phase+".csv"), normalized); err != nil {
			return nil, fmt.Errorf("dataset %q: %w", name, err)
		}
		result.Sentences[phase] = len(normalized)
		if verbose {
			log.WithFields(log.Fields{
				"dataset": name, "phase": phase, "sentences": len(normalized),
			}).Info("wrote formatted phase")
		}
	}

	result.Tags = sortedTags(tags)
	if err := writeTagMapping(filepath.Join(outDir, "ner_tag_mapping.json"), result.Tags); err != nil {
		return nil, fmt.Errorf("dataset %q: %w", name, err)
	}

	log.WithFields(log.Fields{
		"dataset": name,
		"tags":    len(result.Tags),
		"out":     outDir,
	}).Info("dataset set up")
	return result, nil
}

func (p *Pipeline) parseRaw(formatter Formatter, path string) ([]Sentence, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("raw file %s: %w", filepath.Base(path), models.ErrDatasetNotFound)
		}
		return nil, err
	}
	defer f.Close()
	return formatter.Parse(f)
}

// carveValidation deterministically moves a fraction of the training
// sentences into the validation split.
func carveValidation(train []Sentence, fraction float64) (remaining, val []Sentence) {
	n := len(train)
	valCount := int(float64(n) * fraction)
	if valCount == 0 && n > 1 {
		valCount = 1
	}

	perm := rand.New(rand.NewSource(splitSeed)).Perm(n)
	inVal := make(map[int]bool, valCount)
	for _, idx := range perm[:valCount] {
		inVal[idx] = true
	}

	for i, sentence := range train {
		if inVal[i] {
			val = append(val, sentence)
		} else {
			remaining = append(remaining, sentence)
		}
	}
	return remaining, val
}

func normalizeTags(sentences []Sentence, formatter Formatter, modify bool) []Sentence {
	out := make([]Sentence, len(sentences))
	for i, sentence := range sentences {
		tags := make([]string, len(sentence.Tags))
		for j, tag := range sentence.Tags {
			tags[j] = formatter.MapTag(tag, modify)
		}
		out[i] = Sentence{Tokens: sentence.Tokens, Tags: tags}
	}
	return out
}

// writePhase writes sentences as a two-column TSV: space-joined tags, then
// space-joined tokens.
func writePhase(path string, sentences []Sentence) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write([]string{"labels", "text"}); err != nil {
		return err
	}
	for _, sentence := range sentences {
		record := []string{strings.Join(sentence.Tags, " "), strings.Join(sentence.Tokens, " ")}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeTagMapping dumps the tag-to-index mapping used by the NER processor.
func writeTagMapping(path string, tags []string) error {
	mapping := make(map[string]int, len(tags))
	for i, tag := range tags {
		mapping[tag] = i
	}
	data, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// sortedTags orders the tag set with "O" first, entity tags after.
func sortedTags(tags map[string]bool) []string {
	var out []string
	for tag := range tags {
		if tag != "O" {
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	if tags["O"] {
		out = append([]string{"O"}, out...)
	}
	return out
}
