// Package datasets normalizes raw NER corpora into the token/tag files the
// training collaborator consumes. Dataset-specific parsing is provided by
// formatters looked up in a registry, keyed by dataset identifier.
package datasets

import (
	"fmt"
	"io"
	"sort"

	"github.com/nerbox/nerbox/internal/models"
)

// Sentence is a normalized labeled-token sequence.
type Sentence struct {
	Tokens []string
	Tags   []string
}

// Formatter parses one raw corpus layout into normalized sentences.
type Formatter interface {
	Dataset() string
	// RawFiles maps a phase (train/val/test) to the raw file holding it.
	// Phases without a raw file are carved out of train during setup.
	RawFiles() map[string]string
	Parse(r io.Reader) ([]Sentence, error)
	// MapTag normalizes a raw tag; with modify set, corpus-specific
	// simplifications (BIO prefix stripping, tag aliases) are applied.
	MapTag(tag string, modify bool) string
}

type Registry struct {
	formatters map[string]Formatter
}

// Builtin returns a registry with the supported corpora registered.
func Builtin() *Registry {
	r := &Registry{formatters: make(map[string]Formatter)}
	r.Register(&conll2003{})
	r.Register(&swedishNERCorpus{})
	return r
}

func (r *Registry) Register(f Formatter) {
	r.formatters[f.Dataset()] = f
}

func (r *Registry) Get(name string) (Formatter, error) {
	f, ok := r.formatters[name]
	if !ok {
		return nil, fmt.Errorf("dataset %q: %w", name, models.ErrDatasetNotFound)
	}
	return f, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
