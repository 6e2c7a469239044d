package datasets

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// tag aliases of the Swedish NER corpus
var swedishTagMap = map[string]string{
	"ORG*": "ORG",
}

// swedishNERCorpus parses the two-column Swedish NER corpus layout: token
// and tag separated by whitespace, blank line between sentences. The corpus
// ships without a validation split; one is carved from train during setup.
type swedishNERCorpus struct{}

func (s *swedishNERCorpus) Dataset() string { return "swedish_ner_corpus" }

func (s *swedishNERCorpus) RawFiles() map[string]string {
	return map[string]string{
		"train": "train_corpus.txt",
		"test":  "test_corpus.txt",
	}
}

func (s *swedishNERCorpus) Parse(r io.Reader) ([]Sentence, error) {
	var sentences []Sentence
	var current Sentence

	flush := func() {
		if len(current.Tokens) > 0 {
			sentences = append(sentences, current)
			current = Sentence{}
		}
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 columns, got %d", lineNo, len(fields))
		}
		current.Tokens = append(current.Tokens, fields[0])
		current.Tags = append(current.Tags, strings.ToUpper(fields[1]))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return sentences, nil
}

func (s *swedishNERCorpus) MapTag(tag string, modify bool) string {
	if !modify {
		return tag
	}
	if mapped, ok := swedishTagMap[tag]; ok {
		return mapped
	}
	return tag
}
