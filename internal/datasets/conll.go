package datasets

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// conll2003 parses the four-column CoNLL-2003 layout: token, POS tag, chunk
// tag, NER tag. Sentences are separated by blank lines; -DOCSTART- markers
// are skipped.
type conll2003 struct{}

func (c *conll2003) Dataset() string { return "conll2003" }

func (c *conll2003) RawFiles() map[string]string {
	return map[string]string{
		"train": "train.txt",
		"val":   "valid.txt",
		"test":  "test.txt",
	}
}

func (c *conll2003) Parse(r io.Reader) ([]Sentence, error) {
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
		if strings.HasPrefix(line, "-DOCSTART-") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("line %d: expected 4 columns, got %d", lineNo, len(fields))
		}
		current.Tokens = append(current.Tokens, fields[0])
		current.Tags = append(current.Tags, fields[3])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return sentences, nil
}

func (c *conll2003) MapTag(tag string, modify bool) string {
	if !modify {
		return tag
	}
	// Collapse BIO tags (B-PER, I-PER) onto the plain entity class.
	if strings.HasPrefix(tag, "B-") || strings.HasPrefix(tag, "I-") {
		return tag[2:]
	}
	return tag
}
