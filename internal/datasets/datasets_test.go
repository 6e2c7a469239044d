package datasets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerbox/nerbox/internal/models"
)

const conllSample = `-DOCSTART- -X- -X- O

EU NNP B-NP B-ORG
rejects VBZ B-VP O
German JJ B-NP B-MISC
call NN I-NP O
. . O O

Peter NNP B-NP B-PER
Blackburn NNP I-NP I-PER
`

const swedishSample = `Stockholm LOC
ligger O
i O
Sverige LOC

Ericsson ORG*
växer O
`

func TestConllParse(t *testing.T) {
	f := &conll2003{}
	sentences, err := f.Parse(strings.NewReader(conllSample))
	require.NoError(t, err)

	require.Len(t, sentences, 2)
	assert.Equal(t, []string{"EU", "rejects", "German", "call", "."}, sentences[0].Tokens)
	assert.Equal(t, []string{"B-ORG", "O", "B-MISC", "O", "O"}, sentences[0].Tags)
	assert.Equal(t, []string{"B-PER", "I-PER"}, sentences[1].Tags)
}

func TestConllParseMalformed(t *testing.T) {
	f := &conll2003{}
	_, err := f.Parse(strings.NewReader("EU NNP B-NP\n"))
	require.Error(t, err)
}

func TestConllMapTag(t *testing.T) {
	f := &conll2003{}
	assert.Equal(t, "B-PER", f.MapTag("B-PER", false))
	assert.Equal(t, "PER", f.MapTag("B-PER", true))
	assert.Equal(t, "PER", f.MapTag("I-PER", true))
	assert.Equal(t, "O", f.MapTag("O", true))
}

func TestSwedishParse(t *testing.T) {
	f := &swedishNERCorpus{}
	sentences, err := f.Parse(strings.NewReader(swedishSample))
	require.NoError(t, err)

	require.Len(t, sentences, 2)
	assert.Equal(t, []string{"LOC", "O", "O", "LOC"}, sentences[0].Tags)
	assert.Equal(t, "ORG*", sentences[1].Tags[0])
	assert.Equal(t, "ORG", f.MapTag("ORG*", true))
}

func TestRegistry(t *testing.T) {
	r := Builtin()
	assert.Equal(t, []string{"conll2003", "swedish_ner_corpus"}, r.Names())

	_, err := r.Get("conll2003")
	require.NoError(t, err)

	_, err = r.Get("unknown_corpus")
	require.ErrorIs(t, err, models.ErrDatasetNotFound)
}

func writeRaw(t *testing.T, dataDir, dataset string, files map[string]string) {
	t.Helper()
	rawDir := filepath.Join(dataDir, dataset, "raw")
	require.NoError(t, os.MkdirAll(rawDir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(rawDir, name), []byte(content), 0o644))
	}
}

func TestSetUpConll(t *testing.T) {
	dataDir := t.TempDir()
	writeRaw(t, dataDir, "conll2003", map[string]string{
		"train.txt": conllSample,
		"valid.txt": conllSample,
		"test.txt":  conllSample,
	})

	p := NewPipeline(Builtin(), dataDir)
	result, err := p.SetUp("conll2003", false, 0.1, false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sentences["train"])
	assert.Equal(t, 2, result.Sentences["val"])
	assert.Equal(t, 2, result.Sentences["test"])
	assert.Contains(t, result.Tags, "B-ORG")
	assert.Equal(t, "O", result.Tags[0])

	for _, file := range []string{"train.csv", "val.csv", "test.csv", "ner_tag_mapping.json"} {
		_, err := os.Stat(filepath.Join(dataDir, "conll2003", file))
		require.NoError(t, err)
	}
}

func TestSetUpCarvesValidation(t *testing.T) {
	// Ten single-token sentences so a 0.2 fraction carves exactly two.
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString("tok O\n\n")
	}
	dataDir := t.TempDir()
	writeRaw(t, dataDir, "swedish_ner_corpus", map[string]string{
		"train_corpus.txt": sb.String(),
		"test_corpus.txt":  swedishSample,
	})

	p := NewPipeline(Builtin(), dataDir)
	result, err := p.SetUp("swedish_ner_corpus", true, 0.2, false)
	require.NoError(t, err)

	assert.Equal(t, 8, result.Sentences["train"])
	assert.Equal(t, 2, result.Sentences["val"])
	assert.Equal(t, 2, result.Sentences["test"])
	// modify folds ORG* into ORG
	assert.NotContains(t, result.Tags, "ORG*")
	assert.Contains(t, result.Tags, "ORG")

	// The split is deterministic across repeated setups.
	again, err := p.SetUp("swedish_ner_corpus", true, 0.2, false)
	require.NoError(t, err)
	assert.Equal(t, result.Sentences, again.Sentences)
}

func TestSetUpUnknownDataset(t *testing.T) {
	p := NewPipeline(Builtin(), t.TempDir())
	_, err := p.SetUp("unknown_corpus", false, 0.1, false)
	require.ErrorIs(t, err, models.ErrDatasetNotFound)
}

func TestSetUpMissingRawData(t *testing.T) {
	p := NewPipeline(Builtin(), t.TempDir())
	_, err := p.SetUp("conll2003", false, 0.1, false)
	require.ErrorIs(t, err, models.ErrDatasetNotFound)
}

func TestSetUpInvalidValFraction(t *testing.T) {
	p := NewPipeline(Builtin(), t.TempDir())
	_, err := p.SetUp("conll2003", false, 1.5, false)
	require.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	dataDir := t.TempDir()
	writeRaw(t, dataDir, "conll2003", map[string]string{
		"train.txt": conllSample,
		"valid.txt": conllSample,
		"test.txt":  conllSample,
	})

	p := NewPipeline(Builtin(), dataDir)
	_, err := p.SetUp("conll2003", false, 0.1, false)
	require.NoError(t, err)

	analysis, err := p.Analyze("conll2003", true)
	require.NoError(t, err)

	train := analysis.Phases["train"]
	assert.Equal(t, 2, train.Sentences)
	assert.Equal(t, 7, train.Tokens)
	assert.Equal(t, 1, train.TagCounts["B-ORG"])
	assert.Equal(t, 3, train.TagCounts["O"])
}

func TestAnalyzeNotSetUp(t *testing.T) {
	p := NewPipeline(Builtin(), t.TempDir())
	_, err := p.Analyze("conll2003", false)
	require.ErrorIs(t, err, models.ErrDatasetNotFound)
}
