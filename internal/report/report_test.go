package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/pipeline"
)

const sha = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func sampleOutlineResult() *pipeline.OutlineResult {
	return &pipeline.OutlineResult{
		RunID: "run-1",
		Documents: []pipeline.DocumentOutline{{
			DocumentID: "guide.pdf",
			Title:      "Understanding AI in Healthcare",
			Entries: []doctree.OutlineEntry{
				{Level: doctree.LevelH1, Text: "Introduction", Page: 1},
				{Level: doctree.LevelH2, Text: "Background", Page: 2},
				{Level: doctree.LevelH3, Text: "R&D <notes>", Page: 2},
			},
			Pages:   3,
			SHA256:  sha,
			Elapsed: 1234 * time.Millisecond,
		}},
		Elapsed: 2 * time.Second,
	}
}

func sampleRankResult() *pipeline.RankResult {
	sec := doctree.ScoredSection{
		Section: doctree.Section{DocumentID: "alpha.pdf", Page: 3, Title: "Revenue Trends"},
		Score:   0.812345678,
		Rank:    1,
		Excerpt: &doctree.Subsection{DocumentID: "alpha.pdf", Page: 4, Text: "Revenue grew twelve percent."},
	}
	return &pipeline.RankResult{
		RunID:         "run-2",
		Query:         doctree.PersonaQuery{Persona: "Investment Analyst", Job: "Analyze revenue trends"},
		Documents:     []string{"alpha.pdf"},
		Sections:      []doctree.ScoredSection{sec},
		TotalSections: 7,
		Provider:      "hash",
		Skipped:       []pipeline.Skip{{Document: "bad.pdf", Kind: "corrupt", Reason: "bad xref"}},
		Elapsed:       1500 * time.Millisecond,
	}
}

func TestStem(t *testing.T) {
	assert.Equal(t, "report.json", Stem("report.pdf"))
	assert.Equal(t, "notes.v2.json", Stem("/in/notes.v2.md"))
	assert.Equal(t, "README.json", Stem("README"))
}

func TestNewOutline(t *testing.T) {
	out := NewOutline(sampleOutlineResult().Documents[0])
	assert.Equal(t, "Understanding AI in Healthcare", out.Title)
	require.Len(t, out.Outline, 3)
	assert.Equal(t, OutlineEntry{Level: "H2", Text: "Background", Page: 2}, out.Outline[1])
	require.NoError(t, Validate(SchemaOutline, out))
}

func TestNewOutline_EmptyIsArray(t *testing.T) {
	out := NewOutline(pipeline.DocumentOutline{DocumentID: "blank.pdf"})
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"","outline":[]}`, string(data))
	require.NoError(t, Validate(SchemaOutline, out))
}

func TestNewOutlineReport(t *testing.T) {
	rep := NewOutlineReport(sampleOutlineResult())
	assert.Equal(t, "run-1", rep.RunID)
	require.Len(t, rep.Documents, 1)
	assert.Equal(t, "guide.json", rep.Documents[0].Output)
	assert.Equal(t, 3, rep.Documents[0].Headings)
	assert.InDelta(t, 1.234, rep.Documents[0].ProcessingTime, 1e-9)
	assert.NotNil(t, rep.Skipped)
	require.NoError(t, Validate(SchemaOutlineReport, rep))
}

func TestNewRanking(t *testing.T) {
	r := NewRanking(sampleRankResult())
	assert.Equal(t, "Investment Analyst", r.Metadata.Persona)
	assert.Equal(t, 7, r.Metadata.TotalSections)
	assert.Equal(t, "hash", r.Metadata.EmbeddingProvider)
	require.Len(t, r.Metadata.SkippedDocuments, 1)

	require.Len(t, r.ExtractedSections, 1)
	es := r.ExtractedSections[0]
	assert.Equal(t, 1, es.ImportanceRank)
	assert.Equal(t, 0.8123, es.RelevanceScore)
	require.Len(t, es.Subsections, 1)
	assert.Equal(t, 4, es.Subsections[0].Page)
	require.NoError(t, Validate(SchemaRanking, r))
}

func TestNewRanking_NoValidInput(t *testing.T) {
	r := NewRanking(&pipeline.RankResult{RunID: "run-3", Provider: "none"})
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"extracted_sections":[]`)
	assert.Contains(t, string(data), `"documents":[]`)
	require.NoError(t, ValidateBytes(SchemaRanking, data))
}

func TestValidate_RejectsBadShapes(t *testing.T) {
	err := ValidateBytes(SchemaOutline, []byte(`{"title":"x","outline":[{"level":"H4","text":"a","page":0}]}`))
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.GreaterOrEqual(t, len(ve.Errors), 2)
	assert.Contains(t, err.Error(), "outline")

	err = ValidateBytes(SchemaRanking, []byte(`{"metadata":{}}`))
	require.ErrorAs(t, err, &ve)

	assert.Error(t, ValidateBytes("nope", []byte(`{}`)))
}

func TestEncode_NoHTMLEscaping(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, NewOutline(sampleOutlineResult().Documents[0])))
	assert.Contains(t, buf.String(), "R&D <notes>")
	assert.Contains(t, buf.String(), "\n  \"outline\"")
}

func TestWriteOutlines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteOutlines(dir, sampleOutlineResult())
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "guide.json"), paths[0])
	assert.Equal(t, filepath.Join(dir, OutlineReportFile), paths[1])

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	var got Outline
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Len(t, got.Outline, 3)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")
}

func TestWriteRanking(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteRanking(dir, sampleRankResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, RankingFile), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, ValidateBytes(SchemaRanking, data))
}

func TestWrite_InvalidDocumentNotWritten(t *testing.T) {
	dir := t.TempDir()
	_, err := Write(dir, "bad.json", SchemaOutline, map[string]any{"title": 3})
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "bad.json"))
	assert.True(t, os.IsNotExist(statErr))
}
