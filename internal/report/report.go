// Package report shapes pipeline results into the JSON documents written to disk and
// returned over the API.
package report

import (
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/docinsight/internal/pipeline"
)

// Output file names.
const (
	OutlineReportFile = "outline_report.json"
	RankingFile       = "persona_ranking.json"
)

// OutlineEntry is one heading in an outline file.
type OutlineEntry struct {
	Level string `json:"level"`
	Text  string `json:"text"`
	Page  int    `json:"page"`
}

// Outline is the per-document <stem>.json file.
type Outline struct {
	Title   string         `json:"title"`
	Outline []OutlineEntry `json:"outline"`
}

// OutlineDocument summarizes one document in the outline run report.
type OutlineDocument struct {
	Document       string  `json:"document"`
	Output         string  `json:"output"`
	Title          string  `json:"title"`
	Headings       int     `json:"headings"`
	Pages          int     `json:"pages"`
	SHA256         string  `json:"sha256"`
	ProcessingTime float64 `json:"processing_time"`
}

// OutlineReport is outline_report.json.
type OutlineReport struct {
	RunID          string            `json:"run_id"`
	Documents      []OutlineDocument `json:"documents"`
	Skipped        []pipeline.Skip   `json:"skipped"`
	BudgetExceeded bool              `json:"budget_exceeded"`
	ProcessingTime float64           `json:"processing_time"`
}

// Metadata is the header of persona_ranking.json.
type Metadata struct {
	Documents         []string        `json:"documents"`
	Persona           string          `json:"persona"`
	Job               string          `json:"job"`
	ProcessingTime    float64         `json:"processing_time"`
	RunID             string          `json:"run_id"`
	Degraded          bool            `json:"degraded"`
	DegradedReason    string          `json:"degraded_reason,omitempty"`
	BudgetExceeded    bool            `json:"budget_exceeded"`
	EmbeddingProvider string          `json:"embedding_provider"`
	TotalSections     int             `json:"total_sections"`
	SkippedDocuments  []pipeline.Skip `json:"skipped_documents"`
}

// Subsection is the refined excerpt of a ranked section.
type Subsection struct {
	Page        int    `json:"page"`
	RefinedText string `json:"refined_text"`
}

// ExtractedSection is one ranked section.
type ExtractedSection struct {
	Document       string       `json:"document"`
	Page           int          `json:"page"`
	SectionTitle   string       `json:"section_title"`
	ImportanceRank int          `json:"importance_rank"`
	RelevanceScore float64      `json:"relevance_score"`
	Subsections    []Subsection `json:"subsections"`
}

// Ranking is persona_ranking.json.
type Ranking struct {
	Metadata          Metadata           `json:"metadata"`
	ExtractedSections []ExtractedSection `json:"extracted_sections"`
}

// Stem returns the output file name for a document's outline: the input name with its
// extension replaced by .json.
func Stem(documentID string) string {
	base := filepath.Base(documentID)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
}

// NewOutline converts one outlined document into its output file shape.
func NewOutline(d pipeline.DocumentOutline) Outline {
	out := Outline{Title: d.Title, Outline: make([]OutlineEntry, 0, len(d.Entries))}
	for _, e := range d.Entries {
		if !e.Level.IsHeading() {
			continue
		}
		out.Outline = append(out.Outline, OutlineEntry{Level: e.Level.String(), Text: e.Text, Page: e.Page})
	}
	return out
}

// NewOutlineReport summarizes an outline run.
func NewOutlineReport(res *pipeline.OutlineResult) OutlineReport {
	rep := OutlineReport{
		RunID:          res.RunID,
		Documents:      make([]OutlineDocument, 0, len(res.Documents)),
		Skipped:        skips(res.Skipped),
		BudgetExceeded: res.BudgetExceeded,
		ProcessingTime: seconds(res.Elapsed),
	}
	for _, d := range res.Documents {
		rep.Documents = append(rep.Documents, OutlineDocument{
			Document:       d.DocumentID,
			Output:         Stem(d.DocumentID),
			Title:          d.Title,
			Headings:       len(d.Entries),
			Pages:          d.Pages,
			SHA256:         d.SHA256,
			ProcessingTime: seconds(d.Elapsed),
		})
	}
	return rep
}

// NewRanking converts a ranking run into persona_ranking.json.
func NewRanking(res *pipeline.RankResult) Ranking {
	docs := res.Documents
	if docs == nil {
		docs = []string{}
	}
	out := Ranking{
		Metadata: Metadata{
			Documents:         docs,
			Persona:           res.Query.Persona,
			Job:               res.Query.Job,
			ProcessingTime:    seconds(res.Elapsed),
			RunID:             res.RunID,
			Degraded:          res.Degraded,
			DegradedReason:    res.DegradedReason,
			BudgetExceeded:    res.BudgetExceeded,
			EmbeddingProvider: res.Provider,
			TotalSections:     res.TotalSections,
			SkippedDocuments:  skips(res.Skipped),
		},
		ExtractedSections: make([]ExtractedSection, 0, len(res.Sections)),
	}
	for _, s := range res.Sections {
		es := ExtractedSection{
			Document:       s.DocumentID,
			Page:           s.Page,
			SectionTitle:   s.Title,
			ImportanceRank: s.Rank,
			RelevanceScore: round4(s.Score),
			Subsections:    []Subsection{},
		}
		if s.Excerpt != nil {
			es.Subsections = append(es.Subsections, Subsection{Page: s.Excerpt.Page, RefinedText: s.Excerpt.Text})
		}
		out.ExtractedSections = append(out.ExtractedSections, es)
	}
	return out
}

func skips(s []pipeline.Skip) []pipeline.Skip {
	if s == nil {
		return []pipeline.Skip{}
	}
	return s
}

func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
