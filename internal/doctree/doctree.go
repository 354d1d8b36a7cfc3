package doctree

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// BBox is a text box on a page. Y grows downward from the top edge.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// TextBlock is one line of text with its typographic metadata, as produced by a parser.
type TextBlock struct {
	Text     string
	FontSize float64
	Bold     bool
	Italic   bool
	Page     int // 1-based
	BBox     BBox
	Order    int // reading order within the page
}

// Document is the decoded form of one input file.
type Document struct {
	ID        string // Stable document identifier (the input file name)
	Blocks    []TextBlock
	PageCount int
}

// Level is the structural label of an outline entry.
type Level int

const (
	LevelNone Level = iota
	LevelTitle
	LevelH1
	LevelH2
	LevelH3
)

func (l Level) String() string {
	switch l {
	case LevelTitle:
		return "TITLE"
	case LevelH1:
		return "H1"
	case LevelH2:
		return "H2"
	case LevelH3:
		return "H3"
	default:
		return "NONE"
	}
}

// IsHeading reports whether the level opens a section.
func (l Level) IsHeading() bool {
	return l == LevelH1 || l == LevelH2 || l == LevelH3
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel converts "H1", "h2", "title" etc. into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TITLE":
		return LevelTitle, nil
	case "H1":
		return LevelH1, nil
	case "H2":
		return LevelH2, nil
	case "H3":
		return LevelH3, nil
	}
	return LevelNone, fmt.Errorf("unknown level %q", s)
}

// Tier is a band of font sizes sharing one outline level.
type Tier struct {
	Level   Level
	MinSize float64
	MaxSize float64
}

// Contains reports whether size falls within the tier, widened by tol (relative).
func (t Tier) Contains(size, tol float64) bool {
	return size >= t.MinSize*(1-tol) && size <= t.MaxSize*(1+tol)
}

// FontProfile holds per-document font statistics. It is computed once and passed by value.
type FontProfile struct {
	BodySize float64
	Tiers    []Tier // largest first; at most four
}

// HasHeadings reports whether any size above body text was found.
func (p FontProfile) HasHeadings() bool { return len(p.Tiers) > 0 }

// OutlineEntry is one title or heading in a document outline.
type OutlineEntry struct {
	Level Level
	Text  string
	Page  int
	Order int // Order of the first block of the entry
	Seq   int // index of the first block in the document-ordered block slice
	Span  int // number of blocks merged into this entry
}

// Outline is the ordered heading structure of one document.
type Outline struct {
	Title   string
	Entries []OutlineEntry // H1..H3 only, ordered by (Page, Order)
	// TitleSeq lists the block indices consumed by the title.
	TitleSeq []int
}

// Paragraph is a run of body text with the page it starts on.
type Paragraph struct {
	Page int
	Text string
}

// Section is the body text owned by one heading.
type Section struct {
	DocumentID string
	Page       int
	Title      string
	Level      Level
	Text       string
	Paragraphs []Paragraph
	StartOrder int // block index of the heading
	ScopeEnd   int // last block index before the next same-or-higher heading
	ScopeWords int // body words of this section and every section nested in its scope
}

// WordCount returns the number of whitespace-separated words in the body.
func (s Section) WordCount() int {
	return len(strings.Fields(s.Text))
}

// ScopeWordCount is the size of the section including nested subsections. Sections built
// without scope information count their own body.
func (s Section) ScopeWordCount() int {
	return max(s.ScopeWords, s.WordCount())
}

// Components is the per-factor breakdown behind a relevance score.
type Components struct {
	Similarity    float64 `json:"similarity"`
	HasSimilarity bool    `json:"has_similarity"`
	Structural    float64 `json:"structural"`
	TitleOverlap  float64 `json:"title_overlap"`
	BodyOverlap   float64 `json:"body_overlap"`
	ContentBoost  float64 `json:"content_boost"`
}

// ScoredSection is a section with its relevance score and, after aggregation, its rank.
type ScoredSection struct {
	Section
	Score      float64
	Rank       int
	Components Components
	Excerpt    *Subsection
}

// Subsection is a paragraph-sized span inside a section.
type Subsection struct {
	DocumentID string
	Page       int
	Text       string
	Score      float64
}

// PersonaQuery is who is asking and what they need.
type PersonaQuery struct {
	Persona string
	Job     string
}

// Text is the combined query string that gets embedded.
func (q PersonaQuery) Text() string {
	return strings.TrimSpace(q.Persona + " " + q.Job)
}

// SortBlocks returns a copy of blocks in document reading order: page, then order within the page.
// Every stage indexes blocks by their position in this slice.
func SortBlocks(blocks []TextBlock) []TextBlock {
	out := make([]TextBlock, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].Order < out[j].Order
	})
	return out
}
