package section

import (
	"strings"
	"testing"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/layout"
	"github.com/dgallion1/docinsight/internal/outline"
	"github.com/dgallion1/docinsight/internal/textnorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineSpec struct {
	text string
	size float64
	page int
	gap  float64 // extra space above the line
}

func layoutLines(specs []lineSpec) []doctree.TextBlock {
	var blocks []doctree.TextBlock
	page, y, order := 0, 0.0, 0
	for _, s := range specs {
		if s.page != page {
			page, y, order = s.page, 72, 0
		}
		y += s.gap
		blocks = append(blocks, doctree.TextBlock{
			Text:     s.text,
			FontSize: s.size,
			Page:     page,
			BBox:     doctree.BBox{X0: 72, Y0: y, X1: 540, Y1: y + s.size*1.2},
			Order:    order,
		})
		y += s.size * 1.2
		order++
	}
	return blocks
}

func guideDoc() []doctree.TextBlock {
	return layoutLines([]lineSpec{
		{"Travel Guide to the South", 24, 1, 0},
		{"Written for first-time visitors to the region.", 11, 1, 20},
		{"Cities", 18, 1, 20},
		{"The coastal cities offer a mix of old town charm and", 11, 1, 6},
		{"modern restaurants along the har-", 11, 1, 0},
		{"bour front.", 11, 1, 0},
		{"A second paragraph follows after a wider gap.", 11, 1, 14},
		{"Marseille", 14, 2, 0},
		{"The oldest city in France has a busy port.", 11, 2, 6},
		{"Nice", 14, 2, 20},
		{"Known for its promenade and pebbled beaches.", 11, 2, 6},
		{"Cuisine", 18, 3, 0},
		{"Local dishes rely on olive oil, garlic and herbs.", 11, 3, 6},
	})
}

func extractGuide(t *testing.T) (Extraction, []doctree.TextBlock) {
	t.Helper()
	blocks := guideDoc()
	opts := outline.DefaultOptions()
	ol := outline.Build(blocks, layout.Analyze(blocks, opts.Layout), opts)
	require.Equal(t, "Travel Guide to the South", ol.Title)
	require.Len(t, ol.Entries, 4)
	return Extract("guide.pdf", blocks, ol), blocks
}

func TestExtract_OneSectionPerHeading(t *testing.T) {
	ex, _ := extractGuide(t)

	assert.Equal(t, "guide.pdf", ex.DocumentID)
	assert.Equal(t, "Travel Guide to the South", ex.Title)
	assert.Equal(t, "Written for first-time visitors to the region.", ex.Preamble)

	require.Len(t, ex.Sections, 4)
	titles := make([]string, len(ex.Sections))
	for i, s := range ex.Sections {
		titles[i] = s.Title
		assert.Equal(t, "guide.pdf", s.DocumentID)
	}
	assert.Equal(t, []string{"Cities", "Marseille", "Nice", "Cuisine"}, titles)

	cities := ex.Sections[0]
	assert.Equal(t, doctree.LevelH1, cities.Level)
	assert.Equal(t, 1, cities.Page)
	assert.Equal(t, 2, cities.StartOrder)
	// Scope runs through the H2 children up to the next H1.
	assert.Equal(t, 10, cities.ScopeEnd)
	assert.NotContains(t, cities.Text, "Marseille")
}

func TestExtract_ScopeWordsIncludeNestedSections(t *testing.T) {
	ex, _ := extractGuide(t)
	require.Len(t, ex.Sections, 4)

	cities, marseille, nice, cuisine := ex.Sections[0], ex.Sections[1], ex.Sections[2], ex.Sections[3]
	assert.Equal(t, 25, cities.WordCount())
	assert.Equal(t, 25+9+7, cities.ScopeWords)
	assert.Equal(t, 9, marseille.ScopeWords)
	assert.Equal(t, 7, nice.ScopeWords)
	assert.Equal(t, 9, cuisine.ScopeWords)
}

func TestExtract_DehyphenatesAndSplitsParagraphs(t *testing.T) {
	ex, _ := extractGuide(t)
	cities := ex.Sections[0]

	require.Len(t, cities.Paragraphs, 2)
	assert.Equal(t, "The coastal cities offer a mix of old town charm and modern restaurants along the harbour front.",
		cities.Paragraphs[0].Text)
	assert.Equal(t, "A second paragraph follows after a wider gap.", cities.Paragraphs[1].Text)
	assert.Equal(t, 1, cities.Paragraphs[1].Page)
}

func TestExtract_PartitionCoversAllText(t *testing.T) {
	ex, blocks := extractGuide(t)

	var lines []string
	for i, b := range doctree.SortBlocks(blocks) {
		if i == 0 { // title
			continue
		}
		lines = append(lines, b.Text)
	}
	full := textnorm.JoinLines(lines)

	parts := []string{ex.Preamble}
	for _, s := range ex.Sections {
		parts = append(parts, s.Title, s.Text)
	}
	assert.Equal(t, full, textnorm.Normalize(strings.Join(parts, " ")))
}

func TestExtract_HeadingWithoutBody(t *testing.T) {
	blocks := layoutLines([]lineSpec{
		{"Overview", 18, 1, 0},
		{"Details", 14, 1, 10},
		{"Some detail text for the reader.", 11, 1, 6},
	})
	ol := doctree.Outline{Entries: []doctree.OutlineEntry{
		{Level: doctree.LevelH1, Text: "Overview", Page: 1, Order: 0, Seq: 0, Span: 1},
		{Level: doctree.LevelH2, Text: "Details", Page: 1, Order: 1, Seq: 1, Span: 1},
	}}
	ex := Extract("doc", blocks, ol)

	require.Len(t, ex.Sections, 2)
	assert.Equal(t, "", ex.Sections[0].Text)
	assert.Empty(t, ex.Sections[0].Paragraphs)
	assert.Equal(t, 2, ex.Sections[0].ScopeEnd)
	assert.Equal(t, 6, ex.Sections[0].ScopeWordCount())
	assert.Equal(t, "Some detail text for the reader.", ex.Sections[1].Text)
}

func TestExtract_NoHeadings(t *testing.T) {
	blocks := layoutLines([]lineSpec{
		{"Just some text on a page.", 11, 1, 0},
		{"And some more on the next.", 11, 2, 0},
	})
	ex := Extract("doc", blocks, doctree.Outline{})
	assert.Empty(t, ex.Sections)
	assert.Equal(t, "Just some text on a page. And some more on the next.", ex.Preamble)
}

func TestExtract_Empty(t *testing.T) {
	ex := Extract("doc", nil, doctree.Outline{})
	assert.Empty(t, ex.Sections)
	assert.Equal(t, "", ex.Preamble)
}
