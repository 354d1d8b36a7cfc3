package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownParser_HeadingSizes(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.

## Section B

Section B content.
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "doc.md")
	require.NoError(t, err)

	type block struct {
		text string
		size float64
	}
	want := []block{
		{"Title", 24},
		{"Intro text.", syntheticBodySize},
		{"Section A", 18},
		{"Section A content.", syntheticBodySize},
		{"Subsection A1", 14},
		{"Subsection A1 content.", syntheticBodySize},
		{"Section B", 18},
		{"Section B content.", syntheticBodySize},
	}
	got := make([]block, len(doc.Blocks))
	for i, b := range doc.Blocks {
		got[i] = block{b.Text, b.FontSize}
	}
	assert.Equal(t, want, got)
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := `Just some plain text.

Another paragraph here.`

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "plain.md")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 2)
	for _, b := range doc.Blocks {
		assert.Equal(t, float64(syntheticBodySize), b.FontSize)
		assert.False(t, b.Bold)
	}
}

func TestMarkdownParser_CodeBlocksAndLists(t *testing.T) {
	input := "# API Reference\n\nList of endpoints:\n\n```\nGET /api/users\nPOST /api/users\n```\n\n- first item\n- second *item*\n"

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "api.md")
	require.NoError(t, err)

	var texts []string
	for _, b := range doc.Blocks {
		texts = append(texts, b.Text)
	}
	joined := strings.Join(texts, "|")
	assert.Contains(t, joined, "GET /api/users POST /api/users")
	assert.Contains(t, joined, "|first item|second item", "one block per list item")
	assert.Equal(t, 1, strings.Count(joined, "API Reference"))
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.md")
	require.NoError(t, err)
	assert.Empty(t, doc.Blocks)
}
