package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.txt")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 3)

	want := []string{
		"First paragraph line one. First paragraph line two.",
		"Second paragraph.",
		"Third paragraph.",
	}
	for i, w := range want {
		assert.Equal(t, w, doc.Blocks[i].Text)
		assert.Equal(t, i, doc.Blocks[i].Order)
		assert.Equal(t, float64(syntheticBodySize), doc.Blocks[i].FontSize)
	}
	assert.Equal(t, 1, doc.PageCount)
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.txt")
	require.NoError(t, err)
	assert.Empty(t, doc.Blocks)
	assert.Equal(t, 0, doc.PageCount)
}

func TestTextParser_MultipleBlankLines(t *testing.T) {
	// Runs of blank lines never produce empty paragraphs.
	input := "Para one.\n\n\n\nPara two."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "gaps.txt")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 2)
	assert.Greater(t, doc.Blocks[1].BBox.Y0, doc.Blocks[0].BBox.Y1, "paragraphs are separated by a vertical gap")
}

func TestTextParser_WhitespaceOnlyLines(t *testing.T) {
	input := "Para one.\n   \nPara two."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "ws.txt")
	require.NoError(t, err)
	assert.Len(t, doc.Blocks, 2)
}
