package parser

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/docinsight/internal/parser/pdftest"
	pdflib "github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func glyphs(font string, size, x, y float64, s string) []pdflib.Text {
	var out []pdflib.Text
	w := size * 0.5
	for i, r := range s {
		out = append(out, pdflib.Text{Font: font, FontSize: size, X: x + float64(i)*w, Y: y, W: w, S: string(r)})
	}
	return out
}

func TestAssembleLines_GroupsByBaselineAndOrdersTopDown(t *testing.T) {
	var in []pdflib.Text
	in = append(in, glyphs("Helvetica", 11, 72, 600, "body line")...)
	in = append(in, glyphs("ABCDEF+Helvetica-Bold", 24, 72, 700, "Title")...)
	// Slight baseline jitter stays on the same line.
	in = append(in, glyphs("Helvetica", 11, 72+9*5.5, 600.4, " continues")...)

	blocks := assembleLines(in, 792, 1)
	require.Len(t, blocks, 2)

	assert.Equal(t, "Title", blocks[0].Text)
	assert.True(t, blocks[0].Bold)
	assert.Equal(t, 24.0, blocks[0].FontSize)
	assert.Equal(t, 0, blocks[0].Order)

	assert.Equal(t, "body line continues", blocks[1].Text)
	assert.False(t, blocks[1].Bold)
	assert.Equal(t, 1, blocks[1].Order)
	assert.Less(t, blocks[0].BBox.Y0, blocks[1].BBox.Y0)
}

func TestAssembleLines_InsertsSpaceOnGap(t *testing.T) {
	var in []pdflib.Text
	in = append(in, glyphs("Helvetica", 10, 72, 500, "Hello")...)
	in = append(in, glyphs("Helvetica", 10, 72+5*5+4, 500, "World")...)
	blocks := assembleLines(in, 792, 2)
	require.Len(t, blocks, 1)
	assert.Equal(t, "Hello World", blocks[0].Text)
	assert.Equal(t, 2, blocks[0].Page)
}

func TestAssembleLines_SplitsColumns(t *testing.T) {
	var in []pdflib.Text
	in = append(in, glyphs("Helvetica", 10, 72, 500, "left")...)
	in = append(in, glyphs("Helvetica", 10, 340, 500, "right")...)
	blocks := assembleLines(in, 792, 1)
	require.Len(t, blocks, 2)
	assert.Equal(t, "left", blocks[0].Text)
	assert.Equal(t, "right", blocks[1].Text)
}

func TestIsBoldFont(t *testing.T) {
	assert.True(t, isBoldFont("Arial-BoldMT"))
	assert.True(t, isBoldFont("XYZ+Roboto-Black"))
	assert.True(t, isBoldFont("Myriad-Semibold"))
	assert.False(t, isBoldFont("Helvetica"))
	assert.True(t, isItalicFont("Times-Italic"))
	assert.True(t, isItalicFont("Helvetica-Oblique"))
}

func TestPDFParser_DecodesGeneratedDocument(t *testing.T) {
	data := pdftest.Build(
		pdftest.Page{
			{Text: "Annual Report", Size: 24, Bold: true, X: 72, Y: 720},
			{Text: "Revenue grew in every quarter.", Size: 11, X: 72, Y: 680},
		},
		pdftest.Page{
			{Text: "Outlook", Size: 16, Bold: true, X: 72, Y: 720},
		},
	)

	doc, err := (&PDFParser{MaxPages: 10}).Parse(bytes.NewReader(data), "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount)
	require.Len(t, doc.Blocks, 3)

	assert.Equal(t, "Annual Report", doc.Blocks[0].Text)
	assert.Equal(t, 24.0, doc.Blocks[0].FontSize)
	assert.True(t, doc.Blocks[0].Bold)
	assert.Equal(t, 1, doc.Blocks[0].Page)

	assert.Equal(t, "Revenue grew in every quarter.", doc.Blocks[1].Text)
	assert.False(t, doc.Blocks[1].Bold)

	assert.Equal(t, "Outlook", doc.Blocks[2].Text)
	assert.Equal(t, 2, doc.Blocks[2].Page)
	assert.Equal(t, 0, doc.Blocks[2].Order)
}

func TestPDFParser_RejectsNonPDF(t *testing.T) {
	_, err := (&PDFParser{}).Parse(strings.NewReader("hello, I am a text file"), "fake.pdf")
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestPDFParser_RejectsEmpty(t *testing.T) {
	_, err := (&PDFParser{}).Parse(strings.NewReader(""), "empty.pdf")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestPDFParser_RejectsTruncated(t *testing.T) {
	data := pdftest.Build(pdftest.Page{{Text: "Hello", Size: 12, X: 72, Y: 700}})
	_, err := (&PDFParser{}).Parse(bytes.NewReader(pdftest.Truncated(data)), "broken.pdf")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestPDFParser_PageCeiling(t *testing.T) {
	var pages []pdftest.Page
	for range 3 {
		pages = append(pages, pdftest.Page{{Text: "page", Size: 11, X: 72, Y: 700}})
	}
	_, err := (&PDFParser{MaxPages: 2}).Parse(bytes.NewReader(pdftest.Build(pages...)), "long.pdf")
	assert.ErrorIs(t, err, ErrTooManyPages)
}

func TestDecode_WrapsInputErrors(t *testing.T) {
	_, err := Decode(strings.NewReader("nope"), "/tmp/in/fake.pdf", Options{})
	var ie *InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "fake.pdf", ie.Document)
	assert.Equal(t, KindNotPDF, ie.Kind)

	_, err = Decode(strings.NewReader("a,b"), "table.csv", Options{})
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, KindUnsupported, ie.Kind)

	_, err = Decode(strings.NewReader("   "), "blank.txt", Options{})
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, KindEmpty, ie.Kind)
}

func TestDecode_SetsDocumentID(t *testing.T) {
	doc, err := Decode(strings.NewReader("Some words here."), "dir/notes.txt", Options{})
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.ID)
}
