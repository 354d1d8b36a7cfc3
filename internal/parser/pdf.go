package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/dgallion1/docinsight/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

const (
	defaultPageHeight = 792 // US Letter, used when MediaBox is missing
	pdfMagic          = "%PDF-"
	headerWindow      = 1024

	// A glyph joins the current line when its baseline is within this share of the font size.
	baselineTolerance = 0.3
	// A horizontal gap wider than this share of the font size becomes a space.
	wordGapFactor = 0.2
	// A horizontal gap wider than this many font sizes splits the line into separate blocks.
	columnGapFactor = 4.0

	pdftotextBodySize = 11
)

// PDFParser extracts positioned, font-tagged lines from PDF files. It reads glyph runs
// with ledongthuc/pdf and falls back to pdftotext (without font data) if asked to.
type PDFParser struct {
	MaxPages          int
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrEmptyDocument)
	}
	if !hasPDFHeader(data) {
		return nil, fmt.Errorf("%w: missing %s header", ErrNotPDF, pdfMagic)
	}

	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	doc, err := extractPDFBlocks(data, maxPages)
	if err != nil && p.FallbackPdftotext && errors.Is(err, ErrCorrupt) {
		doc, err = extractPdftotext(data, maxPages)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func hasPDFHeader(data []byte) bool {
	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	return bytes.Contains(window, []byte(pdfMagic))
}

func extractPDFBlocks(data []byte, maxPages int) (doc *doctree.Document, err error) {
	// The decoder panics on some malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = fmt.Errorf("%w: decoder panic: %v", ErrCorrupt, rec)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	numPages := reader.NumPage()
	if numPages <= 0 {
		return nil, fmt.Errorf("%w: zero pages", ErrEmptyDocument)
	}
	if numPages > maxPages {
		return nil, fmt.Errorf("%w: %d pages (max %d)", ErrTooManyPages, numPages, maxPages)
	}

	doc = &doctree.Document{PageCount: numPages}
	failed := 0
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		glyphs, ok := pageGlyphs(page)
		if !ok {
			failed++
			continue
		}
		doc.Blocks = append(doc.Blocks, assembleLines(glyphs, pageHeight(page), i)...)
	}
	if failed == numPages {
		return nil, fmt.Errorf("%w: no page could be decoded", ErrCorrupt)
	}
	return doc, nil
}

// pageGlyphs isolates a bad content stream to its own page.
func pageGlyphs(page pdflib.Page) (glyphs []pdflib.Text, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			glyphs, ok = nil, false
		}
	}()
	return page.Content().Text, true
}

func pageHeight(page pdflib.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.IsNull() {
		box = page.V.Key("Parent").Key("MediaBox")
	}
	if box.Len() == 4 {
		if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
			return h
		}
	}
	return defaultPageHeight
}

type line struct {
	baseline float64
	glyphs   []pdflib.Text
}

// assembleLines groups glyph runs into text lines and converts them to blocks in reading order.
func assembleLines(glyphs []pdflib.Text, height float64, page int) []doctree.TextBlock {
	sorted := make([]pdflib.Text, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S == "" || g.FontSize <= 0 {
			continue
		}
		sorted = append(sorted, g)
	}
	// Top of page first (PDF Y grows upward), then left to right.
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines []line
	for _, g := range sorted {
		if n := len(lines); n > 0 {
			cur := &lines[n-1]
			if math.Abs(cur.baseline-g.Y) <= baselineTolerance*g.FontSize {
				cur.glyphs = append(cur.glyphs, g)
				continue
			}
		}
		lines = append(lines, line{baseline: g.Y, glyphs: []pdflib.Text{g}})
	}

	var blocks []doctree.TextBlock
	for _, ln := range lines {
		sort.SliceStable(ln.glyphs, func(i, j int) bool { return ln.glyphs[i].X < ln.glyphs[j].X })
		for _, run := range splitColumns(ln.glyphs) {
			if b, ok := runToBlock(run, ln.baseline, height, page); ok {
				blocks = append(blocks, b)
			}
		}
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].BBox.Y0 != blocks[j].BBox.Y0 {
			return blocks[i].BBox.Y0 < blocks[j].BBox.Y0
		}
		return blocks[i].BBox.X0 < blocks[j].BBox.X0
	})
	for i := range blocks {
		blocks[i].Order = i
	}
	return blocks
}

func splitColumns(glyphs []pdflib.Text) [][]pdflib.Text {
	var runs [][]pdflib.Text
	start := 0
	for i := 1; i < len(glyphs); i++ {
		prev := glyphs[i-1]
		if glyphs[i].X-(prev.X+prev.W) > columnGapFactor*prev.FontSize {
			runs = append(runs, glyphs[start:i])
			start = i
		}
	}
	if start < len(glyphs) {
		runs = append(runs, glyphs[start:])
	}
	return runs
}

func runToBlock(run []pdflib.Text, baseline, height float64, page int) (doctree.TextBlock, bool) {
	var sb strings.Builder
	var size, boldChars, italicChars, chars float64
	x0, x1 := math.Inf(1), math.Inf(-1)

	for i, g := range run {
		if i > 0 {
			prev := run[i-1]
			gap := g.X - (prev.X + prev.W)
			if gap > wordGapFactor*prev.FontSize && !endsWithSpace(sb.String()) && !strings.HasPrefix(g.S, " ") {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(g.S)

		n := float64(len(strings.TrimSpace(g.S)))
		chars += n
		if isBoldFont(g.Font) {
			boldChars += n
		}
		if isItalicFont(g.Font) {
			italicChars += n
		}
		if g.FontSize > size {
			size = g.FontSize
		}
		x0 = math.Min(x0, g.X)
		x1 = math.Max(x1, g.X+g.W)
	}

	text := strings.Join(strings.Fields(sb.String()), " ")
	if text == "" {
		return doctree.TextBlock{}, false
	}
	return doctree.TextBlock{
		Text:     text,
		FontSize: math.Round(size*100) / 100,
		Bold:     chars > 0 && boldChars*2 >= chars,
		Italic:   chars > 0 && italicChars*2 >= chars,
		Page:     page,
		BBox: doctree.BBox{
			X0: x0,
			Y0: height - baseline - size,
			X1: x1,
			Y1: height - baseline + size*0.2,
		},
	}, true
}

func endsWithSpace(s string) bool {
	return s == "" || strings.HasSuffix(s, " ")
}

var boldMarkers = []string{"bold", "black", "heavy", "semibold", "demi"}

func isBoldFont(font string) bool {
	f := strings.ToLower(font)
	for _, m := range boldMarkers {
		if strings.Contains(f, m) {
			return true
		}
	}
	return false
}

func isItalicFont(font string) bool {
	f := strings.ToLower(font)
	return strings.Contains(f, "italic") || strings.Contains(f, "oblique")
}

// extractPdftotext recovers plain text when the Go decoder cannot read the file.
// Every line comes back at body size, so the outline is title-only.
func extractPdftotext(data []byte, maxPages int) (*doctree.Document, error) {
	tmp, err := os.CreateTemp("", "docinsight-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-layout", tmpPath, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: pdftotext: %v", ErrCorrupt, err)
	}

	pages := strings.Split(strings.TrimRight(string(out), "\f"), "\f")
	if len(pages) > maxPages {
		return nil, fmt.Errorf("%w: %d pages (max %d)", ErrTooManyPages, len(pages), maxPages)
	}

	doc := &doctree.Document{PageCount: len(pages)}
	for i, page := range pages {
		order := 0
		y := 72.0
		for _, raw := range strings.Split(page, "\n") {
			y += pdftotextBodySize * 1.2
			text := strings.Join(strings.Fields(raw), " ")
			if text == "" {
				continue
			}
			doc.Blocks = append(doc.Blocks, doctree.TextBlock{
				Text:     text,
				FontSize: pdftotextBodySize,
				Page:     i + 1,
				BBox:     doctree.BBox{X0: 72, Y0: y, X1: 540, Y1: y + pdftotextBodySize*1.2},
				Order:    order,
			})
			order++
		}
	}
	return doc, nil
}
