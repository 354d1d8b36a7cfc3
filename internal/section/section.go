// Package section partitions a document's body text among its outline headings.
package section

import (
	"strings"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/textnorm"
)

// DefaultParagraphGapFactor starts a new paragraph when the vertical gap between two lines
// exceeds this many font sizes.
const DefaultParagraphGapFactor = 0.8

// Extraction is the sectioned form of one document.
type Extraction struct {
	DocumentID string
	Title      string
	Preamble   string // body text before the first heading
	Sections   []doctree.Section
}

// Extract splits blocks into sections using the default paragraph gap.
func Extract(docID string, blocks []doctree.TextBlock, ol doctree.Outline) Extraction {
	return ExtractWithGap(docID, blocks, ol, DefaultParagraphGapFactor)
}

// ExtractWithGap splits blocks into one section per heading. Each section owns the text up
// to the next heading of any level, so the sections never overlap. Title blocks belong to
// no section.
func ExtractWithGap(docID string, blocks []doctree.TextBlock, ol doctree.Outline, gapFactor float64) Extraction {
	sorted := doctree.SortBlocks(blocks)
	skip := make(map[int]bool, len(ol.TitleSeq))
	for _, i := range ol.TitleSeq {
		skip[i] = true
	}

	ex := Extraction{DocumentID: docID, Title: ol.Title}

	var entries []doctree.OutlineEntry
	for _, e := range ol.Entries {
		if e.Level.IsHeading() && e.Seq >= 0 && e.Seq < len(sorted) {
			entries = append(entries, e)
		}
	}

	preambleEnd := len(sorted)
	if len(entries) > 0 {
		preambleEnd = entries[0].Seq
	}
	ex.Preamble = joinParagraphs(paragraphs(sorted, 0, preambleEnd, skip, gapFactor))

	for k, e := range entries {
		bodyStart := e.Seq + max(e.Span, 1)
		bodyEnd := len(sorted)
		if k+1 < len(entries) {
			bodyEnd = entries[k+1].Seq
		}
		bodyStart = min(bodyStart, bodyEnd)

		paras := paragraphs(sorted, bodyStart, bodyEnd, skip, gapFactor)

		scopeEnd := len(sorted) - 1
		for _, next := range entries[k+1:] {
			if next.Level <= e.Level {
				scopeEnd = next.Seq - 1
				break
			}
		}

		ex.Sections = append(ex.Sections, doctree.Section{
			DocumentID: docID,
			Page:       e.Page,
			Title:      e.Text,
			Level:      e.Level,
			Text:       joinParagraphs(paras),
			Paragraphs: paras,
			StartOrder: e.Seq,
			ScopeEnd:   scopeEnd,
		})
	}

	for k := range ex.Sections {
		words := 0
		for _, nested := range ex.Sections[k:] {
			if nested.StartOrder > ex.Sections[k].ScopeEnd {
				break
			}
			words += nested.WordCount()
		}
		ex.Sections[k].ScopeWords = words
	}
	return ex
}

// paragraphs groups sorted[from:to] into paragraphs, breaking on page changes and on
// vertical gaps wider than gapFactor times the font size.
func paragraphs(sorted []doctree.TextBlock, from, to int, skip map[int]bool, gapFactor float64) []doctree.Paragraph {
	var out []doctree.Paragraph
	var lines []string
	var prev *doctree.TextBlock
	page := 0

	flush := func() {
		if text := textnorm.JoinLines(lines); text != "" {
			out = append(out, doctree.Paragraph{Page: page, Text: text})
		}
		lines = lines[:0]
	}

	for i := from; i < to; i++ {
		b := &sorted[i]
		if skip[i] || strings.TrimSpace(b.Text) == "" {
			continue
		}
		if prev != nil {
			size := max(prev.FontSize, b.FontSize)
			if b.Page != prev.Page || b.BBox.Y0-prev.BBox.Y1 > gapFactor*size {
				flush()
			}
		}
		if len(lines) == 0 {
			page = b.Page
		}
		lines = append(lines, b.Text)
		prev = b
	}
	flush()
	return out
}

func joinParagraphs(paras []doctree.Paragraph) string {
	texts := make([]string, len(paras))
	for i, p := range paras {
		texts[i] = p.Text
	}
	return strings.Join(texts, " ")
}
