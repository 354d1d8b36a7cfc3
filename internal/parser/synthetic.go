package parser

import (
	"strings"

	"github.com/dgallion1/docinsight/internal/doctree"
)

// Font sizes assigned to structured (non-PDF) formats so the layout classifier can run on them.
const (
	syntheticTitleSize = 28
	syntheticBodySize  = 11
	syntheticPageWidth = 612
)

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 24
	case 2:
		return 18
	case 3:
		return 14
	default:
		return 12.5
	}
}

// blockWriter lays out blocks top to bottom on a single synthetic page.
type blockWriter struct {
	blocks []doctree.TextBlock
	y      float64
}

func (w *blockWriter) heading(text string, level int) {
	w.add(text, headingSize(level), true)
}

func (w *blockWriter) title(text string) {
	w.add(text, syntheticTitleSize, true)
}

func (w *blockWriter) paragraph(text string) {
	w.add(text, syntheticBodySize, false)
}

func (w *blockWriter) add(text string, size float64, bold bool) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return
	}
	// A blank line's worth of space separates every block.
	if len(w.blocks) > 0 {
		w.y += size
	}
	w.blocks = append(w.blocks, doctree.TextBlock{
		Text:     text,
		FontSize: size,
		Bold:     bold,
		Page:     1,
		BBox:     doctree.BBox{X0: 72, Y0: w.y, X1: syntheticPageWidth - 72, Y1: w.y + size*1.2},
		Order:    len(w.blocks),
	})
	w.y += size * 1.2
}

func (w *blockWriter) document() *doctree.Document {
	pages := 0
	if len(w.blocks) > 0 {
		pages = 1
	}
	return &doctree.Document{Blocks: w.blocks, PageCount: pages}
}
