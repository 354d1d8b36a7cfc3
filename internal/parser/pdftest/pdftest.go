// Package pdftest builds small, well-formed PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Run is one line of text drawn at (X, Y) in PDF user space (origin bottom-left).
type Run struct {
	Text string
	Size float64
	Bold bool
	X, Y float64
}

// Page is the runs drawn on one page.
type Page []Run

const glyphWidth = 500 // every glyph is half an em wide

// Build renders pages into a PDF with a classic xref table. Fonts are Helvetica and
// Helvetica-Bold with WinAnsi encoding and uniform widths.
func Build(pages ...Page) []byte {
	var objs []string
	add := func(body string) int {
		objs = append(objs, body)
		return len(objs)
	}

	catalog := add("") // patched below
	pagesObj := add("")
	widths := strings.TrimSpace(strings.Repeat(fmt.Sprintf("%d ", glyphWidth), 126-32+1))
	fontTmpl := "<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>"
	regular := add(fmt.Sprintf(fontTmpl, "Helvetica", widths))
	bold := add(fmt.Sprintf(fontTmpl, "Helvetica-Bold", widths))

	var kids []string
	for _, page := range pages {
		var content strings.Builder
		for _, r := range page {
			font := "F1"
			if r.Bold {
				font = "F2"
			}
			fmt.Fprintf(&content, "BT /%s %g Tf %g %g Td (%s) Tj ET\n", font, r.Size, r.X, r.Y, escape(r.Text))
		}
		stream := content.String()
		contentObj := add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
		pageObj := add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R /F2 %d 0 R >> >> /Contents %d 0 R >>",
			pagesObj, regular, bold, contentObj))
		kids = append(kids, fmt.Sprintf("%d 0 R", pageObj))
	}
	objs[catalog-1] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesObj)
	objs[pagesObj-1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, catalog, xref)
	return buf.Bytes()
}

// Truncated returns the first half of a valid PDF, which keeps the header but loses the xref.
func Truncated(pdf []byte) []byte {
	return append([]byte(nil), pdf[:len(pdf)/2]...)
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
