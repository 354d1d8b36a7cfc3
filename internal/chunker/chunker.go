package chunker

import (
	"strings"

	"github.com/dgallion1/docinsight/internal/doctree"
)

// Config controls passage splitting.
type Config struct {
	ChunkSize    int // Target passage size in tokens.
	ChunkOverlap int // Overlap between consecutive sentence-split passages in tokens.
	MinChunk     int // Passages smaller than this absorb the following paragraph.
}

// DefaultConfig returns the passage sizes used for subsection refinement.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    120,
		ChunkOverlap: 0,
		MinChunk:     20,
	}
}

// Split turns a section's paragraphs into candidate passages. Paragraphs stay whole when they
// fit; tiny ones merge into the next, oversized ones are split on sentence boundaries.
// Each passage keeps the page of its first paragraph.
func Split(paras []doctree.Paragraph, cfg Config) []doctree.Paragraph {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 120
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = 20
	}

	var out []doctree.Paragraph
	var current strings.Builder
	currentTokens := 0
	page := 0

	flush := func() {
		if currentTokens > 0 {
			out = append(out, doctree.Paragraph{Page: page, Text: current.String()})
		}
		current.Reset()
		currentTokens = 0
	}

	for _, para := range paras {
		text := strings.TrimSpace(para.Text)
		if text == "" {
			continue
		}
		paraTokens := EstimateTokens(text)

		// A single paragraph above the target is split further.
		if paraTokens > cfg.ChunkSize {
			flush()
			for _, part := range splitBySentences(text, cfg.ChunkSize, cfg.ChunkOverlap) {
				out = append(out, doctree.Paragraph{Page: para.Page, Text: part})
			}
			continue
		}

		if currentTokens >= cfg.MinChunk || currentTokens+paraTokens > cfg.ChunkSize {
			flush()
		}
		if currentTokens == 0 {
			page = para.Page
		} else {
			current.WriteString(" ")
		}
		current.WriteString(text)
		currentTokens += paraTokens
	}
	flush()

	return out
}

// splitBySentences breaks a large paragraph into sentence-based passages.
func splitBySentences(text string, targetTokens, overlapTokens int) []string {
	sentences := splitSentences(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, sent := range sentences {
		sentTokens := EstimateTokens(sent)

		if currentTokens+sentTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())
			overlap := getOverlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}

	return result
}

// splitSentences does basic sentence splitting.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// getOverlapText extracts the last N tokens worth of text for overlap.
func getOverlapText(text string, targetTokens int) string {
	words := strings.Fields(text)
	// Approximate: 1.33 tokens per word.
	targetWords := int(float64(targetTokens) / 1.33)
	if targetWords <= 0 || len(words) <= targetWords {
		return ""
	}
	return strings.Join(words[len(words)-targetWords:], " ")
}

// Truncate returns at most n runes of text, cut back to the last word boundary when one exists.
func Truncate(text string, n int) string {
	runes := []rune(text)
	if n <= 0 || len(runes) <= n {
		return text
	}
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
