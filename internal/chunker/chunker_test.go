package chunker

import (
	"strings"
	"testing"

	"github.com/dgallion1/docinsight/internal/doctree"
)

func TestSplit_ParagraphsStayWhole(t *testing.T) {
	paras := []doctree.Paragraph{
		{Page: 1, Text: strings.Repeat("alpha ", 40)},
		{Page: 2, Text: strings.Repeat("beta ", 40)},
	}
	out := Split(paras, DefaultConfig())

	if len(out) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(out))
	}
	if out[0].Page != 1 || out[1].Page != 2 {
		t.Errorf("expected pages 1 and 2, got %d and %d", out[0].Page, out[1].Page)
	}
	if !strings.HasPrefix(out[1].Text, "beta") {
		t.Errorf("expected second passage to start with beta, got %q", out[1].Text)
	}
}

func TestSplit_TinyParagraphsMerge(t *testing.T) {
	paras := []doctree.Paragraph{
		{Page: 3, Text: "Short intro."},
		{Page: 3, Text: "Another short line."},
		{Page: 4, Text: strings.Repeat("gamma ", 30)},
	}
	out := Split(paras, DefaultConfig())

	if len(out) != 1 {
		t.Fatalf("expected 1 passage, got %d: %+v", len(out), out)
	}
	if out[0].Page != 3 {
		t.Errorf("expected page 3, got %d", out[0].Page)
	}
	if !strings.HasPrefix(out[0].Text, "Short intro. Another short line. gamma") {
		t.Errorf("unexpected merged text %q", out[0].Text)
	}
}

func TestSplit_LargeParagraphSplitsOnSentences(t *testing.T) {
	// ~1200 words -> ~1600 tokens at 1.33 tokens/word.
	large := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 130)
	cfg := Config{ChunkSize: 120, ChunkOverlap: 10, MinChunk: 20}
	out := Split([]doctree.Paragraph{{Page: 5, Text: large}}, cfg)

	if len(out) < 2 {
		t.Fatalf("expected at least 2 passages, got %d", len(out))
	}
	for i, p := range out {
		if p.Page != 5 {
			t.Errorf("passage %d: expected page 5, got %d", i, p.Page)
		}
		// Sentence boundaries allow slight overflows.
		if tokens := EstimateTokens(p.Text); tokens > cfg.ChunkSize*2 {
			t.Errorf("passage %d: %d tokens exceeds 2x target %d", i, tokens, cfg.ChunkSize)
		}
	}
}

func TestSplit_Empty(t *testing.T) {
	if out := Split(nil, DefaultConfig()); len(out) != 0 {
		t.Errorf("expected 0 passages, got %d", len(out))
	}
	if out := Split([]doctree.Paragraph{{Page: 1, Text: "   "}}, DefaultConfig()); len(out) != 0 {
		t.Errorf("expected blank paragraphs to be dropped, got %d", len(out))
	}
}

func TestSplit_DefaultConfigFallback(t *testing.T) {
	// Zero-value config should be replaced with defaults.
	out := Split([]doctree.Paragraph{{Page: 1, Text: strings.Repeat("word word word word. ", 50)}}, Config{})
	if len(out) < 2 {
		t.Errorf("expected the 120-token default to split 200 words, got %d passages", len(out))
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two! Three? Four")
	want := []string{"One.", "Two!", "Three?", "Four"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 100); got != "short" {
		t.Errorf("expected unchanged text, got %q", got)
	}
	if got := Truncate("hello wonderful world", 12); got != "hello" {
		t.Errorf("expected cut at word boundary, got %q", got)
	}
	if got := Truncate("ééééé", 3); got != "ééé" {
		t.Errorf("expected rune-safe cut, got %q", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	if n := EstimateTokens(""); n != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", n)
	}
	if n := EstimateTokens("a"); n != 1 {
		t.Errorf("expected 1 token for a single word, got %d", n)
	}
	if n := EstimateTokens(strings.Repeat("word ", 100)); n != 133 {
		t.Errorf("expected 133 tokens for 100 words, got %d", n)
	}
}
