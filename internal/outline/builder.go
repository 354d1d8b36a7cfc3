// Package outline infers a document's title and H1-H3 headings from typographic signals.
package outline

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/layout"
	"github.com/dgallion1/docinsight/internal/textnorm"
)

// Options tunes heading detection.
type Options struct {
	Layout layout.Config

	// LineGapFactor: heading lines closer than this many font sizes merge into one entry.
	LineGapFactor float64
	// TitleGapFactor: page-1 title lines closer than this many font sizes join the title.
	TitleGapFactor float64
	// StyleUpgradeTolerance: a bold/italic heading within this relative distance of the
	// next tier's smallest size moves up one level.
	StyleUpgradeTolerance float64
	// MaxHeadingChars rejects spans long enough to be body paragraphs.
	MaxHeadingChars int
	// MinRepeatPages is the smallest page count where the repetition filter applies.
	MinRepeatPages int
}

// DefaultOptions returns the production thresholds.
func DefaultOptions() Options {
	return Options{
		Layout:                layout.DefaultConfig(),
		LineGapFactor:         0.7,
		TitleGapFactor:        1.5,
		StyleUpgradeTolerance: 0.10,
		MaxHeadingChars:       200,
		MinRepeatPages:        2,
	}
}

// span is one or more consecutive blocks treated as a unit.
type span struct {
	text   string
	size   float64
	bold   bool
	italic bool
	page   int
	order  int
	seq    int
	count  int
	top    float64
	bottom float64
	tier   int // -1 for body text
}

var numberedHeading = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+\S`)

// Build produces the outline of one document. Blocks may arrive in any order; entries come
// back ordered by (page, order). The result depends only on the inputs.
func Build(blocks []doctree.TextBlock, profile doctree.FontProfile, opts Options) doctree.Outline {
	sorted := doctree.SortBlocks(blocks)
	spans := mergeSpans(sorted, profile, opts)
	repeated := repeatedKeys(spans, opts.MinRepeatPages)

	var out doctree.Outline
	titleIdx := selectTitle(spans, opts)
	inTitle := make(map[int]bool, len(titleIdx))
	var titleParts []string
	for _, i := range titleIdx {
		inTitle[i] = true
		titleParts = append(titleParts, spans[i].text)
		for k := 0; k < spans[i].count; k++ {
			out.TitleSeq = append(out.TitleSeq, spans[i].seq+k)
		}
	}
	out.Title = textnorm.JoinLines(titleParts)

	// When the largest tier also carries headings other than the title, it is the H1 tier
	// and everything below shifts down one level.
	shift := 0
	for i, s := range spans {
		if s.tier == 0 && !inTitle[i] && !repeated[textnorm.RepetitionKey(s.text)] && headingShape(spans, i, opts) {
			shift = 1
			break
		}
	}

	for i, s := range spans {
		if s.tier < 0 || inTitle[i] || repeated[textnorm.RepetitionKey(s.text)] {
			continue
		}
		if !headingShape(spans, i, opts) {
			continue
		}
		level := levelFor(s, profile, shift, opts)
		out.Entries = append(out.Entries, doctree.OutlineEntry{
			Level: level,
			Text:  s.text,
			Page:  s.page,
			Order: s.order,
			Seq:   s.seq,
			Span:  s.count,
		})
	}
	return out
}

// mergeSpans folds wrapped heading lines together. Body-size blocks stay one span each.
func mergeSpans(blocks []doctree.TextBlock, profile doctree.FontProfile, opts Options) []span {
	var spans []span
	for i, b := range blocks {
		text := strings.TrimSpace(b.Text)
		size := opts.Layout.RoundSize(b.FontSize)
		tier := layout.TierOf(profile, b.FontSize, opts.Layout)

		if n := len(spans); n > 0 && tier >= 0 {
			prev := &spans[n-1]
			gap := b.BBox.Y0 - prev.bottom
			if prev.tier == tier && prev.page == b.Page && prev.size == size &&
				prev.bold == b.Bold && prev.italic == b.Italic &&
				gap < opts.LineGapFactor*size &&
				utf8.RuneCountInString(prev.text)+utf8.RuneCountInString(text) <= opts.MaxHeadingChars {
				prev.text = textnorm.JoinLines([]string{prev.text, text})
				prev.count++
				prev.bottom = b.BBox.Y1
				continue
			}
		}
		spans = append(spans, span{
			text:   textnorm.Normalize(text),
			size:   size,
			bold:   b.Bold,
			italic: b.Italic,
			page:   b.Page,
			order:  b.Order,
			seq:    i,
			count:  1,
			top:    b.BBox.Y0,
			bottom: b.BBox.Y1,
			tier:   tier,
		})
	}
	return spans
}

// repeatedKeys finds running headers and footers: text, or a page-number line, on more than
// half of the pages.
func repeatedKeys(spans []span, minPages int) map[string]bool {
	pages := make(map[string]map[int]bool)
	maxPage := 0
	for _, s := range spans {
		if s.page > maxPage {
			maxPage = s.page
		}
		key := textnorm.RepetitionKey(s.text)
		if pages[key] == nil {
			pages[key] = make(map[int]bool)
		}
		pages[key][s.page] = true
	}
	repeated := make(map[string]bool)
	if maxPage < minPages {
		return repeated
	}
	for key, on := range pages {
		if len(on)*2 > maxPage {
			repeated[key] = true
		}
	}
	return repeated
}

// selectTitle returns the span indices forming the title, in order.
func selectTitle(spans []span, opts Options) []int {
	titleTier := -1
	for _, s := range spans {
		if s.page != 1 {
			break
		}
		if s.tier >= 0 && textnorm.HasLetter(s.text) && (titleTier < 0 || s.tier < titleTier) {
			titleTier = s.tier
		}
	}

	if titleTier < 0 {
		// Nothing above body size on page 1: the largest block there is the title.
		best := -1
		for i, s := range spans {
			if s.page != 1 {
				break
			}
			if textnorm.HasLetter(s.text) && (best < 0 || s.size > spans[best].size) {
				best = i
			}
		}
		if best < 0 {
			return nil
		}
		return []int{best}
	}

	first := -1
	for i, s := range spans {
		if s.page == 1 && s.tier == titleTier && textnorm.HasLetter(s.text) {
			first = i
			break
		}
	}
	idx := []int{first}
	for i := first + 1; i < len(spans); i++ {
		s, prev := spans[i], spans[i-1]
		if s.page != 1 || s.tier != titleTier {
			break
		}
		if s.top-prev.bottom > opts.TitleGapFactor*s.size {
			break
		}
		idx = append(idx, i)
	}
	return idx
}

// headingShape applies the text filters that separate headings from body fragments.
func headingShape(spans []span, i int, opts Options) bool {
	text := strings.TrimSpace(spans[i].text)
	if text == "" || !textnorm.HasLetter(text) {
		return false
	}
	if utf8.RuneCountInString(text) > opts.MaxHeadingChars {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(text)
	if last == ',' || last == ';' || last == '-' {
		return false
	}
	if i+1 < len(spans) {
		next := spans[i+1]
		first, _ := utf8.DecodeRuneInString(next.text)
		gap := next.top - spans[i].bottom
		if next.page == spans[i].page && unicode.IsLower(first) && gap < opts.LineGapFactor*spans[i].size {
			return false
		}
	}
	return true
}

func levelFor(s span, profile doctree.FontProfile, shift int, opts Options) doctree.Level {
	rank := s.tier + shift // 0 and 1 are H1, 2 is H2, 3+ is H3
	if rank < 1 {
		rank = 1
	}
	if rank > 3 {
		rank = 3
	}

	// Borderline emphasized spans move up one level, never into the title tier.
	if (s.bold || s.italic || allCaps(s.text)) && rank > 1 && s.tier > 0 {
		higher := profile.Tiers[s.tier-1]
		if s.size >= higher.MinSize*(1-opts.StyleUpgradeTolerance) {
			rank--
		}
	}

	// Dotted numbering can demote ("2.1" is at least H2) but never promote.
	if m := numberedHeading.FindStringSubmatch(s.text); m != nil {
		if depth := strings.Count(m[1], ".") + 1; depth > rank {
			rank = min(depth, 3)
		}
	}

	return doctree.LevelH1 + doctree.Level(rank-1)
}

// allCaps reports whether text is set in capitals: at least three letters, more than 70%
// of them uppercase.
func allCaps(text string) bool {
	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters >= 3 && upper*10 > letters*7
}
