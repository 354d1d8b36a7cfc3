// Package textnorm normalizes extracted text and derives significant tokens for lexical matching.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MinTokenRunes is the shortest token that counts as significant.
const MinTokenRunes = 3

// PrefixMatchRunes is the shared-prefix length at which two tokens are treated as the same word
// ("analysis" / "analyst" / "analyze").
const PrefixMatchRunes = 5

// Normalize applies NFKC and collapses all whitespace runs to a single space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// JoinLines concatenates line fragments in order, removing end-of-line hyphenation
// when the next fragment continues the word in lowercase.
func JoinLines(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			prev := b.String()
			if hyphenated(prev) && startsLower(line) {
				b.Reset()
				b.WriteString(strings.TrimSuffix(prev, "-"))
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(line)
	}
	return Normalize(b.String())
}

func hyphenated(s string) bool {
	if !strings.HasSuffix(s, "-") || len(s) < 2 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:len(s)-1])
	return unicode.IsLetter(r)
}

func startsLower(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(r)
}

// Fold returns the NFKC, case-folded form of s.
func Fold(s string) string {
	// A Caser is stateful, so each call gets its own.
	return cases.Fold().String(norm.NFKC.String(s))
}

var (
	pageNumberLine = regexp.MustCompile(`^[-\s]*(?:page\s*)?\d+(?:\s*(?:of|/)\s*\d+)?[-\s]*$`)
	digitRun       = regexp.MustCompile(`\d+`)
)

// RepetitionKey maps text to the key used to spot running headers and footers: folded and
// whitespace collapsed. Page-number lines ("3", "Page 3 of 10", "- 3 -") additionally have
// their digit runs replaced by '#', so the footer collides across pages. Any other text,
// including "Day 1" and "Day 2", keeps its digits.
func RepetitionKey(s string) string {
	s = Normalize(Fold(s))
	if !pageNumberLine.MatchString(s) {
		return s
	}
	return digitRun.ReplaceAllString(s, "#")
}

// Tokens returns the distinct significant tokens of s in first-seen order.
func Tokens(s string) []string {
	words := strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) < MinTokenRunes || stopwords[w] || seen[w] {
			continue
		}
		if isNumber(w) {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Match reports whether two folded tokens refer to the same word.
func Match(a, b string) bool {
	if a == b {
		return true
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) < PrefixMatchRunes || len(rb) < PrefixMatchRunes {
		return false
	}
	for i := 0; i < PrefixMatchRunes; i++ {
		if ra[i] != rb[i] {
			return false
		}
	}
	return true
}

// matched counts tokens of a that match any token of b.
func matched(a, b []string) int {
	n := 0
	for _, x := range a {
		for _, y := range b {
			if Match(x, y) {
				n++
				break
			}
		}
	}
	return n
}

// Dice returns the Dice coefficient between two token sets, in [0,1].
func Dice(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Count from the smaller side so one repeated stem cannot exceed 1.
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	m := matched(small, large)
	return clamp01(2 * float64(m) / float64(len(a)+len(b)))
}

// Coverage returns the fraction of query tokens found in the text tokens.
func Coverage(query, text []string) float64 {
	if len(query) == 0 || len(text) == 0 {
		return 0
	}
	return clamp01(float64(matched(query, text)) / float64(len(query)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// HasLetter reports whether s contains at least one letter.
func HasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
