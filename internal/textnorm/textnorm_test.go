package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("  a\t b\n\nc "))
	// NFKC folds the ligature.
	assert.Equal(t, "fine", Normalize("ﬁne"))
}

func TestJoinLines_Dehyphenates(t *testing.T) {
	got := JoinLines([]string{"The trans-", "port layer is", "Self-", "Contained."})
	assert.Equal(t, "The transport layer is Self- Contained.", got)
}

func TestJoinLines_SkipsBlankFragments(t *testing.T) {
	assert.Equal(t, "one two", JoinLines([]string{"one", "   ", "two"}))
	assert.Equal(t, "", JoinLines(nil))
}

func TestRepetitionKey_IgnoresPageNumbers(t *testing.T) {
	assert.Equal(t, RepetitionKey("Page 3 of 10"), RepetitionKey("page 4 of 10"))
	assert.Equal(t, RepetitionKey("- 3 -"), RepetitionKey("- 12 -"))
	assert.Equal(t, RepetitionKey("7"), RepetitionKey("8"))
	assert.NotEqual(t, RepetitionKey("Annual Report"), RepetitionKey("Annual Review"))
}

func TestRepetitionKey_KeepsDigitsOfOrdinaryText(t *testing.T) {
	assert.NotEqual(t, RepetitionKey("Day 1"), RepetitionKey("Day 2"))
	assert.NotEqual(t, RepetitionKey("Chapter 3: Markets"), RepetitionKey("Chapter 4: Markets"))
	assert.Equal(t, "annual report 2024", RepetitionKey("  Annual   REPORT 2024 "))
}

func TestTokens_DropsStopwordsAndShortWords(t *testing.T) {
	got := Tokens("The Analysis of Revenue, and the revenue TRENDS in 2024")
	assert.Equal(t, []string{"analysis", "revenue", "trends"}, got)
}

func TestMatch_PrefixStemming(t *testing.T) {
	assert.True(t, Match("analysis", "analyze"))
	assert.True(t, Match("revenue", "revenue"))
	assert.False(t, Match("trend", "travel"))
	assert.False(t, Match("ai", "aim"))
}

func TestDice_Bounds(t *testing.T) {
	q := Tokens("Investment Analyst Analyze revenue trends")
	assert.Greater(t, Dice(q, Tokens("Quarterly Revenue Analysis")), 0.0)
	assert.Equal(t, 0.0, Dice(q, Tokens("Company History")))
	assert.Equal(t, 0.0, Dice(nil, q))
	assert.LessOrEqual(t, Dice([]string{"analysis"}, []string{"analyst", "analyze"}), 1.0)
}

func TestCoverage(t *testing.T) {
	q := []string{"revenue", "trends"}
	assert.Equal(t, 0.5, Coverage(q, Tokens("revenue grew strongly")))
	assert.Equal(t, 1.0, Coverage(q, Tokens("revenue trends")))
	assert.Equal(t, 0.0, Coverage(q, nil))
}

func TestHasLetter(t *testing.T) {
	assert.True(t, HasLetter("1.2 Scope"))
	assert.False(t, HasLetter("12 - 14"))
}
