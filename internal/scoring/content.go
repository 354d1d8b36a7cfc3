package scoring

import (
	"strings"

	"github.com/dgallion1/docinsight/internal/textnorm"
)

// contentCue pairs query terms with the body markers they reward. A query asking about
// data is better served by sections carrying tables and figures; a financial query by
// sections carrying amounts and percentages.
type contentCue struct {
	query   []string
	words   []string
	symbols []string
}

var contentCues = []contentCue{
	{
		query: []string{"data", "methodology", "analysis", "research"},
		words: []string{"table", "figure", "chart", "graph", "dataset"},
	},
	{
		query:   []string{"revenue", "profit", "financial", "earnings"},
		words:   []string{"million", "billion", "percentage", "percent"},
		symbols: []string{"$", "%", "€", "£"},
	},
}

// ContentBoost rewards bodies carrying the kind of content the query asks for. Each cue
// family whose query terms and body markers both match adds an equal share; the result is
// in [0,1].
func ContentBoost(queryTokens []string, body string) float64 {
	bodyTokens := textnorm.Tokens(body)
	var hits int
	for _, cue := range contentCues {
		if !anyMatch(queryTokens, cue.query) {
			continue
		}
		if anyMatch(bodyTokens, cue.words) || containsAny(body, cue.symbols) {
			hits++
		}
	}
	return float64(hits) / float64(len(contentCues))
}

func anyMatch(tokens, terms []string) bool {
	for _, tok := range tokens {
		for _, term := range terms {
			if textnorm.Match(tok, term) {
				return true
			}
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
