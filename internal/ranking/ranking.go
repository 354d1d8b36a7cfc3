// Package ranking merges scored sections across documents into a single ordered top-K list.
package ranking

import (
	"context"
	"sort"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/scoring"
)

const (
	DefaultTopK = 10
	MaxTopK     = 100
)

// ClampTopK maps a requested K into [1, MaxTopK], using DefaultTopK for k <= 0.
func ClampTopK(k int) int {
	if k <= 0 {
		return DefaultTopK
	}
	return min(k, MaxTopK)
}

// Less is the total order of the ranking: score descending, then document, page and
// position ascending.
func Less(a, b doctree.ScoredSection) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.DocumentID != b.DocumentID {
		return a.DocumentID < b.DocumentID
	}
	if a.Page != b.Page {
		return a.Page < b.Page
	}
	return a.StartOrder < b.StartOrder
}

// Aggregate returns the top-K sections ranked 1..K. The input is not modified.
func Aggregate(sections []doctree.ScoredSection, topK int) []doctree.ScoredSection {
	sorted := make([]doctree.ScoredSection, len(sections))
	copy(sorted, sections)
	sort.SliceStable(sorted, func(i, j int) bool { return Less(sorted[i], sorted[j]) })

	k := min(ClampTopK(topK), len(sorted))
	out := sorted[:k:k]
	for i := range out {
		out[i].Rank = i + 1
		out[i].Excerpt = nil
	}
	return out
}

// Refiner picks the best excerpt of a section.
type Refiner interface {
	Refine(ctx context.Context, sec doctree.Section) (doctree.Subsection, error)
}

// Budget reports whether time has run out.
type Budget interface {
	Exceeded() bool
}

// Refine attaches an excerpt to each winner, in rank order. When the budget runs out or
// ctx ends, the remaining winners get their first paragraph and exhausted is true.
func Refine(ctx context.Context, winners []doctree.ScoredSection, r Refiner, b Budget) (out []doctree.ScoredSection, exhausted bool) {
	out = make([]doctree.ScoredSection, len(winners))
	copy(out, winners)

	for i := range out {
		if !exhausted && (b.Exceeded() || ctx.Err() != nil) {
			exhausted = true
		}
		if exhausted {
			sub := scoring.Fallback(out[i].Section)
			out[i].Excerpt = &sub
			continue
		}

		sub, err := r.Refine(ctx, out[i].Section)
		if err != nil {
			if ctx.Err() != nil {
				exhausted = true
			}
			sub = scoring.Fallback(out[i].Section)
		}
		out[i].Excerpt = &sub
	}
	return out, exhausted
}
