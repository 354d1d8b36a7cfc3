// Package layout derives per-document font statistics that separate body text from headings.
package layout

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docinsight/internal/doctree"
)

// Config holds the analyzer thresholds.
type Config struct {
	// MinBodyChars is the rune count a block needs to vote for the body size.
	MinBodyChars int
	// TierTolerance is the relative size difference under which two sizes share a tier.
	TierTolerance float64
	// SizeStep is the rounding granularity for font sizes, in points.
	SizeStep float64
}

// DefaultConfig returns the thresholds used in production.
func DefaultConfig() Config {
	return Config{
		MinBodyChars:  8,
		TierTolerance: 0.05,
		SizeStep:      0.5,
	}
}

// tierLevels maps tier index to level; the profile never holds more tiers than this.
var tierLevels = []doctree.Level{doctree.LevelTitle, doctree.LevelH1, doctree.LevelH2, doctree.LevelH3}

// RoundSize snaps a font size to the configured step.
func (c Config) RoundSize(size float64) float64 {
	step := c.SizeStep
	if step <= 0 {
		step = 0.5
	}
	return math.Round(size/step) * step
}

// Analyze computes the FontProfile of one document. Zero blocks yield BodySize 0 and no tiers.
func Analyze(blocks []doctree.TextBlock, cfg Config) doctree.FontProfile {
	weights := sizeWeights(blocks, cfg, cfg.MinBodyChars)
	if len(weights) == 0 {
		// Every block is short (a slide deck, a form); let them all vote.
		weights = sizeWeights(blocks, cfg, 1)
	}
	if len(weights) == 0 {
		return doctree.FontProfile{}
	}

	body := 0.0
	best := -1
	for size, chars := range weights {
		if chars > best || (chars == best && size < body) {
			body, best = size, chars
		}
	}

	return doctree.FontProfile{
		BodySize: body,
		Tiers:    buildTiers(distinctSizes(blocks, cfg), body, cfg.TierTolerance),
	}
}

func sizeWeights(blocks []doctree.TextBlock, cfg Config, minChars int) map[float64]int {
	weights := make(map[float64]int)
	for _, b := range blocks {
		n := utf8.RuneCountInString(strings.TrimSpace(b.Text))
		if n == 0 || n < minChars || b.FontSize <= 0 {
			continue
		}
		weights[cfg.RoundSize(b.FontSize)] += n
	}
	return weights
}

func distinctSizes(blocks []doctree.TextBlock, cfg Config) []float64 {
	seen := make(map[float64]bool)
	var sizes []float64
	for _, b := range blocks {
		if strings.TrimSpace(b.Text) == "" || b.FontSize <= 0 {
			continue
		}
		s := cfg.RoundSize(b.FontSize)
		if !seen[s] {
			seen[s] = true
			sizes = append(sizes, s)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))
	return sizes
}

// buildTiers clusters sizes above body into at most four tiers, largest first.
func buildTiers(sizes []float64, body, tol float64) []doctree.Tier {
	var tiers []doctree.Tier
	for _, s := range sizes {
		if s <= body*(1+tol) {
			break
		}
		if n := len(tiers); n > 0 {
			cur := &tiers[n-1]
			// Join the tier when close to its leader, or when the last tier (H3) is already open.
			if s >= cur.MaxSize*(1-tol) || n == len(tierLevels) {
				cur.MinSize = s
				continue
			}
		}
		tiers = append(tiers, doctree.Tier{Level: tierLevels[len(tiers)], MinSize: s, MaxSize: s})
	}
	return tiers
}

// TierOf returns the index of the tier containing size, or -1 for body-size text.
func TierOf(p doctree.FontProfile, size float64, cfg Config) int {
	s := cfg.RoundSize(size)
	for i, t := range p.Tiers {
		if t.Contains(s, 0) {
			return i
		}
	}
	// Sizes missing from the table (rounding edge cases) fall into the nearest tier above body.
	if !p.HasHeadings() || s <= p.BodySize*(1+cfg.TierTolerance) {
		return -1
	}
	for i, t := range p.Tiers {
		if s >= t.MinSize*(1-cfg.TierTolerance) {
			return i
		}
	}
	return len(p.Tiers) - 1
}
