// Package scoring rates sections for relevance to a persona and task.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgallion1/docinsight/internal/chunker"
	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/embed"
	"github.com/dgallion1/docinsight/internal/index"
	"github.com/dgallion1/docinsight/internal/textnorm"
)

// Composite weights when embeddings are available.
const (
	WeightSimilarity   = 0.55
	WeightStructural   = 0.15
	WeightTitleOverlap = 0.25
	WeightContentBoost = 0.05
)

// Composite weights in degraded (lexical-only) mode.
const (
	DegradedStructural   = 0.35
	DegradedTitleOverlap = 0.40
	DegradedBodyOverlap  = 0.20
	DegradedContentBoost = 0.05
)

// DefaultTruncateChars is how much of a section body is embedded and matched.
const DefaultTruncateChars = 1000

// Config tunes the scorer.
type Config struct {
	TruncateChars int
	Chunker       chunker.Config
}

func DefaultConfig() Config {
	return Config{
		TruncateChars: DefaultTruncateChars,
		Chunker:       chunker.DefaultConfig(),
	}
}

// Scorer holds the per-run query state. One Scorer is shared by all document workers.
// After the first embedding failure it stays degraded for the rest of the run.
type Scorer struct {
	embedder    embed.Embedder
	index       *index.SectionIndex
	query       doctree.PersonaQuery
	queryTokens []string
	queryVec    []float32
	cfg         Config
	log         *slog.Logger

	mu       sync.Mutex
	degraded bool
	reason   string
}

// New embeds the query once. An embedding failure does not fail construction; the scorer
// starts degraded instead.
func New(ctx context.Context, embedder embed.Embedder, query doctree.PersonaQuery, cfg Config, log *slog.Logger) *Scorer {
	if cfg.TruncateChars <= 0 {
		cfg.TruncateChars = DefaultTruncateChars
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Scorer{
		embedder:    embedder,
		index:       index.New(),
		query:       query,
		queryTokens: textnorm.Tokens(query.Text()),
		cfg:         cfg,
		log:         log,
	}

	if embedder == nil {
		s.markDegraded(embed.ErrUnavailable)
		return s
	}
	vec, err := embedder.Embed(ctx, query.Text())
	switch {
	case err != nil:
		s.markDegraded(fmt.Errorf("embed query: %w", err))
	case isZero(vec):
		s.markDegraded(errors.New("query embedding carries no signal"))
	default:
		s.queryVec = vec
	}
	return s
}

// Degraded reports whether the run has fallen back to lexical scoring.
func (s *Scorer) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// DegradedReason is the first failure that made the run degraded, or "".
func (s *Scorer) DegradedReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Provider names the embedding backend in use.
func (s *Scorer) Provider() string {
	if s.embedder == nil {
		return embed.ProviderNone
	}
	return s.embedder.Name()
}

func (s *Scorer) markDegraded(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		return
	}
	s.degraded = true
	s.reason = err.Error()
	s.log.Warn("embedding unavailable, falling back to lexical scoring", "error", err)
}

// ScoreDocument scores every section of one document. It only returns an error when ctx
// is done; embedding failures degrade the run instead.
func (s *Scorer) ScoreDocument(ctx context.Context, docID string, sections []doctree.Section) ([]doctree.ScoredSection, error) {
	out := make([]doctree.ScoredSection, len(sections))
	for i, sec := range sections {
		out[i] = doctree.ScoredSection{Section: sec, Components: s.lexical(sec)}
	}

	if len(sections) > 0 && !s.Degraded() {
		sims, err := s.similarities(ctx, docID, sections)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.markDegraded(err)
		} else {
			for i := range out {
				out[i].Components.Similarity = sims[i]
				out[i].Components.HasSimilarity = true
			}
		}
	}

	for i := range out {
		out[i].Score = Composite(out[i].Components)
	}
	return out, nil
}

func (s *Scorer) similarities(ctx context.Context, docID string, sections []doctree.Section) ([]float64, error) {
	vecs := make([][]float32, len(sections))
	for i, sec := range sections {
		text := sec.Title + " " + chunker.Truncate(sec.Text, s.cfg.TruncateChars)
		v, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed section %q: %w", sec.Title, err)
		}
		vecs[i] = v
	}
	sims, err := s.index.Similarities(ctx, docID, vecs, s.queryVec)
	if err != nil {
		return nil, err
	}
	for i := range sims {
		sims[i] = clamp01(sims[i])
	}
	return sims, nil
}

func (s *Scorer) lexical(sec doctree.Section) doctree.Components {
	body := chunker.Truncate(sec.Text, s.cfg.TruncateChars)
	return doctree.Components{
		Structural:   Structural(sec.Level, sec.ScopeWordCount()),
		TitleOverlap: textnorm.Dice(s.queryTokens, textnorm.Tokens(sec.Title)),
		BodyOverlap:  textnorm.Coverage(s.queryTokens, textnorm.Tokens(body)),
		ContentBoost: ContentBoost(s.queryTokens, body),
	}
}

// Finalize returns copies of sections whose scores all use one formula: the lexical one
// if the run degraded at any point.
func (s *Scorer) Finalize(sections []doctree.ScoredSection) []doctree.ScoredSection {
	out := make([]doctree.ScoredSection, len(sections))
	copy(out, sections)
	if !s.Degraded() {
		return out
	}
	for i := range out {
		out[i].Components.HasSimilarity = false
		out[i].Components.Similarity = 0
		out[i].Score = Composite(out[i].Components)
	}
	return out
}

// Composite combines components with the embedded or degraded weights.
func Composite(c doctree.Components) float64 {
	if c.HasSimilarity {
		return clamp01(WeightSimilarity*c.Similarity + WeightStructural*c.Structural +
			WeightTitleOverlap*c.TitleOverlap + WeightContentBoost*c.ContentBoost)
	}
	return clamp01(DegradedStructural*c.Structural + DegradedTitleOverlap*c.TitleOverlap +
		DegradedBodyOverlap*c.BodyOverlap + DegradedContentBoost*c.ContentBoost)
}

// Structural rates a section by heading level and length. Callers pass the scope length, so
// an H1 with a one-line intro and long subsections is not treated as a stub.
func Structural(level doctree.Level, words int) float64 {
	var w float64
	switch level {
	case doctree.LevelH1:
		w = 1.0
	case doctree.LevelH2:
		w = 0.7
	case doctree.LevelH3:
		w = 0.4
	default:
		return 0
	}
	switch {
	case words < 20:
		w *= 0.4
	case words > 1500:
		w *= 0.7
	}
	return w
}

func clamp01(v float64) float64 {
	if v != v || v < 0 { // NaN or negative
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
