package scoring

import (
	"context"

	"github.com/dgallion1/docinsight/internal/chunker"
	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/textnorm"
)

// Refine picks the passage of sec that best matches the query. Passages are scored by
// embedding similarity while the run is not degraded, otherwise by query-token coverage.
// Ties keep the earliest passage.
func (s *Scorer) Refine(ctx context.Context, sec doctree.Section) (doctree.Subsection, error) {
	passages := chunker.Split(sec.Paragraphs, s.cfg.Chunker)
	if len(passages) == 0 {
		return Fallback(sec), nil
	}

	scores, err := s.passageScores(ctx, sec.DocumentID, passages)
	if err != nil {
		return doctree.Subsection{}, err
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return doctree.Subsection{
		DocumentID: sec.DocumentID,
		Page:       passages[best].Page,
		Text:       passages[best].Text,
		Score:      scores[best],
	}, nil
}

func (s *Scorer) passageScores(ctx context.Context, docID string, passages []doctree.Paragraph) ([]float64, error) {
	if !s.Degraded() {
		vecs := make([][]float32, len(passages))
		var embedErr error
		for i, p := range passages {
			v, err := s.embedder.Embed(ctx, p.Text)
			if err != nil {
				embedErr = err
				break
			}
			vecs[i] = v
		}
		if embedErr == nil {
			sims, err := s.index.Similarities(ctx, docID, vecs, s.queryVec)
			if err == nil {
				for i := range sims {
					sims[i] = clamp01(sims[i])
				}
				return sims, nil
			}
			embedErr = err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.markDegraded(embedErr)
	}

	scores := make([]float64, len(passages))
	for i, p := range passages {
		scores[i] = textnorm.Coverage(s.queryTokens, textnorm.Tokens(p.Text))
	}
	return scores, nil
}

// Fallback is the excerpt used when there is no time or material to refine: the first
// paragraph, or the heading itself for an empty section.
func Fallback(sec doctree.Section) doctree.Subsection {
	sub := doctree.Subsection{DocumentID: sec.DocumentID, Page: sec.Page, Text: sec.Title}
	if len(sec.Paragraphs) > 0 {
		sub.Page = sec.Paragraphs[0].Page
		sub.Text = sec.Paragraphs[0].Text
	}
	return sub
}
