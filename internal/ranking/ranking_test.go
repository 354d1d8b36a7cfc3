package ranking

import (
	"context"
	"errors"
	"testing"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(doc string, page, order int, score float64) doctree.ScoredSection {
	return doctree.ScoredSection{
		Section: doctree.Section{
			DocumentID: doc,
			Page:       page,
			StartOrder: order,
			Title:      doc + " section",
			Paragraphs: []doctree.Paragraph{{Page: page, Text: "first paragraph"}, {Page: page, Text: "second paragraph"}},
		},
		Score: score,
	}
}

func TestAggregate_TotalOrderAndDenseRanks(t *testing.T) {
	in := []doctree.ScoredSection{
		scored("b.pdf", 1, 0, 0.5),
		scored("a.pdf", 2, 4, 0.5),
		scored("a.pdf", 2, 1, 0.5),
		scored("c.pdf", 9, 0, 0.9),
		scored("a.pdf", 1, 7, 0.5),
	}
	out := Aggregate(in, 10)
	require.Len(t, out, 5)

	want := []struct {
		doc   string
		page  int
		order int
	}{
		{"c.pdf", 9, 0},
		{"a.pdf", 1, 7},
		{"a.pdf", 2, 1},
		{"a.pdf", 2, 4},
		{"b.pdf", 1, 0},
	}
	for i, w := range want {
		assert.Equal(t, i+1, out[i].Rank)
		assert.Equal(t, w.doc, out[i].DocumentID, "rank %d", i+1)
		assert.Equal(t, w.page, out[i].Page, "rank %d", i+1)
		assert.Equal(t, w.order, out[i].StartOrder, "rank %d", i+1)
	}
	for i := 1; i < len(out); i++ {
		assert.False(t, Less(out[i], out[i-1]), "rank %d sorts before rank %d", i+1, i)
	}
	assert.Zero(t, in[0].Rank, "input must not be modified")
}

func TestAggregate_TruncatesToTopK(t *testing.T) {
	var in []doctree.ScoredSection
	for i := range 20 {
		in = append(in, scored("a.pdf", i+1, 0, float64(i)/20))
	}
	out := Aggregate(in, 3)
	require.Len(t, out, 3)
	assert.Equal(t, 20, out[0].Page)
	assert.Equal(t, 3, out[2].Rank)

	assert.Len(t, Aggregate(in, 0), DefaultTopK)
	assert.Empty(t, Aggregate(nil, 5))
}

func TestClampTopK(t *testing.T) {
	assert.Equal(t, DefaultTopK, ClampTopK(0))
	assert.Equal(t, DefaultTopK, ClampTopK(-3))
	assert.Equal(t, 7, ClampTopK(7))
	assert.Equal(t, MaxTopK, ClampTopK(1000))
}

type fakeRefiner struct {
	calls int
	err   error
}

func (f *fakeRefiner) Refine(_ context.Context, sec doctree.Section) (doctree.Subsection, error) {
	f.calls++
	if f.err != nil {
		return doctree.Subsection{}, f.err
	}
	return doctree.Subsection{DocumentID: sec.DocumentID, Page: sec.Page, Text: "refined"}, nil
}

type countdown struct{ left int }

func (c *countdown) Exceeded() bool {
	if c.left <= 0 {
		return true
	}
	c.left--
	return false
}

func TestRefine_AllWinnersRefined(t *testing.T) {
	winners := Aggregate([]doctree.ScoredSection{scored("a", 1, 0, 0.9), scored("b", 1, 0, 0.8)}, 10)
	r := &fakeRefiner{}
	out, exhausted := Refine(context.Background(), winners, r, &countdown{left: 10})

	assert.False(t, exhausted)
	assert.Equal(t, 2, r.calls)
	for _, s := range out {
		require.NotNil(t, s.Excerpt)
		assert.Equal(t, "refined", s.Excerpt.Text)
	}
	assert.Nil(t, winners[0].Excerpt, "input must not be modified")
}

func TestRefine_BudgetRunsOutMidway(t *testing.T) {
	winners := Aggregate([]doctree.ScoredSection{
		scored("a", 1, 0, 0.9), scored("b", 1, 0, 0.8), scored("c", 1, 0, 0.7),
	}, 10)
	r := &fakeRefiner{}
	out, exhausted := Refine(context.Background(), winners, r, &countdown{left: 1})

	assert.True(t, exhausted)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, "refined", out[0].Excerpt.Text)
	assert.Equal(t, "first paragraph", out[1].Excerpt.Text)
	assert.Equal(t, "first paragraph", out[2].Excerpt.Text)
}

func TestRefine_ErrorFallsBackWithoutExhausting(t *testing.T) {
	winners := Aggregate([]doctree.ScoredSection{scored("a", 1, 0, 0.9)}, 10)
	out, exhausted := Refine(context.Background(), winners, &fakeRefiner{err: errors.New("boom")}, &countdown{left: 10})
	assert.False(t, exhausted)
	assert.Equal(t, "first paragraph", out[0].Excerpt.Text)
}
