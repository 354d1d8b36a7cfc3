package index

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarities_InInputOrder(t *testing.T) {
	x := New()
	vectors := [][]float32{
		{0, 1, 0},
		{1, 0, 0},
		{1, 1, 0},
	}
	got, err := x.Similarities(context.Background(), "doc.pdf", vectors, []float32{1, 0, 0})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.InDelta(t, 0.0, got[0], 1e-5)
	assert.InDelta(t, 1.0, got[1], 1e-5)
	assert.InDelta(t, 0.7071, got[2], 1e-3)
}

func TestSimilarities_ZeroVectorsScoreZero(t *testing.T) {
	x := New()
	got, err := x.Similarities(context.Background(), "doc", [][]float32{{0, 0}, nil, {2, 0}}, []float32{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got[0])
	assert.Equal(t, 0.0, got[1])
	assert.InDelta(t, 1.0, got[2], 1e-5)

	got, err = x.Similarities(context.Background(), "doc", [][]float32{{1, 0}}, []float32{0, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, got)
}

func TestSimilarities_DimensionMismatch(t *testing.T) {
	_, err := New().Similarities(context.Background(), "doc", [][]float32{{1, 0, 0}}, []float32{1, 0})
	assert.Error(t, err)
}

func TestSimilarities_ConcurrentDocuments(t *testing.T) {
	x := New()
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = x.Similarities(context.Background(), "same-name", [][]float32{{1, 0}, {0, 1}}, []float32{1, 1})
		}()
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}
