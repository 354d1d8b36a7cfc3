// Package index scores section vectors against a query vector using an in-memory chromem-go store.
package index

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
)

var errTextEmbedding = errors.New("section index only accepts precomputed embeddings")

// SectionIndex holds one short-lived collection per scored document.
// It is safe for concurrent use by the document workers.
type SectionIndex struct {
	db *chromem.DB
}

func New() *SectionIndex {
	return &SectionIndex{db: chromem.NewDB()}
}

// Similarities returns the cosine similarity of each vector to query, in input order.
// Nil or all-zero vectors score 0 and are not indexed.
func (x *SectionIndex) Similarities(ctx context.Context, docID string, vectors [][]float32, query []float32) ([]float64, error) {
	scores := make([]float64, len(vectors))
	if isZero(query) {
		return scores, nil
	}

	name := docID + "-" + uuid.NewString()
	c, err := x.db.CreateCollection(name, map[string]string{"document": docID}, rejectText)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	defer func() { _ = x.db.DeleteCollection(name) }()

	docs := make([]chromem.Document, 0, len(vectors))
	for i, v := range vectors {
		if isZero(v) {
			continue
		}
		if len(v) != len(query) {
			return nil, fmt.Errorf("vector %d has %d dims, query has %d", i, len(v), len(query))
		}
		docs = append(docs, chromem.Document{
			ID:        strconv.Itoa(i),
			Embedding: v,
		})
	}
	if len(docs) == 0 {
		return scores, nil
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}

	results, err := c.QueryEmbedding(ctx, query, c.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	for _, r := range results {
		i, err := strconv.Atoi(r.ID)
		if err != nil || i < 0 || i >= len(scores) {
			continue
		}
		scores[i] = float64(r.Similarity)
	}
	return scores, nil
}

func rejectText(context.Context, string) ([]float32, error) {
	return nil, errTextEmbedding
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
