package rag

import (
	"context"
	"errors"
	"fmt"

	"lecture-qa/internal/content"
)

// DefaultK is the number of chunks retrieved per question.
const DefaultK = 3

// ErrRetrieval is returned when the store could not serve a query.
var ErrRetrieval = errors.New("retrieval failed")

// Searcher is the similarity search side of content.Store.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]content.SearchResult, error)
}

// Retriever adapts a Searcher to documents for the answering layer.
type Retriever struct {
	store Searcher
}

func NewRetriever(store Searcher) *Retriever {
	return &Retriever{store: store}
}

// Retrieve returns up to k documents closest to query, nearest first.
// Distances are not passed on.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Document, error) {
	results, err := r.store.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	docs := make([]Document, len(results))
	for i, res := range results {
		docs[i] = Document{Content: res.Content, Metadata: res.Metadata}
	}
	return docs, nil
}
