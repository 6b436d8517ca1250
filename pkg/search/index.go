package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Index combines vector similarity and BM25 keyword search over the same
// document set. Queries fail with ErrNotInitialized until the first
// Rebuild completes; after that the index never goes back to empty-handed,
// a failed rebuild leaves the previous generation serving.
type Index struct {
	dimensions int

	mu       sync.RWMutex
	vectors  *VectorIndex
	fulltext *FulltextIndex
	ready    atomic.Bool
}

// NewIndex creates an uninitialized index for vectors of the given size.
func NewIndex(dimensions int) *Index {
	return &Index{
		dimensions: dimensions,
	}
}

// Rebuild replaces the entire index contents from a snapshot of documents.
//
// The new generation is built off to the side and swapped in atomically:
// concurrent queries see either the full old state or the full new state,
// never a half-built one. Documents without embeddings are indexed for
// keyword search only.
func (idx *Index) Rebuild(ctx context.Context, docs []*Document) error {
	vectors := NewVectorIndex(idx.dimensions)
	fulltext := NewFulltextIndex()

	for _, doc := range docs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fulltext.Index(doc.ID, doc.Text())
		if len(doc.Embedding) > 0 {
			if err := vectors.Add(doc.ID, doc.Embedding); err != nil {
				return fmt.Errorf("indexing %s: %w", doc.ID, err)
			}
		}
	}

	idx.mu.Lock()
	idx.vectors = vectors
	idx.fulltext = fulltext
	idx.mu.Unlock()
	idx.ready.Store(true)
	return nil
}

// Insert adds or updates a single document in the live index.
func (idx *Index) Insert(doc *Document) error {
	if !idx.ready.Load() {
		return ErrNotInitialized
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	idx.fulltext.Index(doc.ID, doc.Text())
	if len(doc.Embedding) > 0 {
		return idx.vectors.Add(doc.ID, doc.Embedding)
	}
	idx.vectors.Remove(doc.ID)
	return nil
}

// Remove deletes a document from the live index. Removing an absent
// document is a no-op.
func (idx *Index) Remove(id string) error {
	if !idx.ready.Load() {
		return ErrNotInitialized
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	idx.fulltext.Remove(id)
	idx.vectors.Remove(id)
	return nil
}

// SearchText performs BM25 keyword search.
func (idx *Index) SearchText(query string, limit int) ([]Result, error) {
	if !idx.ready.Load() {
		return nil, ErrNotInitialized
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.fulltext.Search(query, limit), nil
}

// SearchVector performs cosine similarity search, returning up to limit
// hits with similarity >= minSimilarity, best first.
func (idx *Index) SearchVector(ctx context.Context, query []float32, limit int, minSimilarity float64) ([]Result, error) {
	if !idx.ready.Load() {
		return nil, ErrNotInitialized
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.vectors.Search(ctx, query, limit, minSimilarity)
}

// Count returns the number of keyword-indexed documents.
func (idx *Index) Count() int {
	if !idx.ready.Load() {
		return 0
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.fulltext.Count()
}

// VectorCount returns the number of documents with indexed embeddings.
func (idx *Index) VectorCount() int {
	if !idx.ready.Load() {
		return 0
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.vectors.Count()
}

// Ready reports whether the first rebuild has completed.
func (idx *Index) Ready() bool {
	return idx.ready.Load()
}
