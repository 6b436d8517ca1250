// Package search provides the in-memory session index for the thought graph:
// brute-force cosine similarity over embeddings plus BM25 keyword search.
//
// The index is ephemeral. It is rebuilt from durable storage at session
// start and kept current incrementally as thoughts change; losing it
// costs a rebuild, never data.
package search

import "errors"

var (
	// ErrNotInitialized is returned by queries before the first Rebuild.
	ErrNotInitialized = errors.New("search index not initialized")

	// ErrDimensionMismatch is returned when a vector's shape does not
	// match the index dimensions.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Document is the indexable projection of a thought.
type Document struct {
	ID        string
	Label     string
	Content   string
	Embedding []float32
}

// Text returns the document's searchable text.
func (d *Document) Text() string {
	if d.Content == "" {
		return d.Label
	}
	return d.Label + " " + d.Content
}

// Result is a single search hit.
type Result struct {
	ID    string
	Score float64
}
