package search

import (
	"context"
	"math"
	"sort"
	"sync"
)

// VectorIndex provides vector similarity search.
// Currently implements brute-force cosine similarity, which is fine for
// personal-scale graphs (thousands of thoughts, not millions).
type VectorIndex struct {
	dimensions int
	mu         sync.RWMutex
	vectors    map[string][]float32

	// Insertion order makes equal-score results deterministic
	order map[string]int
	seq   int
}

// NewVectorIndex creates a new vector index.
func NewVectorIndex(dimensions int) *VectorIndex {
	return &VectorIndex{
		dimensions: dimensions,
		vectors:    make(map[string][]float32),
		order:      make(map[string]int),
	}
}

// Add adds or updates a vector in the index.
func (v *VectorIndex) Add(id string, vector []float32) error {
	if len(vector) != v.dimensions {
		return ErrDimensionMismatch
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// Normalize once so search is a plain dot product
	v.vectors[id] = normalizeVector(vector)
	if _, exists := v.order[id]; !exists {
		v.order[id] = v.seq
		v.seq++
	}
	return nil
}

// Remove removes a vector from the index.
func (v *VectorIndex) Remove(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.vectors, id)
	delete(v.order, id)
}

// Search finds vectors similar to the query vector.
// Returns up to limit results with similarity >= minSimilarity, sorted by
// similarity descending. Ties break by insertion order, oldest first.
func (v *VectorIndex) Search(ctx context.Context, query []float32, limit int, minSimilarity float64) ([]Result, error) {
	if len(query) != v.dimensions {
		return nil, ErrDimensionMismatch
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	normalizedQuery := normalizeVector(query)

	type scored struct {
		id    string
		score float64
		seq   int
	}
	var results []scored

	for id, vec := range v.vectors {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Dot product of normalized vectors = cosine similarity
		sim := dotProduct(normalizedQuery, vec)
		if sim >= minSimilarity {
			results = append(results, scored{id: id, score: sim, seq: v.order[id]})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].seq < results[j].seq
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	output := make([]Result, len(results))
	for i, r := range results {
		output[i] = Result{ID: r.id, Score: r.score}
	}

	return output, nil
}

// Count returns the number of vectors in the index.
func (v *VectorIndex) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.vectors)
}

// HasVector checks if a vector exists for the given ID.
func (v *VectorIndex) HasVector(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, exists := v.vectors[id]
	return exists
}

// Dimensions returns the vector dimensions.
func (v *VectorIndex) Dimensions() int {
	return v.dimensions
}

// normalizeVector returns a unit vector (L2 norm = 1).
// The zero vector is returned unchanged; it matches nothing.
func normalizeVector(vec []float32) []float32 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v * v)
	}

	if sumSquares == 0 {
		return vec
	}

	norm := math.Sqrt(sumSquares)
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / norm)
	}
	return normalized
}

// dotProduct calculates the dot product of two vectors.
// For normalized vectors, this equals cosine similarity.
func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i] * b[i])
	}
	return sum
}
