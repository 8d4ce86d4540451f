// Package vector provides vector index and similarity search.
package vector

import "context"

// VectorIndex defines vector storage and similarity search.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	// Get returns a copy of the vector stored under id.
	Get(id string) ([]float32, bool)
	// IDs returns the stored ids in insertion order.
	IDs() []string
	// Merge appends every vector of other. Ids are not deduplicated.
	Merge(other VectorIndex) error
	Save(path string) error
	Size() int
	Dimensions() int
	Close() error
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	ID     string
	Score  float64 // Inner product; cosine similarity for normalized vectors
	Vector []float32
}
