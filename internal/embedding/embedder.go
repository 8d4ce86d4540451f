// Package embedding turns chunk and question text into vectors.
package embedding

import "context"

// Embedder maps text to fixed-size vectors. Implementations must be safe for
// concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds texts in one request. The result is aligned with texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions is the vector size. Remote embedders report 0 until their first reply.
	Dimensions() int
	Close() error
}
