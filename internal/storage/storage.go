// Package storage defines the persistence interface for chunk payloads and index metadata.
package storage

import (
	"context"

	"github.com/hyperjump/banglarag/internal/models"
)

// Meta keys written alongside a persisted index.
const (
	MetaDimensions     = "dimensions"
	MetaChunkCount     = "chunk_count"
	MetaSourceCount    = "source_count"
	MetaEmbeddingModel = "embedding_model"
	MetaCreatedAt      = "created_at"
)

// ChunkRecord is a chunk stored under its index entry key. Position is the insertion order.
type ChunkRecord struct {
	Key      string
	Position int
	Chunk    *models.Chunk
}

// Storage defines chunk and metadata persistence operations.
type Storage interface {
	// Chunk operations
	BatchCreateChunks(ctx context.Context, records []*ChunkRecord) error
	GetChunk(ctx context.Context, key string) (*models.Chunk, error)
	ListChunks(ctx context.Context) ([]*ChunkRecord, error)

	// Metadata
	SetMeta(ctx context.Context, meta map[string]string) error
	GetMeta(ctx context.Context) (map[string]string, error)

	// Stats
	CountChunks(ctx context.Context) (int64, error)
	CountSources(ctx context.Context) (int64, error)

	Close() error
}
