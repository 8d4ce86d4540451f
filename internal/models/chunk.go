// Package models defines core data structures for chunks, conversation turns, and answers.
package models

// Chunk is a unit of retrieval cut from one document's normalized text.
type Chunk struct {
	// ChunkID is content-addressed (source, index, content prefix). It is not unique.
	ChunkID    string `json:"chunk_id" db:"chunk_id"`
	Source     string `json:"source" db:"source"`
	ChunkIndex int    `json:"chunk_index" db:"chunk_index"`
	Content    string `json:"content" db:"content"`
	// Length is the content length in characters.
	Length int `json:"chunk_length" db:"length"`
}

// SearchHit is a chunk returned by a similarity or keyword lookup.
type SearchHit struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}
