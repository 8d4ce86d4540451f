// Package vectorstore keeps chunk payloads next to their vectors and persists both
// as one named index directory.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/banglarag/internal/embedding"
	"github.com/hyperjump/banglarag/internal/models"
	"github.com/hyperjump/banglarag/internal/vector"
	"github.com/hyperjump/banglarag/pkg/utils"
)

// ErrIndexNotFound is returned by Load and KeywordSearch when no index is persisted.
var ErrIndexNotFound = errors.New("index not found")

// Store maps chunks to vectors. Every added chunk gets a fresh entry key,
// so adding the same chunk twice keeps both entries.
type Store struct {
	embedder  embedding.Embedder
	model     string
	logger    *zap.Logger
	index     *vector.MemoryIndex // nil until the first add
	chunks    map[string]*models.Chunk
	createdAt time.Time
	mu        sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = utils.OrNop(logger) }
}

// WithModelName records the embedding model name in the persisted metadata.
func WithModelName(name string) Option {
	return func(s *Store) { s.model = name }
}

// New returns an empty store that embeds queries with embedder.
func New(embedder embedding.Embedder, opts ...Option) *Store {
	s := &Store{
		embedder:  embedder,
		logger:    zap.NewNop(),
		chunks:    make(map[string]*models.Chunk),
		createdAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddEmbedded adds chunks with precomputed vectors. Vectors are copied and L2-normalized.
func (s *Store) AddEmbedded(chunks []*models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}
	keys := make([]string, len(chunks))
	normed := make([][]float32, len(vectors))
	for i, v := range vectors {
		keys[i] = uuid.NewString()
		normed[i] = append([]float32(nil), v...)
		utils.NormalizeL2(normed[i])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		idx, err := vector.NewMemoryIndex(len(normed[0]))
		if err != nil {
			return err
		}
		s.index = idx
	}
	if err := s.index.Add(context.Background(), keys, normed); err != nil {
		return err
	}
	for i, k := range keys {
		s.chunks[k] = chunks[i]
	}
	return nil
}

// AddChunks embeds chunks in one batch and adds them.
func (s *Store) AddChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	return s.AddEmbedded(chunks, vecs)
}

// Merge adds every entry of other to s. Entries are not deduplicated.
func (s *Store) Merge(other *Store) error {
	if other == nil || other == s {
		return errors.New("cannot merge a nil store or a store into itself")
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	if other.index == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		idx, err := vector.NewMemoryIndex(other.index.Dimensions())
		if err != nil {
			return err
		}
		s.index = idx
	}
	if err := s.index.Merge(other.index); err != nil {
		return fmt.Errorf("failed to merge vectors: %w", err)
	}
	for k, c := range other.chunks {
		s.chunks[k] = c
	}
	return nil
}

// SimilaritySearch returns the k chunks nearest to query by cosine similarity.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]*models.SearchHit, error) {
	q, err := s.embedQuery(ctx, query)
	if err != nil || q == nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	results, err := s.index.Search(ctx, q, k)
	if err != nil {
		return nil, err
	}
	hits := make([]*models.SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, &models.SearchHit{Chunk: s.chunks[r.ID], Score: r.Score})
	}
	return hits, nil
}

// MaxMarginalRelevanceSearch fetches the fetchK nearest chunks and picks k of them by
// maximal marginal relevance with the given lambda (1 relevance only, 0 diversity only).
func (s *Store) MaxMarginalRelevanceSearch(ctx context.Context, query string, k, fetchK int, lambda float64) ([]*models.SearchHit, error) {
	q, err := s.embedQuery(ctx, query)
	if err != nil || q == nil {
		return nil, err
	}
	fetchK = max(fetchK, k)
	s.mu.RLock()
	defer s.mu.RUnlock()
	results, err := s.index.Search(ctx, q, fetchK)
	if err != nil {
		return nil, err
	}
	candidates := make([][]float32, len(results))
	for i, r := range results {
		candidates[i] = r.Vector
	}
	picked := vector.MMR(q, candidates, k, lambda)
	hits := make([]*models.SearchHit, 0, len(picked))
	for _, i := range picked {
		hits = append(hits, &models.SearchHit{Chunk: s.chunks[results[i].ID], Score: results[i].Score})
	}
	return hits, nil
}

// embedQuery returns the normalized query vector, or nil when the store is empty.
func (s *Store) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.Len() == 0 {
		return nil, nil
	}
	q, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	q = append([]float32(nil), q...)
	utils.NormalizeL2(q)
	return q, nil
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return 0
	}
	return s.index.Size()
}

// Dimensions returns the vector size, or 0 for an empty store.
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return 0
	}
	return s.index.Dimensions()
}

// Chunks returns the stored chunks in insertion order.
func (s *Store) Chunks() []*models.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil
	}
	ids := s.index.IDs()
	out := make([]*models.Chunk, len(ids))
	for i, id := range ids {
		out[i] = s.chunks[id]
	}
	return out
}

// Sources returns the number of distinct source documents.
func (s *Store) Sources() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, c := range s.chunks {
		seen[c.Source] = struct{}{}
	}
	return len(seen)
}
