package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/banglarag/internal/embedding"
	"github.com/hyperjump/banglarag/internal/keyword"
	"github.com/hyperjump/banglarag/internal/models"
	"github.com/hyperjump/banglarag/internal/storage"
	"github.com/hyperjump/banglarag/internal/vector"
)

// Files inside a persisted index directory.
const (
	VectorFile  = "index.vec"
	ChunksFile  = "chunks.db"
	KeywordFile = "keyword.bleve"
)

// Info describes a persisted index.
type Info struct {
	Dir            string    `json:"dir"`
	Chunks         int       `json:"chunks"`
	Sources        int       `json:"sources"`
	Dimensions     int       `json:"dimensions"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	SizeBytes      int64     `json:"size_bytes"`
	// Parts is the disk usage of each file or directory in the index.
	Parts map[string]int64 `json:"parts,omitempty"`
}

// Exists reports whether dir holds a persisted index.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, VectorFile))
	return err == nil
}

// Remove deletes the persisted index at dir. A missing dir is not an error.
func Remove(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove index %s: %w", dir, err)
	}
	return nil
}

// Save writes the store to dir, replacing whatever was there. The index is
// written to a sibling temp dir first and renamed into place.
func (s *Store) Save(ctx context.Context, dir string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return errors.New("cannot save an empty store")
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("failed to create index parent dir: %w", err)
	}
	tmp := filepath.Join(parent, "."+filepath.Base(dir)+".tmp-"+uuid.NewString())
	if err := os.Mkdir(tmp, 0755); err != nil {
		return fmt.Errorf("failed to create temp index dir: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(tmp)
		}
	}()

	if err := s.index.Save(filepath.Join(tmp, VectorFile)); err != nil {
		return fmt.Errorf("failed to save vectors: %w", err)
	}
	ids := s.index.IDs()
	if err := s.saveChunks(ctx, filepath.Join(tmp, ChunksFile), ids); err != nil {
		return err
	}
	if err := s.saveKeywords(ctx, filepath.Join(tmp, KeywordFile), ids); err != nil {
		return err
	}

	old := ""
	if _, err := os.Stat(dir); err == nil {
		old = filepath.Join(parent, "."+filepath.Base(dir)+".old-"+uuid.NewString())
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("failed to move previous index aside: %w", err)
		}
	}
	if err := os.Rename(tmp, dir); err != nil {
		if old != "" {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("failed to install index: %w", err)
	}
	committed = true
	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			s.logger.Warn("failed to remove previous index", zap.String("path", old), zap.Error(err))
		}
	}
	return nil
}

func (s *Store) saveChunks(ctx context.Context, path string, ids []string) error {
	db, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return err
	}
	defer db.Close()

	records := make([]*storage.ChunkRecord, len(ids))
	sources := make(map[string]struct{})
	for i, id := range ids {
		c := s.chunks[id]
		records[i] = &storage.ChunkRecord{Key: id, Position: i, Chunk: c}
		sources[c.Source] = struct{}{}
	}
	if err := db.BatchCreateChunks(ctx, records); err != nil {
		return fmt.Errorf("failed to save chunks: %w", err)
	}
	meta := map[string]string{
		storage.MetaDimensions:     strconv.Itoa(s.index.Dimensions()),
		storage.MetaChunkCount:     strconv.Itoa(len(ids)),
		storage.MetaSourceCount:    strconv.Itoa(len(sources)),
		storage.MetaEmbeddingModel: s.model,
		storage.MetaCreatedAt:      s.createdAt.Format(time.RFC3339),
	}
	if err := db.SetMeta(ctx, meta); err != nil {
		return fmt.Errorf("failed to save index metadata: %w", err)
	}
	return db.Close()
}

func (s *Store) saveKeywords(ctx context.Context, path string, ids []string) error {
	kw, err := keyword.NewBleveIndex(path)
	if err != nil {
		return err
	}
	chunks := make([]*models.Chunk, len(ids))
	for i, id := range ids {
		chunks[i] = s.chunks[id]
	}
	if err := kw.IndexBatch(ctx, ids, chunks); err != nil {
		_ = kw.Close()
		return fmt.Errorf("failed to build keyword index: %w", err)
	}
	return kw.Close()
}

// Load reads the index persisted at dir. Queries are embedded with embedder.
func Load(ctx context.Context, dir string, embedder embedding.Embedder, opts ...Option) (*Store, error) {
	if !Exists(dir) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, dir)
	}
	idx, err := vector.LoadMemoryIndex(filepath.Join(dir, VectorFile))
	if err != nil {
		return nil, err
	}
	db, err := storage.OpenSQLiteStorage(filepath.Join(dir, ChunksFile))
	if err != nil {
		return nil, err
	}
	defer db.Close()
	records, err := db.ListChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}
	meta, err := db.GetMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read index metadata: %w", err)
	}

	s := New(embedder, opts...)
	for _, r := range records {
		s.chunks[r.Key] = r.Chunk
	}
	for _, id := range idx.IDs() {
		if _, ok := s.chunks[id]; !ok {
			return nil, fmt.Errorf("index %s is corrupt: vector %s has no chunk", dir, id)
		}
	}
	s.index = idx
	if s.model == "" {
		s.model = meta[storage.MetaEmbeddingModel]
	}
	if t, err := time.Parse(time.RFC3339, meta[storage.MetaCreatedAt]); err == nil {
		s.createdAt = t
	}
	return s, nil
}

// Stat reads the metadata of the index persisted at dir without loading vectors.
func Stat(ctx context.Context, dir string) (*Info, error) {
	if !Exists(dir) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, dir)
	}
	db, err := storage.OpenSQLiteStorage(filepath.Join(dir, ChunksFile))
	if err != nil {
		return nil, err
	}
	defer db.Close()
	meta, err := db.GetMeta(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := db.CountChunks(ctx)
	if err != nil {
		return nil, err
	}
	sources, err := db.CountSources(ctx)
	if err != nil {
		return nil, err
	}
	usage, err := storage.DiskUsage(dir)
	if err != nil {
		return nil, err
	}
	info := &Info{
		Dir:            dir,
		Chunks:         int(chunks),
		Sources:        int(sources),
		EmbeddingModel: meta[storage.MetaEmbeddingModel],
		SizeBytes:      usage.Total,
		Parts:          usage.Parts,
	}
	info.Dimensions, _ = strconv.Atoi(meta[storage.MetaDimensions])
	info.CreatedAt, _ = time.Parse(time.RFC3339, meta[storage.MetaCreatedAt])
	return info, nil
}

// KeywordSearch runs a keyword query against the index persisted at dir.
func KeywordSearch(ctx context.Context, dir, query string, limit int, opts *keyword.SearchOptions) ([]*models.SearchHit, error) {
	if !Exists(dir) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, dir)
	}
	kw, err := keyword.OpenBleveIndex(filepath.Join(dir, KeywordFile))
	if err != nil {
		return nil, err
	}
	defer kw.Close()
	results, err := kw.Search(ctx, query, limit, opts)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	db, err := storage.OpenSQLiteStorage(filepath.Join(dir, ChunksFile))
	if err != nil {
		return nil, err
	}
	defer db.Close()
	hits := make([]*models.SearchHit, 0, len(results))
	for _, r := range results {
		c, err := db.GetChunk(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		hits = append(hits, &models.SearchHit{Chunk: c, Score: r.Score})
	}
	return hits, nil
}
