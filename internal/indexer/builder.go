package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/banglarag/internal/embedding"
	"github.com/hyperjump/banglarag/internal/models"
	"github.com/hyperjump/banglarag/internal/notify"
	"github.com/hyperjump/banglarag/internal/vectorstore"
	"github.com/hyperjump/banglarag/pkg/utils"
)

var (
	// ErrNoChunks is returned when Build is called without chunks.
	ErrNoChunks = errors.New("no chunks to index")
	// ErrAllBatchesFailed is returned when no batch could be embedded.
	ErrAllBatchesFailed = errors.New("every embedding batch failed")
)

// Build defaults.
const (
	DefaultBatchSize  = 100
	DefaultBatchDelay = 100 * time.Millisecond
	DefaultIndexName  = "faiss_index"
	SelfTestQuery     = "test বাংলা"
	SelfTestK         = 5
)

// BuilderConfig configures a Builder. Zero values take the defaults.
type BuilderConfig struct {
	BatchSize  int
	BatchDelay time.Duration
	IndexDir   string
	IndexName  string
	// ModelName is recorded in the persisted index metadata.
	ModelName string
}

// BuildReport summarizes one Build.
type BuildReport struct {
	Input         int  `json:"input"`
	Indexed       int  `json:"indexed"`
	Batches       int  `json:"batches"`
	FailedBatches int  `json:"failed_batches"`
	SelfTestHits  int  `json:"self_test_hits"`
	Saved         bool `json:"saved"`
}

// Builder embeds chunks in batches into a vectorstore.Store and persists it.
type Builder struct {
	embedder embedding.Embedder
	cfg      BuilderConfig
	logger   *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = utils.OrNop(l) }
}

// NewBuilder returns a builder that embeds with embedder.
func NewBuilder(embedder embedding.Embedder, cfg BuilderConfig, opts ...BuilderOption) *Builder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultIndexName
	}
	b := &Builder{embedder: embedder, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Path returns the directory the index is persisted to.
func (b *Builder) Path() string {
	return filepath.Join(b.cfg.IndexDir, b.cfg.IndexName)
}

// Build discards the persisted index, embeds chunks batch by batch and saves the result.
// A batch that fails to embed is skipped with a warning. The returned store may hold fewer
// entries than chunks; compare BuildReport.Indexed with BuildReport.Input.
func (b *Builder) Build(ctx context.Context, chunks []*models.Chunk, n notify.Notifier) (*vectorstore.Store, *BuildReport, error) {
	n = notify.OrNop(n)
	if len(chunks) == 0 {
		return nil, nil, ErrNoChunks
	}
	if err := b.Discard(); err != nil {
		n.Warn(fmt.Sprintf("Could not remove previous index: %v", err))
	}

	report := &BuildReport{Input: len(chunks)}
	n.Info(fmt.Sprintf("Creating vector index for %d chunks...", len(chunks)))

	limit := rate.Inf
	if b.cfg.BatchDelay > 0 {
		limit = rate.Every(b.cfg.BatchDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	var store *vectorstore.Store
	var lastErr error
	for start := 0; start < len(chunks); start += b.cfg.BatchSize {
		end := min(start+b.cfg.BatchSize, len(chunks))
		report.Batches++
		if err := limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
		n.Progress("embedding", end, len(chunks))

		batch := b.newStore()
		if err := batch.AddChunks(ctx, chunks[start:end]); err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			lastErr = err
			report.FailedBatches++
			b.logger.Warn("embedding batch failed", zap.Int("batch", report.Batches), zap.Error(err))
			n.Warn(fmt.Sprintf("Failed to process batch %d: %v", report.Batches, err))
			continue
		}
		if store == nil {
			store = batch
			continue
		}
		if err := store.Merge(batch); err != nil {
			lastErr = err
			report.FailedBatches++
			b.logger.Warn("merging batch failed", zap.Int("batch", report.Batches), zap.Error(err))
			n.Warn(fmt.Sprintf("Failed to process batch %d: %v", report.Batches, err))
		}
	}
	if store == nil {
		return nil, report, fmt.Errorf("%w: %v", ErrAllBatchesFailed, lastErr)
	}
	report.Indexed = store.Len()
	n.Info(fmt.Sprintf("Vector index created with %d of %d chunks", report.Indexed, report.Input))

	hits, err := store.SimilaritySearch(ctx, SelfTestQuery, SelfTestK)
	if err != nil {
		b.logger.Warn("retrieval self-test failed", zap.Error(err))
		n.Warn(fmt.Sprintf("Retrieval test failed: %v", err))
	} else {
		report.SelfTestHits = len(hits)
		b.logger.Debug("retrieval self-test", zap.Int("hits", len(hits)))
		n.Info(fmt.Sprintf("Retrieval test successful: found %d results", len(hits)))
	}

	if err := store.Save(ctx, b.Path()); err != nil {
		b.logger.Warn("failed to save index", zap.String("path", b.Path()), zap.Error(err))
		n.Warn(fmt.Sprintf("Could not save index: %v", err))
	} else {
		report.Saved = true
		n.Info("Index saved")
	}
	return store, report, nil
}

func (b *Builder) newStore() *vectorstore.Store {
	return vectorstore.New(b.embedder, vectorstore.WithLogger(b.logger), vectorstore.WithModelName(b.cfg.ModelName))
}

// Load returns the persisted index, or nil when there is none or it cannot be read.
func (b *Builder) Load(ctx context.Context) *vectorstore.Store {
	store, err := vectorstore.Load(ctx, b.Path(), b.embedder, vectorstore.WithLogger(b.logger), vectorstore.WithModelName(b.cfg.ModelName))
	if err != nil {
		if errors.Is(err, vectorstore.ErrIndexNotFound) {
			b.logger.Debug("no persisted index", zap.String("path", b.Path()))
		} else {
			b.logger.Warn("could not load persisted index", zap.String("path", b.Path()), zap.Error(err))
		}
		return nil
	}
	return store
}

// Discard removes the persisted index.
func (b *Builder) Discard() error {
	return vectorstore.Remove(b.Path())
}
