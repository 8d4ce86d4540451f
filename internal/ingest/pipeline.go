// Package ingest runs a processing run: extract every document, chunk it, and build
// the session's index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/banglarag/internal/extract"
	"github.com/hyperjump/banglarag/internal/indexer"
	"github.com/hyperjump/banglarag/internal/models"
	"github.com/hyperjump/banglarag/internal/notify"
	"github.com/hyperjump/banglarag/internal/rag"
	"github.com/hyperjump/banglarag/pkg/utils"
)

var (
	// ErrNoDocuments is returned when Run is called without documents.
	ErrNoDocuments = errors.New("no documents given")
	// ErrNoContent is returned when no document produced a chunk.
	ErrNoContent = errors.New("no processable content found")
)

// DefaultPreviewLength is the number of extracted characters kept in a DocumentReport.
const DefaultPreviewLength = 1000

// Document is one input PDF.
type Document struct {
	Name    string
	Content []byte
}

// Extractor turns PDF bytes into normalized text.
type Extractor interface {
	Extract(ctx context.Context, name string, content []byte, strategy extract.Strategy, n notify.Notifier) extract.Result
}

// DocumentReport describes what a run did with one document.
type DocumentReport struct {
	Name       string         `json:"name"`
	Method     extract.Method `json:"method"`
	Pages      int            `json:"pages"`
	Characters int            `json:"characters"`
	Chunks     int            `json:"chunks"`
	Preview    string         `json:"preview"`
	Text       string         `json:"-"`
}

// Report summarizes a processing run.
type Report struct {
	Documents     []*DocumentReport    `json:"documents"`
	Chunks        int                  `json:"chunks"`
	ProcessedDocs int                  `json:"processed_docs"`
	Build         *indexer.BuildReport `json:"build,omitempty"`
	Duration      time.Duration        `json:"duration_ns"`
}

// Pipeline wires extraction, chunking and index building.
type Pipeline struct {
	extractor  Extractor
	chunker    *indexer.Chunker
	builder    *indexer.Builder
	previewLen int
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = utils.OrNop(l) }
}

// WithPreviewLength sets how many extracted characters each DocumentReport keeps.
func WithPreviewLength(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.previewLen = n
		}
	}
}

// NewPipeline returns a Pipeline.
func NewPipeline(extractor Extractor, chunker *indexer.Chunker, builder *indexer.Builder, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:  extractor,
		chunker:    chunker,
		builder:    builder,
		previewLen: DefaultPreviewLength,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run resets session, discards the persisted index, and rebuilds it from docs.
// Documents without text are skipped with a warning. When no document yields a
// chunk the run fails with ErrNoContent and the session stays empty.
func (p *Pipeline) Run(ctx context.Context, session *rag.Session, docs []Document, strategy extract.Strategy, n notify.Notifier) (*Report, error) {
	n = notify.OrNop(n)
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	start := time.Now()
	session.Reset()
	if err := p.builder.Discard(); err != nil {
		n.Warn(fmt.Sprintf("Could not clear existing index: %v", err))
	}

	report := &Report{}
	var all []*models.Chunk
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		n.Progress("documents", i+1, len(docs))
		n.Info(fmt.Sprintf("Processing: %s", doc.Name))
		res := p.extractor.Extract(ctx, doc.Name, doc.Content, strategy, n)
		dr := &DocumentReport{
			Name:       doc.Name,
			Method:     res.Method,
			Pages:      res.Pages,
			Characters: utils.TrimmedLen(res.Text),
			Preview:    utils.Truncate(res.Text, p.previewLen),
			Text:       res.Text,
		}
		report.Documents = append(report.Documents, dr)
		if dr.Characters == 0 {
			n.Warn(fmt.Sprintf("No text extracted from %s", doc.Name))
			continue
		}
		report.ProcessedDocs++

		chunks := p.chunker.Chunk(res.Text, doc.Name)
		dr.Chunks = len(chunks)
		all = append(all, chunks...)
		p.logger.Debug("document chunked", zap.String("source", doc.Name),
			zap.String("method", string(res.Method)), zap.Int("chunks", len(chunks)))
	}
	report.Chunks = len(all)
	if len(all) == 0 {
		return report, ErrNoContent
	}

	store, build, err := p.builder.Build(ctx, all, n)
	report.Build = build
	if err != nil {
		return report, fmt.Errorf("failed to build index: %w", err)
	}
	session.Install(store, report.ProcessedDocs)
	report.Duration = time.Since(start)
	n.Info("Processing complete")
	return report, nil
}
