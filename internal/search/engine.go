// Package search provides hybrid chunk lookup (keyword + semantic) over a persisted index.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/banglarag/internal/keyword"
	"github.com/hyperjump/banglarag/internal/models"
	"github.com/hyperjump/banglarag/internal/vectorstore"
)

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("query is empty")

const (
	DefaultLimit          = 10
	DefaultTopKCandidates = 50
)

// Query configures one hybrid lookup. A zero weight disables that side.
type Query struct {
	Text           string
	Limit          int
	KeywordWeight  float64
	SemanticWeight float64
	// TopKCandidates is how many hits each side contributes before fusion.
	TopKCandidates int
	Keyword        *keyword.SearchOptions
}

// Result is one fused hit.
type Result struct {
	Rank          int           `json:"rank"`
	Chunk         *models.Chunk `json:"chunk"`
	Score         float64       `json:"score"`
	KeywordScore  float64       `json:"keyword_score"`
	SemanticScore float64       `json:"semantic_score"`
}

// Response holds the fused results of a lookup.
type Response struct {
	Query     string    `json:"query"`
	Results   []*Result `json:"results"`
	QueryTime int64     `json:"query_time_ms"`
}

// Engine runs hybrid lookups against a loaded store and its persisted keyword index.
type Engine struct {
	store *vectorstore.Store
	dir   string
}

// NewEngine creates an engine. store may be nil when only keyword lookups are made.
func NewEngine(store *vectorstore.Store, dir string) *Engine {
	return &Engine{store: store, dir: dir}
}

// Search runs the enabled sides concurrently and fuses their normalized scores.
func (e *Engine) Search(ctx context.Context, q *Query) (*Response, error) {
	startTime := time.Now()
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, ErrEmptyQuery
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	topK := max(q.TopKCandidates, limit)
	if q.TopKCandidates <= 0 {
		topK = max(DefaultTopKCandidates, limit)
	}
	if q.SemanticWeight > 0 && e.store == nil {
		return nil, errors.New("semantic search needs a loaded index")
	}

	var (
		keywordHits  []*models.SearchHit
		semanticHits []*models.SearchHit
		errChan      = make(chan error, 2)
		wg           sync.WaitGroup
	)

	if q.KeywordWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := vectorstore.KeywordSearch(ctx, e.dir, text, topK, q.Keyword)
			if err != nil {
				errChan <- fmt.Errorf("keyword search failed: %w", err)
				return
			}
			keywordHits = hits
		}()
	}

	if q.SemanticWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := e.store.SimilaritySearch(ctx, text, topK)
			if err != nil {
				errChan <- fmt.Errorf("vector search failed: %w", err)
				return
			}
			semanticHits = filterSource(hits, q.Keyword)
		}()
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	chunks := make(map[string]*models.Chunk)
	for _, h := range append(append([]*models.SearchHit(nil), keywordHits...), semanticHits...) {
		if _, ok := chunks[chunkKey(h.Chunk)]; !ok {
			chunks[chunkKey(h.Chunk)] = h.Chunk
		}
	}
	fused := Fuse(NormalizeKeywordScores(keywordHits), NormalizeSemanticScores(semanticHits), q.KeywordWeight, q.SemanticWeight)
	if len(fused) > limit {
		fused = fused[:limit]
	}

	response := &Response{
		Query:   text,
		Results: make([]*Result, 0, len(fused)),
	}
	for i, f := range fused {
		response.Results = append(response.Results, &Result{
			Rank:          i + 1,
			Chunk:         chunks[f.Key],
			Score:         f.Score,
			KeywordScore:  f.KeywordScore,
			SemanticScore: f.SemanticScore,
		})
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

// Hits converts results to plain search hits carrying the fused score.
func (r *Response) Hits() []*models.SearchHit {
	hits := make([]*models.SearchHit, len(r.Results))
	for i, res := range r.Results {
		hits[i] = &models.SearchHit{Chunk: res.Chunk, Score: res.Score}
	}
	return hits
}

func filterSource(hits []*models.SearchHit, opts *keyword.SearchOptions) []*models.SearchHit {
	if opts == nil || opts.Source == "" {
		return hits
	}
	out := hits[:0]
	for _, h := range hits {
		if h.Chunk.Source == opts.Source {
			out = append(out, h)
		}
	}
	return out
}
