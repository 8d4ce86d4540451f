// Package keyword provides Bleve implementation of KeywordIndex.
package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/banglarag/internal/models"
)

const defaultFuzziness = 1

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

type chunkDoc struct {
	ChunkID string `json:"chunk_id"`
	Source  string `json:"source"`
	Content string `json:"content"`
}

// NewBleveIndex creates or opens a Bleve index at path.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// OpenBleveIndex opens an existing index and fails when path is missing.
func OpenBleveIndex(path string) (*BleveIndex, error) {
	index, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// The standard analyzer segments on Unicode word boundaries and keeps
	// combining vowel signs inside the word. No stemming.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("source", keywordFieldMapping)
	chunkIDMapping := bleve.NewKeywordFieldMapping()
	chunkIDMapping.Index = false
	docMapping.AddFieldMappingsAt("chunk_id", chunkIDMapping)

	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im
}

// Index indexes a chunk under id.
func (b *BleveIndex) Index(ctx context.Context, id string, chunk *models.Chunk) error {
	return b.index.Index(id, toDoc(chunk))
}

// IndexBatch indexes chunks in one Bleve batch.
func (b *BleveIndex) IndexBatch(ctx context.Context, ids []string, chunks []*models.Chunk) error {
	if len(ids) != len(chunks) {
		return fmt.Errorf("ids and chunks length mismatch")
	}
	batch := b.index.NewBatch()
	for i, c := range chunks {
		if err := batch.Index(ids[i], toDoc(c)); err != nil {
			return fmt.Errorf("failed to add chunk %s to batch: %w", ids[i], err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index batch: %w", err)
	}
	return nil
}

func toDoc(c *models.Chunk) chunkDoc {
	return chunkDoc{ChunkID: c.ChunkID, Source: c.Source, Content: c.Content}
}

// Search runs a match (or fuzzy) query over chunk contents and returns up to limit results.
// With PhraseBoost > 1 and a multi-term query, chunks containing the query as a phrase
// are boosted and the hits re-ranked.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if limit <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	phraseBoost := 1.0
	fuzziness := 0
	source := ""
	if opts != nil {
		if opts.PhraseBoost > 0 {
			phraseBoost = opts.PhraseBoost
		}
		if opts.FuzzyEnabled {
			fuzziness = defaultFuzziness
			if opts.Fuzziness > 0 {
				fuzziness = opts.Fuzziness
			}
		}
		source = opts.Source
	}

	terms := tokenizeQuery(query)
	boosting := phraseBoost > 1.0 && len(terms) > 1
	reqSize := limit
	if boosting {
		// fetch more so re-ranking can promote phrase hits from below the cut
		reqSize = max(limit*2, 50)
	}

	q := b.restrict(b.contentQuery(query, terms, fuzziness), source)
	req := bleve.NewSearchRequest(q)
	req.Size = reqSize
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	if !boosting {
		return out, nil
	}

	phrases := b.findPhraseMatches(ctx, query, source, reqSize)
	for _, r := range out {
		if phrases[r.ID] {
			r.Score *= phraseBoost
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

func (b *BleveIndex) contentQuery(query string, terms []string, fuzziness int) blevequery.Query {
	if fuzziness <= 0 || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField("content")
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField("content")
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	// any term may match
	return bleve.NewDisjunctionQuery(queries...)
}

func (b *BleveIndex) restrict(q blevequery.Query, source string) blevequery.Query {
	if source == "" {
		return q
	}
	tq := bleve.NewTermQuery(source)
	tq.SetField("source")
	return bleve.NewConjunctionQuery(q, tq)
}

// findPhraseMatches finds chunks where the query appears as a phrase.
func (b *BleveIndex) findPhraseMatches(ctx context.Context, query, source string, reqSize int) map[string]bool {
	matches := make(map[string]bool)
	pq := bleve.NewMatchPhraseQuery(query)
	pq.SetField("content")
	req := bleve.NewSearchRequest(b.restrict(pq, source))
	req.Size = reqSize
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return matches
	}
	for _, hit := range results.Hits {
		matches[hit.ID] = true
	}
	return matches
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of chunks in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
