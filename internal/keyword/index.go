// Package keyword provides keyword (BM25) indexing and search over chunk contents.
package keyword

import (
	"context"
	"fmt"

	"github.com/hyperjump/banglarag/internal/models"
)

// MaxFuzziness is the largest edit distance bleve accepts for a fuzzy term.
const MaxFuzziness = 2

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// PhraseBoost multiplies the score of chunks where the query terms appear as a phrase.
	// Use 1.0 for no boost.
	PhraseBoost float64
	// FuzzyEnabled matches terms within Fuzziness edits. OCR output often
	// differs from the query by a single vowel sign.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance for fuzzy matching (1 or 2). Default 1.
	Fuzziness int
	// Source restricts hits to one source document name.
	Source string
}

// Validate rejects a negative phrase boost and a fuzziness outside [0, MaxFuzziness].
// Zero values select the defaults.
func (o *SearchOptions) Validate() error {
	if o == nil {
		return nil
	}
	if o.PhraseBoost < 0 {
		return fmt.Errorf("phrase boost must not be negative, got %g", o.PhraseBoost)
	}
	if o.Fuzziness < 0 || o.Fuzziness > MaxFuzziness {
		return fmt.Errorf("fuzziness must be between 1 and %d, got %d", MaxFuzziness, o.Fuzziness)
	}
	return nil
}

// KeywordIndex defines keyword search operations.
type KeywordIndex interface {
	Index(ctx context.Context, id string, chunk *models.Chunk) error
	IndexBatch(ctx context.Context, ids []string, chunks []*models.Chunk) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Close() error
	// DocCount returns the total number of chunks in the index.
	DocCount() (uint64, error)
}

// KeywordResult is a single keyword search hit. ID is the entry key the chunk was indexed under.
type KeywordResult struct {
	ID    string
	Score float64
}
