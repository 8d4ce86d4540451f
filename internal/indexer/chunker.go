// Package indexer splits documents into chunks and builds the vector store from them.
package indexer

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/banglarag/internal/models"
	"github.com/hyperjump/banglarag/pkg/utils"
)

// DefaultSeparators go from page boundaries down to single spaces.
var DefaultSeparators = []string{"\n--- Page", "\n\n", "\n", "।।", "।", ".", "?", "!", ";", ":", ",", " "}

const (
	DefaultChunkSize      = 1500
	DefaultChunkOverlap   = 300
	DefaultMinChunkLength = 40
	chunkIDPrefix         = 100
)

// Chunker splits text recursively on DefaultSeparators into pieces of at most
// chunkSize characters, carrying up to chunkOverlap characters into the next piece.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	minLength    int
	separators   []string
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithMinLength sets the length below which trimmed chunks are discarded.
func WithMinLength(n int) ChunkerOption {
	return func(c *Chunker) { c.minLength = n }
}

// WithSeparators replaces DefaultSeparators.
func WithSeparators(seps ...string) ChunkerOption {
	return func(c *Chunker) { c.separators = seps }
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// Overlap is clamped below size.
func NewChunker(chunkSize, chunkOverlap int, opts ...ChunkerOption) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}
	c := &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		minLength:    DefaultMinChunkLength,
		separators:   DefaultSeparators,
	}
	for _, o := range opts {
		o(c)
	}
	if len(c.separators) == 0 {
		c.separators = []string{""}
	}
	return c
}

// Chunk splits the text of source. ChunkIndex is the position among all pieces,
// counted before short pieces are dropped.
func (c *Chunker) Chunk(text, source string) []*models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var chunks []*models.Chunk
	for i, piece := range c.split(text, c.separators) {
		piece = strings.TrimSpace(piece)
		n := utf8.RuneCountInString(piece)
		if n < c.minLength {
			continue
		}
		chunks = append(chunks, &models.Chunk{
			ChunkID:    ChunkID(source, i, piece),
			Source:     source,
			ChunkIndex: i,
			Content:    piece,
			Length:     n,
		})
	}
	return chunks
}

// ChunkID is the md5 of source, index and the first 100 characters of content.
func ChunkID(source string, index int, content string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d_%s", source, index, utils.PrefixRunes(content, chunkIDPrefix))))
	return hex.EncodeToString(sum[:])
}

// split uses the first separator present in text and recurses with the finer ones
// into pieces that are still too long.
func (c *Chunker) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var finer []string
	for i, s := range separators {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep, finer = s, separators[i+1:]
			break
		}
	}

	var out, small []string
	for _, piece := range splitKeep(text, sep) {
		if utf8.RuneCountInString(piece) < c.chunkSize {
			small = append(small, piece)
			continue
		}
		if len(small) > 0 {
			out = append(out, c.merge(small)...)
			small = nil
		}
		if len(finer) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, c.split(piece, finer)...)
		}
	}
	if len(small) > 0 {
		out = append(out, c.merge(small)...)
	}
	return out
}

// merge packs consecutive pieces into chunks of at most chunkSize characters. When a
// chunk is emitted, its trailing pieces up to chunkOverlap characters start the next one.
func (c *Chunker) merge(pieces []string) []string {
	var docs, current []string
	total := 0
	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n > c.chunkSize && len(current) > 0 {
			if doc := joinPieces(current); doc != "" {
				docs = append(docs, doc)
			}
			for total > c.chunkOverlap || (total+n > c.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if doc := joinPieces(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func joinPieces(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

// splitKeep splits text on sep, keeping sep at the start of each following piece.
// Empty pieces are dropped. An empty sep splits into characters.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}
