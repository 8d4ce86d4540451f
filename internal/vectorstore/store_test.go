package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/banglarag/internal/embedding"
	"github.com/hyperjump/banglarag/internal/models"
)

func testChunks(n int, source string) []*models.Chunk {
	out := make([]*models.Chunk, n)
	for i := range out {
		content := fmt.Sprintf("%s অনুচ্ছেদ %d: কল্যাণী ও অনুপমের গল্পের অংশ নম্বর %d", source, i, i*7)
		out[i] = &models.Chunk{
			ChunkID:    fmt.Sprintf("%s-%d", source, i),
			Source:     source,
			ChunkIndex: i,
			Content:    content,
			Length:     len([]rune(content)),
		}
	}
	return out
}

func newStore(t *testing.T, chunks []*models.Chunk) *Store {
	t.Helper()
	s := New(embedding.NewMockEmbedder(64), WithModelName("mock"))
	require.NoError(t, s.AddChunks(context.Background(), chunks))
	return s
}

func hitIDs(hits []*models.SearchHit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Chunk.ChunkID
	}
	return ids
}

func TestStore_SimilaritySearchFindsExactChunk(t *testing.T) {
	chunks := testChunks(10, "a.pdf")
	s := newStore(t, chunks)
	assert.Equal(t, 10, s.Len())
	assert.Equal(t, 64, s.Dimensions())
	assert.Equal(t, 1, s.Sources())

	hits, err := s.SimilaritySearch(context.Background(), chunks[3].Content, 5)
	require.NoError(t, err)
	require.Len(t, hits, 5)
	assert.Equal(t, "a.pdf-3", hits[0].Chunk.ChunkID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
}

func TestStore_EmptySearch(t *testing.T) {
	s := New(embedding.NewMockEmbedder(8))
	hits, err := s.SimilaritySearch(context.Background(), "x", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = s.MaxMarginalRelevanceSearch(context.Background(), "x", 5, 10, 0.6)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Nil(t, s.Chunks())
}

func TestStore_DuplicatesAreKept(t *testing.T) {
	chunks := testChunks(2, "a.pdf")
	s := newStore(t, chunks)
	require.NoError(t, s.AddChunks(context.Background(), chunks))
	assert.Equal(t, 4, s.Len())
	got := s.Chunks()
	assert.Equal(t, []*models.Chunk{chunks[0], chunks[1], chunks[0], chunks[1]}, got)
}

func TestStore_AddEmbeddedLengthMismatch(t *testing.T) {
	s := New(embedding.NewMockEmbedder(2))
	err := s.AddEmbedded(testChunks(2, "a"), [][]float32{{1, 0}})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestStore_Merge(t *testing.T) {
	a := newStore(t, testChunks(3, "a.pdf"))
	b := newStore(t, testChunks(2, "b.pdf"))
	require.NoError(t, a.Merge(b))
	assert.Equal(t, 5, a.Len())
	assert.Equal(t, 2, a.Sources())
	assert.Equal(t, 2, b.Len())

	// same paragraph number in both sources; the text differs only by source name
	hits, err := a.SimilaritySearch(context.Background(), b.Chunks()[1].Content, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "b.pdf-1", hits[0].Chunk.ChunkID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	assert.Less(t, hits[1].Score, hits[0].Score)

	assert.Error(t, a.Merge(a))
	empty := New(embedding.NewMockEmbedder(64))
	require.NoError(t, empty.Merge(a))
	assert.Equal(t, 5, empty.Len())
}

func TestStore_MMR(t *testing.T) {
	chunks := testChunks(20, "a.pdf")
	s := newStore(t, chunks)
	hits, err := s.MaxMarginalRelevanceSearch(context.Background(), chunks[7].Content, 5, 10, 0.6)
	require.NoError(t, err)
	require.Len(t, hits, 5)
	assert.Equal(t, "a.pdf-7", hits[0].Chunk.ChunkID)

	seen := map[*models.Chunk]bool{}
	for _, h := range hits {
		assert.False(t, seen[h.Chunk], "MMR must not repeat an entry")
		seen[h.Chunk] = true
	}

	// k larger than the store
	hits, err = s.MaxMarginalRelevanceSearch(context.Background(), "q", 50, 100, 0.6)
	require.NoError(t, err)
	assert.Len(t, hits, 20)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	chunks := testChunks(12, "a.pdf")
	s := newStore(t, chunks)
	dir := filepath.Join(t.TempDir(), "faiss_index")
	require.NoError(t, s.Save(ctx, dir))

	before, err := s.SimilaritySearch(ctx, chunks[5].Content, 5)
	require.NoError(t, err)

	loaded, err := Load(ctx, dir, embedding.NewMockEmbedder(64))
	require.NoError(t, err)
	assert.Equal(t, 12, loaded.Len())
	after, err := loaded.SimilaritySearch(ctx, chunks[5].Content, 5)
	require.NoError(t, err)
	assert.Equal(t, hitIDs(before), hitIDs(after))
	assert.Equal(t, chunks[5].Content, after[0].Chunk.Content)

	info, err := Stat(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 12, info.Chunks)
	assert.Equal(t, 1, info.Sources)
	assert.Equal(t, 64, info.Dimensions)
	assert.Equal(t, "mock", info.EmbeddingModel)
	assert.Positive(t, info.SizeBytes)
	assert.Contains(t, info.Parts, VectorFile)
	assert.Contains(t, info.Parts, ChunksFile)
	assert.Contains(t, info.Parts, KeywordFile)
}

func TestStore_SaveReplacesWholeIndex(t *testing.T) {
	ctx := context.Background()
	parent := t.TempDir()
	dir := filepath.Join(parent, "faiss_index")
	require.NoError(t, newStore(t, testChunks(5, "old.pdf")).Save(ctx, dir))
	require.NoError(t, newStore(t, testChunks(2, "new.pdf")).Save(ctx, dir))

	loaded, err := Load(ctx, dir, embedding.NewMockEmbedder(64))
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	for _, c := range loaded.Chunks() {
		assert.Equal(t, "new.pdf", c.Source)
	}

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp and previous dirs must be cleaned up")
}

func TestStore_SaveEmpty(t *testing.T) {
	s := New(embedding.NewMockEmbedder(8))
	assert.Error(t, s.Save(context.Background(), filepath.Join(t.TempDir(), "idx")))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "none"), embedding.NewMockEmbedder(8))
	assert.True(t, errors.Is(err, ErrIndexNotFound))
	_, err = Stat(context.Background(), filepath.Join(t.TempDir(), "none"))
	assert.True(t, errors.Is(err, ErrIndexNotFound))
}

func TestKeywordSearch(t *testing.T) {
	ctx := context.Background()
	chunks := []*models.Chunk{
		{ChunkID: "1", Source: "a.pdf", Content: "অনুপমের মামা বিয়ের কথা পাকা করলেন"},
		{ChunkID: "2", Source: "a.pdf", Content: "শম্ভুনাথ সেন কন্যার বিবাহ ভাঙিয়া দিলেন"},
	}
	dir := filepath.Join(t.TempDir(), "idx")
	require.NoError(t, newStore(t, chunks).Save(ctx, dir))

	hits, err := KeywordSearch(ctx, dir, "শম্ভুনাথ", 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "2", hits[0].Chunk.ChunkID)

	hits, err = KeywordSearch(ctx, dir, "nothing", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = KeywordSearch(ctx, filepath.Join(t.TempDir(), "none"), "x", 10, nil)
	assert.True(t, errors.Is(err, ErrIndexNotFound))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "idx")
	require.NoError(t, newStore(t, testChunks(1, "a")).Save(ctx, dir))
	assert.True(t, Exists(dir))
	require.NoError(t, Remove(dir))
	assert.False(t, Exists(dir))
	require.NoError(t, Remove(dir))
}
