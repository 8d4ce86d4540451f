package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/banglarag/internal/embedding"
	"github.com/hyperjump/banglarag/internal/models"
	"github.com/hyperjump/banglarag/internal/vectorstore"
)

type fakeGenerator struct {
	replies []string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "উত্তর", nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func readySession(t *testing.T, chunks []*models.Chunk) *Session {
	t.Helper()
	store := vectorstore.New(embedding.NewMockEmbedder(32))
	require.NoError(t, store.AddChunks(context.Background(), chunks))
	s := NewSession()
	s.Install(store, 1)
	return s
}

func sampleChunks() []*models.Chunk {
	return []*models.Chunk{
		{ChunkID: "a0", Source: "a.pdf", ChunkIndex: 0, Content: "অনুপমের মামা বিয়ের কথা পাকা করলেন।"},
		{ChunkID: "b0", Source: "b.pdf", ChunkIndex: 0, Content: strings.Repeat("ক", 450)},
		{ChunkID: "a1", Source: "a.pdf", ChunkIndex: 1, Content: "কল্যাণীর বয়স পনেরো।"},
	}
}

func TestAnswer_AppendsTurnAndCitesSources(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"  মামা।  "}}
	s := readySession(t, sampleChunks())
	r := NewRetriever(gen, Options{}, nil)

	ans, err := r.Answer(context.Background(), s, " অনুপমের মামা কে? ")
	require.NoError(t, err)
	assert.Equal(t, "মামা।", ans.Text)
	assert.Equal(t, "অনুপমের মামা কে?", ans.Question)
	require.Len(t, s.History, 1)
	assert.Equal(t, models.Turn{Question: "অনুপমের মামা কে?", Answer: "মামা।"}, s.History[0])

	// three chunks with k=50: every chunk is cited, grouped by source
	require.Len(t, ans.Sources, 2)
	total := 0
	for _, src := range ans.Sources {
		total += len(src.Citations)
		for _, c := range src.Citations {
			assert.LessOrEqual(t, len([]rune(c.Preview)), DefaultPreviewLength+3)
		}
	}
	assert.Equal(t, 3, total)

	require.Len(t, gen.prompts, 1)
	for _, c := range sampleChunks() {
		assert.Contains(t, gen.prompts[0], c.Content)
	}
}

func TestAnswer_HistoryIsInPrompt(t *testing.T) {
	gen := &fakeGenerator{}
	s := readySession(t, sampleChunks())
	r := NewRetriever(gen, Options{}, nil)
	_, err := r.Answer(context.Background(), s, "প্রথম প্রশ্ন")
	require.NoError(t, err)
	_, err = r.Answer(context.Background(), s, "তিনি কে?")
	require.NoError(t, err)

	assert.Contains(t, gen.prompts[1], "Human: প্রথম প্রশ্ন\nAssistant: উত্তর")
	assert.Contains(t, gen.prompts[1], "Question: তিনি কে?")
	assert.Len(t, s.History, 2)
}

func TestAnswer_GenerationFailureLeavesSessionUntouched(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	s := readySession(t, sampleChunks())
	s.History = []models.Turn{{Question: "q", Answer: "a"}}
	_, err := NewRetriever(gen, Options{}, nil).Answer(context.Background(), s, "আবার?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Len(t, s.History, 1)
}

func TestAnswer_Rejects(t *testing.T) {
	r := NewRetriever(&fakeGenerator{}, Options{}, nil)
	_, err := r.Answer(context.Background(), readySession(t, sampleChunks()), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	_, err = r.Answer(context.Background(), NewSession(), "q")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestAnswer_Condense(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"অনুপমের মামার নাম কী?", "উত্তর"}}
	s := readySession(t, sampleChunks())
	s.History = []models.Turn{{Question: "অনুপমের মামা কে?", Answer: "মামা।"}}
	r := NewRetriever(gen, Options{CondenseQuestion: true}, nil)

	ans, err := r.Answer(context.Background(), s, "তাঁর নাম কী?")
	require.NoError(t, err)
	assert.Equal(t, "অনুপমের মামার নাম কী?", ans.Standalone)
	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[0], "Follow Up Input: তাঁর নাম কী?")
	// the answer prompt keeps the user's own wording
	assert.Contains(t, gen.prompts[1], "Question: তাঁর নাম কী?")
	assert.Equal(t, "তাঁর নাম কী?", s.History[1].Question)
}

func TestAnswer_CondenseSkippedWithoutHistory(t *testing.T) {
	gen := &fakeGenerator{}
	s := readySession(t, sampleChunks())
	_, err := NewRetriever(gen, Options{CondenseQuestion: true}, nil).Answer(context.Background(), s, "q")
	require.NoError(t, err)
	assert.Len(t, gen.prompts, 1)
}

func TestAnswer_KLimitsContext(t *testing.T) {
	chunks := make([]*models.Chunk, 10)
	for i := range chunks {
		chunks[i] = &models.Chunk{ChunkID: fmt.Sprint(i), Source: "a.pdf", ChunkIndex: i, Content: fmt.Sprintf("অংশ %d", i)}
	}
	gen := &fakeGenerator{}
	ans, err := NewRetriever(gen, Options{K: 3, FetchK: 6}, nil).Answer(context.Background(), readySession(t, chunks), "অংশ 4")
	require.NoError(t, err)
	require.Len(t, ans.Sources, 1)
	assert.Len(t, ans.Sources[0].Citations, 3)
	assert.Equal(t, "4", ans.Sources[0].Citations[0].ChunkID)
}

func TestOptions_Lambda(t *testing.T) {
	ptr := func(v float64) *float64 { return &v }
	tests := []struct {
		name string
		in   *float64
		want float64
	}{
		{"unset", nil, DefaultLambda},
		{"pure diversity", ptr(0), 0},
		{"pure relevance", ptr(1), 1},
		{"mid", ptr(0.3), 0.3},
		{"below range", ptr(-2), 0},
		{"above range", ptr(7), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Options{Lambda: tt.in}.withDefaults()
			require.NotNil(t, got.Lambda)
			assert.Equal(t, tt.want, *got.Lambda)
		})
	}
}

func TestAnswer_ZeroLambda(t *testing.T) {
	gen := &fakeGenerator{}
	zero := 0.0
	r := NewRetriever(gen, Options{K: 2, FetchK: 3, Lambda: &zero}, nil)
	ans, err := r.Answer(context.Background(), readySession(t, sampleChunks()), "অনুপমের মামা")
	require.NoError(t, err)
	total := 0
	for _, src := range ans.Sources {
		total += len(src.Citations)
	}
	assert.Equal(t, 2, total)
}

func TestGroupSources(t *testing.T) {
	hits := []*models.SearchHit{
		{Chunk: &models.Chunk{ChunkID: "1", Source: "b.pdf", Content: "x"}},
		{Chunk: &models.Chunk{ChunkID: "2", Source: "a.pdf", Content: "abcdef"}},
		{Chunk: &models.Chunk{ChunkID: "3", Source: "b.pdf", Content: "y"}},
	}
	got := GroupSources(hits, 3)
	require.Len(t, got, 2)
	assert.Equal(t, "b.pdf", got[0].Source)
	assert.Equal(t, []string{"1", "3"}, []string{got[0].Citations[0].ChunkID, got[0].Citations[1].ChunkID})
	assert.Equal(t, "abc...", got[1].Citations[0].Preview)
	assert.Equal(t, "x", got[0].Citations[0].Preview)
}

func TestSession_Lifecycle(t *testing.T) {
	s := readySession(t, sampleChunks())
	assert.NotEmpty(t, s.ID)
	assert.True(t, s.Ready())
	s.History = []models.Turn{{Question: "q", Answer: "a"}}
	s.ClearHistory()
	assert.Empty(t, s.History)
	assert.True(t, s.Ready())
	s.Reset()
	assert.False(t, s.Ready())
	assert.Equal(t, 0, s.ProcessedDocs)
}

func TestBuildPrompt(t *testing.T) {
	hits := []*models.SearchHit{
		{Chunk: &models.Chunk{Content: "প্রথম"}},
		{Chunk: &models.Chunk{Content: "দ্বিতীয়"}},
	}
	p := BuildPrompt(hits, nil, "প্রশ্ন?")
	assert.Contains(t, p, "প্রথম\n\nদ্বিতীয়")
	assert.Contains(t, p, NotFoundBengali)
	assert.Contains(t, p, "Question: প্রশ্ন?")
	assert.True(t, strings.HasSuffix(p, "Answer:\n"))
}
