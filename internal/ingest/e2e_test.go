package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/banglarag/internal/embedding"
	"github.com/hyperjump/banglarag/internal/extract"
	"github.com/hyperjump/banglarag/internal/indexer"
	"github.com/hyperjump/banglarag/internal/ingest"
	"github.com/hyperjump/banglarag/internal/notify"
	"github.com/hyperjump/banglarag/internal/rag"
	"github.com/hyperjump/banglarag/internal/vectorstore"
)

// pageReader treats the document bytes as form-feed separated page texts.
type pageReader struct{}

func (pageReader) PageTexts(content []byte) ([]string, error) {
	var pages []string
	for _, p := range bytes.Split(content, []byte("\f")) {
		pages = append(pages, string(p))
	}
	return pages, nil
}

type noRaster struct{}

func (noRaster) Name() string { return "none" }

func (noRaster) Rasterize(context.Context, []byte, int) ([]image.Image, error) {
	return nil, errors.New("no renderer in tests")
}

type noOCR struct{}

func (noOCR) Name() string { return "none" }

func (noOCR) Recognize(context.Context, []byte, string) (string, error) {
	return "", errors.New("no ocr in tests")
}

type capturingGenerator struct{ prompts []string }

func (g *capturingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return "অনুপমের মামা কলকাতার উকিল ছিলেন।", nil
}

func page(sentence string, repeat int) string {
	return strings.TrimSpace(strings.Repeat(sentence+" ", repeat))
}

func TestProcessThenAnswer(t *testing.T) {
	ctx := context.Background()
	adapter := extract.NewAdapter(noRaster{}, noOCR{}, extract.DefaultOptions(), extract.WithTextReader(pageReader{}))
	builder := indexer.NewBuilder(embedding.NewMockEmbedder(32), indexer.BuilderConfig{
		IndexDir:   t.TempDir(),
		BatchSize:  1,
		BatchDelay: -1,
	})
	pipeline := ingest.NewPipeline(adapter, indexer.NewChunker(300, 60), builder)

	doc := strings.Join([]string{
		page("অনুপমের মামা কলকাতার উকিল ছিলেন", 7),
		"ছোট",
		page("শম্ভুনাথ বাবু ছিলেন ডাক্তার", 9),
	}, "\f")
	scan := "\f\f"

	session := rag.NewSession()
	rec := &notify.Recorder{}
	report, err := pipeline.Run(ctx, session, []ingest.Document{
		{Name: "aparichita.pdf", Content: []byte(doc)},
		{Name: "scan.pdf", Content: []byte(scan)},
	}, extract.DirectWithOCRFallback, rec)
	require.NoError(t, err)

	require.Len(t, report.Documents, 2)
	assert.Equal(t, extract.MethodDirect, report.Documents[0].Method)
	assert.Equal(t, 2, report.Documents[0].Pages)
	assert.Contains(t, report.Documents[0].Text, "--- Page 1 ---")
	assert.Contains(t, report.Documents[0].Text, "--- Page 3 ---")
	assert.NotContains(t, report.Documents[0].Text, "--- Page 2 ---")
	assert.Equal(t, extract.MethodOCR, report.Documents[1].Method)
	assert.Contains(t, rec.Warnings(), "No text extracted from scan.pdf")
	assert.Equal(t, 1, session.ProcessedCount())
	assert.Greater(t, report.Build.Batches, 1)

	gen := &capturingGenerator{}
	retriever := rag.NewRetriever(gen, rag.Options{}, nil)
	answer, err := retriever.Answer(ctx, session, "অনুপমের মামা কে ছিলেন?")
	require.NoError(t, err)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "কলকাতার উকিল")
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "aparichita.pdf", answer.Sources[0].Source)

	hits, err := vectorstore.KeywordSearch(ctx, builder.Path(), "ডাক্তার", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Contains(t, h.Chunk.Content, "ডাক্তার")
	}
	assert.Equal(t, indexer.DefaultIndexName, filepath.Base(builder.Path()))
}
