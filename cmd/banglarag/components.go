package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/banglarag/internal/config"
	"github.com/hyperjump/banglarag/internal/embedding"
	"github.com/hyperjump/banglarag/internal/extract"
	"github.com/hyperjump/banglarag/internal/imaging"
	"github.com/hyperjump/banglarag/internal/indexer"
	"github.com/hyperjump/banglarag/internal/ingest"
	"github.com/hyperjump/banglarag/internal/llm"
	"github.com/hyperjump/banglarag/internal/ocr"
	"github.com/hyperjump/banglarag/internal/rag"
	"github.com/hyperjump/banglarag/internal/raster"
)

// Components holds the wired services of one CLI invocation.
type Components struct {
	Embedder  embedding.Embedder
	Generator llm.Generator
	Extractor *extract.Adapter
	Builder   *indexer.Builder
	Pipeline  *ingest.Pipeline
	Retriever *rag.Retriever
}

// Close releases the embedder.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

// newExtractor wires the direct reader and the OCR path. It needs no Azure settings.
func newExtractor(cfg *config.Config, logger *zap.Logger) *extract.Adapter {
	var engine ocr.Engine = ocr.NewTesseractCLI(cfg.OCR.TesseractPath)
	if cfg.OCR.Engine == "gosseract" {
		g, err := ocr.NewGosseract()
		if err != nil {
			logger.Warn("gosseract unavailable, using tesseract binary", zap.Error(err))
		} else {
			engine = g
		}
	}
	rasterizer := raster.NewChain(logger, raster.NewPdftoppm(cfg.OCR.PdftoppmPath), raster.EmbeddedImages{})
	opts := extract.Options{
		DPI:               cfg.OCR.DPI,
		OCRConfigs:        cfg.OCR.Configs,
		MinOCRChars:       cfg.OCR.MinChars,
		MinPageChars:      cfg.Extraction.MinPageChars,
		DirectAcceptChars: cfg.Extraction.DirectAcceptChars,
	}
	options := []extract.AdapterOption{extract.WithLogger(logger)}
	preprocess, err := imaging.NewPreprocessor(cfg.OCR.Preprocessor, logger)
	if err != nil {
		logger.Warn("preprocessor unavailable, using builtin", zap.String("preprocessor", cfg.OCR.Preprocessor), zap.Error(err))
	} else {
		options = append(options, extract.WithPreprocessor(preprocess))
	}
	return extract.NewAdapter(rasterizer, engine, opts, options...)
}

func newBuilder(cfg *config.Config, embedder embedding.Embedder, logger *zap.Logger) *indexer.Builder {
	return indexer.NewBuilder(embedder, indexer.BuilderConfig{
		BatchSize:  cfg.Indexing.BatchSize,
		BatchDelay: cfg.Indexing.BatchDelay,
		IndexDir:   cfg.Storage.IndexDir,
		IndexName:  cfg.Storage.IndexName,
		ModelName:  cfg.Azure.EmbeddingDeployment,
	}, indexer.WithLogger(logger))
}

// initializeComponents wires every service. The config must be valid.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	azureEmbedder, err := embedding.NewAzureEmbedder(embedding.AzureConfig{
		Endpoint:   cfg.Azure.Endpoint,
		APIKey:     cfg.Azure.APIKey,
		Deployment: cfg.Azure.EmbeddingDeployment,
		APIVersion: cfg.Azure.EmbeddingAPIVersion,
		Dimensions: cfg.Azure.EmbeddingDimensions,
		MaxRetries: cfg.Azure.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	embedder := embedding.NewCachedEmbedder(azureEmbedder, cfg.Indexing.CacheSize)

	generator, err := llm.NewAzureGenerator(llm.AzureConfig{
		Endpoint:    cfg.Azure.Endpoint,
		APIKey:      cfg.Azure.APIKey,
		Deployment:  cfg.Azure.ChatDeployment,
		APIVersion:  cfg.Azure.ChatAPIVersion,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		TopP:        cfg.Generation.TopP,
	}, logger)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	extractor := newExtractor(cfg, logger)
	chunker := indexer.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap, indexer.WithMinLength(cfg.Chunking.MinLength))
	builder := newBuilder(cfg, embedder, logger)
	pipeline := ingest.NewPipeline(extractor, chunker, builder, ingest.WithLogger(logger))
	retriever := rag.NewRetriever(generator, rag.Options{
		K:                cfg.Retrieval.K,
		FetchK:           cfg.Retrieval.FetchK,
		Lambda:           cfg.Retrieval.Lambda,
		PreviewLength:    cfg.Retrieval.PreviewLength,
		CondenseQuestion: cfg.Retrieval.CondenseQuestion,
	}, logger)

	logger.Debug("components initialized",
		zap.String("index", builder.Path()),
		zap.String("embedding_deployment", cfg.Azure.EmbeddingDeployment),
		zap.String("chat_deployment", cfg.Azure.ChatDeployment))

	return &Components{
		Embedder:  embedder,
		Generator: generator,
		Extractor: extractor,
		Builder:   builder,
		Pipeline:  pipeline,
		Retriever: retriever,
	}, nil
}
