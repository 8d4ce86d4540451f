package config

import "time"

// DefaultConfigPath is where the CLI looks for a config file when --config is unset.
const DefaultConfigPath = "~/.config/banglarag/config.yaml"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 10 * time.Minute
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 200
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = "."
	}
	if cfg.Storage.IndexName == "" {
		cfg.Storage.IndexName = "faiss_index"
	}
	if cfg.OCR.Engine == "" {
		cfg.OCR.Engine = "tesseract"
	}
	if cfg.OCR.Preprocessor == "" {
		cfg.OCR.Preprocessor = "builtin"
	}
	if cfg.OCR.TesseractPath == "" {
		cfg.OCR.TesseractPath = "/opt/homebrew/bin/tesseract"
	}
	if cfg.OCR.PdftoppmPath == "" {
		cfg.OCR.PdftoppmPath = "pdftoppm"
	}
	if cfg.OCR.DPI == 0 {
		cfg.OCR.DPI = 400
	}
	if len(cfg.OCR.Configs) == 0 {
		cfg.OCR.Configs = []string{"--oem 3 --psm 6 -l ben"}
	}
	if cfg.OCR.MinChars == 0 {
		cfg.OCR.MinChars = 50
	}
	if cfg.Extraction.Strategy == "" {
		cfg.Extraction.Strategy = "direct_with_ocr_fallback"
	}
	if cfg.Extraction.MinPageChars == 0 {
		cfg.Extraction.MinPageChars = 50
	}
	if cfg.Extraction.DirectAcceptChars == 0 {
		cfg.Extraction.DirectAcceptChars = 200
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1500
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 300
	}
	if cfg.Chunking.MinLength == 0 {
		cfg.Chunking.MinLength = 40
	}
	if cfg.Indexing.BatchSize == 0 {
		cfg.Indexing.BatchSize = 100
	}
	if cfg.Indexing.BatchDelay == 0 {
		cfg.Indexing.BatchDelay = 100 * time.Millisecond
	}
	if cfg.Indexing.CacheSize == 0 {
		cfg.Indexing.CacheSize = 256
	}
	if cfg.Retrieval.K == 0 {
		cfg.Retrieval.K = 50
	}
	if cfg.Retrieval.FetchK == 0 {
		cfg.Retrieval.FetchK = 100
	}
	if cfg.Retrieval.Lambda == nil {
		lambda := 0.6
		cfg.Retrieval.Lambda = &lambda
	}
	if cfg.Retrieval.PreviewLength == 0 {
		cfg.Retrieval.PreviewLength = 400
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.2
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 3000
	}
	if cfg.Generation.TopP == 0 {
		cfg.Generation.TopP = 0.85
	}
}
