package config

import (
	"strconv"
	"strings"
)

// Recognized environment variables.
const (
	EnvEndpoint            = "AZURE_OPENAI_ENDPOINT"
	EnvAPIKey              = "AZURE_OPENAI_API_KEY"
	EnvChatDeployment      = "AZURE_OPENAI_DEPLOYMENT_NAME"
	EnvChatAPIVersion      = "OPENAI_CHAT_API_VERSION"
	EnvEmbeddingDeployment = "AZURE_OPENAI_EMBEDDING_DEPLOYMENT_NAME"
	EnvEmbeddingAPIVersion = "OPENAI_EMBEDDING_API_VERSION"
	EnvTesseractPath       = "TESSERACT_PATH"
	EnvPdftoppmPath        = "PDFTOPPM_PATH"
	EnvIndexPath           = "BANGLARAG_INDEX_PATH"
	EnvDebug               = "BANGLARAG_DEBUG"
)

// ApplyEnv overrides cfg with the non-empty environment variables returned by getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, name string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Azure.Endpoint, EnvEndpoint)
	set(&cfg.Azure.APIKey, EnvAPIKey)
	set(&cfg.Azure.ChatDeployment, EnvChatDeployment)
	set(&cfg.Azure.ChatAPIVersion, EnvChatAPIVersion)
	set(&cfg.Azure.EmbeddingDeployment, EnvEmbeddingDeployment)
	set(&cfg.Azure.EmbeddingAPIVersion, EnvEmbeddingAPIVersion)
	set(&cfg.OCR.TesseractPath, EnvTesseractPath)
	set(&cfg.OCR.PdftoppmPath, EnvPdftoppmPath)
	set(&cfg.Storage.IndexDir, EnvIndexPath)
	if v, err := strconv.ParseBool(getenv(EnvDebug)); err == nil {
		cfg.Debug = v
	}
}
