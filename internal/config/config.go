// Package config provides configuration loading and structs for banglarag.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrNotConfigured is returned by Validate when required Azure settings are missing.
var ErrNotConfigured = errors.New("azure openai is not configured")

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Azure      AzureConfig      `yaml:"azure"`
	Storage    StorageConfig    `yaml:"storage"`
	OCR        OCRConfig        `yaml:"ocr"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Indexing   IndexingConfig   `yaml:"indexing"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxUploadMB    int           `yaml:"max_upload_mb"`
}

// AzureConfig holds the Azure OpenAI chat and embedding deployments.
type AzureConfig struct {
	Endpoint            string `yaml:"endpoint"`
	APIKey              string `yaml:"api_key"`
	ChatDeployment      string `yaml:"chat_deployment"`
	ChatAPIVersion      string `yaml:"chat_api_version"`
	EmbeddingDeployment string `yaml:"embedding_deployment"`
	EmbeddingAPIVersion string `yaml:"embedding_api_version"`
	// EmbeddingDimensions of 0 is learned from the first response.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`
	MaxRetries          int `yaml:"max_retries"`
}

// StorageConfig holds where the index is persisted.
type StorageConfig struct {
	IndexDir  string `yaml:"index_dir"`
	IndexName string `yaml:"index_name"`
}

// IndexPath is the directory of the persisted index.
func (s StorageConfig) IndexPath() string {
	return filepath.Join(s.IndexDir, s.IndexName)
}

// OCRConfig holds rasterization and recognition settings.
type OCRConfig struct {
	// Engine is "tesseract" (subprocess) or "gosseract" (cgo build).
	Engine        string   `yaml:"engine"`
	TesseractPath string   `yaml:"tesseract_path"`
	PdftoppmPath  string   `yaml:"pdftoppm_path"`
	DPI           int      `yaml:"dpi"`
	Configs       []string `yaml:"configs"`
	MinChars      int      `yaml:"min_chars"`
	// Preprocessor is "builtin" or "opencv" (gocv build).
	Preprocessor string `yaml:"preprocessor"`
}

// ExtractionConfig holds the direct-path thresholds and the default strategy.
type ExtractionConfig struct {
	Strategy          string `yaml:"strategy"`
	MinPageChars      int    `yaml:"min_page_chars"`
	DirectAcceptChars int    `yaml:"direct_accept_chars"`
}

// ChunkingConfig holds splitter settings, in characters.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	MinLength    int `yaml:"min_length"`
}

// IndexingConfig holds embedding batch settings.
type IndexingConfig struct {
	BatchSize  int           `yaml:"batch_size"`
	BatchDelay time.Duration `yaml:"batch_delay"`
	CacheSize  int           `yaml:"cache_size"`
}

// RetrievalConfig holds MMR and citation settings.
type RetrievalConfig struct {
	K      int `yaml:"k"`
	FetchK int `yaml:"fetch_k"`
	// Lambda is the MMR relevance weight in [0, 1]; nil takes the default, 0 is pure diversity.
	Lambda           *float64 `yaml:"lambda"`
	PreviewLength    int      `yaml:"preview_length"`
	CondenseQuestion bool     `yaml:"condense_question"`
}

// GenerationConfig holds chat completion sampling settings.
type GenerationConfig struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TopP        float64 `yaml:"top_p"`
}

// Default returns a config with every default applied and environment overrides read.
func Default() *Config {
	var cfg Config
	ApplyEnv(&cfg, os.Getenv)
	ApplyDefaults(&cfg)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, ".")
	return &cfg
}

// Load reads and parses the config file at path, applies environment overrides,
// expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg, os.Getenv)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	return &cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the environment.
// Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ServiceCheck lists the unset settings of one Azure service.
type ServiceCheck struct {
	Service string   `json:"service"`
	Missing []string `json:"missing,omitempty"`
}

// OK reports whether the service has every required setting.
func (s ServiceCheck) OK() bool { return len(s.Missing) == 0 }

// Check returns the embedding and chat service checks, in that order. Settings are
// named by their environment variable.
func (c *Config) Check() []ServiceCheck {
	a := c.Azure
	shared := func(missing []string) []string {
		if a.Endpoint == "" {
			missing = append(missing, EnvEndpoint)
		}
		if a.APIKey == "" {
			missing = append(missing, EnvAPIKey)
		}
		return missing
	}
	emb := shared(nil)
	if a.EmbeddingDeployment == "" {
		emb = append(emb, EnvEmbeddingDeployment)
	}
	if a.EmbeddingAPIVersion == "" {
		emb = append(emb, EnvEmbeddingAPIVersion)
	}
	chat := shared(nil)
	if a.ChatDeployment == "" {
		chat = append(chat, EnvChatDeployment)
	}
	if a.ChatAPIVersion == "" {
		chat = append(chat, EnvChatAPIVersion)
	}
	return []ServiceCheck{
		{Service: "embedding", Missing: emb},
		{Service: "chat", Missing: chat},
	}
}

// MissingSettings lists every unset required setting once.
func (c *Config) MissingSettings() []string {
	var out []string
	seen := make(map[string]bool)
	for _, check := range c.Check() {
		for _, m := range check.Missing {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// Validate returns ErrNotConfigured naming the missing settings, or nil.
func (c *Config) Validate() error {
	missing := c.MissingSettings()
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
}

// expandPath converts a path to absolute. "~/" is the home directory; other relative
// paths are relative to configDir.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
		return path
	}
	if abs, err := filepath.Abs(filepath.Join(configDir, path)); err == nil {
		return abs
	}
	return filepath.Join(configDir, path)
}

// ResolvePath expands "~/" and makes path absolute relative to the working directory.
func ResolvePath(path string) string {
	return expandPath(path, ".")
}
