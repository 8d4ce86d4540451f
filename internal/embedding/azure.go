package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// AzureConfig identifies an Azure OpenAI embedding deployment.
type AzureConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	// Dimensions is the expected vector size. 0 learns it from the first response.
	Dimensions int
	// MaxRetries is passed to the client. 0 disables retries.
	MaxRetries int
}

// AzureEmbedder calls the embeddings endpoint of an Azure OpenAI deployment.
type AzureEmbedder struct {
	client     openai.Client
	deployment string
	dimensions atomic.Int64
}

// NewAzureEmbedder returns an embedder for cfg. It does not contact the service.
func NewAzureEmbedder(cfg AzureConfig, opts ...option.RequestOption) (*AzureEmbedder, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" || cfg.Deployment == "" || cfg.APIVersion == "" {
		return nil, errors.New("azure embedding endpoint, key, deployment and api version are required")
	}
	clientOpts := []option.RequestOption{
		azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
		azure.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	clientOpts = append(clientOpts, opts...)
	e := &AzureEmbedder{
		client:     openai.NewClient(clientOpts...),
		deployment: cfg.Deployment,
	}
	e.dimensions.Store(int64(cfg.Dimensions))
	return e, nil
}

// Embed embeds a single text.
func (e *AzureEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request. Vectors are placed by the response index.
func (e *AzureEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(e.deployment),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormat("float"),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		i := int(d.Index)
		if i < 0 || i >= len(out) || out[i] != nil {
			return nil, fmt.Errorf("embedding response has invalid index %d", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}

	dims := int64(len(out[0]))
	if !e.dimensions.CompareAndSwap(0, dims) && e.dimensions.Load() != dims {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", dims, e.dimensions.Load())
	}
	return out, nil
}

// Dimensions returns the vector size, or 0 before the first response when not configured.
func (e *AzureEmbedder) Dimensions() int {
	return int(e.dimensions.Load())
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (e *AzureEmbedder) Close() error {
	return nil
}
