package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/hyperjump/banglarag/pkg/utils"
)

// AzureConfig identifies an Azure OpenAI chat deployment and its sampling parameters.
type AzureConfig struct {
	Endpoint    string
	APIKey      string
	Deployment  string
	APIVersion  string
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// AzureGenerator sends prompts as single user messages to an Azure OpenAI chat deployment.
// Failed calls are not retried.
type AzureGenerator struct {
	client openai.Client
	cfg    AzureConfig
	logger *zap.Logger
}

// NewAzureGenerator returns a generator for cfg. It does not contact the service.
func NewAzureGenerator(cfg AzureConfig, logger *zap.Logger, opts ...option.RequestOption) (*AzureGenerator, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" || cfg.Deployment == "" || cfg.APIVersion == "" {
		return nil, errors.New("azure chat endpoint, key, deployment and api version are required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	clientOpts := []option.RequestOption{
		azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
		azure.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	clientOpts = append(clientOpts, opts...)
	return &AzureGenerator{
		client: openai.NewClient(clientOpts...),
		cfg:    cfg,
		logger: utils.OrNop(logger),
	}, nil
}

// Generate returns the content of the first choice.
func (g *AzureGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.cfg.Deployment),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(g.cfg.Temperature),
		TopP:        openai.Float(g.cfg.TopP),
		MaxTokens:   openai.Int(int64(g.cfg.MaxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	g.logger.Debug("chat completion",
		zap.String("deployment", g.cfg.Deployment),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", resp.Choices[0].FinishReason),
	)
	return resp.Choices[0].Message.Content, nil
}
