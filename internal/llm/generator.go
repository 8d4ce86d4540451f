// Package llm provides answer generation via chat completion.
package llm

import "context"

// Generator turns a prompt into generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Sampling parameters for answer generation.
const (
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 3000
	DefaultTopP        = 0.85
)
