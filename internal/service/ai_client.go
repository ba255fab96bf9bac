package service

import (
	"context"

	"homerank/internal/index"
)

// LLMClient is the interface for chat-completion providers
type LLMClient interface {
	// ChatCompletion sends one non-streaming chat request
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)

	// IsEnabled returns whether the client is configured and ready
	IsEnabled() bool
}

// Ensure OpenAIClient implements LLMClient
var _ LLMClient = (*OpenAIClient)(nil)

// Ensure OpenAIEmbedder implements index.Embedder
var _ index.Embedder = (*OpenAIEmbedder)(nil)
