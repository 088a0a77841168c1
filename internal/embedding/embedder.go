// Package embedding turns text into vectors for the vector index.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Providers accepted by New.
const (
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Options selects and configures an embedding provider.
type Options struct {
	Provider   string
	ModelPath  string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	MaxTokens  int
	CacheSize  int
}

// New builds the embedder named by opts.Provider.
func New(opts Options) (Embedder, error) {
	switch opts.Provider {
	case ProviderONNX, "":
		e, err := NewONNXEmbedder(opts.ModelPath, opts.Dimensions, opts.MaxTokens, opts.CacheSize)
		if err != nil {
			return nil, err
		}
		return e, nil
	case ProviderOpenAI:
		e, err := NewOpenAIEmbedder(opts.APIKey, opts.BaseURL, opts.Model, opts.Dimensions, opts.CacheSize)
		if err != nil {
			return nil, err
		}
		return e, nil
	case ProviderMock:
		return NewMockEmbedder(opts.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, openai, mock)", opts.Provider)
	}
}

// embedEach calls embed for every text in order.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
