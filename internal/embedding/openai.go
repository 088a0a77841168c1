package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/hyperjump/tansaku/pkg/utils"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	cache      *EmbeddingCache
}

// NewOpenAIEmbedder creates an embedder for model. baseURL may point at any
// OpenAI-compatible server; empty uses the default endpoint.
func NewOpenAIEmbedder(apiKey, baseURL, model string, dimensions, cacheSize int) (*OpenAIEmbedder, error) {
	if apiKey == "" && baseURL == "" {
		return nil, errors.New("openai embedder requires an API key or a base URL")
	}
	if dimensions <= 0 {
		return nil, errors.New("openai embedder requires positive dimensions")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      openai.EmbeddingModel(model),
		dimensions: dimensions,
		cache:      NewEmbeddingCache(cacheSize),
	}, nil
}

// Embed returns the embedding for text, using cache when available.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in one request, skipping cached texts.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if cached, ok := e.cache.Get(text); ok {
			out[i] = cached
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      missing,
		Model:      e.model,
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(missing) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(resp.Data), len(missing))
	}
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(missing) {
			return nil, fmt.Errorf("create embeddings: index %d out of range", d.Index)
		}
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("create embeddings: dimension mismatch: got %d, expected %d", len(d.Embedding), e.dimensions)
		}
		vec := d.Embedding
		utils.NormalizeL2(vec)
		out[missingIdx[d.Index]] = vec
		e.cache.Set(missing[d.Index], vec)
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
