package vector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/models"
)

// PassageStore hydrates passage IDs into Documents.
type PassageStore interface {
	PassageDocuments(ctx context.Context, ids []string) (map[string]models.Document, error)
}

// Client is the vector search client. It fails closed: embedding, index and
// hydration errors are returned to the caller wrapped in
// models.ErrVectorUnavailable.
type Client struct {
	embedder embedding.Embedder
	index    VectorIndex
	passages PassageStore
	logger   *zap.Logger
}

// NewClient creates a vector search client.
func NewClient(embedder embedding.Embedder, index VectorIndex, passages PassageStore, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{embedder: embedder, index: index, passages: passages, logger: logger}
}

// Search embeds query and returns up to k documents sorted by descending similarity.
func (c *Client) Search(ctx context.Context, query string, k int) ([]models.ScoredDocument, error) {
	if k <= 0 {
		return []models.ScoredDocument{}, nil
	}
	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", models.ErrVectorUnavailable, err)
	}
	hits, err := c.index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: index search: %w", models.ErrVectorUnavailable, err)
	}
	if len(hits) == 0 {
		return []models.ScoredDocument{}, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	docs, err := c.passages.PassageDocuments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: load passages: %w", models.ErrVectorUnavailable, err)
	}

	out := make([]models.ScoredDocument, 0, len(hits))
	for _, h := range hits {
		doc, ok := docs[h.ID]
		if !ok {
			c.logger.Warn("vector hit has no stored passage", zap.String("passage_id", h.ID))
			continue
		}
		out = append(out, models.ScoredDocument{Document: doc, Score: h.Score})
	}
	return out, nil
}
