package rerank

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/tansaku/internal/llm"
)

const llmRerankPrompt = `You grade how well passages answer a search query.
Return a JSON object {"scores": [n0, n1, ...]} with one integer from 0 (irrelevant) to 10 (direct answer) per passage, in passage order.`

// LLMScorer grades passages with a chat model in a single JSON call.
type LLMScorer struct {
	client llm.Client
}

// NewLLMScorer returns a Scorer backed by client.
func NewLLMScorer(client llm.Client) *LLMScorer {
	return &LLMScorer{client: client}
}

// Score implements Scorer.
func (s *LLMScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\n", query)
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n\n", i, p)
	}

	raw, err := s.client.CompleteJSON(ctx, llmRerankPrompt, b.String())
	if err != nil {
		return nil, err
	}
	var resp struct {
		Scores []float64 `json:"scores"`
	}
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		return nil, err
	}
	if len(resp.Scores) != len(passages) {
		return nil, fmt.Errorf("llm graded %d of %d passages", len(resp.Scores), len(passages))
	}
	return resp.Scores, nil
}
