package rag

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/tansaku/internal/enrich"
	"github.com/hyperjump/tansaku/internal/graph"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/search"
)

// ContextRequest asks for evidence about a demographic profile.
type ContextRequest struct {
	Profile models.DemographicProfile `json:"profile"`
	// Topic optionally focuses retrieval, e.g. "housing costs".
	Topic string `json:"topic,omitempty"`
	TopK  int    `json:"topK,omitempty"`
}

// ContextResult is the assembled evidence bundle for a profile.
type ContextResult struct {
	RequestID  string                  `json:"requestId"`
	Query      string                  `json:"query"`
	Context    string                  `json:"context"`
	Nodes      []models.GraphNode      `json:"nodes"`
	Documents  []models.ScoredDocument `json:"documents"`
	Citations  []models.Citation       `json:"citations"`
	SearchType models.SearchType       `json:"searchType"`
}

// DemographicContext resolves graph evidence for the profile and runs hybrid
// search concurrently, then enriches every document against the nodes.
// Graph failures degrade to no graph section; vector failures are returned.
func (p *Pipeline) DemographicContext(ctx context.Context, req ContextRequest) (*ContextResult, error) {
	query := RetrievalQuery(req.Topic, req.Profile)
	if query == "" {
		return nil, models.ErrEmptyQuery
	}
	topK := p.limit(req.TopK)

	var (
		nodes  []models.GraphNode
		hybrid search.HybridResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		nodes = p.resolver.ResolveDemographicContext(gctx, req.Profile)
		return nil
	})
	g.Go(func() error {
		var err error
		hybrid, err = p.hybrid.Search(gctx, query, topK)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	docs := hybrid.Documents
	texts := make([]string, len(docs))
	enriched := 0
	for i, d := range docs {
		related := enrich.FindRelated(d.Document, nodes)
		texts[i] = enrich.Enrich(d.Content, related)
		if len(related) > 0 {
			enriched++
		}
	}

	stages := models.Stages{Keyword: hybrid.Keyword, Reranked: hybrid.Reranked, Graph: len(nodes) > 0}
	result := &ContextResult{
		RequestID:  uuid.NewString(),
		Query:      query,
		Context:    assemble(graph.FormatContext(nodes), docs, texts),
		Nodes:      nodes,
		Documents:  docs,
		Citations:  citations(docs),
		SearchType: stages.SearchType(),
	}
	p.logger.Info("demographic context assembled",
		zap.String("request_id", result.RequestID),
		zap.String("search_type", string(result.SearchType)),
		zap.Int("nodes", len(nodes)),
		zap.Int("documents", len(docs)),
		zap.Int("enriched", enriched))
	return result, nil
}
