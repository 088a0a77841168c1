// Package rag composes retrieval, graph resolution and enrichment into the
// two Graph RAG entry points: demographic context and question answering.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/cypher"
	"github.com/hyperjump/tansaku/internal/graph"
	"github.com/hyperjump/tansaku/internal/llm"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/search"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// HybridSearch is the cached hybrid retrieval stage.
type HybridSearch interface {
	Search(ctx context.Context, query string, topK int) (search.HybridResult, error)
}

// ContextResolver resolves demographic profiles to graph nodes, failing soft.
type ContextResolver interface {
	ResolveDemographicContext(ctx context.Context, p models.DemographicProfile) []models.GraphNode
}

// QueryGenerator produces validated graph queries from questions.
type QueryGenerator interface {
	Generate(ctx context.Context, question, schema string) (cypher.Query, []string, error)
}

// Deps are the collaborators of a Pipeline, built once at startup.
type Deps struct {
	Hybrid    HybridSearch
	Vector    search.VectorSearcher
	Graph     graph.Store
	Resolver  ContextResolver
	Generator QueryGenerator
	LLM       llm.Client
	Logger    *zap.Logger
}

// Options tunes a Pipeline.
type Options struct {
	// TopK is the default number of documents per request.
	TopK int
	// GraphTimeout bounds each graph store call on the question path.
	GraphTimeout time.Duration
}

// DefaultGraphTimeout applies when Options.GraphTimeout is unset.
const DefaultGraphTimeout = 10 * time.Second

// Pipeline is the Graph RAG orchestrator.
type Pipeline struct {
	hybrid       HybridSearch
	vector       search.VectorSearcher
	graph        graph.Store
	resolver     ContextResolver
	generator    QueryGenerator
	llm          llm.Client
	topK         int
	graphTimeout time.Duration
	logger       *zap.Logger
}

// NewPipeline validates deps. Missing vector retrieval yields
// models.ErrVectorUnavailable and a missing graph store
// models.ErrGraphUnavailable. Resolver defaults to an uncached resolver over
// the graph store and Generator to one over LLM.
func NewPipeline(d Deps, opts Options) (*Pipeline, error) {
	if d.Hybrid == nil || d.Vector == nil {
		return nil, models.ErrVectorUnavailable
	}
	if d.Graph == nil {
		return nil, models.ErrGraphUnavailable
	}
	logger := utils.OrNop(d.Logger)
	if d.Resolver == nil {
		d.Resolver = graph.NewResolver(d.Graph, nil, graph.WithLogger(logger))
	}
	if d.Generator == nil && d.LLM != nil {
		d.Generator = cypher.NewGenerator(d.LLM, logger)
	}
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	if opts.GraphTimeout <= 0 {
		opts.GraphTimeout = DefaultGraphTimeout
	}
	return &Pipeline{
		hybrid:       d.Hybrid,
		vector:       d.Vector,
		graph:        d.Graph,
		resolver:     d.Resolver,
		generator:    d.Generator,
		llm:          d.LLM,
		topK:         opts.TopK,
		graphTimeout: opts.GraphTimeout,
		logger:       logger,
	}, nil
}

// RetrievalQuery builds the hybrid search text for the demographic path: the
// topic followed by the profile fields and normalized education buckets.
func RetrievalQuery(topic string, p models.DemographicProfile) string {
	parts := []string{utils.CollapseWhitespace(topic)}
	parts = append(parts, graph.SearchTerms(p)...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

func (p *Pipeline) limit(topK int) int {
	if topK <= 0 {
		return p.topK
	}
	return topK
}

func citations(docs []models.ScoredDocument) []models.Citation {
	out := make([]models.Citation, len(docs))
	for i, d := range docs {
		out[i] = models.Citation{
			Rank:       i + 1,
			SourceID:   d.SourceID(),
			Title:      d.Title(),
			ChunkIndex: d.ChunkIndex(),
			Score:      d.Score,
		}
	}
	return out
}

// assemble renders the graph section followed by the numbered documents.
// texts holds the (possibly enriched) text for each document.
func assemble(graphSection string, docs []models.ScoredDocument, texts []string) string {
	var b strings.Builder
	if graphSection != "" {
		b.WriteString("## Graph evidence\n")
		b.WriteString(strings.TrimRight(graphSection, "\n"))
		b.WriteString("\n")
	}
	if len(docs) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## Documents\n")
		for i, d := range docs {
			title := d.Title()
			if title == "" {
				title = d.SourceID()
			}
			fmt.Fprintf(&b, "\n[%d] %s\n%s\n", i+1, title, texts[i])
		}
	}
	return b.String()
}
