package rag

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/hyperjump/tansaku/internal/cypher"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/search"
)

type fakeGraph struct {
	mu        sync.Mutex
	rows      []map[string]interface{}
	runErr    error
	schemaErr error
	queries   []cypher.Query
	// hangRun and hangSchema block until the call's context is done.
	hangRun    bool
	hangSchema bool
}

func (f *fakeGraph) Run(ctx context.Context, q cypher.Query) ([]map[string]interface{}, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.hangRun {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.rows, f.runErr
}

func (f *fakeGraph) Schema(ctx context.Context) (string, error) {
	if f.hangSchema {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "Node labels: Indicator, Observation, Trend, Demographic", f.schemaErr
}

func (f *fakeGraph) Close(ctx context.Context) error { return nil }

func indicatorRow(summary, sourceID string) map[string]interface{} {
	return map[string]interface{}{
		cypher.ColumnKind: string(models.KindIndicator),
		cypher.ColumnProps: map[string]interface{}{
			"summary":    summary,
			"magnitude":  "41%",
			"confidence": "high",
			"source_id":  sourceID,
		},
	}
}

type fakeResolver struct{ nodes []models.GraphNode }

func (f fakeResolver) ResolveDemographicContext(ctx context.Context, p models.DemographicProfile) []models.GraphNode {
	return f.nodes
}

type fakeHybrid struct {
	result search.HybridResult
	err    error
}

func (f fakeHybrid) Search(ctx context.Context, query string, topK int) (search.HybridResult, error) {
	return f.result, f.err
}

// countingVector wraps a vector searcher and records queries.
type countingVector struct {
	next    search.VectorSearcher
	docs    []models.ScoredDocument
	err     error
	calls   atomic.Int32
	mu      sync.Mutex
	queries []string
}

func (c *countingVector) Search(ctx context.Context, query string, k int) ([]models.ScoredDocument, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.queries = append(c.queries, query)
	c.mu.Unlock()
	if c.next != nil {
		return c.next.Search(ctx, query, k)
	}
	return c.docs, c.err
}

type fakeLLM struct {
	jsonResp string
	jsonErr  error
	answer   string
	calls    atomic.Int32
	prompt   string
}

func (f *fakeLLM) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls.Add(1)
	f.prompt = user
	return f.answer, nil
}

func (f *fakeLLM) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	return f.jsonResp, f.jsonErr
}

var errBackend = errors.New("backend down")
