package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/tansaku/internal/cache"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/graph"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/search"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/vector"
)

var corpus = []struct {
	sourceID, title, content string
}{
	{"doc-a", "Commuting", "Most workers commute by metro during weekdays."},
	{"doc-b", "Leisure", "Weekend leisure often means beaches and cafes."},
	{"doc-c", "Food", "Grocery baskets include bread, fish and vegetables."},
}

// stack is a real retrieval stack over sqlite, bleve and an in-memory vector index.
type stack struct {
	vector  *vector.Client
	keyword *keyword.Client
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	bleveIndex, err := keyword.NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { bleveIndex.Close() })
	embedder := embedding.NewMockEmbedder(64)
	index, err := vector.NewMemoryIndex(64)
	require.NoError(t, err)

	for _, c := range corpus {
		require.NoError(t, store.CreateSource(ctx, &models.Source{ID: c.sourceID, Title: c.title, CreatedAt: time.Now()}))
		passageID := c.sourceID + "-0"
		require.NoError(t, store.BatchCreatePassages(ctx, []*models.Passage{{
			ID: passageID, SourceID: c.sourceID, Content: c.content, CreatedAt: time.Now(),
		}}))
		require.NoError(t, bleveIndex.Index(ctx, passageID, models.NewDocument(c.content, c.sourceID, c.title, 0)))
		vec, err := embedder.Embed(ctx, c.content)
		require.NoError(t, err)
		require.NoError(t, index.Add(ctx, []string{passageID}, [][]float32{vec}))
	}
	return &stack{
		vector:  vector.NewClient(embedder, index, store, nil),
		keyword: keyword.NewClient(bleveIndex),
	}
}

var profile = models.DemographicProfile{AgeGroup: "25-34", Location: "Lisbon", Education: "bachelor's", Gender: "female"}

func TestDemographicContext_EndToEnd(t *testing.T) {
	s := newStack(t)
	g := &fakeGraph{rows: []map[string]interface{}{
		indicatorRow("Rent absorbs a large share of household income", "src-x"),
		indicatorRow("Youth unemployment remains above national average", "src-y"),
	}}
	c := cache.New(cache.NewMemoryStore())
	hybrid := search.NewHybridSearcher(s.vector, s.keyword, nil, c, search.Options{}, nil)
	p, err := NewPipeline(Deps{
		Hybrid:   hybrid,
		Vector:   s.vector,
		Graph:    g,
		Resolver: graph.NewResolver(g, c),
	}, Options{TopK: 5})
	require.NoError(t, err)

	res, err := p.DemographicContext(context.Background(), ContextRequest{Profile: profile})
	require.NoError(t, err)

	assert.Equal(t, models.SearchHybridGraph, res.SearchType)
	require.Len(t, res.Nodes, 2)
	require.Len(t, res.Documents, 3)
	assert.Equal(t, 1, strings.Count(res.Context, "Rent absorbs a large share of household income"))
	assert.Equal(t, 1, strings.Count(res.Context, "Youth unemployment remains above national average"))
	assert.NotContains(t, res.Context, "Related evidence:")
	for _, c := range corpus {
		assert.Contains(t, res.Context, c.content+"\n")
	}
	require.Len(t, res.Citations, 3)
	for i, cit := range res.Citations {
		assert.Equal(t, i+1, cit.Rank)
		assert.Equal(t, res.Documents[i].SourceID(), cit.SourceID)
	}
	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, "25-34 lisbon female higher education", res.Query)
}

func TestDemographicContext_CacheHitSkipsSearch(t *testing.T) {
	s := newStack(t)
	vec := &countingVector{next: s.vector}
	g := &fakeGraph{rows: []map[string]interface{}{indicatorRow("Rent is high", "src-x")}}
	c := cache.New(cache.NewMemoryStore())
	p, err := NewPipeline(Deps{
		Hybrid:   search.NewHybridSearcher(vec, s.keyword, nil, c, search.Options{}, nil),
		Vector:   vec,
		Graph:    g,
		Resolver: graph.NewResolver(g, c),
	}, Options{})
	require.NoError(t, err)

	first, err := p.DemographicContext(context.Background(), ContextRequest{Profile: profile})
	require.NoError(t, err)
	second, err := p.DemographicContext(context.Background(), ContextRequest{Profile: profile})
	require.NoError(t, err)

	assert.Equal(t, int32(1), vec.calls.Load())
	assert.Len(t, g.queries, 1)
	assert.Equal(t, first.Context, second.Context)
	assert.Equal(t, first.SearchType, second.SearchType)
}

func TestDemographicContext_SearchTypeFollowsStages(t *testing.T) {
	docs := []models.ScoredDocument{{Document: models.NewDocument("text", "s1", "t", 0), Score: 0.5}}
	node := models.GraphNode{Kind: models.KindTrend, Summary: "trend", Confidence: models.ConfidenceLow}
	tests := []struct {
		name   string
		result search.HybridResult
		nodes  []models.GraphNode
		want   models.SearchType
	}{
		{"all stages", search.HybridResult{Documents: docs, Keyword: true, Reranked: true}, []models.GraphNode{node}, models.SearchHybridRerankGraph},
		{"hybrid graph", search.HybridResult{Documents: docs, Keyword: true}, []models.GraphNode{node}, models.SearchHybridGraph},
		{"keyword down", search.HybridResult{Documents: docs}, []models.GraphNode{node}, models.SearchVectorOnlyGraph},
		{"graph empty", search.HybridResult{Documents: docs, Keyword: true}, nil, models.SearchHybrid},
		{"vector only", search.HybridResult{Documents: docs}, nil, models.SearchVectorOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPipeline(Deps{
				Hybrid:   fakeHybrid{result: tt.result},
				Vector:   &countingVector{},
				Graph:    &fakeGraph{},
				Resolver: fakeResolver{nodes: tt.nodes},
			}, Options{})
			require.NoError(t, err)
			res, err := p.DemographicContext(context.Background(), ContextRequest{Profile: profile})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.SearchType)
		})
	}
}

func TestDemographicContext_EnrichesRelatedDocuments(t *testing.T) {
	docs := []models.ScoredDocument{
		{Document: models.NewDocument("Rents in central districts keep rising.", "s1", "Rents", 0), Score: 0.9},
		{Document: models.NewDocument("Unrelated text.", "s2", "Other", 0), Score: 0.8},
	}
	nodes := []models.GraphNode{{Kind: models.KindIndicator, Summary: "Median rent", Magnitude: "€1,100", SourceID: "s1"}}
	p, err := NewPipeline(Deps{
		Hybrid:   fakeHybrid{result: search.HybridResult{Documents: docs, Keyword: true}},
		Vector:   &countingVector{},
		Graph:    &fakeGraph{},
		Resolver: fakeResolver{nodes: nodes},
	}, Options{})
	require.NoError(t, err)

	res, err := p.DemographicContext(context.Background(), ContextRequest{Profile: profile, Topic: "housing"})
	require.NoError(t, err)
	assert.Contains(t, res.Context, "Rents in central districts keep rising.\n\nRelated evidence:\n• Median rent (€1,100)\n")
	assert.Contains(t, res.Context, "[2] Other\nUnrelated text.\n")
	assert.True(t, strings.HasPrefix(res.Query, "housing "))
	// documents keep their original text
	assert.Equal(t, "Rents in central districts keep rising.", res.Documents[0].Content)
}

func TestDemographicContext_Errors(t *testing.T) {
	p, err := NewPipeline(Deps{
		Hybrid:   fakeHybrid{err: fmt.Errorf("vector search: %w", errBackend)},
		Vector:   &countingVector{},
		Graph:    &fakeGraph{},
		Resolver: fakeResolver{},
	}, Options{})
	require.NoError(t, err)

	_, err = p.DemographicContext(context.Background(), ContextRequest{Profile: profile})
	assert.ErrorIs(t, err, errBackend)
	_, err = p.DemographicContext(context.Background(), ContextRequest{})
	assert.ErrorIs(t, err, models.ErrEmptyQuery)
}

func TestNewPipeline_RequiredDeps(t *testing.T) {
	_, err := NewPipeline(Deps{Graph: &fakeGraph{}}, Options{})
	assert.ErrorIs(t, err, models.ErrVectorUnavailable)
	_, err = NewPipeline(Deps{Hybrid: fakeHybrid{}, Vector: &countingVector{}}, Options{})
	assert.ErrorIs(t, err, models.ErrGraphUnavailable)
}

func newAskPipeline(t *testing.T, g *fakeGraph, vec *countingVector, l *fakeLLM) *Pipeline {
	t.Helper()
	p, err := NewPipeline(Deps{Hybrid: fakeHybrid{}, Vector: vec, Graph: g, LLM: l}, Options{TopK: 3})
	require.NoError(t, err)
	return p
}

const generated = `{"query": "MATCH (i:Indicator) WHERE toLower(i.summary) CONTAINS $place RETURN i.summary AS summary", "params": {"place": "lisbon"}, "entities": ["Lisbon", "rent"]}`

func TestAsk_Answered(t *testing.T) {
	g := &fakeGraph{rows: []map[string]interface{}{{"summary": "Rent in Lisbon rose 12%"}}}
	vec := &countingVector{docs: []models.ScoredDocument{{Document: models.NewDocument("Lisbon rents climb.", "s1", "Rents", 2), Score: 0.7}}}
	l := &fakeLLM{jsonResp: generated, answer: " Rents rose [1]. "}

	ans, err := newAskPipeline(t, g, vec, l).Ask(context.Background(), "How fast are rents rising in Lisbon?", 0)
	require.NoError(t, err)

	assert.Equal(t, models.StateAnswered, ans.State)
	assert.Equal(t, models.SearchVectorOnlyGraph, ans.SearchType)
	assert.Equal(t, "Rents rose [1].", ans.Answer)
	assert.Equal(t, []string{"Lisbon", "rent"}, ans.Entities)
	assert.Equal(t, []string{"Lisbon rent"}, vec.queries)
	assert.Contains(t, ans.Query, "$place")
	assert.Contains(t, l.prompt, "summary: Rent in Lisbon rose 12%")
	assert.Contains(t, l.prompt, "[1] Rents\nLisbon rents climb.")
	require.Len(t, ans.Citations, 1)
	assert.Equal(t, 2, ans.Citations[0].ChunkIndex)
}

func TestAsk_DegradedWhenGraphQueryFails(t *testing.T) {
	g := &fakeGraph{runErr: errBackend}
	vec := &countingVector{docs: []models.ScoredDocument{{Document: models.NewDocument("Lisbon rents climb.", "s1", "Rents", 0), Score: 0.7}}}
	l := &fakeLLM{jsonResp: generated, answer: "ok"}

	ans, err := newAskPipeline(t, g, vec, l).Ask(context.Background(), "rents?", 0)
	require.NoError(t, err)
	assert.Equal(t, models.StateAnsweredDegraded, ans.State)
	assert.Equal(t, models.SearchVectorOnly, ans.SearchType)
	assert.Equal(t, int32(1), l.calls.Load())
}

func TestAsk_DegradedWhenGeneratedQueryWrites(t *testing.T) {
	g := &fakeGraph{}
	vec := &countingVector{docs: []models.ScoredDocument{{Document: models.NewDocument("text", "s1", "", 0), Score: 0.7}}}
	l := &fakeLLM{jsonResp: `{"query": "MATCH (n) DETACH DELETE n", "entities": []}`, answer: "ok"}

	ans, err := newAskPipeline(t, g, vec, l).Ask(context.Background(), "delete everything", 0)
	require.NoError(t, err)
	assert.Equal(t, models.StateAnsweredDegraded, ans.State)
	assert.Empty(t, g.queries, "rejected queries never reach the store")
	assert.Equal(t, []string{"delete everything"}, vec.queries)
}

func TestAsk_EmptyWhenNoContext(t *testing.T) {
	g := &fakeGraph{runErr: errBackend}
	vec := &countingVector{err: errBackend}
	l := &fakeLLM{jsonResp: generated, answer: "never"}

	ans, err := newAskPipeline(t, g, vec, l).Ask(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Equal(t, models.StateEmpty, ans.State)
	assert.Equal(t, models.SearchNone, ans.SearchType)
	assert.Equal(t, int32(0), l.calls.Load())
	assert.Empty(t, ans.Answer)
}

func TestAsk_GraphUnavailable(t *testing.T) {
	g := &fakeGraph{schemaErr: errBackend}
	_, err := newAskPipeline(t, g, &countingVector{}, &fakeLLM{}).Ask(context.Background(), "q", 0)
	assert.ErrorIs(t, err, models.ErrGraphUnavailable)
}

func TestAsk_DegradedWhenGraphQueryHangs(t *testing.T) {
	g := &fakeGraph{hangRun: true}
	vec := &countingVector{docs: []models.ScoredDocument{{Document: models.NewDocument("Lisbon rents climb.", "s1", "Rents", 0), Score: 0.7}}}
	l := &fakeLLM{jsonResp: generated, answer: "ok"}
	p, err := NewPipeline(Deps{Hybrid: fakeHybrid{}, Vector: vec, Graph: g, LLM: l}, Options{GraphTimeout: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	ans, err := p.Ask(ctx, "How fast are rents rising in Lisbon?", 0)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, models.StateAnsweredDegraded, ans.State)
	assert.Equal(t, models.SearchVectorOnly, ans.SearchType)
	assert.Equal(t, int32(1), vec.calls.Load())
	assert.Equal(t, int32(1), l.calls.Load())
}

func TestAsk_SchemaTimeoutIsGraphUnavailable(t *testing.T) {
	g := &fakeGraph{hangSchema: true}
	p, err := NewPipeline(Deps{Hybrid: fakeHybrid{}, Vector: &countingVector{}, Graph: g, LLM: &fakeLLM{}}, Options{GraphTimeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = p.Ask(context.Background(), "q", 0)
	assert.ErrorIs(t, err, models.ErrGraphUnavailable)
}

func TestAsk_CallerCancellationWins(t *testing.T) {
	g := &fakeGraph{hangRun: true}
	l := &fakeLLM{jsonResp: generated, answer: "never"}
	p, err := NewPipeline(Deps{Hybrid: fakeHybrid{}, Vector: &countingVector{}, Graph: g, LLM: l}, Options{GraphTimeout: time.Minute})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Ask(ctx, "q", 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(0), l.calls.Load())
}

func TestAsk_Validation(t *testing.T) {
	p := newAskPipeline(t, &fakeGraph{}, &countingVector{}, &fakeLLM{})
	_, err := p.Ask(context.Background(), "  ", 0)
	assert.ErrorIs(t, err, models.ErrEmptyQuery)

	noLLM, err := NewPipeline(Deps{Hybrid: fakeHybrid{}, Vector: &countingVector{}, Graph: &fakeGraph{}}, Options{})
	require.NoError(t, err)
	_, err = noLLM.Ask(context.Background(), "q", 0)
	assert.Error(t, err)
}

func TestRetrievalQuery(t *testing.T) {
	assert.Equal(t, "", RetrievalQuery("  ", models.DemographicProfile{}))
	assert.Equal(t, "housing costs 18-24", RetrievalQuery(" housing   costs ", models.DemographicProfile{AgeGroup: "18-24"}))
}
