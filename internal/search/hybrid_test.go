package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/tansaku/internal/cache"
	"github.com/hyperjump/tansaku/internal/models"
)

type stubVector struct {
	docs  []models.ScoredDocument
	err   error
	calls int32
}

func (s *stubVector) Search(ctx context.Context, query string, k int) ([]models.ScoredDocument, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}

type stubKeyword struct {
	docs  []models.ScoredDocument
	ok    bool
	calls int32
}

func (s *stubKeyword) Lookup(ctx context.Context, query string, k int) ([]models.ScoredDocument, bool) {
	atomic.AddInt32(&s.calls, 1)
	return s.docs, s.ok
}

type stubReranker struct {
	enabled bool
	apply   bool
}

func (s *stubReranker) Enabled() bool { return s.enabled }

func (s *stubReranker) RerankWithStatus(ctx context.Context, query string, candidates []models.ScoredDocument, topK int) ([]models.ScoredDocument, bool) {
	if !s.apply {
		if topK > len(candidates) {
			topK = len(candidates)
		}
		return candidates[:topK], false
	}
	out := make([]models.ScoredDocument, 0, len(candidates))
	for i := len(candidates) - 1; i >= 0; i-- {
		out = append(out, candidates[i])
	}
	if topK < len(out) {
		out = out[:topK]
	}
	return out, true
}

func TestHybridSearcher_Stages(t *testing.T) {
	tests := []struct {
		name         string
		keyword      KeywordSearcher
		reranker     Reranker
		wantKeyword  bool
		wantReranked bool
	}{
		{"vector only", nil, nil, false, false},
		{"keyword backend down", &stubKeyword{ok: false}, nil, false, false},
		{"hybrid", &stubKeyword{docs: scored("k1"), ok: true}, nil, true, false},
		{"hybrid rerank disabled", &stubKeyword{ok: true}, &stubReranker{enabled: false, apply: true}, true, false},
		{"hybrid rerank timed out", &stubKeyword{ok: true}, &stubReranker{enabled: true, apply: false}, true, false},
		{"hybrid rerank", &stubKeyword{ok: true}, &stubReranker{enabled: true, apply: true}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHybridSearcher(&stubVector{docs: scored("v1", "v2")}, tt.keyword, tt.reranker, nil, Options{}, nil)
			res, err := h.Search(context.Background(), "youth unemployment", 5)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeyword, res.Keyword)
			assert.Equal(t, tt.wantReranked, res.Reranked)
			assert.NotEmpty(t, res.Documents)
		})
	}
}

func TestHybridSearcher_VectorErrorPropagates(t *testing.T) {
	boom := errors.New("embedding service down")
	h := NewHybridSearcher(&stubVector{err: boom}, &stubKeyword{docs: scored("k"), ok: true}, nil, nil, Options{}, nil)
	_, err := h.Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, boom)
}

func TestHybridSearcher_TruncatesToTopK(t *testing.T) {
	h := NewHybridSearcher(&stubVector{docs: scored("a", "b", "c")}, &stubKeyword{docs: scored("d", "e"), ok: true}, nil, nil, Options{}, nil)
	res, err := h.Search(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, contents(res.Documents))
}

func TestHybridSearcher_RerankHeadThenFusionTail(t *testing.T) {
	h := NewHybridSearcher(&stubVector{docs: scored("a", "b", "c", "d")}, nil,
		&stubReranker{enabled: true, apply: true}, nil, Options{RerankCandidates: 2}, nil)
	res, err := h.Search(context.Background(), "q", 4)
	require.NoError(t, err)
	assert.True(t, res.Reranked)
	assert.Equal(t, []string{"b", "a", "c", "d"}, contents(res.Documents))
}

func TestHybridSearcher_CacheHitSkipsBackends(t *testing.T) {
	vec := &stubVector{docs: scored("a", "b")}
	kw := &stubKeyword{docs: scored("b", "c"), ok: true}
	c := cache.New(cache.NewMemoryStore())
	h := NewHybridSearcher(vec, kw, nil, c, Options{}, nil)
	ctx := context.Background()

	first, err := h.Search(ctx, "Youth Unemployment", 3)
	require.NoError(t, err)
	second, err := h.Search(ctx, "  youth unemployment ", 3)
	require.NoError(t, err)

	assert.Equal(t, int32(1), vec.calls)
	assert.Equal(t, int32(1), kw.calls)
	assert.Equal(t, first, second)
	assert.True(t, second.Keyword)
}

func TestHybridSearcher_DegradedResultNotCached(t *testing.T) {
	vec := &stubVector{docs: scored("a")}
	kw := &stubKeyword{ok: false}
	h := NewHybridSearcher(vec, kw, nil, cache.New(cache.NewMemoryStore()), Options{}, nil)
	ctx := context.Background()

	_, _ = h.Search(ctx, "q", 3)
	kw.ok = true
	res, err := h.Search(ctx, "q", 3)
	require.NoError(t, err)
	assert.True(t, res.Keyword)
	assert.Equal(t, int32(2), vec.calls)
}
