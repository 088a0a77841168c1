package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/tansaku/internal/cache"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// VectorSearcher is the fail-closed vector search client.
type VectorSearcher interface {
	Search(ctx context.Context, query string, k int) ([]models.ScoredDocument, error)
}

// KeywordSearcher is the fail-soft keyword search client. ok reports whether
// the backend answered.
type KeywordSearcher interface {
	Lookup(ctx context.Context, query string, k int) (docs []models.ScoredDocument, ok bool)
}

// Reranker re-scores the head of the fused list.
type Reranker interface {
	Enabled() bool
	RerankWithStatus(ctx context.Context, query string, candidates []models.ScoredDocument, topK int) ([]models.ScoredDocument, bool)
}

// HybridResult is a hybrid search result plus the optional stages that ran.
// It is what the cache stores, so a cached hit reports the same stages.
type HybridResult struct {
	Documents []models.ScoredDocument `json:"documents"`
	Keyword   bool                    `json:"keyword"`
	Reranked  bool                    `json:"reranked"`
}

// Options tunes a HybridSearcher. Zero values use the defaults.
type Options struct {
	CandidateK       int
	RRFK             int
	RerankCandidates int
	CacheTTL         time.Duration
}

// HybridSearcher runs vector and keyword search concurrently, fuses them with
// RRF and optionally reranks the head. Results are cached per query and topK.
type HybridSearcher struct {
	vector   VectorSearcher
	keyword  KeywordSearcher
	reranker Reranker
	cache    *cache.Cache
	opts     Options
	logger   *zap.Logger
}

// NewHybridSearcher wires the searcher. keyword, reranker and c may be nil.
func NewHybridSearcher(vector VectorSearcher, keyword KeywordSearcher, reranker Reranker, c *cache.Cache, opts Options, logger *zap.Logger) *HybridSearcher {
	if opts.CandidateK <= 0 {
		opts.CandidateK = 50
	}
	if opts.RRFK <= 0 {
		opts.RRFK = DefaultRRFK
	}
	if opts.RerankCandidates <= 0 {
		opts.RerankCandidates = 15
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = cache.DefaultTTL
	}
	return &HybridSearcher{
		vector:   vector,
		keyword:  keyword,
		reranker: reranker,
		cache:    c,
		opts:     opts,
		logger:   utils.OrNop(logger),
	}
}

// Search returns up to topK documents for query. Vector search errors are
// returned; keyword and reranker failures degrade silently and show in the
// result flags. Degraded results are not cached.
func (h *HybridSearcher) Search(ctx context.Context, query string, topK int) (HybridResult, error) {
	if topK <= 0 {
		return HybridResult{Documents: []models.ScoredDocument{}}, nil
	}
	return cache.GetOrComputeIf(ctx, h.cache, cache.HybridSearchKey(query, topK), h.opts.CacheTTL,
		func(ctx context.Context) (HybridResult, error) {
			return h.search(ctx, query, topK)
		},
		func(r HybridResult) bool {
			return h.keyword == nil || r.Keyword
		})
}

func (h *HybridSearcher) search(ctx context.Context, query string, topK int) (HybridResult, error) {
	candidateK := h.opts.CandidateK
	if candidateK < topK {
		candidateK = topK
	}

	var (
		vectorDocs  []models.ScoredDocument
		keywordDocs []models.ScoredDocument
		keywordOK   bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := h.vector.Search(gctx, query, candidateK)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		vectorDocs = docs
		return nil
	})
	if h.keyword != nil {
		g.Go(func() error {
			keywordDocs, keywordOK = h.keyword.Lookup(gctx, query, candidateK)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return HybridResult{}, err
	}

	fused := Fuse(vectorDocs, keywordDocs, h.opts.RRFK)
	result := HybridResult{Keyword: keywordOK}

	if h.reranker != nil && h.reranker.Enabled() && len(fused) > 0 {
		head := fused
		if len(head) > h.opts.RerankCandidates {
			head = head[:h.opts.RerankCandidates]
		}
		reranked, applied := h.reranker.RerankWithStatus(ctx, query, head, topK)
		if applied {
			// candidates beyond the reranked head keep fusion order
			for i := len(head); i < len(fused) && len(reranked) < topK; i++ {
				reranked = append(reranked, fused[i])
			}
			result.Documents = reranked
			result.Reranked = true
		}
	}
	if !result.Reranked {
		if len(fused) > topK {
			fused = fused[:topK]
		}
		result.Documents = fused
	}

	h.logger.Debug("hybrid search",
		zap.String("query", query),
		zap.Int("vector", len(vectorDocs)),
		zap.Int("keyword", len(keywordDocs)),
		zap.Bool("keyword_ok", keywordOK),
		zap.Bool("reranked", result.Reranked),
		zap.Int("returned", len(result.Documents)))
	return result, nil
}
