// Package rerank re-scores the head of a fused result list with a cross-encoder.
package rerank

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// Defaults for NewCrossEncoder.
const (
	DefaultTimeout  = 15 * time.Second
	DefaultMaxChars = 512
)

// Scorer scores (query, passage) pairs. Higher is more relevant. It must
// return one score per passage.
type Scorer interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// CrossEncoder reranks candidates with a Scorer under a hard timeout. A nil
// scorer makes it a pass-through; that is decided once, at construction.
type CrossEncoder struct {
	scorer   Scorer
	timeout  time.Duration
	maxChars int
	logger   *zap.Logger
}

// Option configures a CrossEncoder.
type Option func(*CrossEncoder)

// WithTimeout sets the hard scoring deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *CrossEncoder) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxChars bounds each candidate's content before scoring.
func WithMaxChars(n int) Option {
	return func(c *CrossEncoder) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *CrossEncoder) { c.logger = utils.OrNop(l) }
}

// NewCrossEncoder returns a reranker backed by scorer. Pass a nil scorer when
// the model could not be loaded.
func NewCrossEncoder(scorer Scorer, opts ...Option) *CrossEncoder {
	c := &CrossEncoder{
		scorer:   scorer,
		timeout:  DefaultTimeout,
		maxChars: DefaultMaxChars,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a model is loaded.
func (c *CrossEncoder) Enabled() bool {
	return c != nil && c.scorer != nil
}

// Rerank returns the topK candidates ordered by cross-encoder score. On
// timeout or model error it returns candidates[:topK] in fusion order.
func (c *CrossEncoder) Rerank(ctx context.Context, query string, candidates []models.ScoredDocument, topK int) []models.ScoredDocument {
	out, _ := c.RerankWithStatus(ctx, query, candidates, topK)
	return out
}

type scoreResult struct {
	scores []float64
	err    error
}

// RerankWithStatus is Rerank plus whether the model ordering was applied.
func (c *CrossEncoder) RerankWithStatus(ctx context.Context, query string, candidates []models.ScoredDocument, topK int) ([]models.ScoredDocument, bool) {
	fallback := head(candidates, topK)
	if !c.Enabled() || len(candidates) == 0 || topK <= 0 {
		return fallback, false
	}

	passages := make([]string, len(candidates))
	for i, cand := range candidates {
		passages[i] = utils.TruncateRunes(cand.Content, c.maxChars)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan scoreResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- scoreResult{err: fmt.Errorf("scorer panicked: %v", r)}
			}
		}()
		scores, err := c.scorer.Score(ctx, query, passages)
		done <- scoreResult{scores: scores, err: err}
	}()

	var res scoreResult
	select {
	case res = <-done:
	case <-ctx.Done():
		c.logger.Warn("rerank timed out, keeping fusion order",
			zap.Duration("timeout", c.timeout), zap.Int("candidates", len(candidates)))
		return fallback, false
	}
	if res.err != nil {
		c.logger.Warn("rerank failed, keeping fusion order", zap.Error(res.err))
		return fallback, false
	}
	if len(res.scores) != len(candidates) {
		c.logger.Warn("rerank returned wrong number of scores, keeping fusion order",
			zap.Int("scores", len(res.scores)), zap.Int("candidates", len(candidates)))
		return fallback, false
	}

	reranked := make([]models.ScoredDocument, len(candidates))
	for i, cand := range candidates {
		reranked[i] = models.ScoredDocument{Document: cand.Document, Score: res.scores[i]}
	}
	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Score > reranked[j].Score })
	return head(reranked, topK), true
}

// head returns a copy of the first n documents.
func head(docs []models.ScoredDocument, n int) []models.ScoredDocument {
	if n < 0 {
		n = 0
	}
	if n > len(docs) {
		n = len(docs)
	}
	out := make([]models.ScoredDocument, n)
	copy(out, docs[:n])
	return out
}
