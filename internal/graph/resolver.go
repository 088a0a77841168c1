package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/cache"
	"github.com/hyperjump/tansaku/internal/cypher"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// DefaultTimeout bounds one demographic context query.
const DefaultTimeout = 10 * time.Second

// Resolver turns demographic profiles into graph evidence nodes.
type Resolver struct {
	store   Store
	cache   *cache.Cache
	caps    cypher.Caps
	timeout time.Duration
	ttl     time.Duration
	logger  *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCaps sets the per-kind node caps.
func WithCaps(c cypher.Caps) ResolverOption {
	return func(r *Resolver) { r.caps = c }
}

// WithTimeout sets the query timeout. Zero or negative disables it.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.timeout = d }
}

// WithCacheTTL sets how long resolved contexts are cached.
func WithCacheTTL(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.ttl = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = utils.OrNop(l) }
}

// NewResolver creates a Resolver. c may be nil to disable caching.
func NewResolver(store Store, c *cache.Cache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:   store,
		cache:   c,
		caps:    cypher.DefaultCaps(),
		timeout: DefaultTimeout,
		ttl:     cache.DefaultTTL,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SearchTerms builds the graph search terms for a profile: age group,
// location and gender followed by the normalized education buckets, with
// blanks and duplicates dropped.
func SearchTerms(p models.DemographicProfile) []string {
	n := p.Normalized()
	candidates := append([]string{n.AgeGroup, n.Location, n.Gender}, NormalizeEducation(p.Education)...)
	seen := make(map[string]bool, len(candidates))
	terms := make([]string, 0, len(candidates))
	for _, t := range candidates {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	return terms
}

// Lookup runs the demographic context query under the resolver timeout and
// returns its errors. A profile without terms yields no nodes and no query.
func (r *Resolver) Lookup(ctx context.Context, p models.DemographicProfile) ([]models.GraphNode, error) {
	if r == nil || r.store == nil {
		return nil, models.ErrGraphUnavailable
	}
	q := cypher.DemographicContext(SearchTerms(p), r.caps)
	if q.IsZero() {
		return []models.GraphNode{}, nil
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	rows, err := r.store.Run(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("demographic context query: %w", err)
	}
	return NodesFromRows(rows), nil
}

// ResolveDemographicContext returns the graph nodes for a profile, read
// through the cache. It never fails: query errors and timeouts are logged
// and yield an empty list, which is not cached.
func (r *Resolver) ResolveDemographicContext(ctx context.Context, p models.DemographicProfile) []models.GraphNode {
	if r == nil || r.store == nil {
		return nil
	}
	nodes, err := cache.GetOrCompute(ctx, r.cache, cache.GraphContextKey(p), r.ttl, func(ctx context.Context) ([]models.GraphNode, error) {
		return r.Lookup(ctx, p)
	})
	if err != nil {
		r.logger.Warn("graph context unavailable, continuing without it",
			zap.String("key", cache.GraphContextKey(p)), zap.Error(err))
		return nil
	}
	r.logger.Debug("graph context resolved", zap.Int("nodes", len(nodes)))
	return nodes
}
