// Package cache provides the read-through, best-effort TTL cache placed in
// front of hybrid search and graph context resolution.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/tansaku/pkg/utils"
)

// DefaultTTL applies to both cached call sites.
const DefaultTTL = 7 * 24 * time.Hour

// DefaultComputeTimeout bounds a shared computation once it is detached from
// the caller that started it.
const DefaultComputeTimeout = time.Minute

// ErrMiss is returned by a Store when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is a key-value store with per-entry expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Cache wraps a Store. Store failures never reach callers: read errors are
// misses and write errors are logged. Concurrent misses on one key share a
// single computation, which outlives the cancellation of any one caller.
type Cache struct {
	store          Store
	logger         *zap.Logger
	opTimeout      time.Duration
	computeTimeout time.Duration
	group          singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = utils.OrNop(l) }
}

// WithOpTimeout bounds each store read and write.
func WithOpTimeout(d time.Duration) Option {
	return func(c *Cache) { c.opTimeout = d }
}

// WithComputeTimeout bounds a shared computation.
func WithComputeTimeout(d time.Duration) Option {
	return func(c *Cache) { c.computeTimeout = d }
}

// New creates a Cache over store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:          store,
		logger:         zap.NewNop(),
		opTimeout:      2 * time.Second,
		computeTimeout: DefaultComputeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Close()
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. Values are JSON encoded. A nil Cache always computes. Compute
// errors are returned and never cached.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	return GetOrComputeIf(ctx, c, key, ttl, compute, nil)
}

// GetOrComputeIf is GetOrCompute with a predicate deciding whether a computed
// value is stored. A nil predicate stores every value.
func GetOrComputeIf[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (T, error), cacheable func(T) bool) (T, error) {
	if c == nil || c.store == nil {
		return compute(ctx)
	}
	if v, ok := get[T](ctx, c, key); ok {
		return v, nil
	}

	// every waiter shares the result, so no single caller may cancel it
	ch := c.group.DoChan(key, func() (interface{}, error) {
		computeCtx, cancel := c.computeContext(ctx)
		defer cancel()
		val, err := compute(computeCtx)
		if err != nil {
			return val, err
		}
		if cacheable == nil || cacheable(val) {
			c.set(computeCtx, key, val, ttl)
		}
		return val, nil
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func get[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("cache read failed, treating as miss", zap.String("key", key), zap.Error(err))
		}
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Warn("cache entry undecodable, treating as miss", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	c.logger.Debug("cache hit", zap.String("key", key))
	return v, true
}

func (c *Cache) set(ctx context.Context, key string, val interface{}, ttl time.Duration) {
	data, err := json.Marshal(val)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	// a cancelled request still gets its result cached
	ctx, cancel := c.opContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := c.store.SetWithTTL(ctx, key, data, ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) computeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if c.computeTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, c.computeTimeout)
}

func (c *Cache) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opTimeout)
}
