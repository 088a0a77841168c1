package keyword

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/models"
)

// Client is the fail-soft keyword search client. It sanitizes raw user text
// before it reaches the index and never surfaces backend errors.
type Client struct {
	index   KeywordIndex
	timeout time.Duration
	logger  *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger used to report swallowed backend errors.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout bounds each index lookup. Zero means no bound beyond the caller's context.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// NewClient wraps index in a fail-soft client.
func NewClient(index KeywordIndex, opts ...ClientOption) *Client {
	c := &Client{index: index, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to k passages matching query. Any backend error yields an empty list.
func (c *Client) Search(ctx context.Context, query string, k int) []models.ScoredDocument {
	docs, _ := c.Lookup(ctx, query, k)
	return docs
}

// Lookup is Search plus a flag reporting whether the backend answered.
// ok is false when the lookup failed and the empty result is a fallback.
func (c *Client) Lookup(ctx context.Context, query string, k int) (docs []models.ScoredDocument, ok bool) {
	if c == nil || c.index == nil {
		return nil, false
	}
	q := Sanitize(query)
	if q == "" || k <= 0 {
		return []models.ScoredDocument{}, true
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("keyword search panicked", zap.Any("panic", r))
			docs, ok = []models.ScoredDocument{}, false
		}
	}()

	results, err := c.index.Search(ctx, q, k)
	if err != nil {
		c.logger.Warn("keyword search failed, continuing without keyword results",
			zap.String("query", q), zap.Error(err))
		return []models.ScoredDocument{}, false
	}
	return results, true
}
