// Package graph reads typed evidence nodes from the property graph and turns
// demographic profiles into LLM-readable graph context.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/tansaku/internal/cypher"
	"github.com/hyperjump/tansaku/internal/models"
)

// Store executes read-only queries against the property graph. Only
// cypher.Query values can be run, so every statement is either a fixed
// template or a validated generated query.
type Store interface {
	// Run executes q and returns one map per record keyed by column name.
	// Graph nodes in the result are flattened to their property maps.
	Run(ctx context.Context, q cypher.Query) ([]map[string]interface{}, error)
	// Schema describes labels, relationship types and node properties.
	Schema(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// OfflineStore stands in for a graph that could not be reached at startup.
// Every call reports models.ErrGraphUnavailable wrapping the original cause.
type OfflineStore struct {
	cause error
}

// NewOfflineStore returns a Store that always fails with cause.
func NewOfflineStore(cause error) *OfflineStore {
	return &OfflineStore{cause: cause}
}

func (s *OfflineStore) err() error {
	switch {
	case s.cause == nil:
		return models.ErrGraphUnavailable
	case errors.Is(s.cause, models.ErrGraphUnavailable):
		return s.cause
	}
	return fmt.Errorf("%w: %v", models.ErrGraphUnavailable, s.cause)
}

// Run always fails.
func (s *OfflineStore) Run(context.Context, cypher.Query) ([]map[string]interface{}, error) {
	return nil, s.err()
}

// Schema always fails.
func (s *OfflineStore) Schema(context.Context) (string, error) {
	return "", s.err()
}

// Close is a no-op.
func (s *OfflineStore) Close(context.Context) error { return nil }
