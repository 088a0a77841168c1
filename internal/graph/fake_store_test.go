package graph

import (
	"context"
	"sync"

	"github.com/hyperjump/tansaku/internal/cypher"
)

// fakeStore records queries and answers with canned rows.
type fakeStore struct {
	mu      sync.Mutex
	rows    []map[string]interface{}
	err     error
	block   bool
	queries []cypher.Query
}

func (f *fakeStore) Run(ctx context.Context, q cypher.Query) ([]map[string]interface{}, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.rows, f.err
}

func (f *fakeStore) Schema(ctx context.Context) (string, error) { return "", f.err }

func (f *fakeStore) Close(ctx context.Context) error { return nil }

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func row(kind string, props map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{cypher.ColumnKind: kind, cypher.ColumnProps: props}
}
