// Package keyword provides fulltext (BM25) indexing and a fail-soft keyword search client.
package keyword

import (
	"context"

	"github.com/hyperjump/tansaku/internal/models"
)

// KeywordIndex defines fulltext index operations. Search accepts an already
// sanitized query-string query.
type KeywordIndex interface {
	Index(ctx context.Context, id string, doc models.Document) error
	Search(ctx context.Context, query string, limit int) ([]models.ScoredDocument, error)
	Delete(ctx context.Context, id string) error
	// DocCount returns the total number of passages in the index.
	DocCount() (uint64, error)
	Close() error
}
