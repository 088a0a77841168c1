// Package storage defines the persistence interface for sources and their passages.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/tansaku/internal/models"
)

// ErrNotFound is returned when a source or passage does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines source and passage persistence operations.
type Storage interface {
	// Source operations
	CreateSource(ctx context.Context, src *models.Source) error
	GetSource(ctx context.Context, id string) (*models.Source, error)
	DeleteSource(ctx context.Context, id string) error

	// Passage operations
	GetPassage(ctx context.Context, id string) (*models.Passage, error)
	GetPassagesBySourceID(ctx context.Context, sourceID string) ([]*models.Passage, error)
	BatchCreatePassages(ctx context.Context, passages []*models.Passage) error

	// Retrieval
	PassageDocuments(ctx context.Context, ids []string) (map[string]models.Document, error)

	// Stats
	CountSources(ctx context.Context) (int64, error)
	CountPassages(ctx context.Context) (int64, error)

	Close() error
}
