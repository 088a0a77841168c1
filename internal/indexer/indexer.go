package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/fileid"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/vector"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// MetaSourcePath records the file a source was loaded from.
const MetaSourcePath = "source_path"

// Indexer writes sources into storage, the keyword index and the vector index.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	chunker      *Chunker
	extractor    *extract.Extractor
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = utils.OrNop(l) }
}

// NewIndexer creates an indexer. keywordIndex may be nil when keyword search
// is disabled.
func NewIndexer(
	store storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	chunker *Chunker,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:      store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		chunker:      chunker,
		extractor:    extract.NewExtractor(),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexSource stores a source, chunks and embeds it, and indexes every
// passage. An existing source with the same ID is replaced. Returns the
// stored source and its passage count.
func (idx *Indexer) IndexSource(ctx context.Context, input *models.SourceInput) (*models.Source, int, error) {
	content := Preprocess(input.Content)
	if content == "" {
		return nil, 0, errors.New("source content is empty")
	}
	id := input.ID
	if id == "" {
		id = uuid.NewString()
	} else if err := idx.DeleteSource(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, 0, fmt.Errorf("replace source: %w", err)
	}

	src := &models.Source{ID: id, Title: input.Title, Metadata: input.Metadata, CreatedAt: time.Now().UTC()}
	if err := idx.storage.CreateSource(ctx, src); err != nil {
		return nil, 0, fmt.Errorf("failed to store source: %w", err)
	}

	passages := idx.chunker.Chunk(id, content)
	texts := make([]string, len(passages))
	ids := make([]string, len(passages))
	for i, p := range passages {
		p.CreatedAt = src.CreatedAt
		texts[i] = p.Content
		ids[i] = p.ID
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if err := idx.storage.BatchCreatePassages(ctx, passages); err != nil {
		return nil, 0, fmt.Errorf("failed to store passages: %w", err)
	}
	if err := idx.vectorIndex.Add(ctx, ids, embeddings); err != nil {
		return nil, 0, fmt.Errorf("failed to index vectors: %w", err)
	}
	if idx.keywordIndex != nil {
		// Standard analyzer does not split on underscores.
		title := strings.ReplaceAll(src.Title, "_", " ")
		for _, p := range passages {
			doc := models.NewDocument(p.Content, id, title, p.ChunkIndex)
			if err := idx.keywordIndex.Index(ctx, p.ID, doc); err != nil {
				return nil, 0, fmt.Errorf("failed to index keywords: %w", err)
			}
		}
	}
	idx.logger.Debug("indexer source indexed", zap.String("id", id), zap.Int("passages", len(passages)))
	return src, len(passages), nil
}

// IndexFile extracts a report file and indexes it as a source. The source ID
// is derived from the path, so re-indexing a file replaces it.
func (idx *Indexer) IndexFile(ctx context.Context, path string) (*models.Source, int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, 0, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, 0, fmt.Errorf("not a regular file: %s", absPath)
	}
	content, err := idx.extractor.Extract(absPath)
	if err != nil {
		return nil, 0, fmt.Errorf("extract %s: %w", filepath.Base(absPath), err)
	}
	return idx.IndexSource(ctx, &models.SourceInput{
		ID:       fileid.SourceID(absPath),
		Title:    filepath.Base(absPath),
		Content:  content,
		Metadata: map[string]interface{}{MetaSourcePath: absPath},
	})
}

// IndexDirectory indexes every supported report under dir. Files that fail
// are logged and skipped. Returns the number of files indexed.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string) (int, error) {
	var indexed int
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !extract.Supported(path) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, _, err := idx.IndexFile(ctx, path); err != nil {
			idx.logger.Warn("indexer skipped file", zap.String("path", path), zap.Error(err))
			return nil
		}
		indexed++
		return nil
	})
	return indexed, err
}

// DeleteFile removes the source indexed from path. A file that was never
// indexed is not an error.
func (idx *Indexer) DeleteFile(ctx context.Context, path string) error {
	err := idx.DeleteSource(ctx, fileid.SourceID(path))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// DeleteSource removes a source's passages from both indexes and deletes the
// source and its passages from storage.
func (idx *Indexer) DeleteSource(ctx context.Context, id string) error {
	if _, err := idx.storage.GetSource(ctx, id); err != nil {
		return err
	}
	passages, err := idx.storage.GetPassagesBySourceID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get passages: %w", err)
	}
	ids := make([]string, len(passages))
	for i, p := range passages {
		ids[i] = p.ID
	}
	if idx.keywordIndex != nil {
		for _, pid := range ids {
			if err := idx.keywordIndex.Delete(ctx, pid); err != nil {
				return fmt.Errorf("failed to delete from keyword index: %w", err)
			}
		}
	}
	if err := idx.vectorIndex.Remove(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete from vector index: %w", err)
	}
	if err := idx.storage.DeleteSource(ctx, id); err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	idx.logger.Debug("indexer source deleted", zap.String("id", id), zap.Int("passages", len(ids)))
	return nil
}
