package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/fileid"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/vector"
)

type testEnv struct {
	idx     *Indexer
	store   storage.Storage
	vectors *vector.MemoryIndex
	keyword *keyword.BleveIndex
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	embedder := embedding.NewMockEmbedder(8)
	vecIndex, err := vector.NewMemoryIndex(8)
	if err != nil {
		t.Fatal(err)
	}
	kwIndex, err := keyword.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIndex.Close() })
	return &testEnv{
		idx:     NewIndexer(store, embedder, vecIndex, kwIndex, NewChunker(4, 1)),
		store:   store,
		vectors: vecIndex,
		keyword: kwIndex,
	}
}

func TestIndexSource(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	src, n, err := env.idx.IndexSource(ctx, &models.SourceInput{
		Title:   "housing_report_2024",
		Content: "Rents in Lisbon rose sharply while wages stayed flat for young renters.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if src.ID == "" {
		t.Fatal("source ID should be generated")
	}
	if n < 2 {
		t.Fatalf("expected several passages, got %d", n)
	}
	if got, _ := env.store.CountPassages(ctx); got != int64(n) {
		t.Errorf("stored passages = %d, want %d", got, n)
	}
	if env.vectors.Size() != n {
		t.Errorf("vector index size = %d, want %d", env.vectors.Size(), n)
	}
	if count, _ := env.keyword.DocCount(); count != uint64(n) {
		t.Errorf("keyword doc count = %d, want %d", count, n)
	}

	hits, err := env.keyword.Search(ctx, "renters", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].SourceID() != src.ID || hits[0].Title() != "housing report 2024" {
		t.Errorf("unexpected keyword hits: %+v", hits)
	}
}

func TestIndexSource_ReplacesExisting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	input := &models.SourceInput{ID: "s1", Title: "t", Content: "one two three four five six seven eight nine"}
	if _, _, err := env.idx.IndexSource(ctx, input); err != nil {
		t.Fatal(err)
	}
	input.Content = "short text"
	_, n, err := env.idx.IndexSource(ctx, input)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 passage, got %d", n)
	}
	if env.vectors.Size() != 1 {
		t.Errorf("stale vectors left behind: size %d", env.vectors.Size())
	}
	if count, _ := env.keyword.DocCount(); count != 1 {
		t.Errorf("stale keyword docs left behind: %d", count)
	}
}

func TestIndexSource_EmptyContent(t *testing.T) {
	env := newTestEnv(t)
	if _, _, err := env.idx.IndexSource(context.Background(), &models.SourceInput{Content: " \n "}); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestIndexFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("Commuters prefer the metro."), 0600); err != nil {
		t.Fatal(err)
	}

	src, _, err := env.idx.IndexFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if src.ID != fileid.SourceID(path) {
		t.Errorf("source ID = %s, want stable path ID", src.ID)
	}
	if src.Title != "notes.txt" {
		t.Errorf("title = %s", src.Title)
	}
	if _, _, err := env.idx.IndexFile(ctx, path); err != nil {
		t.Fatalf("re-index: %v", err)
	}
	if got, _ := env.store.CountSources(ctx); got != 1 {
		t.Errorf("re-indexing should replace: %d sources", got)
	}

	if _, _, err := env.idx.IndexFile(ctx, filepath.Dir(path)); err == nil {
		t.Error("expected error for directory")
	}
}

func TestDeleteSource(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	src, _, err := env.idx.IndexSource(ctx, &models.SourceInput{Content: "a b c d e f g"})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.idx.DeleteSource(ctx, src.ID); err != nil {
		t.Fatal(err)
	}
	if env.vectors.Size() != 0 {
		t.Errorf("vectors remain: %d", env.vectors.Size())
	}
	if got, _ := env.store.CountPassages(ctx); got != 0 {
		t.Errorf("passages remain: %d", got)
	}
	if err := env.idx.DeleteSource(ctx, src.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestIndexFile_UnsupportedFormat(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "tool.exe")
	if err := os.WriteFile(path, []byte("MZ"), 0600); err != nil {
		t.Fatal(err)
	}
	_, _, err := env.idx.IndexFile(context.Background(), path)
	if !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Errorf("got %v, want ErrUnsupportedFormat", err)
	}
}

func TestIndexDirectoryAndDeleteFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dir := t.TempDir()
	files := map[string]string{
		"summary.txt":          "Young renters in Porto share flats.",
		"waves/2024/survey.md": "Commuting times grew for suburban households.",
		"notes.exe":            "skipped by extension",
		"broken.pptx":          "not a zip archive",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}

	n, err := env.idx.IndexDirectory(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("indexed %d files, want 2", n)
	}
	if got, _ := env.store.CountSources(ctx); got != 2 {
		t.Errorf("sources = %d, want 2", got)
	}

	if err := env.idx.DeleteFile(ctx, filepath.Join(dir, "summary.txt")); err != nil {
		t.Fatal(err)
	}
	if got, _ := env.store.CountSources(ctx); got != 1 {
		t.Errorf("sources after delete = %d, want 1", got)
	}
	if err := env.idx.DeleteFile(ctx, filepath.Join(dir, "never-indexed.txt")); err != nil {
		t.Errorf("deleting an unknown file should be a no-op, got %v", err)
	}
}
