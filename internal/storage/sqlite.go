package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tansaku/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		title TEXT,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS passages (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (source_id) REFERENCES sources(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_passages_source_id ON passages(source_id);
	CREATE INDEX IF NOT EXISTS idx_passages_source_chunk ON passages(source_id, chunk_index);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateSource inserts a source.
func (s *SQLiteStorage) CreateSource(ctx context.Context, src *models.Source) error {
	metadataJSON, err := json.Marshal(src.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	src.CreatedAt = time.Now()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sources (id, title, metadata, created_at) VALUES (?, ?, ?, ?)`,
		src.ID, src.Title, string(metadataJSON), src.CreatedAt,
	)
	return err
}

// GetSource returns a source by ID.
func (s *SQLiteStorage) GetSource(ctx context.Context, id string) (*models.Source, error) {
	var src models.Source
	var metadataJSON sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, metadata, created_at FROM sources WHERE id = ?`, id,
	).Scan(&src.ID, &src.Title, &metadataJSON, &src.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &src.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &src, nil
}

// DeleteSource removes a source and, by cascade, its passages.
func (s *SQLiteStorage) DeleteSource(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	return err
}

// GetPassage returns a passage by ID.
func (s *SQLiteStorage) GetPassage(ctx context.Context, id string) (*models.Passage, error) {
	var p models.Passage
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source_id, content, chunk_index, created_at
		 FROM passages WHERE id = ?`, id,
	).Scan(&p.ID, &p.SourceID, &p.Content, &p.ChunkIndex, &p.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("passage %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPassagesBySourceID returns all passages for a source ordered by chunk_index.
func (s *SQLiteStorage) GetPassagesBySourceID(ctx context.Context, sourceID string) ([]*models.Passage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, content, chunk_index, created_at
		 FROM passages WHERE source_id = ? ORDER BY chunk_index`,
		sourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passages []*models.Passage
	for rows.Next() {
		var p models.Passage
		if err := rows.Scan(&p.ID, &p.SourceID, &p.Content, &p.ChunkIndex, &p.CreatedAt); err != nil {
			return nil, err
		}
		passages = append(passages, &p)
	}
	return passages, rows.Err()
}

// BatchCreatePassages inserts multiple passages in a transaction.
func (s *SQLiteStorage) BatchCreatePassages(ctx context.Context, passages []*models.Passage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO passages (id, source_id, content, chunk_index, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range passages {
		p.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, p.ID, p.SourceID, p.Content, p.ChunkIndex, p.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PassageDocuments hydrates passage IDs into retrieval Documents carrying
// sourceId, title and chunkIndex metadata. Unknown IDs are absent from the result.
func (s *SQLiteStorage) PassageDocuments(ctx context.Context, ids []string) (map[string]models.Document, error) {
	out := make(map[string]models.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.source_id, p.content, p.chunk_index, COALESCE(s.title, '')
		 FROM passages p JOIN sources s ON s.id = p.source_id
		 WHERE p.id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, sourceID, content, title string
		var chunkIndex int
		if err := rows.Scan(&id, &sourceID, &content, &chunkIndex, &title); err != nil {
			return nil, err
		}
		out[id] = models.NewDocument(content, sourceID, title, chunkIndex)
	}
	return out, rows.Err()
}

// CountSources returns the total number of sources.
func (s *SQLiteStorage) CountSources(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&count)
	return count, err
}

// CountPassages returns the total number of passages.
func (s *SQLiteStorage) CountPassages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
