// Package models defines the value objects shared by the retrieval engine.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"time"
)

// Metadata keys carried by every retrieved Document.
const (
	MetaSourceID   = "sourceId"
	MetaTitle      = "title"
	MetaChunkIndex = "chunkIndex"
)

// Document is an immutable unit of retrieved text.
type Document struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SourceID returns the sourceId metadata value or "".
func (d Document) SourceID() string {
	s, _ := d.Metadata[MetaSourceID].(string)
	return s
}

// Title returns the title metadata value or "".
func (d Document) Title() string {
	s, _ := d.Metadata[MetaTitle].(string)
	return s
}

// ChunkIndex returns the chunkIndex metadata value. Values decoded from JSON
// arrive as float64, values from the index as int or int64.
func (d Document) ChunkIndex() int {
	switch v := d.Metadata[MetaChunkIndex].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	}
	return 0
}

// ContentHash identifies a document by its content. Two documents with the
// same content are the same document regardless of which index surfaced them.
func (d Document) ContentHash() string {
	sum := sha256.Sum256([]byte(d.Content))
	return hex.EncodeToString(sum[:])
}

// UnmarshalJSON restores an integral chunkIndex as int so a document read
// back from a cache equals the one that was written.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if f, ok := p.Metadata[MetaChunkIndex].(float64); ok && f == math.Trunc(f) {
		p.Metadata[MetaChunkIndex] = int(f)
	}
	*d = Document(p)
	return nil
}

// ScoredDocument pairs a Document with a score. Scores are only comparable
// within the list that produced them.
type ScoredDocument struct {
	Document
	Score float64 `json:"score"`
}

// UnmarshalJSON decodes the flattened document fields and the score. It is
// needed because the embedded Document's decoder would otherwise drop Score.
func (s *ScoredDocument) UnmarshalJSON(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	var score struct {
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(data, &score); err != nil {
		return err
	}
	s.Document, s.Score = doc, score.Score
	return nil
}

// SourceInput is the input for indexing a source text into the local indexes.
type SourceInput struct {
	ID       string                 `json:"id,omitempty"`
	Title    string                 `json:"title,omitempty"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Source is a stored source text (the parent of its passages).
type Source struct {
	ID        string                 `json:"id" db:"id"`
	Title     string                 `json:"title" db:"title"`
	Metadata  map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// Passage is one chunk of a source, the unit indexed by the vector and keyword indexes.
type Passage struct {
	ID         string    `json:"id" db:"id"`
	SourceID   string    `json:"source_id" db:"source_id"`
	Content    string    `json:"content" db:"content"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// NewDocument builds a Document with the standard metadata keys set.
func NewDocument(content, sourceID, title string, chunkIndex int) Document {
	return Document{
		Content: content,
		Metadata: map[string]interface{}{
			MetaSourceID:   sourceID,
			MetaTitle:      title,
			MetaChunkIndex: chunkIndex,
		},
	}
}
