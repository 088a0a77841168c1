// Package indexer loads source texts into the passage store and the keyword
// and vector indexes.
package indexer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
)

// Chunker splits text into overlapping word-based passages.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into passages with overlapping windows. Passage IDs are
// "<sourceID>_<chunkIndex>", so re-chunking a source yields the same IDs.
func (c *Chunker) Chunk(sourceID, text string) []*models.Passage {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var passages []*models.Passage
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	for i := 0; i < len(words); i += step {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		index := len(passages)
		passages = append(passages, &models.Passage{
			ID:         fmt.Sprintf("%s_%d", sourceID, index),
			SourceID:   sourceID,
			Content:    strings.Join(words[i:end], " "),
			ChunkIndex: index,
		})
		if end >= len(words) {
			break
		}
	}
	return passages
}
