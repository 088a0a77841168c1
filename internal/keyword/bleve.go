package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/hyperjump/tansaku/internal/models"
)

// Stored field names.
const (
	fieldText       = "text"
	fieldTitle      = "title"
	fieldSourceID   = "source_id"
	fieldChunkIndex = "chunk_index"
)

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates
// an in-memory index. If you change the mapping, remove the index directory
// to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// standard analyzer: lowercase + tokenize, no stemming
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldText, textFieldMapping)

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = standard.Name
	titleFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt(fieldTitle, titleFieldMapping)

	sourceFieldMapping := bleve.NewKeywordFieldMapping()
	sourceFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt(fieldSourceID, sourceFieldMapping)

	chunkFieldMapping := bleve.NewNumericFieldMapping()
	chunkFieldMapping.IncludeInAll = false
	chunkFieldMapping.Index = false
	docMapping.AddFieldMappingsAt(fieldChunkIndex, chunkFieldMapping)

	im.AddDocumentMapping("passage", docMapping)
	im.DefaultType = "passage"
	im.DefaultMapping = docMapping
	im.DefaultField = fieldText
	return im
}

// Index indexes one passage under id.
func (b *BleveIndex) Index(ctx context.Context, id string, doc models.Document) error {
	return b.index.Index(id, map[string]interface{}{
		fieldText:       doc.Content,
		fieldTitle:      doc.Title(),
		fieldSourceID:   doc.SourceID(),
		fieldChunkIndex: float64(doc.ChunkIndex()),
	})
}

// Search runs a query-string query over the text field and returns up to
// limit passages with their stored metadata, best first.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]models.ScoredDocument, error) {
	q := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{fieldText, fieldTitle, fieldSourceID, fieldChunkIndex}

	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]models.ScoredDocument, 0, len(results.Hits))
	for _, hit := range results.Hits {
		text, _ := hit.Fields[fieldText].(string)
		title, _ := hit.Fields[fieldTitle].(string)
		sourceID, _ := hit.Fields[fieldSourceID].(string)
		chunkIndex, _ := hit.Fields[fieldChunkIndex].(float64)
		out = append(out, models.ScoredDocument{
			Document: models.NewDocument(text, sourceID, title, int(chunkIndex)),
			Score:    hit.Score,
		})
	}
	return out, nil
}

// Delete removes a passage from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the total number of passages in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
