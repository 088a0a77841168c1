// Package search provides hybrid (vector + keyword) retrieval and rank fusion.
package search

import (
	"sort"

	"github.com/hyperjump/tansaku/internal/models"
)

// DefaultRRFK is the reciprocal rank fusion constant.
const DefaultRRFK = 60

// Fuse merges ranked lists with Reciprocal Rank Fusion. Each list adds
// 1/(k+rank+1) per document, rank 0 being best; documents are identified by
// content hash. Ties keep first-seen order, vector list before keyword list.
// The returned scores are the fused sums. A non-positive k uses DefaultRRFK.
func Fuse(vectorResults, keywordResults []models.ScoredDocument, k int) []models.ScoredDocument {
	if k <= 0 {
		k = DefaultRRFK
	}
	fused := make([]models.ScoredDocument, 0, len(vectorResults)+len(keywordResults))
	position := make(map[string]int, cap(fused))

	for _, list := range [][]models.ScoredDocument{vectorResults, keywordResults} {
		for rank, sd := range list {
			contribution := 1.0 / float64(k+rank+1)
			key := sd.ContentHash()
			if i, ok := position[key]; ok {
				fused[i].Score += contribution
				continue
			}
			position[key] = len(fused)
			fused = append(fused, models.ScoredDocument{Document: sd.Document, Score: contribution})
		}
	}

	sort.SliceStable(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	return fused
}
