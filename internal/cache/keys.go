package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
)

// Key prefixes per call site.
const (
	hybridSearchPrefix = "hybrid_search:"
	graphContextPrefix = "graph_context:"
)

// HybridSearchKey keys a hybrid search on the lowercased, trimmed query and topK.
func HybridSearchKey(query string, topK int) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized + ":" + strconv.Itoa(topK)))
	return hybridSearchPrefix + hex.EncodeToString(sum[:])
}

// GraphContextKey keys a graph context resolution on the normalized
// demographic tuple joined with ":".
func GraphContextKey(p models.DemographicProfile) string {
	n := p.Normalized()
	return graphContextPrefix + strings.Join([]string{n.AgeGroup, n.Location, n.Education, n.Gender}, ":")
}
