package graph

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/tansaku/internal/cypher"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// Property names accepted for each GraphNode field, preferred name first.
// Older extraction runs wrote the alternatives.
var (
	summaryKeys    = []string{"summary", "description"}
	keyFactsKeys   = []string{"key_facts", "keyFacts"}
	confidenceKeys = []string{"confidence", "certainty"}
	timePeriodKeys = []string{"time_period", "timePeriod", "period"}
	magnitudeKeys  = []string{"magnitude", "value"}
	sourceIDKeys   = []string{"source_id", "sourceId", "doc_id"}
)

// NodeFromProperties converts raw node properties into a GraphNode. It is
// the single place where property aliases are resolved. Nodes without a
// summary are rejected. Missing or unknown confidence becomes low.
func NodeFromProperties(kind models.NodeKind, props map[string]interface{}) (models.GraphNode, bool) {
	summary := utils.CollapseWhitespace(firstString(props, summaryKeys))
	if summary == "" || !kind.Valid() {
		return models.GraphNode{}, false
	}

	confidence := models.Confidence(strings.ToLower(strings.TrimSpace(firstString(props, confidenceKeys))))
	if confidence.Rank() > models.ConfidenceLow.Rank() {
		confidence = models.ConfidenceLow
	}

	return models.GraphNode{
		Kind:       kind,
		Summary:    truncateSummary(summary),
		Magnitude:  strings.TrimSpace(firstString(props, magnitudeKeys)),
		Confidence: confidence,
		TimePeriod: strings.TrimSpace(firstString(props, timePeriodKeys)),
		KeyFacts:   keyFacts(firstValue(props, keyFactsKeys)),
		SourceID:   strings.TrimSpace(firstString(props, sourceIDKeys)),
	}, true
}

// NodesFromRows converts rows of the demographic context query, which carry
// a kind column and a props column. Unusable rows are skipped.
func NodesFromRows(rows []map[string]interface{}) []models.GraphNode {
	nodes := make([]models.GraphNode, 0, len(rows))
	for _, row := range rows {
		kind, _ := row[cypher.ColumnKind].(string)
		props, _ := row[cypher.ColumnProps].(map[string]interface{})
		if props == nil {
			continue
		}
		if node, ok := NodeFromProperties(models.NodeKind(kind), props); ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func firstValue(props map[string]interface{}, keys []string) interface{} {
	for _, k := range keys {
		if v, ok := props[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(props map[string]interface{}, keys []string) string {
	for _, k := range keys {
		switch v := props[k].(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// keyFacts accepts a list or a semicolon-joined string and keeps at most
// models.MaxKeyFacts facts.
func keyFacts(v interface{}) string {
	var facts []string
	switch val := v.(type) {
	case string:
		facts = strings.Split(val, ";")
	case []string:
		facts = val
	case []interface{}:
		for _, item := range val {
			facts = append(facts, fmt.Sprint(item))
		}
	}
	out := make([]string, 0, models.MaxKeyFacts)
	for _, f := range facts {
		if f = utils.CollapseWhitespace(f); f != "" {
			out = append(out, f)
		}
		if len(out) == models.MaxKeyFacts {
			break
		}
	}
	return strings.Join(out, "; ")
}

func truncateSummary(s string) string {
	if utf8.RuneCountInString(s) <= models.MaxSummaryLen {
		return s
	}
	return utils.TruncateRunes(s, models.MaxSummaryLen-3) + "..."
}
