package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
)

var kindHeadings = map[models.NodeKind]string{
	models.KindIndicator:   "Indicators",
	models.KindObservation: "Observations",
	models.KindTrend:       "Trends",
	models.KindDemographic: "Demographic facts",
}

// FormatContext renders nodes grouped by kind, one bullet per node. Returns
// "" for no nodes.
func FormatContext(nodes []models.GraphNode) string {
	if len(nodes) == 0 {
		return ""
	}
	byKind := make(map[models.NodeKind][]models.GraphNode, len(models.NodeKinds))
	for _, n := range nodes {
		byKind[n.Kind] = append(byKind[n.Kind], n)
	}

	var b strings.Builder
	for _, kind := range models.NodeKinds {
		group := byKind[kind]
		if len(group) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s:\n", kindHeadings[kind])
		for _, n := range group {
			b.WriteString("• ")
			b.WriteString(n.Summary)
			if details := nodeDetails(n); details != "" {
				fmt.Fprintf(&b, " [%s]", details)
			}
			b.WriteString("\n")
			if n.KeyFacts != "" {
				fmt.Fprintf(&b, "  Key facts: %s\n", n.KeyFacts)
			}
		}
	}
	return b.String()
}

func nodeDetails(n models.GraphNode) string {
	var parts []string
	if n.Magnitude != "" {
		parts = append(parts, n.Magnitude)
	}
	if n.TimePeriod != "" {
		parts = append(parts, n.TimePeriod)
	}
	if n.Confidence != "" {
		parts = append(parts, "confidence: "+string(n.Confidence))
	}
	return strings.Join(parts, ", ")
}

// FormatRows renders arbitrary query rows, one line per row with columns in
// name order. Nested maps are rendered as key=value lists.
func FormatRows(rows []map[string]interface{}) string {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString("- ")
		b.WriteString(formatMap(row, ": ", "; "))
		b.WriteString("\n")
	}
	return b.String()
}

func formatMap(m map[string]interface{}, kv, sep string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+kv+formatValue(m[k]))
	}
	return strings.Join(parts, sep)
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "{" + formatMap(val, "=", ", ") + "}"
	case []interface{}:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}
