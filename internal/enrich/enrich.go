// Package enrich splices related graph evidence into retrieved text chunks.
package enrich

import (
	"strings"
	"unicode"

	"github.com/hyperjump/tansaku/internal/models"
)

// Matching and rendering limits.
const (
	MinKeywordLen       = 6
	MinSharedKeywords   = 2
	MaxIndicatorLines   = 2
	MaxObservationLines = 2
	MaxTrendLines       = 1
)

// SectionHeader introduces the appended evidence lines.
const SectionHeader = "Related evidence:"

// FindRelated returns the nodes related to chunk, in input order. A node is
// related when it shares the chunk's source id, or when at least
// MinSharedKeywords of its keywords appear in the chunk text.
func FindRelated(chunk models.Document, nodes []models.GraphNode) []models.GraphNode {
	if len(nodes) == 0 {
		return nil
	}
	sourceID := chunk.SourceID()
	words := wordSet(chunk.Content)

	var related []models.GraphNode
	for _, n := range nodes {
		if sourceID != "" && n.SourceID == sourceID {
			related = append(related, n)
			continue
		}
		if sharedKeywords(n, words) >= MinSharedKeywords {
			related = append(related, n)
		}
	}
	return related
}

// Enrich appends up to two Indicator, two Observation and one Trend line to
// text. With nothing to append the text is returned unchanged.
func Enrich(text string, related []models.GraphNode) string {
	limits := map[models.NodeKind]int{
		models.KindIndicator:   MaxIndicatorLines,
		models.KindObservation: MaxObservationLines,
		models.KindTrend:       MaxTrendLines,
	}
	var lines []string
	for _, kind := range []models.NodeKind{models.KindIndicator, models.KindObservation, models.KindTrend} {
		taken := 0
		for _, n := range related {
			if n.Kind != kind || taken == limits[kind] {
				continue
			}
			lines = append(lines, Line(n))
			taken++
		}
	}
	if len(lines) == 0 {
		return text
	}
	return text + "\n\n" + SectionHeader + "\n" + strings.Join(lines, "\n")
}

// Line renders one node as "• summary (qualifier)", omitting an empty qualifier.
func Line(n models.GraphNode) string {
	if q := n.Qualifier(); q != "" {
		return "• " + n.Summary + " (" + q + ")"
	}
	return "• " + n.Summary
}

// Keywords returns the distinct lowercased tokens of a node's summary and key
// facts that are at least MinKeywordLen runes long.
func Keywords(n models.GraphNode) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range tokenize(n.Summary + " " + n.KeyFacts) {
		if len([]rune(w)) < MinKeywordLen || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func sharedKeywords(n models.GraphNode, words map[string]bool) int {
	count := 0
	for _, k := range Keywords(n) {
		if words[k] {
			count++
		}
	}
	return count
}

func wordSet(text string) map[string]bool {
	words := tokenize(text)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}
