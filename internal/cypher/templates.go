package cypher

import (
	"fmt"
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
)

// Caps bounds how many nodes of each kind the demographic query returns.
type Caps struct {
	Indicators   int
	Observations int
	Trends       int
	Demographics int
}

// DefaultCaps returns 3 Indicators, 3 Observations, 2 Trends and 2 Demographics.
func DefaultCaps() Caps {
	return Caps{Indicators: 3, Observations: 3, Trends: 2, Demographics: 2}
}

func (c Caps) limit(kind models.NodeKind) int {
	switch kind {
	case models.KindIndicator:
		return c.Indicators
	case models.KindObservation:
		return c.Observations
	case models.KindTrend:
		return c.Trends
	case models.KindDemographic:
		return c.Demographics
	}
	return 0
}

// Columns returned by DemographicContext.
const (
	ColumnKind  = "kind"
	ColumnProps = "props"
)

const kindBranch = `MATCH (n:%[1]s)
WITH n, toLower(coalesce(n.summary, n.description, '')) AS summary, toLower(coalesce(n.key_facts, n.keyFacts, '')) AS facts
WHERE any(term IN $terms WHERE summary CONTAINS term OR facts CONTAINS term)
WITH n, facts, CASE toLower(coalesce(n.confidence, '')) WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END AS confidenceRank
ORDER BY confidenceRank ASC, size(facts) DESC
LIMIT $%[2]s
RETURN '%[1]s' AS kind, properties(n) AS props`

// DemographicContext builds the fixed evidence query: per node kind, nodes
// whose summary or key facts contain any term (case-insensitive), best
// confidence first, then longest key facts, capped per kind. Kinds with a
// zero cap are skipped.
func DemographicContext(terms []string, caps Caps) Query {
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			lowered = append(lowered, t)
		}
	}
	params := map[string]interface{}{"terms": lowered}

	var branches []string
	for _, kind := range models.NodeKinds {
		n := caps.limit(kind)
		if n <= 0 {
			continue
		}
		limitParam := "limit" + string(kind)
		params[limitParam] = int64(n)
		branches = append(branches, fmt.Sprintf(kindBranch, kind, limitParam))
	}
	if len(branches) == 0 || len(lowered) == 0 {
		return Query{}
	}
	return Query{text: strings.Join(branches, "\nUNION ALL\n"), params: params}
}

// Schema introspection statements.
var (
	schemaLabels            = Query{text: "CALL db.labels() YIELD label RETURN collect(label) AS labels", params: map[string]interface{}{}}
	schemaRelationshipTypes = Query{text: "CALL db.relationshipTypes() YIELD relationshipType RETURN collect(relationshipType) AS types", params: map[string]interface{}{}}
	schemaNodeProperties    = Query{text: "CALL db.schema.nodeTypeProperties() YIELD nodeLabels, propertyName RETURN nodeLabels, collect(propertyName) AS properties", params: map[string]interface{}{}}
)

// SchemaLabels lists node labels in one "labels" column.
func SchemaLabels() Query { return schemaLabels }

// SchemaRelationshipTypes lists relationship types in one "types" column.
func SchemaRelationshipTypes() Query { return schemaRelationshipTypes }

// SchemaNodeProperties lists property names per label set ("nodeLabels", "properties").
func SchemaNodeProperties() Query { return schemaNodeProperties }
