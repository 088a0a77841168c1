package models

// NodeKind discriminates graph evidence nodes.
type NodeKind string

const (
	KindIndicator   NodeKind = "Indicator"
	KindObservation NodeKind = "Observation"
	KindTrend       NodeKind = "Trend"
	KindDemographic NodeKind = "Demographic"
)

// NodeKinds lists the kinds in the order they are queried and rendered.
var NodeKinds = []NodeKind{KindIndicator, KindObservation, KindTrend, KindDemographic}

// Valid reports whether k is one of the known kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindIndicator, KindObservation, KindTrend, KindDemographic:
		return true
	}
	return false
}

// Confidence is the extraction confidence of a graph node.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders confidences ascending: high < medium < low. Unknown values rank last.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 1
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 3
	}
	return 4
}

// Limits on node text, enforced when raw records are normalized.
const (
	MaxSummaryLen = 150
	MaxKeyFacts   = 3
)

// GraphNode is a typed evidence item read from the property graph.
// SourceID is a weak back-reference to the document it was extracted from.
type GraphNode struct {
	Kind       NodeKind   `json:"kind"`
	Summary    string     `json:"summary"`
	Magnitude  string     `json:"magnitude,omitempty"`
	Confidence Confidence `json:"confidence"`
	TimePeriod string     `json:"timePeriod,omitempty"`
	KeyFacts   string     `json:"keyFacts,omitempty"`
	SourceID   string     `json:"sourceId,omitempty"`
}

// Qualifier is the parenthetical shown after a node summary: magnitude when
// present, otherwise time period.
func (n GraphNode) Qualifier() string {
	if n.Magnitude != "" {
		return n.Magnitude
	}
	return n.TimePeriod
}
