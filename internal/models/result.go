package models

// SearchType reports which optional retrieval stages actually ran.
type SearchType string

const (
	SearchHybridRerankGraph SearchType = "hybrid+rerank+graph"
	SearchHybridGraph       SearchType = "hybrid+graph"
	SearchVectorOnlyGraph   SearchType = "vector_only+graph"
	SearchHybrid            SearchType = "hybrid"
	SearchVectorOnly        SearchType = "vector_only"
	// SearchNone is reported with the explicit empty-result state.
	SearchNone SearchType = "none"
)

// Stages records the optional stages that ran for one request.
type Stages struct {
	Keyword  bool `json:"keyword"`
	Reranked bool `json:"reranked"`
	Graph    bool `json:"graph"`
}

// SearchType composes the discriminant from the stages that ran.
func (s Stages) SearchType() SearchType {
	t := "vector_only"
	if s.Keyword {
		t = "hybrid"
	}
	if s.Reranked {
		t += "+rerank"
	}
	if s.Graph {
		t += "+graph"
	}
	return SearchType(t)
}

// Citation is the provenance of one document in an assembled context.
type Citation struct {
	Rank       int     `json:"rank"`
	SourceID   string  `json:"sourceId"`
	Title      string  `json:"title,omitempty"`
	ChunkIndex int     `json:"chunkIndex"`
	Score      float64 `json:"score"`
}

// AnswerState is the terminal state of the question path.
type AnswerState string

const (
	StateAnswered         AnswerState = "answered"
	StateAnsweredDegraded AnswerState = "answered_degraded"
	StateEmpty            AnswerState = "empty"
)
