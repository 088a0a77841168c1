package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/graph"
	"github.com/hyperjump/tansaku/internal/models"
)

const answerPrompt = `You answer market-research questions using only the provided context.
The context has graph evidence (structured facts) and documents (numbered excerpts).
Cite documents by their number in square brackets. If the context does not answer the question, say so.`

// Answer is the result of the question path.
type Answer struct {
	RequestID  string                  `json:"requestId"`
	Question   string                  `json:"question"`
	Answer     string                  `json:"answer"`
	Query      string                  `json:"query,omitempty"`
	Entities   []string                `json:"entities"`
	Context    string                  `json:"context"`
	Documents  []models.ScoredDocument `json:"documents"`
	Citations  []models.Citation       `json:"citations"`
	SearchType models.SearchType       `json:"searchType"`
	State      models.AnswerState      `json:"state"`
}

// Ask answers a free-text question. The graph schema is read first; an
// unreachable graph store fails the call with models.ErrGraphUnavailable.
// Each graph call is bounded by the pipeline's graph timeout, and a graph
// query that times out while ctx is still live only degrades the answer.
// Query generation or execution failures and vector failures degrade the
// answer. When no context source produced anything the LLM is not called and
// the answer state is empty.
func (p *Pipeline) Ask(ctx context.Context, question string, topK int) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, models.ErrEmptyQuery
	}
	if p.generator == nil || p.llm == nil {
		return nil, errors.New("question answering requires an llm client")
	}
	ans := &Answer{RequestID: uuid.NewString(), Question: question, Entities: []string{}}
	log := p.logger.With(zap.String("request_id", ans.RequestID))

	schemaCtx, cancel := context.WithTimeout(ctx, p.graphTimeout)
	schema, err := p.graph.Schema(schemaCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, models.ErrGraphUnavailable) {
			err = fmt.Errorf("%w: %v", models.ErrGraphUnavailable, err)
		}
		return nil, err
	}

	degraded := false
	var graphSection string
	q, entities, err := p.generator.Generate(ctx, question, schema)
	ans.Entities = append(ans.Entities, entities...)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		degraded = true
		log.Warn("graph query generation failed", zap.Error(err))
	default:
		ans.Query = q.Text()
		runCtx, cancel := context.WithTimeout(ctx, p.graphTimeout)
		rows, err := p.graph.Run(runCtx, q)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			degraded = true
			log.Warn("graph query failed", zap.Error(err))
		}
		graphSection = graph.FormatRows(rows)
	}

	vectorQuery := strings.Join(ans.Entities, " ")
	if vectorQuery == "" {
		vectorQuery = question
	}
	docs, err := p.vector.Search(ctx, vectorQuery, p.limit(topK))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		degraded = true
		docs = nil
		log.Warn("vector search failed", zap.Error(err))
	}
	if docs == nil {
		docs = []models.ScoredDocument{}
	}
	ans.Documents = docs
	ans.Citations = citations(docs)

	if graphSection == "" && len(docs) == 0 {
		ans.State = models.StateEmpty
		ans.SearchType = models.SearchNone
		log.Info("no context for question")
		return ans, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	ans.Context = assemble(graphSection, docs, texts)
	ans.SearchType = models.Stages{Graph: graphSection != ""}.SearchType()

	text, err := p.llm.Complete(ctx, answerPrompt, ans.Context+"\n\nQuestion: "+question)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	ans.Answer = strings.TrimSpace(text)
	ans.State = models.StateAnswered
	if degraded {
		ans.State = models.StateAnsweredDegraded
	}
	log.Info("question answered",
		zap.String("state", string(ans.State)),
		zap.String("search_type", string(ans.SearchType)),
		zap.Int("documents", len(docs)))
	return ans, nil
}
