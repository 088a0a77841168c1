package cypher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/llm"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

const generatorPrompt = `You translate questions into read-only Cypher for a property graph.

Graph schema:
%s

Rules:
- Use only labels, relationship types and properties from the schema.
- Never inline values taken from the question. Reference them as $parameters and put the values in "params".
- Read-only: MATCH, OPTIONAL MATCH, WHERE, WITH, RETURN, ORDER BY, LIMIT. No CREATE, MERGE, SET, DELETE, REMOVE or procedure calls.
- Return at most 25 rows.
- "entities" lists the people, places, groups and topics the question is about, as short phrases.

Respond with a JSON object: {"query": "...", "params": {...}, "entities": ["..."]}`

// Generation is the parsed output of one generator call.
type generation struct {
	Query    string                 `json:"query"`
	Params   map[string]interface{} `json:"params"`
	Entities []string               `json:"entities"`
}

// Generator turns a question and a graph schema into a validated Query plus
// the entities the question mentions.
type Generator struct {
	client llm.Client
	logger *zap.Logger
}

// NewGenerator creates a Generator backed by client.
func NewGenerator(client llm.Client, logger *zap.Logger) *Generator {
	return &Generator{client: client, logger: utils.OrNop(logger)}
}

// Generate asks the LLM for a query. A query that is not read-only or
// references unbound parameters is rejected with models.ErrInvalidQuery; the
// entity list is still returned in that case when the response parsed.
func (g *Generator) Generate(ctx context.Context, question, schema string) (Query, []string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Query{}, nil, models.ErrEmptyQuery
	}
	if g == nil || g.client == nil {
		return Query{}, nil, errors.New("query generator has no llm client")
	}

	raw, err := g.client.CompleteJSON(ctx, fmt.Sprintf(generatorPrompt, schema), "Question: "+question)
	if err != nil {
		return Query{}, nil, fmt.Errorf("generate graph query: %w", err)
	}
	var out generation
	if err := llm.DecodeJSON(raw, &out); err != nil {
		return Query{}, nil, fmt.Errorf("%w: %v", models.ErrInvalidQuery, err)
	}
	entities := cleanEntities(out.Entities)

	q, err := newValidated(out.Query, out.Params)
	if err != nil {
		g.logger.Warn("rejected generated graph query", zap.String("query", out.Query), zap.Error(err))
		return Query{}, entities, err
	}
	g.logger.Debug("generated graph query", zap.String("query", q.text), zap.Strings("entities", entities))
	return q, entities, nil
}

func cleanEntities(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = utils.CollapseWhitespace(e)
		key := strings.ToLower(e)
		if e == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
