// Package cypher builds the parameterized, read-only graph queries the engine
// is allowed to run: fixed templates and LLM-generated queries that passed
// validation. User text only ever reaches a query as a parameter.
package cypher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
)

// Query is a parameterized Cypher statement. The zero value is not runnable.
// Queries are only constructed inside this package.
type Query struct {
	text   string
	params map[string]interface{}
}

// Text returns the statement.
func (q Query) Text() string { return q.text }

// Params returns a copy of the parameters.
func (q Query) Params() map[string]interface{} {
	out := make(map[string]interface{}, len(q.params))
	for k, v := range q.params {
		out[k] = v
	}
	return out
}

// IsZero reports whether q holds no statement.
func (q Query) IsZero() bool { return q.text == "" }

func (q Query) String() string { return q.text }

var (
	writeClause   = regexp.MustCompile(`\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|FOREACH)\b|\bLOAD\s+CSV\b|\bCALL\s+(DBMS|APOC)\.`)
	stringLiteral = regexp.MustCompile(`'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"`)
	lineComment   = regexp.MustCompile(`//[^\n]*`)
	blockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	paramRef      = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	returnClause  = regexp.MustCompile(`\bRETURN\b`)
)

// ValidateReadOnly rejects statements containing write or admin clauses.
// Keywords inside string literals and comments are ignored.
func ValidateReadOnly(text string) error {
	stripped := stringLiteral.ReplaceAllString(text, "''")
	stripped = blockComment.ReplaceAllString(stripped, " ")
	stripped = lineComment.ReplaceAllString(stripped, " ")
	upper := strings.ToUpper(stripped)
	if m := writeClause.FindString(upper); m != "" {
		return fmt.Errorf("%w: write clause %q not allowed", models.ErrInvalidQuery, m)
	}
	if !returnClause.MatchString(upper) {
		return fmt.Errorf("%w: missing RETURN", models.ErrInvalidQuery)
	}
	return nil
}

// newValidated builds a Query after checking it is read-only and every
// referenced parameter is bound.
func newValidated(text string, params map[string]interface{}) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, fmt.Errorf("%w: empty statement", models.ErrInvalidQuery)
	}
	if err := ValidateReadOnly(text); err != nil {
		return Query{}, err
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	for _, m := range paramRef.FindAllStringSubmatch(stringLiteral.ReplaceAllString(text, "''"), -1) {
		if _, ok := params[m[1]]; !ok {
			return Query{}, fmt.Errorf("%w: parameter $%s is not bound", models.ErrInvalidQuery, m[1])
		}
	}
	return Query{text: text, params: params}, nil
}
