// Package llm wraps the chat-completion provider used for query generation,
// answer synthesis and LLM-based reranking.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
)

// ErrEmptyResponse is returned when the provider answers without any content.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// Client is the chat-completion surface the engine consumes.
type Client interface {
	// Complete returns free-form text.
	Complete(ctx context.Context, system, user string) (string, error)
	// CompleteJSON asks for a JSON object and returns the raw response.
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// DecodeJSON unmarshals an LLM JSON response into out. Code fences and
// reasoning blocks are stripped and malformed JSON is repaired once.
func DecodeJSON(raw string, out interface{}) error {
	cleaned := cleanJSON(raw)
	if cleaned == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}
	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return fmt.Errorf("repair llm json: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("decode llm json: %w", err)
	}
	return nil
}

func cleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "</think>"); i >= 0 {
		s = strings.TrimSpace(s[i+len("</think>"):])
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	return s
}
