package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jsonLLM struct {
	resp string
	user string
}

func (j *jsonLLM) Complete(ctx context.Context, system, user string) (string, error) {
	return j.resp, nil
}

func (j *jsonLLM) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	j.user = user
	return j.resp, nil
}

func TestLLMScorer_Score(t *testing.T) {
	client := &jsonLLM{resp: `{"scores": [2, 9]}`}
	s := NewLLMScorer(client)
	scores, err := s.Score(context.Background(), "youth jobs", []string{"rain", "jobs for youth"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 9}, scores)
	assert.Contains(t, client.user, "[1] jobs for youth")
}

func TestLLMScorer_CountMismatch(t *testing.T) {
	s := NewLLMScorer(&jsonLLM{resp: `{"scores": [2]}`})
	_, err := s.Score(context.Background(), "q", []string{"a", "b"})
	assert.Error(t, err)
}

func TestNewONNXScorer_EmptyPath(t *testing.T) {
	_, err := NewONNXScorer("", 128)
	assert.Error(t, err)
}
