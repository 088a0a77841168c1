package rerank

import (
	"context"
	"fmt"

	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// ONNXScorer runs a BERT-style cross-encoder exported to ONNX. The model must
// expose a single "logits" output of width one.
type ONNXScorer struct {
	model     *embedding.ONNXModel
	tokenizer embedding.Tokenizer
}

// NewONNXScorer loads the cross-encoder at modelPath. It fails when the
// binary was built without CGO or the model cannot be loaded.
func NewONNXScorer(modelPath string, maxTokens int) (*ONNXScorer, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("cross-encoder model path is empty")
	}
	model, err := embedding.NewONNXModel(modelPath, "logits", maxTokens, 1)
	if err != nil {
		return nil, fmt.Errorf("load cross-encoder: %w", err)
	}
	return &ONNXScorer{model: model, tokenizer: &embedding.SimpleTokenizer{}}, nil
}

// Score implements Scorer. Logits are squashed to (0, 1).
func (s *ONNXScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	scores := make([]float64, len(passages))
	for i, p := range passages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := s.model.Run(s.tokenizer.TokenizePair(query, p, s.model.MaxTokens()))
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("cross-encoder produced no output")
		}
		scores[i] = utils.Sigmoid(float64(out[0]))
	}
	return scores, nil
}

// Close releases the model.
func (s *ONNXScorer) Close() error {
	return s.model.Close()
}
