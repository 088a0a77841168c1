//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/tansaku/pkg/utils"
)

// ONNXModel is a BERT-style ONNX session with fixed-size int64 inputs
// (input_ids, attention_mask, token_type_ids) and one float32 output.
// Run is serialized because the tensors are reused between calls.
type ONNXModel struct {
	session             *ort.AdvancedSession
	maxTokens           int
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXModel loads modelPath. outputName is the graph output to read and
// outputWidth its size for a batch of one. InitializeEnvironment is called if
// not already done.
func NewONNXModel(modelPath, outputName string, maxTokens, outputWidth int) (*ONNXModel, error) {
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	m := &ONNXModel{maxTokens: maxTokens}
	shape := ort.NewShape(1, int64(maxTokens))
	var err error
	if m.inputIDsTensor, err = ort.NewEmptyTensor[int64](shape); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if m.attentionMaskTensor, err = ort.NewEmptyTensor[int64](shape); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if m.tokenTypeIDsTensor, err = ort.NewEmptyTensor[int64](shape); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	if m.outputTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(outputWidth))); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	m.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{outputName},
		[]ort.ArbitraryTensor{m.inputIDsTensor, m.attentionMaskTensor, m.tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{m.outputTensor},
		nil,
	)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return m, nil
}

// MaxTokens returns the fixed input length.
func (m *ONNXModel) MaxTokens() int {
	return m.maxTokens
}

// Run feeds one encoded sequence through the model and returns a copy of the output.
func (m *ONNXModel) Run(inputIDs, attentionMask, tokenTypeIDs []int64) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, fmt.Errorf("ONNX model is closed")
	}

	copy(m.inputIDsTensor.GetData(), inputIDs)
	copy(m.attentionMaskTensor.GetData(), attentionMask)
	copy(m.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	data := m.outputTensor.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// Close destroys the session and tensors.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var err error
	if m.session != nil {
		err = m.session.Destroy()
		m.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{m.inputIDsTensor, m.attentionMaskTensor, m.tokenTypeIDsTensor} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	if m.outputTensor != nil {
		_ = m.outputTensor.Destroy()
	}
	m.inputIDsTensor, m.attentionMaskTensor, m.tokenTypeIDsTensor, m.outputTensor = nil, nil, nil, nil
	return err
}

// ONNXEmbedder uses ONNX Runtime to produce embeddings. It requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	model      *ONNXModel
	dimensions int
	cache      *EmbeddingCache
	tokenizer  Tokenizer
}

// NewONNXEmbedder creates an ONNX embedder reading the "output" tensor.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens, cacheSize int) (*ONNXEmbedder, error) {
	model, err := NewONNXModel(modelPath, "output", maxTokens, dimensions)
	if err != nil {
		return nil, err
	}
	return &ONNXEmbedder{
		model:      model,
		dimensions: dimensions,
		cache:      NewEmbeddingCache(cacheSize),
		tokenizer:  &SimpleTokenizer{},
	}, nil
}

// Embed returns the embedding for text, using cache when available.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := e.model.Run(e.tokenizer.Tokenize(text, e.model.MaxTokens()))
	if err != nil {
		return nil, err
	}
	embedding := out[:e.dimensions]
	utils.NormalizeL2(embedding)
	e.cache.Set(text, embedding)
	return embedding, nil
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close releases the ONNX session.
func (e *ONNXEmbedder) Close() error {
	return e.model.Close()
}
