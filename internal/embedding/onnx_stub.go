//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

var errNoCGO = errors.New("ONNX runtime requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXModel stub type when built without CGO (see onnx.go for real implementation).
type ONNXModel struct{}

// NewONNXModel returns an error when built without CGO.
func NewONNXModel(_, _ string, _, _ int) (*ONNXModel, error) {
	return nil, errNoCGO
}

// MaxTokens is zero for the stub.
func (m *ONNXModel) MaxTokens() int { return 0 }

// Run always fails without CGO.
func (m *ONNXModel) Run(_, _, _ []int64) ([]float32, error) { return nil, errNoCGO }

// Close is a no-op for the stub.
func (m *ONNXModel) Close() error { return nil }

// ONNXEmbedder stub type when built without CGO.
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error when built without CGO (ONNX not available).
func NewONNXEmbedder(_ string, _, _, _ int) (*ONNXEmbedder, error) {
	return nil, errNoCGO
}

func (e *ONNXEmbedder) Embed(context.Context, string) ([]float32, error)          { return nil, errNoCGO }
func (e *ONNXEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) { return nil, errNoCGO }
func (e *ONNXEmbedder) Dimensions() int                                           { return 0 }
func (e *ONNXEmbedder) Close() error                                              { return nil }
