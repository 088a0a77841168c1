package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(8)
	ctx := context.Background()
	a, err := e.Embed(ctx, "youth unemployment")
	require.NoError(t, err)
	b, _ := e.Embed(ctx, "youth unemployment")
	assert.Equal(t, a, b)
	assert.Len(t, a, 8)

	var norm float64
	for _, v := range a {
		norm += float64(v * v)
	}
	assert.InDelta(t, 1.0, norm, 1e-4)
}

func TestNew_Providers(t *testing.T) {
	e, err := New(Options{Provider: ProviderMock, Dimensions: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, e.Dimensions())

	_, err = New(Options{Provider: "nope"})
	assert.Error(t, err)

	_, err = New(Options{Provider: ProviderOpenAI, Dimensions: 4})
	assert.Error(t, err, "openai without key or base URL")
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]interface{}, len(req.Input))
		for i := range req.Input {
			// reverse order to check index mapping
			j := len(req.Input) - 1 - i
			data[i] = map[string]interface{}{
				"object":    "embedding",
				"index":     j,
				"embedding": []float32{float32(j + 1), 0, 0},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"object": "list", "data": data, "model": "m"})
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder("key", srv.URL, "m", 3, 10)
	require.NoError(t, err)

	out, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []float32{1, 0, 0}, out[0])
	assert.Equal(t, []float32{1, 0, 0}, out[1])

	_, err = e.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second lookup should hit the cache")
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,2]}]}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder("key", srv.URL, "m", 3, 0)
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "a")
	assert.Error(t, err)
}
