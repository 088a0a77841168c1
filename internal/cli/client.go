package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/tansaku/internal/rag"
)

// DefaultClientTimeout bounds one request against a running server.
const DefaultClientTimeout = 2 * time.Minute

// Client calls the HTTP API of a running tansaku server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL, e.g. http://localhost:8080.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultClientTimeout},
	}
}

// Context requests an assembled context bundle.
func (c *Client) Context(ctx context.Context, req rag.ContextRequest) (*rag.ContextResult, error) {
	var out rag.ContextResult
	if err := c.post(ctx, "/api/v1/context", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask posts a free-text question.
func (c *Client) Ask(ctx context.Context, question string, topK int) (*rag.Answer, error) {
	body := map[string]interface{}{"question": question}
	if topK > 0 {
		body["topK"] = topK
	}
	var out rag.Answer
	if err := c.post(ctx, "/api/v1/ask", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
