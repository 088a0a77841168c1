package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Options configures an OpenAIClient.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// OpenAIClient talks to OpenAI or any OpenAI-compatible server.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	temp    float32
	timeout time.Duration
}

// NewOpenAIClient creates a chat client. A base URL without an API key is
// allowed for local OpenAI-compatible servers.
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if opts.APIKey == "" && opts.BaseURL == "" {
		return nil, fmt.Errorf("llm requires an API key or a base URL")
	}
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = "dummy-key"
	}
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	model := opts.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		temp:    opts.Temperature,
		timeout: opts.Timeout,
	}, nil
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	return c.chat(ctx, system, user, false)
}

// CompleteJSON implements Client.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	return c.chat(ctx, system, user, true)
}

func (c *OpenAIClient) chat(ctx context.Context, system, user string, jsonOutput bool) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temp,
	}
	if jsonOutput {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
