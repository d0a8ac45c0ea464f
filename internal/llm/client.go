package llm

import (
	"cmp"
	"context"
	"errors"
	"log/slog"

	"lecture-qa/internal/contextutil"
)

const chatPath = "/v1/chat/completions"

// Client answers chat completions. It implements the completion collaborator
// of the answer pipeline.
type Client struct {
	endpoint
	model string
}

// NewClient creates a client for baseURL; model is used unless ChatParams overrides it.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		endpoint: newEndpoint(baseURL, apiKey),
		model:    model,
	}
}

// ChatRequest is the body of a chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float32  `json:"temperature,omitempty"`
}

// ChatChoice is one generated reply.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage is the token accounting some servers return.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ChatResponse is the reply to a ChatRequest.
type ChatResponse struct {
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

// Complete returns the content of the first choice.
func (c *Client) Complete(ctx context.Context, messages []Message, params ChatParams) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("no messages to complete")
	}

	temperature := cmp.Or(params.Temperature, DefaultTemperature)
	req := ChatRequest{
		Model:       cmp.Or(params.Model, c.model),
		Messages:    messages,
		MaxTokens:   params.MaxTokens,
		Temperature: &temperature,
	}

	var resp ChatResponse
	if err := c.postJSON(ctx, chatPath, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	choice := resp.Choices[0]
	if resp.Usage != nil || choice.FinishReason == "length" {
		logger := contextutil.LoggerFromContext(ctx)
		attrs := []any{"model", req.Model, "finish_reason", choice.FinishReason}
		if resp.Usage != nil {
			attrs = append(attrs, "prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
		}
		logger.Log(ctx, slog.LevelDebug, "completion usage", attrs...)
	}
	return choice.Message.Content, nil
}
