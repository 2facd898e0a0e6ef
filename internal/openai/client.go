package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"zubi/internal/utils"
)

var (
	ErrEmptyCompletion = errors.New("no completion choices returned")
	ErrInvalidJSON     = errors.New("completion is not a JSON object")
)

// Completer is the language-model capability the chatbot depends on.
type Completer interface {
	// Complete returns free text for a system and user prompt.
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
	// CompleteJSON asks for a single JSON object and returns it raw.
	CompleteJSON(ctx context.Context, prompt string) (json.RawMessage, error)
}

type Client struct {
	client *resty.Client
	model  string
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage TokenUsage `json:"usage"`
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(apiKey, baseURL, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is not set")
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey).
		SetTimeout(timeout)

	return &Client{client: c, model: model}, nil
}

func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	var messages []ChatMessage
	if systemPrompt != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: userPrompt})

	content, _, err := c.chat(ctx, ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   800,
	})
	return strings.TrimSpace(content), err
}

func (c *Client) CompleteJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	content, _, err := c.chat(ctx, ChatCompletionRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: "Responda apenas com um objeto JSON válido."},
			{Role: "user", Content: prompt},
		},
		Temperature:    0,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	obj, ok := utils.ExtractJSONObject(content)
	if !ok || !json.Valid([]byte(obj)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJSON, content)
	}
	return json.RawMessage(obj), nil
}

func (c *Client) chat(ctx context.Context, req ChatCompletionRequest) (string, TokenUsage, error) {
	var result ChatCompletionResponse
	var apiErr errorResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&req).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", TokenUsage{}, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		if apiErr.Error.Message != "" {
			return "", TokenUsage{}, fmt.Errorf("OpenAI API error: %s", apiErr.Error.Message)
		}
		return "", TokenUsage{}, fmt.Errorf("OpenAI API returned non-200 status code: %d", resp.StatusCode())
	}

	if len(result.Choices) == 0 {
		return "", result.Usage, ErrEmptyCompletion
	}
	return result.Choices[0].Message.Content, result.Usage, nil
}
