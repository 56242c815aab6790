package llm

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"blogflow/backend/pkg/models"
)

// OpenAIBackend calls an OpenAI-compatible chat completions API with a bearer
// token.
type OpenAIBackend struct {
	name   string
	client *openai.Client
}

// NewOpenAIBackend creates a new OpenAIBackend. baseURL includes the API
// version path, e.g. https://api.openai.com/v1.
func NewOpenAIBackend(name, baseURL, token string, client *http.Client) *OpenAIBackend {
	cfg := openai.DefaultConfig(token)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if client != nil {
		cfg.HTTPClient = client
	}
	return &OpenAIBackend{name: name, client: openai.NewClientWithConfig(cfg)}
}

// Generate sends the prompt as a single user message and returns the first
// choice.
func (b *OpenAIBackend) Generate(ctx context.Context, req Request) (string, error) {
	// go-openai omits a zero temperature, which the API reads as 1.0.
	temperature := float32(req.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", b.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &models.LLMRequestError{Provider: b.name, StatusCode: http.StatusOK, Message: "response has no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *OpenAIBackend) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &models.LLMRequestError{Provider: b.name, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &models.LLMRequestError{Provider: b.name, StatusCode: reqErr.HTTPStatusCode, Message: msg, Err: err}
	}
	return &models.LLMRequestError{Provider: b.name, Message: "request failed", Err: err}
}
