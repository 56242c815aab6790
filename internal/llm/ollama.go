package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"blogflow/backend/pkg/models"
)

// OllamaBackend talks to a local model runner exposing /api/generate.
type OllamaBackend struct {
	name   string
	url    string
	client *http.Client
}

// NewOllamaBackend creates a new OllamaBackend.
func NewOllamaBackend(name, url string, client *http.Client) *OllamaBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &OllamaBackend{name: name, url: strings.TrimRight(url, "/"), client: client}
}

type ollamaRequest struct {
	Model       string         `json:"model"`
	Prompt      string         `json:"prompt"`
	Stream      bool           `json:"stream"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate returns the response text for a single non-streaming call.
func (b *OllamaBackend) Generate(ctx context.Context, req Request) (string, error) {
	options := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	requestBody, err := json.Marshal(ollamaRequest{
		Model:       req.Model,
		Prompt:      req.Prompt,
		Stream:      false,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Options:     options,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url+"/api/generate", bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", &models.LLMRequestError{Provider: b.name, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &models.LLMRequestError{Provider: b.name, StatusCode: resp.StatusCode, Message: upstreamMessage(resp.Body)}
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &models.LLMRequestError{Provider: b.name, StatusCode: resp.StatusCode, Message: "failed to decode response body", Err: err}
	}
	if out.Error != "" {
		return "", &models.LLMRequestError{Provider: b.name, StatusCode: resp.StatusCode, Message: out.Error}
	}
	return out.Response, nil
}

// upstreamMessage prefers the {"error": ...} field and falls back to the
// leading part of the body.
func upstreamMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 4096))
	var parsed ollamaResponse
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	return strings.TrimSpace(string(raw))
}
