package models

import "time"

// Provider types understood by the LLM invoker.
const (
	ProviderTypeOllama = "ollama"
	ProviderTypeOpenAI = "openai"
)

// LLMProvider is a configured model backend.
type LLMProvider struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	APIURL    string     `json:"api_url"`
	AuthToken string     `json:"-"`
	Models    []LLMModel `json:"models,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// LLMModel is a model registered on a provider.
type LLMModel struct {
	ID         int64  `json:"id"`
	ProviderID int64  `json:"provider_id"`
	Name       string `json:"name"`
}

// LLMAction is a reusable prompt template with default call parameters that
// can be bound to a workflow step.
type LLMAction struct {
	ID             int64     `json:"id"`
	FieldName      string    `json:"field_name"`
	PromptTemplate string    `json:"prompt_template"`
	Model          string    `json:"llm_model"`
	ProviderID     *int64    `json:"provider_id,omitempty"`
	ProviderName   string    `json:"provider_name,omitempty"`
	Temperature    float64   `json:"temperature"`
	MaxTokens      int       `json:"max_tokens"`
	CreatedAt      time.Time `json:"created_at"`
}
