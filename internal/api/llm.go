package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"blogflow/backend/pkg/models"
)

// LLMConfigStore manages providers, models and actions.
type LLMConfigStore interface {
	ListLLMProviders(ctx context.Context) ([]*models.LLMProvider, error)
	CreateLLMProvider(ctx context.Context, p *models.LLMProvider) error
	CreateLLMModel(ctx context.Context, m *models.LLMModel) error
	ListLLMActions(ctx context.Context) ([]*models.LLMAction, error)
	GetLLMAction(ctx context.Context, id int64) (*models.LLMAction, error)
	CreateLLMAction(ctx context.Context, a *models.LLMAction) error
}

// ListProviders returns providers with their models
// (GET /api/v1/llm/providers)
func (s *Server) ListProviders(c echo.Context) error {
	providers, err := s.LLM.ListLLMProviders(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, providers)
}

type providerRequest struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	APIURL    string   `json:"api_url"`
	AuthToken string   `json:"auth_token"`
	Models    []string `json:"models"`
}

// CreateProvider registers a provider and its models
// (POST /api/v1/llm/providers)
func (s *Server) CreateProvider(c echo.Context) error {
	var body providerRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	switch {
	case strings.TrimSpace(body.Name) == "":
		return &models.ValidationError{Field: "name", Reason: "must not be empty"}
	case body.Type != models.ProviderTypeOllama && body.Type != models.ProviderTypeOpenAI:
		return &models.ValidationError{Field: "type", Reason: "must be ollama or openai"}
	case body.APIURL == "":
		return &models.ValidationError{Field: "api_url", Reason: "must not be empty"}
	}

	ctx := c.Request().Context()
	p := &models.LLMProvider{Name: strings.TrimSpace(body.Name), Type: body.Type, APIURL: body.APIURL, AuthToken: body.AuthToken}
	if err := s.LLM.CreateLLMProvider(ctx, p); err != nil {
		return err
	}
	for _, name := range body.Models {
		m := models.LLMModel{ProviderID: p.ID, Name: name}
		if err := s.LLM.CreateLLMModel(ctx, &m); err != nil {
			return err
		}
		p.Models = append(p.Models, m)
	}
	return c.JSON(http.StatusCreated, p)
}

// ListActions returns every LLM action
// (GET /api/v1/llm/actions)
func (s *Server) ListActions(c echo.Context) error {
	actions, err := s.LLM.ListLLMActions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, actions)
}

// GetAction returns one LLM action
// (GET /api/v1/llm/actions/{id})
func (s *Server) GetAction(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	action, err := s.LLM.GetLLMAction(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, action)
}

// defaultActionTemperature matches the llm_action column default.
const defaultActionTemperature = 0.7

// createActionRequest distinguishes an omitted temperature from an explicit 0.
type createActionRequest struct {
	models.LLMAction
	Temperature *float64 `json:"temperature"`
}

// CreateAction stores a reusable prompt template
// (POST /api/v1/llm/actions)
func (s *Server) CreateAction(c echo.Context) error {
	var req createActionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	action := req.LLMAction
	switch {
	case req.Temperature == nil:
		action.Temperature = defaultActionTemperature
	case *req.Temperature < 0:
		return &models.ValidationError{Field: "temperature", Reason: "must not be negative"}
	default:
		action.Temperature = *req.Temperature
	}
	if strings.TrimSpace(action.PromptTemplate) == "" {
		return &models.ValidationError{Field: "prompt_template", Reason: "must not be empty"}
	}
	if action.MaxTokens == 0 {
		action.MaxTokens = 1000
	}
	if action.MaxTokens < 0 {
		return &models.ValidationError{Field: "max_tokens", Reason: "must be positive"}
	}
	if err := s.LLM.CreateLLMAction(c.Request().Context(), &action); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, action)
}
