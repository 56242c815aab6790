package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"blogflow/backend/pkg/models"
)

// ListLLMProviders returns every provider with its registered models.
func (s *PostgresStore) ListLLMProviders(ctx context.Context) ([]*models.LLMProvider, error) {
	rows, err := s.db.Query(ctx, "SELECT id, name, type, api_url, auth_token, created_at FROM llm_provider ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	providers := []*models.LLMProvider{}
	byID := make(map[int64]*models.LLMProvider)
	for rows.Next() {
		var p models.LLMProvider
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.APIURL, &p.AuthToken, &p.CreatedAt); err != nil {
			return nil, err
		}
		providers = append(providers, &p)
		byID[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	modelRows, err := s.db.Query(ctx, "SELECT id, provider_id, name FROM llm_model ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer modelRows.Close()
	for modelRows.Next() {
		var m models.LLMModel
		if err := modelRows.Scan(&m.ID, &m.ProviderID, &m.Name); err != nil {
			return nil, err
		}
		if p, ok := byID[m.ProviderID]; ok {
			p.Models = append(p.Models, m)
		}
	}
	return providers, modelRows.Err()
}

// GetLLMProviderByName retrieves a provider, including its credential.
func (s *PostgresStore) GetLLMProviderByName(ctx context.Context, name string) (*models.LLMProvider, error) {
	var p models.LLMProvider
	err := s.db.QueryRow(ctx, "SELECT id, name, type, api_url, auth_token, created_at FROM llm_provider WHERE name = $1", name).
		Scan(&p.ID, &p.Name, &p.Type, &p.APIURL, &p.AuthToken, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err, "llm provider", name)
	}
	return &p, nil
}

// CreateLLMProvider registers a provider.
func (s *PostgresStore) CreateLLMProvider(ctx context.Context, p *models.LLMProvider) error {
	err := s.db.QueryRow(ctx, `INSERT INTO llm_provider (name, type, api_url, auth_token)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`, p.Name, p.Type, p.APIURL, p.AuthToken).
		Scan(&p.ID, &p.CreatedAt)
	if pgCode(err) == pgUniqueViolation {
		return &models.ConflictError{Resource: "llm provider", Key: p.Name}
	}
	return err
}

// CreateLLMModel registers a model on a provider.
func (s *PostgresStore) CreateLLMModel(ctx context.Context, m *models.LLMModel) error {
	err := s.db.QueryRow(ctx, "INSERT INTO llm_model (provider_id, name) VALUES ($1, $2) RETURNING id", m.ProviderID, m.Name).Scan(&m.ID)
	switch pgCode(err) {
	case pgUniqueViolation:
		return &models.ConflictError{Resource: "llm model", Key: m.Name}
	case pgForeignKeyViolation:
		return &models.NotFoundError{Resource: "llm provider", Key: fmt.Sprint(m.ProviderID)}
	}
	return err
}

const actionSelect = `SELECT a.id, a.field_name, a.prompt_template, a.llm_model, a.provider_id, COALESCE(p.name, ''),
	a.temperature, a.max_tokens, a.created_at
	FROM llm_action a LEFT JOIN llm_provider p ON p.id = a.provider_id`

func scanAction(row pgx.Row) (*models.LLMAction, error) {
	var a models.LLMAction
	err := row.Scan(&a.ID, &a.FieldName, &a.PromptTemplate, &a.Model, &a.ProviderID, &a.ProviderName,
		&a.Temperature, &a.MaxTokens, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListLLMActions returns every action.
func (s *PostgresStore) ListLLMActions(ctx context.Context) ([]*models.LLMAction, error) {
	rows, err := s.db.Query(ctx, actionSelect+" ORDER BY a.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actions := []*models.LLMAction{}
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// GetLLMAction retrieves an action with its provider name.
func (s *PostgresStore) GetLLMAction(ctx context.Context, id int64) (*models.LLMAction, error) {
	a, err := scanAction(s.db.QueryRow(ctx, actionSelect+" WHERE a.id = $1", id))
	if err != nil {
		return nil, notFound(err, "llm action", id)
	}
	return a, nil
}

// CreateLLMAction stores an action. The provider may be given by ID or by
// name.
func (s *PostgresStore) CreateLLMAction(ctx context.Context, a *models.LLMAction) error {
	if a.ProviderID == nil && a.ProviderName != "" {
		p, err := s.GetLLMProviderByName(ctx, a.ProviderName)
		if err != nil {
			return err
		}
		a.ProviderID = &p.ID
	}
	err := s.db.QueryRow(ctx, `INSERT INTO llm_action (field_name, prompt_template, llm_model, provider_id, temperature, max_tokens)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		a.FieldName, a.PromptTemplate, a.Model, a.ProviderID, a.Temperature, a.MaxTokens).
		Scan(&a.ID, &a.CreatedAt)
	if pgCode(err) == pgForeignKeyViolation {
		return &models.NotFoundError{Resource: "llm provider", Key: fmt.Sprint(*a.ProviderID)}
	}
	return err
}
