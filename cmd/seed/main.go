// Command seed loads the default blog workflow and LLM providers. Running it
// again updates existing rows in place.
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"blogflow/backend/internal/config"
	"blogflow/backend/internal/logging"
	"blogflow/backend/internal/repository"
	"blogflow/backend/internal/schema"
	"blogflow/backend/internal/workflow"
	"blogflow/backend/pkg/models"
)

//go:embed workflow.yaml
var defaultWorkflow []byte

type seedFile struct {
	Stages    []seedStage    `yaml:"stages"`
	Providers []seedProvider `yaml:"providers"`
}

type seedStage struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	SubStages   []seedSubStage `yaml:"sub_stages"`
}

type seedSubStage struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Steps       []seedStep `yaml:"steps"`
}

type seedStep struct {
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	FieldName    string         `yaml:"field_name"`
	Config       map[string]any `yaml:"config"`
	SystemPrompt string         `yaml:"system_prompt"`
	TaskPrompt   string         `yaml:"task_prompt"`
}

type seedProvider struct {
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"`
	APIURL string   `yaml:"api_url"`
	Token  string   `yaml:"auth_token"`
	Models []string `yaml:"models"`
}

// seedStore is the part of the repository the seed writes through.
type seedStore interface {
	EnsureStage(ctx context.Context, stage *models.WorkflowStage) error
	EnsureSubStage(ctx context.Context, subStage *models.WorkflowSubStage) error
	EnsureStep(ctx context.Context, step *models.WorkflowStep) error
	GetLLMProviderByName(ctx context.Context, name string) (*models.LLMProvider, error)
	CreateLLMProvider(ctx context.Context, p *models.LLMProvider) error
	CreateLLMModel(ctx context.Context, m *models.LLMModel) error
}

func parseSeed(data []byte) (*seedFile, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse workflow file: %w", err)
	}
	if len(f.Stages) == 0 {
		return nil, errors.New("workflow file defines no stages")
	}
	return &f, nil
}

// toStep converts a seed step, checking that its mapping resolves to columns
// the registry knows. A legacy field_name that is not a post_development
// column is rejected here rather than failing at run time.
func toStep(reg *schema.Registry, s seedStep, subStageID int64, order int) (*models.WorkflowStep, error) {
	step := &models.WorkflowStep{
		SubStageID:   subStageID,
		Name:         s.Name,
		Description:  s.Description,
		Order:        order,
		SystemPrompt: s.SystemPrompt,
		TaskPrompt:   s.TaskPrompt,
	}
	if s.FieldName != "" {
		name := s.FieldName
		step.FieldName = &name
	}
	if s.Config != nil {
		raw, err := json.Marshal(s.Config)
		if err != nil {
			return nil, fmt.Errorf("step %q: encode config: %w", s.Name, err)
		}
		step.Config = raw
	}
	b, err := workflow.Resolve(step)
	if err != nil {
		return nil, fmt.Errorf("step %q: %w", s.Name, err)
	}
	if _, err := reg.Column(b.Output); err != nil {
		if b.Scheme == "legacy" {
			return nil, fmt.Errorf("step %q: legacy field_name must name a %s column, use config.outputs.output1 with a table: %w",
				s.Name, workflow.DefaultTable, err)
		}
		return nil, fmt.Errorf("step %q: output: %w", s.Name, err)
	}
	for _, in := range b.Inputs {
		if _, err := reg.Column(models.ColumnRef{Table: in.Table, Column: in.Column}); err != nil {
			return nil, fmt.Errorf("step %q: input %s: %w", s.Name, in.Name, err)
		}
	}
	return step, nil
}

func seed(ctx context.Context, store seedStore, reg *schema.Registry, f *seedFile, logger *logging.Logger) error {
	var steps int
	for i, st := range f.Stages {
		stage := &models.WorkflowStage{Name: st.Name, Description: st.Description, Order: i + 1}
		if err := store.EnsureStage(ctx, stage); err != nil {
			return fmt.Errorf("stage %q: %w", st.Name, err)
		}
		for j, ss := range st.SubStages {
			sub := &models.WorkflowSubStage{StageID: stage.ID, Name: ss.Name, Description: ss.Description, Order: j + 1}
			if err := store.EnsureSubStage(ctx, sub); err != nil {
				return fmt.Errorf("sub-stage %q: %w", ss.Name, err)
			}
			for k, s := range ss.Steps {
				step, err := toStep(reg, s, sub.ID, k+1)
				if err != nil {
					return err
				}
				if err := store.EnsureStep(ctx, step); err != nil {
					return fmt.Errorf("step %q: %w", s.Name, err)
				}
				steps++
			}
		}
	}
	logger.Info("Seeded workflow", "stages", len(f.Stages), "steps", steps)

	for _, p := range f.Providers {
		if existing, err := store.GetLLMProviderByName(ctx, p.Name); err == nil {
			logger.Info("Skipping existing provider", "name", p.Name, "id", existing.ID)
			continue
		}
		provider := &models.LLMProvider{Name: p.Name, Type: p.Type, APIURL: p.APIURL, AuthToken: p.Token}
		if err := store.CreateLLMProvider(ctx, provider); err != nil {
			return fmt.Errorf("provider %q: %w", p.Name, err)
		}
		for _, name := range p.Models {
			if err := store.CreateLLMModel(ctx, &models.LLMModel{ProviderID: provider.ID, Name: name}); err != nil {
				return fmt.Errorf("provider %q model %q: %w", p.Name, name, err)
			}
		}
		logger.Info("Seeded provider", "name", p.Name, "models", len(p.Models))
	}
	return nil
}

func main() {
	ctx := context.Background()

	envFile := flag.String("env", "", "Path to .env file")
	file := flag.String("file", "", "Workflow YAML to load instead of the built-in default")
	flag.Parse()

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	data := defaultWorkflow
	if *file != "" {
		if data, err = os.ReadFile(*file); err != nil {
			log.Fatalf("Failed to read %s: %v", *file, err)
		}
	}
	f, err := parseSeed(data)
	if err != nil {
		log.Fatalf("Invalid workflow file: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	if err := seed(ctx, repository.NewPostgresStore(pool), schema.Default(), f, logger); err != nil {
		logger.Error("Seeding failed", "error", err)
		pool.Close()
		os.Exit(1)
	}
	logger.Info("Seeding complete!")
}
