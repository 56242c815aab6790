package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"blogflow/backend/pkg/models"
)

const stepColumns = `st.id, st.sub_stage_id, st.name, st.description, st.step_order, st.field_name,
	st.config, st.system_prompt, st.task_prompt, st.llm_action_id, s.name, ss.name`

const stepFrom = `FROM workflow_step_entity st
	JOIN workflow_sub_stage_entity ss ON ss.id = st.sub_stage_id
	JOIN workflow_stage_entity s ON s.id = ss.stage_id`

func scanStep(row pgx.Row) (*models.WorkflowStep, error) {
	var step models.WorkflowStep
	var config []byte
	err := row.Scan(&step.ID, &step.SubStageID, &step.Name, &step.Description, &step.Order, &step.FieldName,
		&config, &step.SystemPrompt, &step.TaskPrompt, &step.LLMActionID, &step.StageName, &step.SubStageName)
	if err != nil {
		return nil, err
	}
	if len(config) > 0 {
		step.Config = json.RawMessage(config)
	}
	return &step, nil
}

// ListStages returns the stages in display order, without children.
func (s *PostgresStore) ListStages(ctx context.Context) ([]*models.WorkflowStage, error) {
	rows, err := s.db.Query(ctx, "SELECT id, name, description, stage_order FROM workflow_stage_entity ORDER BY stage_order, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []*models.WorkflowStage
	for rows.Next() {
		var stage models.WorkflowStage
		if err := rows.Scan(&stage.ID, &stage.Name, &stage.Description, &stage.Order); err != nil {
			return nil, err
		}
		stages = append(stages, &stage)
	}
	return stages, rows.Err()
}

// WorkflowTree returns every stage with its substages and steps in display order.
func (s *PostgresStore) WorkflowTree(ctx context.Context) ([]*models.WorkflowStage, error) {
	stages, err := s.ListStages(ctx)
	if err != nil {
		return nil, err
	}
	byStage := make(map[int64]*models.WorkflowStage, len(stages))
	for _, stage := range stages {
		byStage[stage.ID] = stage
	}

	rows, err := s.db.Query(ctx, `SELECT id, stage_id, name, description, sub_stage_order
		FROM workflow_sub_stage_entity ORDER BY sub_stage_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bySubStage := make(map[int64]*models.WorkflowSubStage)
	for rows.Next() {
		var sub models.WorkflowSubStage
		if err := rows.Scan(&sub.ID, &sub.StageID, &sub.Name, &sub.Description, &sub.Order); err != nil {
			return nil, err
		}
		if stage, ok := byStage[sub.StageID]; ok {
			stage.SubStages = append(stage.SubStages, &sub)
			bySubStage[sub.ID] = &sub
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stepRows, err := s.db.Query(ctx, "SELECT "+stepColumns+" "+stepFrom+" ORDER BY st.step_order, st.id")
	if err != nil {
		return nil, err
	}
	defer stepRows.Close()
	for stepRows.Next() {
		step, err := scanStep(stepRows)
		if err != nil {
			return nil, err
		}
		if sub, ok := bySubStage[step.SubStageID]; ok {
			sub.Steps = append(sub.Steps, step)
		}
	}
	return stages, stepRows.Err()
}

// StepByID retrieves a step by its ID.
func (s *PostgresStore) StepByID(ctx context.Context, id int64) (*models.WorkflowStep, error) {
	step, err := scanStep(s.db.QueryRow(ctx, "SELECT "+stepColumns+" "+stepFrom+" WHERE st.id = $1", id))
	if err != nil {
		return nil, stepNotFound(err, fmt.Sprint(id))
	}
	return step, nil
}

// StepByPath retrieves a step by stage, substage and step name.
func (s *PostgresStore) StepByPath(ctx context.Context, stage, subStage, step string) (*models.WorkflowStep, error) {
	found, err := scanStep(s.db.QueryRow(ctx, "SELECT "+stepColumns+" "+stepFrom+
		" WHERE s.name = $1 AND ss.name = $2 AND st.name = $3", stage, subStage, step))
	if err != nil {
		return nil, stepNotFound(err, stage+"/"+subStage+"/"+step)
	}
	return found, nil
}

func stepNotFound(err error, ref string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.StepNotFoundError{Ref: ref}
	}
	return err
}

// EnsureStage inserts or updates a stage by name and sets its ID.
func (s *PostgresStore) EnsureStage(ctx context.Context, stage *models.WorkflowStage) error {
	return s.db.QueryRow(ctx, `INSERT INTO workflow_stage_entity (name, description, stage_order)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, stage_order = EXCLUDED.stage_order
		RETURNING id`, stage.Name, stage.Description, stage.Order).Scan(&stage.ID)
}

// EnsureSubStage inserts or updates a substage by (stage, name) and sets its ID.
func (s *PostgresStore) EnsureSubStage(ctx context.Context, sub *models.WorkflowSubStage) error {
	return s.db.QueryRow(ctx, `INSERT INTO workflow_sub_stage_entity (stage_id, name, description, sub_stage_order)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (stage_id, name) DO UPDATE SET description = EXCLUDED.description, sub_stage_order = EXCLUDED.sub_stage_order
		RETURNING id`, sub.StageID, sub.Name, sub.Description, sub.Order).Scan(&sub.ID)
}

// EnsureStep inserts or updates a step by (substage, name) and sets its ID.
func (s *PostgresStore) EnsureStep(ctx context.Context, step *models.WorkflowStep) error {
	var config *string
	if len(step.Config) > 0 {
		c := string(step.Config)
		config = &c
	}
	return s.db.QueryRow(ctx, `INSERT INTO workflow_step_entity
		(sub_stage_id, name, description, step_order, field_name, config, system_prompt, task_prompt, llm_action_id)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9)
		ON CONFLICT (sub_stage_id, name) DO UPDATE SET
			description = EXCLUDED.description,
			step_order = EXCLUDED.step_order,
			field_name = EXCLUDED.field_name,
			config = EXCLUDED.config,
			system_prompt = EXCLUDED.system_prompt,
			task_prompt = EXCLUDED.task_prompt,
			llm_action_id = EXCLUDED.llm_action_id
		RETURNING id`,
		step.SubStageID, step.Name, step.Description, step.Order, step.FieldName, config,
		step.SystemPrompt, step.TaskPrompt, step.LLMActionID).Scan(&step.ID)
}
