package repository

import (
	"context"

	"blogflow/backend/pkg/models"
)

// RecordStepRun stores the audit record of one step execution.
func (s *PostgresStore) RecordStepRun(ctx context.Context, run *models.StepRun) error {
	_, err := s.db.Exec(ctx, `INSERT INTO workflow_step_run
		(id, post_id, step_id, section_id, provider, model, prompt, raw_response, stored_value, status, error, triggered_by, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		run.ID, run.PostID, run.StepID, run.SectionID, run.Provider, run.Model, run.Prompt,
		run.RawResponse, run.StoredValue, run.Status, run.Error, run.TriggeredBy, run.CreatedAt)
	return err
}

// ListStepRuns returns the most recent runs for a post.
func (s *PostgresStore) ListStepRuns(ctx context.Context, postID int64, limit int) ([]*models.StepRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `SELECT id::text, post_id, step_id, section_id, provider, model, prompt,
		raw_response, stored_value, status, error, triggered_by, created_at
		FROM workflow_step_run WHERE post_id = $1 ORDER BY created_at DESC LIMIT $2`, postID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*models.StepRun{}
	for rows.Next() {
		var r models.StepRun
		err := rows.Scan(&r.ID, &r.PostID, &r.StepID, &r.SectionID, &r.Provider, &r.Model, &r.Prompt,
			&r.RawResponse, &r.StoredValue, &r.Status, &r.Error, &r.TriggeredBy, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}
