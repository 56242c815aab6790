package models

import (
	"encoding/json"
	"time"
)

// WorkflowStage is the top level of the workflow hierarchy (Idea, Research, ...).
type WorkflowStage struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Order       int                 `json:"order"`
	SubStages   []*WorkflowSubStage `json:"sub_stages,omitempty"`
}

// WorkflowSubStage belongs to exactly one stage.
type WorkflowSubStage struct {
	ID          int64           `json:"id"`
	StageID     int64           `json:"stage_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Order       int             `json:"order"`
	Steps       []*WorkflowStep `json:"steps,omitempty"`
}

// WorkflowStep is a single LLM-backed unit of work. Its field mapping is
// either the legacy FieldName or the modern Config document.
type WorkflowStep struct {
	ID           int64           `json:"id"`
	SubStageID   int64           `json:"sub_stage_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Order        int             `json:"order"`
	FieldName    *string         `json:"field_name,omitempty"`
	Config       json.RawMessage `json:"config,omitempty"`
	SystemPrompt string          `json:"system_prompt,omitempty"`
	TaskPrompt   string          `json:"task_prompt,omitempty"`
	LLMActionID  *int64          `json:"llm_action_id,omitempty"`

	// Populated by joins when the step is loaded through the hierarchy.
	StageName    string `json:"stage_name,omitempty"`
	SubStageName string `json:"sub_stage_name,omitempty"`
}

// Step run statuses
const (
	StepRunSucceeded   = "succeeded"
	StepRunLLMFailed   = "llm_failed"
	StepRunWriteFailed = "write_failed"
)

// StepRun is the audit record of one workflow step execution.
type StepRun struct {
	ID          string    `json:"id"`
	PostID      int64     `json:"post_id"`
	StepID      int64     `json:"step_id"`
	SectionID   *int64    `json:"section_id,omitempty"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Prompt      string    `json:"prompt"`
	RawResponse string    `json:"raw_response,omitempty"`
	StoredValue string    `json:"stored_value,omitempty"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	TriggeredBy string    `json:"triggered_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
