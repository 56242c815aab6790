package repository

import (
	"context"

	"blogflow/backend/internal/schema"
	"blogflow/backend/pkg/models"
)

// WorkflowStore reads the stage/substage/step hierarchy and seeds it.
type WorkflowStore interface {
	// ListStages returns the stages in display order, without children.
	ListStages(ctx context.Context) ([]*models.WorkflowStage, error)
	// WorkflowTree returns every stage with its substages and steps.
	WorkflowTree(ctx context.Context) ([]*models.WorkflowStage, error)
	// StepByID retrieves a step by its ID.
	StepByID(ctx context.Context, id int64) (*models.WorkflowStep, error)
	// StepByPath retrieves a step by stage, substage and step name.
	StepByPath(ctx context.Context, stage, subStage, step string) (*models.WorkflowStep, error)
	// EnsureStage inserts or updates a stage by name and sets its ID.
	EnsureStage(ctx context.Context, stage *models.WorkflowStage) error
	// EnsureSubStage inserts or updates a substage by (stage, name) and sets its ID.
	EnsureSubStage(ctx context.Context, subStage *models.WorkflowSubStage) error
	// EnsureStep inserts or updates a step by (substage, name) and sets its ID.
	EnsureStep(ctx context.Context, step *models.WorkflowStep) error
}

// PostStore manages posts and their sections.
type PostStore interface {
	// CreatePost creates a post together with its post_development row.
	CreatePost(ctx context.Context, title string) (*models.Post, error)
	// GetPost retrieves a post by its ID.
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	// ListPosts lists posts, optionally filtered by status. Deleted posts are
	// only listed when asked for explicitly.
	ListPosts(ctx context.Context, status models.PostStatus) ([]*models.Post, error)
	// UpdatePostTitle renames a post.
	UpdatePostTitle(ctx context.Context, id int64, title string) (*models.Post, error)
	// SetPostStatus moves a post from one status to another. It reports a
	// NotFoundError when the post is missing or no longer in status from.
	SetPostStatus(ctx context.Context, id int64, from, to models.PostStatus) (*models.Post, error)
	// ListSections returns the sections of a post in order.
	ListSections(ctx context.Context, postID int64) ([]*models.PostSection, error)
	// GetSection retrieves one section of a post.
	GetSection(ctx context.Context, postID, sectionID int64) (*models.PostSection, error)
	// CreateSection appends a section to a post.
	CreateSection(ctx context.Context, postID int64, heading, description string) (*models.PostSection, error)
	// DeleteSection removes a section and renumbers the remaining ones.
	DeleteSection(ctx context.Context, postID, sectionID int64) error
	// ReorderSections rewrites section order to follow ids.
	ReorderSections(ctx context.Context, postID int64, ids []int64) error
}

// LLMStore manages providers, models and reusable actions.
type LLMStore interface {
	ListLLMProviders(ctx context.Context) ([]*models.LLMProvider, error)
	GetLLMProviderByName(ctx context.Context, name string) (*models.LLMProvider, error)
	CreateLLMProvider(ctx context.Context, p *models.LLMProvider) error
	CreateLLMModel(ctx context.Context, m *models.LLMModel) error
	ListLLMActions(ctx context.Context) ([]*models.LLMAction, error)
	GetLLMAction(ctx context.Context, id int64) (*models.LLMAction, error)
	CreateLLMAction(ctx context.Context, a *models.LLMAction) error
}

// ColumnStore reads and writes registry-validated columns.
type ColumnStore interface {
	FetchColumn(ctx context.Context, t *schema.Table, column string, key models.RowKey) (string, error)
	WriteColumn(ctx context.Context, t *schema.Table, column string, key models.RowKey, value string) (int64, error)
	// FetchRow returns the non-null registry columns of one row.
	FetchRow(ctx context.Context, t *schema.Table, key models.RowKey) (map[string]string, error)
	// UpdateColumns sets several columns of one row in a single statement.
	UpdateColumns(ctx context.Context, t *schema.Table, key models.RowKey, values map[string]string) (int64, error)
	// ListColumns reads the physical columns of a table for registry verification.
	ListColumns(ctx context.Context, table string) ([]string, error)
}

// StepRunStore keeps the audit trail of step executions.
type StepRunStore interface {
	RecordStepRun(ctx context.Context, run *models.StepRun) error
	ListStepRuns(ctx context.Context, postID int64, limit int) ([]*models.StepRun, error)
}

// Repository is everything the service needs from the database.
type Repository interface {
	WorkflowStore
	PostStore
	LLMStore
	ColumnStore
	StepRunStore
	Ping(ctx context.Context) error
}
