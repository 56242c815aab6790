package services

import (
	"context"

	"blogflow/backend/internal/schema"
	"blogflow/backend/pkg/models"
)

// PostRepository is the persistence PostService relies on.
type PostRepository interface {
	CreatePost(ctx context.Context, title string) (*models.Post, error)
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	ListPosts(ctx context.Context, status models.PostStatus) ([]*models.Post, error)
	UpdatePostTitle(ctx context.Context, id int64, title string) (*models.Post, error)
	SetPostStatus(ctx context.Context, id int64, from, to models.PostStatus) (*models.Post, error)
	ListSections(ctx context.Context, postID int64) ([]*models.PostSection, error)
	GetSection(ctx context.Context, postID, sectionID int64) (*models.PostSection, error)
	CreateSection(ctx context.Context, postID int64, heading, description string) (*models.PostSection, error)
	DeleteSection(ctx context.Context, postID, sectionID int64) error
	ReorderSections(ctx context.Context, postID int64, ids []int64) error
	FetchRow(ctx context.Context, t *schema.Table, key models.RowKey) (map[string]string, error)
	UpdateColumns(ctx context.Context, t *schema.Table, key models.RowKey, values map[string]string) (int64, error)
	ListStepRuns(ctx context.Context, postID int64, limit int) ([]*models.StepRun, error)
}
