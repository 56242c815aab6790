package services

import (
	"context"
	"strings"

	"blogflow/backend/internal/logging"
	"blogflow/backend/internal/schema"
	"blogflow/backend/pkg/models"
)

const (
	developmentTable = "post_development"
	sectionTable     = "post_section"
)

// PostService is a service for managing posts and their sections.
type PostService struct {
	store    PostRepository
	registry *schema.Registry
	logger   *logging.Logger
}

// NewPostService creates a new PostService.
func NewPostService(store PostRepository, registry *schema.Registry, logger *logging.Logger) *PostService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &PostService{store: store, registry: registry, logger: logger}
}

// Create creates a new draft post.
func (s *PostService) Create(ctx context.Context, title string) (*models.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &models.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	post, err := s.store.CreatePost(ctx, title)
	if err != nil {
		return nil, err
	}
	s.logger.Info("post created", "post_id", post.ID)
	return post, nil
}

// Get retrieves a post.
func (s *PostService) Get(ctx context.Context, id int64) (*models.Post, error) {
	return s.store.GetPost(ctx, id)
}

// List lists posts, optionally by status.
func (s *PostService) List(ctx context.Context, status models.PostStatus) ([]*models.Post, error) {
	if status != "" && !status.Valid() {
		return nil, &models.ValidationError{Field: "status", Reason: "unknown status " + string(status)}
	}
	return s.store.ListPosts(ctx, status)
}

// Rename changes a post's title.
func (s *PostService) Rename(ctx context.Context, id int64, title string) (*models.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &models.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return s.store.UpdatePostTitle(ctx, id, title)
}

// Transition moves a post to a new status if the lifecycle allows it.
func (s *PostService) Transition(ctx context.Context, id int64, to models.PostStatus) (*models.Post, error) {
	if !to.Valid() {
		return nil, &models.ValidationError{Field: "status", Reason: "unknown status " + string(to)}
	}
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.Status.CanTransition(to) {
		return nil, &models.InvalidTransitionError{From: post.Status, To: to}
	}
	updated, err := s.store.SetPostStatus(ctx, id, post.Status, to)
	if err != nil {
		return nil, err
	}
	s.logger.Info("post status changed", "post_id", id, "from", post.Status, "to", to)
	return updated, nil
}

// Development returns the non-empty workflow fields of a post.
func (s *PostService) Development(ctx context.Context, id int64) (*models.PostDevelopment, error) {
	t, err := s.registry.Table(developmentTable)
	if err != nil {
		return nil, err
	}
	fields, err := s.store.FetchRow(ctx, t, models.RowKey{PostID: id})
	if err != nil {
		return nil, err
	}
	return &models.PostDevelopment{PostID: id, Fields: fields}, nil
}

// UpdateDevelopment sets workflow fields by hand.
func (s *PostService) UpdateDevelopment(ctx context.Context, id int64, fields map[string]string) (*models.PostDevelopment, error) {
	if err := s.update(ctx, developmentTable, models.RowKey{PostID: id}, fields); err != nil {
		return nil, err
	}
	return s.Development(ctx, id)
}

// Sections lists the sections of a post in order.
func (s *PostService) Sections(ctx context.Context, postID int64) ([]*models.PostSection, error) {
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.ListSections(ctx, postID)
}

// AddSection appends a section.
func (s *PostService) AddSection(ctx context.Context, postID int64, heading, description string) (*models.PostSection, error) {
	heading = strings.TrimSpace(heading)
	if heading == "" {
		return nil, &models.ValidationError{Field: "section_heading", Reason: "must not be empty"}
	}
	return s.store.CreateSection(ctx, postID, heading, strings.TrimSpace(description))
}

// UpdateSection sets section fields by hand.
func (s *PostService) UpdateSection(ctx context.Context, postID, sectionID int64, fields map[string]string) (*models.PostSection, error) {
	if err := s.update(ctx, sectionTable, models.RowKey{PostID: postID, SectionID: &sectionID}, fields); err != nil {
		return nil, err
	}
	return s.store.GetSection(ctx, postID, sectionID)
}

// RemoveSection deletes a section; later sections move up.
func (s *PostService) RemoveSection(ctx context.Context, postID, sectionID int64) error {
	if err := s.store.DeleteSection(ctx, postID, sectionID); err != nil {
		return err
	}
	s.logger.Info("section deleted", "post_id", postID, "section_id", sectionID)
	return nil
}

// ReorderSections rewrites the order of all sections of a post.
func (s *PostService) ReorderSections(ctx context.Context, postID int64, ids []int64) ([]*models.PostSection, error) {
	if len(ids) == 0 {
		return nil, &models.ValidationError{Field: "section_ids", Reason: "must not be empty"}
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, &models.ValidationError{Field: "section_ids", Reason: "lists a section twice"}
		}
		seen[id] = struct{}{}
	}
	current, err := s.store.ListSections(ctx, postID)
	if err != nil {
		return nil, err
	}
	if len(current) != len(ids) {
		return nil, &models.ValidationError{Field: "section_ids", Reason: "must list every section of the post"}
	}
	for _, sec := range current {
		if _, ok := seen[sec.ID]; !ok {
			return nil, &models.ValidationError{Field: "section_ids", Reason: "must list every section of the post"}
		}
	}
	if err := s.store.ReorderSections(ctx, postID, ids); err != nil {
		return nil, err
	}
	return s.store.ListSections(ctx, postID)
}

// Runs lists recent step runs of a post.
func (s *PostService) Runs(ctx context.Context, postID int64, limit int) ([]*models.StepRun, error) {
	return s.store.ListStepRuns(ctx, postID, limit)
}

func (s *PostService) update(ctx context.Context, table string, key models.RowKey, fields map[string]string) error {
	if len(fields) == 0 {
		return &models.ValidationError{Field: "fields", Reason: "must not be empty"}
	}
	t, err := s.registry.Table(table)
	if err != nil {
		return err
	}
	for column := range fields {
		if _, err := s.registry.Column(models.ColumnRef{Table: table, Column: column}); err != nil {
			return err
		}
	}
	n, err := s.store.UpdateColumns(ctx, t, key, fields)
	if err != nil {
		return err
	}
	if n == 0 {
		return &models.NotFoundError{Resource: table + " row", Key: key.String()}
	}
	return nil
}
