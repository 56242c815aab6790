package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"blogflow/backend/internal/schema"
	"blogflow/backend/pkg/models"
)

type mockPostRepository struct {
	mock.Mock
}

func (m *mockPostRepository) CreatePost(ctx context.Context, title string) (*models.Post, error) {
	args := m.Called(ctx, title)
	p, _ := args.Get(0).(*models.Post)
	return p, args.Error(1)
}

func (m *mockPostRepository) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Post)
	return p, args.Error(1)
}

func (m *mockPostRepository) ListPosts(ctx context.Context, status models.PostStatus) ([]*models.Post, error) {
	args := m.Called(ctx, status)
	p, _ := args.Get(0).([]*models.Post)
	return p, args.Error(1)
}

func (m *mockPostRepository) UpdatePostTitle(ctx context.Context, id int64, title string) (*models.Post, error) {
	args := m.Called(ctx, id, title)
	p, _ := args.Get(0).(*models.Post)
	return p, args.Error(1)
}

func (m *mockPostRepository) SetPostStatus(ctx context.Context, id int64, from, to models.PostStatus) (*models.Post, error) {
	args := m.Called(ctx, id, from, to)
	p, _ := args.Get(0).(*models.Post)
	return p, args.Error(1)
}

func (m *mockPostRepository) ListSections(ctx context.Context, postID int64) ([]*models.PostSection, error) {
	args := m.Called(ctx, postID)
	s, _ := args.Get(0).([]*models.PostSection)
	return s, args.Error(1)
}

func (m *mockPostRepository) GetSection(ctx context.Context, postID, sectionID int64) (*models.PostSection, error) {
	args := m.Called(ctx, postID, sectionID)
	s, _ := args.Get(0).(*models.PostSection)
	return s, args.Error(1)
}

func (m *mockPostRepository) CreateSection(ctx context.Context, postID int64, heading, description string) (*models.PostSection, error) {
	args := m.Called(ctx, postID, heading, description)
	s, _ := args.Get(0).(*models.PostSection)
	return s, args.Error(1)
}

func (m *mockPostRepository) DeleteSection(ctx context.Context, postID, sectionID int64) error {
	return m.Called(ctx, postID, sectionID).Error(0)
}

func (m *mockPostRepository) ReorderSections(ctx context.Context, postID int64, ids []int64) error {
	return m.Called(ctx, postID, ids).Error(0)
}

func (m *mockPostRepository) FetchRow(ctx context.Context, t *schema.Table, key models.RowKey) (map[string]string, error) {
	args := m.Called(ctx, t.Name, key)
	r, _ := args.Get(0).(map[string]string)
	return r, args.Error(1)
}

func (m *mockPostRepository) UpdateColumns(ctx context.Context, t *schema.Table, key models.RowKey, values map[string]string) (int64, error) {
	args := m.Called(ctx, t.Name, key, values)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPostRepository) ListStepRuns(ctx context.Context, postID int64, limit int) ([]*models.StepRun, error) {
	args := m.Called(ctx, postID, limit)
	r, _ := args.Get(0).([]*models.StepRun)
	return r, args.Error(1)
}

func TestPostService_Create(t *testing.T) {
	repo := &mockPostRepository{}
	repo.On("CreatePost", mock.Anything, "Kilts").Return(&models.Post{ID: 1, Title: "Kilts", Status: models.PostStatusDraft}, nil)
	svc := NewPostService(repo, schema.Default(), nil)

	post, err := svc.Create(context.Background(), "  Kilts ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.ID)

	_, err = svc.Create(context.Background(), " ")
	var ve *models.ValidationError
	assert.True(t, errors.As(err, &ve))
	repo.AssertExpectations(t)
}

func TestPostService_Transition(t *testing.T) {
	repo := &mockPostRepository{}
	repo.On("GetPost", mock.Anything, int64(1)).Return(&models.Post{ID: 1, Status: models.PostStatusDraft}, nil)
	repo.On("SetPostStatus", mock.Anything, int64(1), models.PostStatusDraft, models.PostStatusInProcess).
		Return(&models.Post{ID: 1, Status: models.PostStatusInProcess}, nil)
	svc := NewPostService(repo, schema.Default(), nil)

	post, err := svc.Transition(context.Background(), 1, models.PostStatusInProcess)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusInProcess, post.Status)

	_, err = svc.Transition(context.Background(), 1, models.PostStatusPublished)
	var ite *models.InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, models.PostStatusDraft, ite.From)

	_, err = svc.Transition(context.Background(), 1, "gone")
	var ve *models.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestPostService_UpdateDevelopment(t *testing.T) {
	repo := &mockPostRepository{}
	key := models.RowKey{PostID: 3}
	fields := map[string]string{"idea_seed": "Kilt history"}
	repo.On("UpdateColumns", mock.Anything, "post_development", key, fields).Return(int64(1), nil)
	repo.On("FetchRow", mock.Anything, "post_development", key).Return(fields, nil)
	svc := NewPostService(repo, schema.Default(), nil)

	dev, err := svc.UpdateDevelopment(context.Background(), 3, fields)
	require.NoError(t, err)
	assert.Equal(t, "Kilt history", dev.Fields["idea_seed"])

	_, err = svc.UpdateDevelopment(context.Background(), 3, map[string]string{"password": "x"})
	var ce *models.ColumnError
	assert.True(t, errors.As(err, &ce))

	repo.On("UpdateColumns", mock.Anything, "post_development", models.RowKey{PostID: 4}, fields).Return(int64(0), nil)
	_, err = svc.UpdateDevelopment(context.Background(), 4, fields)
	var nf *models.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestPostService_ReorderSections(t *testing.T) {
	repo := &mockPostRepository{}
	current := []*models.PostSection{{ID: 10, Order: 1}, {ID: 11, Order: 2}}
	repo.On("ListSections", mock.Anything, int64(1)).Return(current, nil)
	repo.On("ReorderSections", mock.Anything, int64(1), []int64{11, 10}).Return(nil)
	svc := NewPostService(repo, schema.Default(), nil)

	_, err := svc.ReorderSections(context.Background(), 1, []int64{11, 10})
	require.NoError(t, err)

	for _, ids := range [][]int64{{}, {10, 10}, {10}, {10, 12}} {
		_, err := svc.ReorderSections(context.Background(), 1, ids)
		var ve *models.ValidationError
		assert.True(t, errors.As(err, &ve), "%v", ids)
	}
	repo.AssertNumberOfCalls(t, "ReorderSections", 1)
}

func TestPostService_AddSectionNeedsHeading(t *testing.T) {
	svc := NewPostService(&mockPostRepository{}, schema.Default(), nil)
	_, err := svc.AddSection(context.Background(), 1, "", "desc")
	var ve *models.ValidationError
	assert.True(t, errors.As(err, &ve))
}
