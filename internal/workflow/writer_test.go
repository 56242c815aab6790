package workflow

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

type mockColumnStore struct {
	mock.Mock
}

func (m *mockColumnStore) FetchColumn(ctx context.Context, t *schema.Table, column string, key models.RowKey) (string, error) {
	args := m.Called(ctx, t.Name, column, key)
	return args.String(0), args.Error(1)
}

func (m *mockColumnStore) WriteColumn(ctx context.Context, t *schema.Table, column string, key models.RowKey, value string) (int64, error) {
	args := m.Called(ctx, t.Name, column, key, value)
	return args.Get(0).(int64), args.Error(1)
}

func int64Ptr(v int64) *int64 { return &v }

func TestWriter_Write(t *testing.T) {
	store := &mockColumnStore{}
	key := models.RowKey{PostID: 7}
	store.On("WriteColumn", mock.Anything, "post_development", "provisional_title", key, "The Kilt").Return(int64(1), nil)

	w := NewWriter(schema.Default(), store)
	require.NoError(t, w.Write(context.Background(), models.ColumnRef{Table: "post_development", Column: "provisional_title"}, key, "The Kilt"))
	store.AssertExpectations(t)
}

func TestWriter_ZeroRowsIsNotFound(t *testing.T) {
	store := &mockColumnStore{}
	key := models.RowKey{PostID: 999}
	store.On("WriteColumn", mock.Anything, "post_development", "summary", key, "x").Return(int64(0), nil)

	err := NewWriter(schema.Default(), store).Write(context.Background(), models.ColumnRef{Table: "post_development", Column: "summary"}, key, "x")
	var nf *models.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "post 999", nf.Key)
}

func TestWriter_UnknownColumn(t *testing.T) {
	store := &mockColumnStore{}
	w := NewWriter(schema.Default(), store)

	for _, ref := range []models.ColumnRef{
		{Table: "post_development", Column: "no_such_column"},
		{Table: "pg_authid", Column: "rolpassword"},
	} {
		err := w.Write(context.Background(), ref, models.RowKey{PostID: 1}, "x")
		var ce *models.ColumnError
		assert.True(t, errors.As(err, &ce), ref.String())
	}
	store.AssertNotCalled(t, "WriteColumn", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWriter_SectionScopedNeedsSection(t *testing.T) {
	store := &mockColumnStore{}
	w := NewWriter(schema.Default(), store)
	ref := models.ColumnRef{Table: "post_section", Column: "draft"}

	err := w.Write(context.Background(), ref, models.RowKey{PostID: 1}, "x")
	var ce *models.ColumnError
	require.True(t, errors.As(err, &ce))

	key := models.RowKey{PostID: 1, SectionID: int64Ptr(3)}
	store.On("WriteColumn", mock.Anything, "post_section", "draft", key, "x").Return(int64(1), nil)
	require.NoError(t, w.Write(context.Background(), ref, key, "x"))
}

func TestWriter_Fetch(t *testing.T) {
	store := &mockColumnStore{}
	key := models.RowKey{PostID: 7}
	store.On("FetchColumn", mock.Anything, "post_development", "idea_seed", key).Return("Kilt history", nil)

	v, err := NewWriter(schema.Default(), store).Fetch(context.Background(), models.ColumnRef{Table: "post_development", Column: "idea_seed"}, key)
	require.NoError(t, err)
	assert.Equal(t, "Kilt history", v)
}
