package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogflow/backend/pkg/models"
)

type fakeLister map[string][]string

func (f fakeLister) ListColumns(_ context.Context, table string) ([]string, error) {
	cols, ok := f[table]
	if !ok {
		return nil, nil
	}
	return cols, nil
}

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"post", "post_development", "post_section"}, r.Tables())

	tbl, err := r.Column(models.ColumnRef{Table: "post_development", Column: "provisional_title"})
	require.NoError(t, err)
	assert.Equal(t, "post_id", tbl.Key)
	assert.False(t, tbl.SectionScoped())

	tbl, err = r.Column(models.ColumnRef{Table: "post_section", Column: "draft"})
	require.NoError(t, err)
	assert.True(t, tbl.SectionScoped())
}

func TestRegistry_ColumnErrors(t *testing.T) {
	r := Default()

	_, err := r.Column(models.ColumnRef{Table: "post_development", Column: "no_such_column"})
	var colErr *models.ColumnError
	require.True(t, errors.As(err, &colErr))
	assert.Equal(t, "no_such_column", colErr.Column)

	_, err = r.Column(models.ColumnRef{Table: "users", Column: "password"})
	require.True(t, errors.As(err, &colErr))
	assert.Equal(t, "unknown table", colErr.Reason)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load([]byte("version: 0\ntables: {a: {key: id}}"))
	assert.Error(t, err)

	_, err = Load([]byte("version: 1\ntables: {a: {columns: [x]}}"))
	assert.Error(t, err)

	_, err = Load([]byte("version: 1\ntables: {a: {key: id, columns: [x, x]}}"))
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	r, err := Load([]byte(`
version: 2
tables:
  post_development:
    key: post_id
    columns: [idea_seed, provisional_title]
`))
	require.NoError(t, err)

	err = r.Verify(context.Background(), fakeLister{
		"post_development": {"id", "post_id", "idea_seed", "provisional_title"},
	})
	assert.NoError(t, err)

	err = r.Verify(context.Background(), fakeLister{
		"post_development": {"id", "post_id", "idea_seed"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post_development.provisional_title")
}
