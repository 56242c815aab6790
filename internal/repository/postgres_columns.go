package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"blogflow/backend/internal/schema"
	"blogflow/backend/pkg/models"
)

// keyClause renders the WHERE clause addressing one row of t, with
// placeholders numbered from first.
func keyClause(t *schema.Table, key models.RowKey, first int) (string, []any, error) {
	if t.SectionScoped() {
		if key.SectionID == nil {
			return "", nil, &models.ColumnError{Table: t.Name, Reason: "section id required for section-scoped table"}
		}
		clause := fmt.Sprintf("%s = $%d AND %s = $%d",
			pgx.Identifier{t.Key}.Sanitize(), first, pgx.Identifier{t.ParentKey}.Sanitize(), first+1)
		return clause, []any{*key.SectionID, key.PostID}, nil
	}
	return fmt.Sprintf("%s = $%d", pgx.Identifier{t.Key}.Sanitize(), first), []any{key.PostID}, nil
}

func checkColumn(t *schema.Table, column string) error {
	if !t.HasColumn(column) {
		return &models.ColumnError{Table: t.Name, Column: column, Reason: "unknown column"}
	}
	return nil
}

func columnError(t *schema.Table, column string, err error) error {
	switch pgCode(err) {
	case pgUndefinedColumn, pgUndefinedTable:
		return &models.ColumnError{Table: t.Name, Column: column, Reason: "not present in database", Err: err}
	}
	return err
}

// FetchColumn returns the text value of one column, "" for NULL.
func (s *PostgresStore) FetchColumn(ctx context.Context, t *schema.Table, column string, key models.RowKey) (string, error) {
	if err := checkColumn(t, column); err != nil {
		return "", err
	}
	where, args, err := keyClause(t, key, 1)
	if err != nil {
		return "", err
	}
	query := fmt.Sprintf("SELECT COALESCE(%s::text, '') FROM %s WHERE %s",
		pgx.Identifier{column}.Sanitize(), pgx.Identifier{t.Name}.Sanitize(), where)

	var value string
	if err := s.db.QueryRow(ctx, query, args...).Scan(&value); err != nil {
		return "", notFound(columnError(t, column, err), t.Name+" row", key)
	}
	return value, nil
}

// WriteColumn updates one column of one row and returns the rows affected.
func (s *PostgresStore) WriteColumn(ctx context.Context, t *schema.Table, column string, key models.RowKey, value string) (int64, error) {
	return s.UpdateColumns(ctx, t, key, map[string]string{column: value})
}

// UpdateColumns sets several columns of one row in a single statement.
func (s *PostgresStore) UpdateColumns(ctx context.Context, t *schema.Table, key models.RowKey, values map[string]string) (int64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("no columns to update on %s", t.Name)
	}
	columns := make([]string, 0, len(values))
	for c := range values {
		if err := checkColumn(t, c); err != nil {
			return 0, err
		}
		columns = append(columns, c)
	}
	sort.Strings(columns)

	sets := make([]string, 0, len(columns)+1)
	args := make([]any, 0, len(columns)+2)
	for i, c := range columns {
		sets = append(sets, fmt.Sprintf("%s = $%d", pgx.Identifier{c}.Sanitize(), i+1))
		args = append(args, values[c])
	}
	if t.Touch != "" {
		sets = append(sets, pgx.Identifier{t.Touch}.Sanitize()+" = NOW()")
	}
	where, keyArgs, err := keyClause(t, key, len(args)+1)
	if err != nil {
		return 0, err
	}
	args = append(args, keyArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", pgx.Identifier{t.Name}.Sanitize(), strings.Join(sets, ", "), where)
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, columnError(t, strings.Join(columns, ","), err)
	}
	return tag.RowsAffected(), nil
}

// FetchRow returns the non-null registry columns of one row.
func (s *PostgresStore) FetchRow(ctx context.Context, t *schema.Table, key models.RowKey) (map[string]string, error) {
	where, args, err := keyClause(t, key, 1)
	if err != nil {
		return nil, err
	}
	selects := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		selects[i] = pgx.Identifier{c}.Sanitize() + "::text"
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(selects, ", "), pgx.Identifier{t.Name}.Sanitize(), where)

	values := make([]*string, len(t.Columns))
	dest := make([]any, len(t.Columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := s.db.QueryRow(ctx, query, args...).Scan(dest...); err != nil {
		return nil, notFound(columnError(t, "", err), t.Name+" row", key)
	}
	row := make(map[string]string, len(t.Columns))
	for i, c := range t.Columns {
		if values[i] != nil {
			row[c] = *values[i]
		}
	}
	return row, nil
}

// ListColumns reads the physical columns of a table in the current schema.
func (s *PostgresStore) ListColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
