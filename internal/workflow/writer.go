package workflow

import (
	"context"
	"fmt"

	"blogflow/backend/internal/schema"
	"blogflow/backend/pkg/models"
)

// ColumnStore reads and writes single columns of rows described by the schema
// registry. Implementations only receive tables and columns the registry has
// already validated.
type ColumnStore interface {
	// FetchColumn returns the column value, "" for NULL, or a NotFoundError.
	FetchColumn(ctx context.Context, t *schema.Table, column string, key models.RowKey) (string, error)
	// WriteColumn updates one row and returns the number of rows affected.
	WriteColumn(ctx context.Context, t *schema.Table, column string, key models.RowKey, value string) (int64, error)
}

// Writer commits step outputs to the column named by a binding.
type Writer struct {
	registry *schema.Registry
	store    ColumnStore
}

// NewWriter creates a new Writer.
func NewWriter(registry *schema.Registry, store ColumnStore) *Writer {
	return &Writer{registry: registry, store: store}
}

func (w *Writer) table(ref models.ColumnRef, key models.RowKey) (*schema.Table, error) {
	t, err := w.registry.Column(ref)
	if err != nil {
		return nil, err
	}
	if t.SectionScoped() && key.SectionID == nil {
		return nil, &models.ColumnError{Table: ref.Table, Column: ref.Column, Reason: "section id required for section-scoped table"}
	}
	return t, nil
}

// Write updates exactly one row. A write that matches no row is reported as a
// NotFoundError.
func (w *Writer) Write(ctx context.Context, ref models.ColumnRef, key models.RowKey, value string) error {
	t, err := w.table(ref, key)
	if err != nil {
		return err
	}
	n, err := w.store.WriteColumn(ctx, t, ref.Column, key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s for %s: %w", ref, key, err)
	}
	if n == 0 {
		return &models.NotFoundError{Resource: ref.Table + " row", Key: key.String()}
	}
	return nil
}

// Fetch reads one column value.
func (w *Writer) Fetch(ctx context.Context, ref models.ColumnRef, key models.RowKey) (string, error) {
	t, err := w.table(ref, key)
	if err != nil {
		return "", err
	}
	return w.store.FetchColumn(ctx, t, ref.Column, key)
}
