// Package schema holds the explicit description of every table and column a
// workflow step may read or write. Dynamic SQL is only ever built from names
// that pass through this registry.
package schema

import (
	"context"
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"blogflow/backend/pkg/models"
)

//go:embed schema.yaml
var defaultSchema []byte

// Table describes one writable table. Key is the column matched against the
// row key; ParentKey, when set, additionally scopes rows to a post. Touch
// names a timestamp column refreshed on every update.
type Table struct {
	Name      string   `yaml:"-"`
	Key       string   `yaml:"key"`
	ParentKey string   `yaml:"parent_key"`
	Touch     string   `yaml:"touch"`
	Columns   []string `yaml:"columns"`

	columns map[string]struct{}
}

// SectionScoped reports whether rows of the table are addressed by section id.
func (t *Table) SectionScoped() bool {
	return t.ParentKey != ""
}

// HasColumn reports whether column is writable on the table.
func (t *Table) HasColumn(column string) bool {
	_, ok := t.columns[column]
	return ok
}

// Registry is a versioned, read-only description of the writable schema.
type Registry struct {
	Version int
	tables  map[string]*Table
}

type document struct {
	Version int               `yaml:"version"`
	Tables  map[string]*Table `yaml:"tables"`
}

// Load parses a registry document.
func Load(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: failed to parse registry: %w", err)
	}
	if doc.Version <= 0 {
		return nil, fmt.Errorf("schema: registry version must be positive")
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("schema: registry declares no tables")
	}
	r := &Registry{Version: doc.Version, tables: make(map[string]*Table, len(doc.Tables))}
	for name, t := range doc.Tables {
		if t == nil || t.Key == "" {
			return nil, fmt.Errorf("schema: table %s has no key column", name)
		}
		t.Name = name
		t.columns = make(map[string]struct{}, len(t.Columns))
		for _, c := range t.Columns {
			if _, dup := t.columns[c]; dup {
				return nil, fmt.Errorf("schema: table %s lists column %s twice", name, c)
			}
			t.columns[c] = struct{}{}
		}
		r.tables[name] = t
	}
	return r, nil
}

// Default returns the registry embedded in the binary.
func Default() *Registry {
	r, err := Load(defaultSchema)
	if err != nil {
		panic(err)
	}
	return r
}

// Table returns the named table or a ColumnError.
func (r *Registry) Table(name string) (*Table, error) {
	t, ok := r.tables[name]
	if !ok {
		return nil, &models.ColumnError{Table: name, Reason: "unknown table"}
	}
	return t, nil
}

// Column validates a column reference, returning its table.
func (r *Registry) Column(ref models.ColumnRef) (*Table, error) {
	t, err := r.Table(ref.Table)
	if err != nil {
		return nil, err
	}
	if !t.HasColumn(ref.Column) {
		return nil, &models.ColumnError{Table: ref.Table, Column: ref.Column, Reason: "unknown column"}
	}
	return t, nil
}

// Tables lists the registered table names in order.
func (r *Registry) Tables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ColumnLister reads the physical column names of a table.
type ColumnLister interface {
	ListColumns(ctx context.Context, table string) ([]string, error)
}

// Verify checks once, at startup, that every registered table and column
// exists in the database.
func (r *Registry) Verify(ctx context.Context, db ColumnLister) error {
	var missing []string
	for _, name := range r.Tables() {
		t := r.tables[name]
		actual, err := db.ListColumns(ctx, name)
		if err != nil {
			return fmt.Errorf("schema: failed to list columns of %s: %w", name, err)
		}
		present := make(map[string]struct{}, len(actual))
		for _, c := range actual {
			present[c] = struct{}{}
		}
		wanted := append([]string{t.Key}, t.Columns...)
		if t.ParentKey != "" {
			wanted = append(wanted, t.ParentKey)
		}
		if t.Touch != "" {
			wanted = append(wanted, t.Touch)
		}
		for _, c := range wanted {
			if _, ok := present[c]; !ok {
				missing = append(missing, name+"."+c)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema: registry version %d does not match database, missing %v", r.Version, missing)
	}
	return nil
}
