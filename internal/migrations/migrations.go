// Package migrations applies the embedded SQL migrations to the database.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/stokaro/ptah/dbschema"
	"github.com/stokaro/ptah/migration/migrator"
)

//go:embed sql/*.sql
var files embed.FS

// FS returns the migration files, named NNNNNNNNNN_description.(up|down).sql.
func FS() fs.FS {
	sub, err := fs.Sub(files, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

func open(dbURL string, logger *slog.Logger) (*dbschema.DatabaseConnection, *migrator.Migrator, error) {
	conn, err := dbschema.ConnectToDatabase(dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect for migrations: %w", err)
	}
	m, err := migrator.NewFSMigrator(conn, FS())
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	if logger != nil {
		m = m.WithLogger(logger)
	}
	return conn, m, nil
}

// Up applies all pending migrations.
func Up(ctx context.Context, dbURL string, logger *slog.Logger) error {
	conn, m, err := open(dbURL, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	return m.MigrateUp(ctx)
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, dbURL string, logger *slog.Logger) error {
	conn, m, err := open(dbURL, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	return m.MigrateDown(ctx)
}

// Status reports the applied and pending migrations.
func Status(ctx context.Context, dbURL string) (*migrator.MigrationStatus, error) {
	conn, m, err := open(dbURL, nil)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return m.GetMigrationStatus(ctx)
}
