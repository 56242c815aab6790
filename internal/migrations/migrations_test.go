package migrations

import (
	"io/fs"
	"testing"

	"github.com/stokaro/ptah/migration/migrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreComplete(t *testing.T) {
	provider, err := migrator.NewFSMigrationProvider(FS())
	require.NoError(t, err)

	migrations := provider.Migrations()
	require.Len(t, migrations, 3)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
	}
}

func TestEmbeddedMigrationsCreateWorkflowTables(t *testing.T) {
	data, err := fs.ReadFile(FS(), "0000000001_workflow_hierarchy.up.sql")
	require.NoError(t, err)
	for _, table := range []string{"workflow_stage_entity", "workflow_sub_stage_entity", "workflow_step_entity", "llm_action"} {
		assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS "+table)
	}
}
