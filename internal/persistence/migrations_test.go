package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrationFilesSortsSQLOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_seed.sql", "001_init.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- noop"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o755))

	files, err := migrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_seed.sql"}, files)

	_, err = migrationFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestMigrationsShippedWithRepo(t *testing.T) {
	files, err := migrationFiles(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_seed_categories.sql"}, files)
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, "unused", zap.NewNop()))
}
