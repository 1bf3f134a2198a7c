package migrations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_engagement.sql", "001_init.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o755))

	migs, err := List(dir)
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, "001", migs[0].Version)
	assert.Equal(t, "002", migs[1].Version)
}

func TestListDuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"001_a.sql", "001_b.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	_, err := List(dir)
	assert.Error(t, err)
}

func TestListShippedMigrations(t *testing.T) {
	migs, err := List(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	assert.NotEmpty(t, migs)
}
