package migrator

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestListMigrationsSorted(t *testing.T) {
	files := fstest.MapFS{
		"migrations/0002_b.sql": {Data: []byte("SELECT 2")},
		"migrations/0001_a.sql": {Data: []byte("SELECT 1")},
		"migrations/README.md":  {Data: []byte("docs")},
		"migrations/0003_dir/x": {Data: []byte("")},
	}
	got, err := listMigrations(files)
	require.NoError(t, err)
	require.Equal(t, []string{"0001_a.sql", "0002_b.sql"}, got)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := listMigrations(migrationsFS)
	require.NoError(t, err)
	require.Equal(t, []string{"0001_documents.sql", "0002_seed_documents.sql"}, got)
}
