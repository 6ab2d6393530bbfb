package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	require.NoError(t, err)
	defer d.Close()

	for _, table := range []string{"kv", "reviews"} {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.migrate())
}

func TestOpen_CreatesDirectoryAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "coach.db")

	d, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, d.Path())
	_, err = d.Exec(`INSERT INTO kv (key, value) VALUES ('k', 'v')`)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = Open(path)
	require.NoError(t, err)
	defer d.Close()

	var value string
	require.NoError(t, d.QueryRow(`SELECT value FROM kv WHERE key = 'k'`).Scan(&value))
	assert.Equal(t, "v", value)
}
