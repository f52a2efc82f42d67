package gorm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStoreRunsMigrations(t *testing.T) {
	store := testStore(t)

	for _, table := range []string{"mind_dumps", "thoughts", "thought_relations", "thought_vectors"} {
		assert.True(t, store.DB.Migrator().HasTable(table), "table %s should exist", table)
	}
}

func TestNewStoreEnablesWAL(t *testing.T) {
	store := testStore(t)

	var mode string
	require.NoError(t, store.DB.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	assert.Equal(t, "wal", mode)
}

func TestNewStoreUnknownDriver(t *testing.T) {
	_, err := NewStore(Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestStorePing(t *testing.T) {
	store := testStore(t)
	assert.NoError(t, store.Ping())
}
