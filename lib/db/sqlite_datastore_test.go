package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteDataStore(t *testing.T) {
	store, err := NewSQLiteDB(filepath.Join(t.TempDir(), "revlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})

	runDataStoreTests(t, store)
}

func TestSQLiteDataStoreReopensExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revlog.db")

	store, err := NewSQLiteDB(path)
	require.NoError(t, err)
	rec := CreateRandomRecord()
	require.NoError(t, store.SaveRecord("posts", rec))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteDB(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		reopened.Close()
	})

	loaded, err := reopened.GetRecord("posts", rec.Id)
	require.NoError(t, err)
	require.Equal(t, rec.Doc, loaded.Doc)
}
