package migration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStoreDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

func TestSQLDatabase_GetNextRecords(t *testing.T) {
	db := openStoreDB(t)
	sqlDB := NewSQLDatabase(db, DriverSQLite)

	insertKV(t, db, "notes:alpha", map[string]any{"title": "Alpha"})
	insertKV(t, db, "notes:beta", map[string]any{"title": "Beta"})
	insertKV(t, db, "posts:gamma", map[string]any{"title": "Gamma", "published": true})

	// Rows the importer must walk past
	insertKV(t, db, "counter", 7)
	insertKV(t, db, "notes:alpha:revs:0", map[string]any{"changeset": "x"})

	t.Run("GetAllRecords", func(t *testing.T) {
		result, lastKey, err := sqlDB.GetNextRecords("", 10)
		require.NoError(t, err)
		require.Len(t, result, 3)

		// Key order
		assert.Equal(t, "notes", result[0].Collection)
		assert.Equal(t, "alpha", result[0].RecordId)
		assert.Equal(t, "beta", result[1].RecordId)
		assert.Equal(t, "posts", result[2].Collection)
		assert.Equal(t, "gamma", result[2].RecordId)

		assert.Equal(t, "posts:gamma", lastKey)
	})

	t.Run("RecordFields", func(t *testing.T) {
		result, _, err := sqlDB.GetNextRecords("notes:beta", 10)
		require.NoError(t, err)
		require.Len(t, result, 1)

		assert.Equal(t, "Gamma", result[0].Doc["title"])
		assert.Equal(t, true, result[0].Doc["published"])
	})

	t.Run("Exhausted", func(t *testing.T) {
		result, lastKey, err := sqlDB.GetNextRecords("posts:gamma", 10)
		require.NoError(t, err)
		assert.Len(t, result, 0)
		assert.Equal(t, "", lastKey)
	})

	t.Run("ZeroLimit", func(t *testing.T) {
		result, lastKey, err := sqlDB.GetNextRecords("", 0)
		require.NoError(t, err)
		assert.Len(t, result, 0)
		assert.Equal(t, "", lastKey)
	})
}

func TestSQLDatabase_Pagination(t *testing.T) {
	db := openStoreDB(t)
	sqlDB := NewSQLDatabase(db, DriverSQLite)

	insertKV(t, db, "notes:a", map[string]any{"title": "A"})
	insertKV(t, db, "notes:a:revs:0", map[string]any{"changeset": "x"})
	insertKV(t, db, "notes:a:revs:1", map[string]any{"changeset": "y"})
	insertKV(t, db, "notes:b", map[string]any{"title": "B"})
	insertKV(t, db, "posts:c", map[string]any{"title": "C"})

	result, lastKey, err := sqlDB.GetNextRecords("", 2)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "a", result[0].RecordId)
	assert.Equal(t, "notes:a:revs:0", lastKey)

	// A page can consist entirely of skipped rows. The cursor still has
	// to move, otherwise the walk would stop short of notes:b.
	result, lastKey, err = sqlDB.GetNextRecords(lastKey, 1)
	require.NoError(t, err)
	assert.Len(t, result, 0)
	assert.Equal(t, "notes:a:revs:1", lastKey)

	result, lastKey, err = sqlDB.GetNextRecords(lastKey, 2)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "b", result[0].RecordId)
	assert.Equal(t, "c", result[1].RecordId)
	assert.Equal(t, "posts:c", lastKey)

	_, lastKey, err = sqlDB.GetNextRecords(lastKey, 2)
	require.NoError(t, err)
	assert.Equal(t, "", lastKey)
}

func TestSQLDatabase_BadValue(t *testing.T) {
	db := openStoreDB(t)
	sqlDB := NewSQLDatabase(db, DriverSQLite)

	insertKV(t, db, "notes:good", map[string]any{"title": "ok"})
	insertRawKV(t, db, "posts:broken", "{not json")

	_, _, err := sqlDB.GetNextRecords("", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "posts:broken")
}

func TestSQLDatabase_ScalarValue(t *testing.T) {
	db := openStoreDB(t)
	sqlDB := NewSQLDatabase(db, DriverSQLite)

	// Record-shaped key whose value is not a document
	insertKV(t, db, "titles:x", "just a string")

	_, _, err := sqlDB.GetNextRecords("", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "titles:x")
}

func TestSQLDatabase_UnicodeContent(t *testing.T) {
	db := openStoreDB(t)
	sqlDB := NewSQLDatabase(db, DriverSQLite)

	insertKV(t, db, "notes:unicode", map[string]any{
		"title": "Hello 世界 🌍 مرحبا",
	})

	result, _, err := sqlDB.GetNextRecords("", 10)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Contains(t, result[0].Doc["title"], "世界")
	assert.Contains(t, result[0].Doc["title"], "🌍")
}

func TestSQLDatabase_Close(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	sqlDB := NewSQLDatabase(db, DriverSQLite)

	err = sqlDB.Close()
	require.NoError(t, err)

	// Verify connection is closed
	err = db.Ping()
	assert.Error(t, err)
}

func TestNewSQLDatabase_PlaceholderStyles(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	t.Run("PostgresPlaceholder", func(t *testing.T) {
		sqlDB := NewSQLDatabase(db, DriverPostgres)
		assert.Equal(t, "$1", sqlDB.placeholder(1))
		assert.Equal(t, "$2", sqlDB.placeholder(2))
		assert.Equal(t, "$10", sqlDB.placeholder(10))
	})

	t.Run("SQLitePlaceholder", func(t *testing.T) {
		sqlDB := NewSQLDatabase(db, DriverSQLite)
		assert.Equal(t, "?", sqlDB.placeholder(1))
		assert.Equal(t, "?", sqlDB.placeholder(2))
		assert.Equal(t, "?", sqlDB.placeholder(10))
	})
}

func BenchmarkSQLDatabase_GetNextRecords(b *testing.B) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE store (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
	if err != nil {
		b.Fatal(err)
	}

	for i := 0; i < 1000; i++ {
		doc := map[string]any{"title": fmt.Sprintf("Record %d", i), "index": i}
		jsonData, _ := json.Marshal(doc)
		_, err = db.Exec("INSERT INTO store (key, value) VALUES (?, ?)",
			fmt.Sprintf("bench:rec%04d", i), string(jsonData))
		if err != nil {
			b.Fatal(err)
		}
	}

	sqlDB := NewSQLDatabase(db, DriverSQLite)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := sqlDB.GetNextRecords("", 100)
		if err != nil {
			b.Fatal(err)
		}
	}
}
