package migration

import (
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/ether/revlog/lib/db"
	"github.com/ether/revlog/lib/history"
	"github.com/ether/revlog/lib/hooks"
	"github.com/ether/revlog/lib/settings"
	"go.uber.org/zap"
)

func newTestLogger(t *testing.T) *zap.SugaredLogger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("logger init failed: %v", err)
	}
	return logger.Sugar()
}

func newTestSettings() *settings.Settings {
	return &settings.Settings{
		Versions: settings.VersionSettings{
			CollectionSuffix:  "_versions",
			TrackDates:        true,
			RollbackStrategy:  settings.RollbackPatch,
			SnapshotCacheSize: 16,
		},
	}
}

func insertKV(
	t *testing.T,
	db *sql.DB,
	key string,
	value any,
) {
	t.Helper()

	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("json marshal failed: %v", err)
	}

	insertRawKV(t, db, key, string(raw))
}

func insertRawKV(
	t *testing.T,
	db *sql.DB,
	key string,
	raw string,
) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO store (key, value) VALUES (?, ?)",
		key,
		raw,
	)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
}

func insertData(t *testing.T, db *sql.DB) {
	t.Helper()

	insertKV(t, db, "notes:shopping", map[string]any{
		"title": "Shopping",
		"items": []any{"milk", "bread"},
	})

	insertKV(t, db, "posts:hello-world", map[string]any{
		"title":     "Hello World",
		"body":      "First post.",
		"published": true,
	})

	insertKV(t, db, "posts:second", map[string]any{
		"title":     "Second",
		"body":      "Another one.",
		"published": false,
	})

	// Auxiliary rows a legacy store tends to carry. None of these are
	// record-shaped, the importer has to walk past them.
	insertKV(t, db, "schemaVersion", 4)
	insertKV(t, db, "posts:hello-world:revs:0", map[string]any{
		"changeset": "Z:1>k+k$Welcome!",
	})
	insertKV(t, db, "posts:hello-world:revs:1", map[string]any{
		"changeset": "Z:l<j-k*1+1$H",
	})
}

func newImportTarget(t *testing.T) (*db.MemoryDataStore, *history.Manager) {
	t.Helper()

	hook := hooks.NewHook()
	store := db.NewMemoryDataStore()
	manager, err := history.NewManager(store, newTestSettings(), zap.NewNop().Sugar(), &hook)
	if err != nil {
		t.Fatalf("manager init failed: %v", err)
	}
	return store, manager
}

func startImportPipeline(t *testing.T, source Database, backfill bool) (*db.MemoryDataStore, *history.Manager, int, int) {
	t.Helper()

	logger := newTestLogger(t)
	store, manager := newImportTarget(t)

	m := NewMigrator(source, store, manager, backfill, logger)

	imported, skipped, err := m.MigrateRecords()
	if err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	return store, manager, imported, skipped
}
