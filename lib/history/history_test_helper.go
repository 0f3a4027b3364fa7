package history

import (
	"go.uber.org/zap"

	"github.com/ether/revlog/lib/db"
	"github.com/ether/revlog/lib/hooks"
	"github.com/ether/revlog/lib/settings"
)

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

func newTestLog(collection string, retrievedSettings *settings.Settings) (*Log, *db.MemoryDataStore, *hooks.Hook) {
	var hook = hooks.NewHook()
	var store = db.NewMemoryDataStore()
	var log = NewLog(collection, store, retrievedSettings, zap.NewNop().Sugar(), &hook)
	return log, store, &hook
}

func newTestManager(retrievedSettings *settings.Settings) (*Manager, *db.MemoryDataStore, *hooks.Hook, error) {
	var hook = hooks.NewHook()
	var store = db.NewMemoryDataStore()
	manager, err := NewManager(store, retrievedSettings, zap.NewNop().Sugar(), &hook)
	return manager, store, &hook, err
}
