package history

import (
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/ether/revlog/lib/db"
	"github.com/ether/revlog/lib/exception"
	"github.com/ether/revlog/lib/hooks"
	"github.com/ether/revlog/lib/hooks/events"
	"github.com/ether/revlog/lib/models/record"
	"github.com/ether/revlog/lib/patch"
	"github.com/ether/revlog/lib/settings"
)

// Manager hands out one Log per collection and serves version reads
// through a shared snapshot cache.
type Manager struct {
	store    db.DataStore
	settings *settings.Settings
	logger   *zap.SugaredLogger
	hook     *hooks.Hook
	logs     *xsync.MapOf[string, *Log]
	cache    *SnapshotCache
}

func NewManager(store db.DataStore, retrievedSettings *settings.Settings, logger *zap.SugaredLogger, hook *hooks.Hook) (*Manager, error) {
	var size = retrievedSettings.Versions.SnapshotCacheSize
	if size <= 0 {
		size = 128
	}
	cache, err := NewSnapshotCache(size)
	if err != nil {
		return nil, err
	}

	var manager = &Manager{
		store:    store,
		settings: retrievedSettings,
		logger:   logger,
		hook:     hook,
		logs:     xsync.NewMapOf[string, *Log](),
		cache:    cache,
	}

	// A rollback retires the snapshot of the version it removed. Everything
	// below that version is untouched history and stays cached.
	hook.EnqueueRecordRolledBackHook(func(ctx *events.RecordRolledBackContext) {
		manager.cache.Remove(ctx.LogId, ctx.RecordId, ctx.RemovedVersion)
	})

	return manager, nil
}

// Collection returns the log for name, creating it on first use.
func (m *Manager) Collection(name string) *Log {
	log, _ := m.logs.LoadOrCompute(name, func() *Log {
		return NewLog(name, m.store, m.settings, m.logger, m.hook)
	})
	return log
}

// GetVersion is Log.GetVersion behind the snapshot cache.
func (m *Manager) GetVersion(collection string, rec *record.Record, version int) (*record.Record, error) {
	var log = m.Collection(collection)

	var current = rec.CurrentVersion()
	if version < 1 || version > current {
		return nil, exception.NewInvalidVersionError(version, current)
	}

	if doc, versionDate, ok := m.cache.Get(log.logId, rec.Id, version); ok {
		snapshotCacheRequests.WithLabelValues(collection, "hit").Inc()
		return &record.Record{Id: rec.Id, Version: &version, VersionDate: versionDate, Doc: doc}, nil
	}
	snapshotCacheRequests.WithLabelValues(collection, "miss").Inc()

	versioned, err := log.GetVersion(rec, version)
	if err != nil {
		return nil, err
	}
	m.cache.Add(log.logId, rec.Id, version, versioned.Doc, versioned.VersionDate)
	return versioned, nil
}

// DiffVersions computes the structural patch and a human readable text
// diff between two versions of a record.
func (m *Manager) DiffVersions(collection string, rec *record.Record, from int, to int) (patch.Patch, string, error) {
	before, err := m.GetVersion(collection, rec, from)
	if err != nil {
		return nil, "", err
	}
	after, err := m.GetVersion(collection, rec, to)
	if err != nil {
		return nil, "", err
	}

	var ops = patch.Diff(before.Doc, after.Doc)
	text, err := RenderTextDiff(before.Doc, after.Doc)
	if err != nil {
		return nil, "", err
	}
	return ops, text, nil
}

type ManagerStats struct {
	Collections     int
	CachedSnapshots int
}

func (m *Manager) Stats() ManagerStats {
	return ManagerStats{
		Collections:     m.logs.Size(),
		CachedSnapshots: m.cache.Len(),
	}
}
