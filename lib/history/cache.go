package history

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ether/revlog/lib/models/record"
)

type snapshotKey struct {
	LogId    string
	ParentId string
	Version  int
}

type cachedSnapshot struct {
	doc         record.Document
	versionDate *int64
}

// SnapshotCache keeps reconstructed version snapshots. Snapshots are
// immutable once written, only a rollback retires the entry of the version
// it removed. Documents are cloned on both sides so callers can never
// mutate a cached copy.
type SnapshotCache struct {
	entries *lru.Cache[snapshotKey, cachedSnapshot]
}

func NewSnapshotCache(size int) (*SnapshotCache, error) {
	entries, err := lru.New[snapshotKey, cachedSnapshot](size)
	if err != nil {
		return nil, err
	}
	return &SnapshotCache{entries: entries}, nil
}

func (c *SnapshotCache) Get(logId string, parentId string, version int) (record.Document, *int64, bool) {
	entry, ok := c.entries.Get(snapshotKey{LogId: logId, ParentId: parentId, Version: version})
	if !ok {
		return nil, nil, false
	}
	var versionDate *int64
	if entry.versionDate != nil {
		var at = *entry.versionDate
		versionDate = &at
	}
	return entry.doc.Clone(), versionDate, true
}

func (c *SnapshotCache) Add(logId string, parentId string, version int, doc record.Document, versionDate *int64) {
	var at *int64
	if versionDate != nil {
		var copied = *versionDate
		at = &copied
	}
	c.entries.Add(
		snapshotKey{LogId: logId, ParentId: parentId, Version: version},
		cachedSnapshot{doc: doc.Clone(), versionDate: at},
	)
}

func (c *SnapshotCache) Remove(logId string, parentId string, version int) {
	c.entries.Remove(snapshotKey{LogId: logId, ParentId: parentId, Version: version})
}

func (c *SnapshotCache) Len() int {
	return c.entries.Len()
}
