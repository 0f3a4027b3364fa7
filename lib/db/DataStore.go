package db

import (
	"github.com/ether/revlog/lib/models/record"
	"github.com/prometheus/client_golang/prometheus"
)

type RecordMethods interface {
	GetRecord(collection string, id string) (*record.Record, error)
	SaveRecord(collection string, rec record.Record) error
	RemoveRecord(collection string, id string) error
	GetRecordIds(collection string) ([]string, error)
}

// ChangeSetMethods is the append-only history storage. AppendChangeSet
// must reject a (logId, parentId, version) triple that already exists
// with VersionAlreadyExistsError, that rejection is the only guard
// against two writers saving the same version.
type ChangeSetMethods interface {
	AppendChangeSet(logId string, cs record.ChangeSet) error
	GetChangeSets(logId string, parentId string, maxVersion *int) ([]record.ChangeSet, error)
	CountChangeSets(logId string, parentId string) (int, error)
	RemoveChangeSet(logId string, parentId string, version int) error
}

type DataStore interface {
	RecordMethods
	ChangeSetMethods
	Ping() error
	Close() error
}

// MetricsProvider is implemented by stores that expose internal engine
// metrics.
type MetricsProvider interface {
	Collector() prometheus.Collector
}
