package db

import (
	"errors"
	"slices"
	"sync"

	"github.com/ether/revlog/lib/models/record"
)

// MemoryDataStore keeps everything in nested maps, it backs tests and
// throwaway setups. A single RWMutex serializes access, the API and the
// change stream read concurrently.
type MemoryDataStore struct {
	mu             sync.RWMutex
	recordStore    map[string]map[string]record.Record
	changeSetStore map[string]map[string]map[int]record.ChangeSet
}

func NewMemoryDataStore() *MemoryDataStore {
	return &MemoryDataStore{
		recordStore:    make(map[string]map[string]record.Record),
		changeSetStore: make(map[string]map[string]map[int]record.ChangeSet),
	}
}

// copyRecord detaches a record from the store so callers can mutate
// what they get back without corrupting the stored row.
func copyRecord(rec record.Record) record.Record {
	if rec.Version != nil {
		version := *rec.Version
		rec.Version = &version
	}
	if rec.VersionDate != nil {
		versionDate := *rec.VersionDate
		rec.VersionDate = &versionDate
	}
	rec.Doc = rec.Doc.Clone()
	return rec
}

func (m *MemoryDataStore) GetRecord(collection string, id string) (*record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var collectionStore, ok = m.recordStore[collection]
	if !ok {
		return nil, errors.New(RecordDoesNotExistError)
	}
	var rec, found = collectionStore[id]
	if !found {
		return nil, errors.New(RecordDoesNotExistError)
	}

	rec = copyRecord(rec)
	return &rec, nil
}

func (m *MemoryDataStore) SaveRecord(collection string, rec record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	collectionStore, ok := m.recordStore[collection]
	if !ok {
		collectionStore = make(map[string]record.Record)
		m.recordStore[collection] = collectionStore
	}
	collectionStore[rec.Id] = copyRecord(rec)
	return nil
}

func (m *MemoryDataStore) RemoveRecord(collection string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	collectionStore, ok := m.recordStore[collection]
	if !ok {
		return errors.New(RecordDoesNotExistError)
	}
	if _, found := collectionStore[id]; !found {
		return errors.New(RecordDoesNotExistError)
	}
	delete(collectionStore, id)
	return nil
}

func (m *MemoryDataStore) GetRecordIds(collection string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var recordIds = make([]string, 0)
	for id := range m.recordStore[collection] {
		recordIds = append(recordIds, id)
	}
	slices.Sort(recordIds)
	return recordIds, nil
}

func (m *MemoryDataStore) AppendChangeSet(logId string, cs record.ChangeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logStore, ok := m.changeSetStore[logId]
	if !ok {
		logStore = make(map[string]map[int]record.ChangeSet)
		m.changeSetStore[logId] = logStore
	}
	parentStore, ok := logStore[cs.ParentId]
	if !ok {
		parentStore = make(map[int]record.ChangeSet)
		logStore[cs.ParentId] = parentStore
	}

	if _, exists := parentStore[cs.Version]; exists {
		return errors.New(VersionAlreadyExistsError)
	}
	parentStore[cs.Version] = cs
	return nil
}

func (m *MemoryDataStore) GetChangeSets(logId string, parentId string, maxVersion *int) ([]record.ChangeSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	parentStore := m.changeSetStore[logId][parentId]

	versions := make([]int, 0, len(parentStore))
	for version := range parentStore {
		if maxVersion != nil && version > *maxVersion {
			continue
		}
		versions = append(versions, version)
	}
	slices.Sort(versions)

	changeSets := make([]record.ChangeSet, 0, len(versions))
	for _, version := range versions {
		changeSets = append(changeSets, parentStore[version])
	}
	return changeSets, nil
}

func (m *MemoryDataStore) CountChangeSets(logId string, parentId string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.changeSetStore[logId][parentId]), nil
}

func (m *MemoryDataStore) RemoveChangeSet(logId string, parentId string, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	parentStore := m.changeSetStore[logId][parentId]
	if _, exists := parentStore[version]; !exists {
		return errors.New(ChangeSetDoesNotExistError)
	}
	delete(parentStore, version)
	return nil
}

func (m *MemoryDataStore) Ping() error {
	return nil
}

func (m *MemoryDataStore) Close() error {
	return nil
}

var _ DataStore = (*MemoryDataStore)(nil)
