package history

import (
	"encoding/json"
	"fmt"
	"time"

	uuid2 "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ether/revlog/lib/db"
	"github.com/ether/revlog/lib/exception"
	"github.com/ether/revlog/lib/hooks"
	"github.com/ether/revlog/lib/hooks/events"
	"github.com/ether/revlog/lib/models/record"
	"github.com/ether/revlog/lib/patch"
	"github.com/ether/revlog/lib/settings"
)

// Log versions a single collection. Every save diffs the incoming document
// against the latest replayed snapshot, appends the diff as a change set
// and then moves the live row forward. The live document is therefore
// always reproducible by replaying the change-set log from the empty
// document.
type Log struct {
	collection string
	logId      string
	store      db.DataStore
	settings   *settings.Settings
	logger     *zap.SugaredLogger
	hook       *hooks.Hook
}

func NewLog(collection string, store db.DataStore, retrievedSettings *settings.Settings, logger *zap.SugaredLogger, hook *hooks.Hook) *Log {
	return &Log{
		collection: collection,
		logId:      collection + retrievedSettings.Versions.CollectionSuffix,
		store:      store,
		settings:   retrievedSettings,
		logger:     logger,
		hook:       hook,
	}
}

func (l *Log) Collection() string {
	return l.collection
}

func (l *Log) LogId() string {
	return l.logId
}

type SaveOptions struct {
	// Metadata is stored verbatim on the appended change set.
	Metadata any
	// SuppressVersioning writes the live document without touching the
	// change-set log. The record keeps whatever version it had.
	SuppressVersioning bool
}

// Save writes doc as the next version of the record identified by
// doc["id"]. A missing or empty id gets a generated one, which is written
// back into the document so the caller learns it. Records written before
// versioning was enabled are backfilled: their current content becomes
// version 1 and the incoming document version 2.
func (l *Log) Save(doc record.Document, opts SaveOptions) (*record.Record, error) {
	normalized, err := record.Normalize(doc)
	if err != nil {
		return nil, err
	}

	var id string
	switch value := normalized["id"].(type) {
	case nil:
		id = uuid2.NewString()
		normalized["id"] = id
	case string:
		if value == "" {
			id = uuid2.NewString()
			normalized["id"] = id
		} else {
			id = value
		}
	default:
		return nil, fmt.Errorf("record id must be a string, got %T", value)
	}
	if doc != nil {
		doc["id"] = normalized["id"]
	}

	existing, err := l.store.GetRecord(l.collection, id)
	if err != nil && err.Error() != db.RecordDoesNotExistError {
		return nil, err
	}

	if opts.SuppressVersioning {
		return l.saveSuppressed(id, normalized, existing)
	}

	metadata, err := normalizeMetadata(opts.Metadata)
	if err != nil {
		return nil, err
	}

	var createdAt *int64
	if l.settings.Versions.TrackDates {
		var now = time.Now().UnixMilli()
		createdAt = &now
	}

	switch {
	case existing == nil:
		return l.saveNew(id, normalized, metadata, createdAt)
	case existing.Version == nil:
		return l.saveBackfill(id, existing.Doc, normalized, metadata, createdAt)
	default:
		return l.saveVersioned(id, *existing.Version, normalized, metadata, createdAt)
	}
}

// saveSuppressed writes the live row and nothing else. The record keeps
// its version fields, no change set is appended and no hook fires.
func (l *Log) saveSuppressed(id string, doc record.Document, existing *record.Record) (*record.Record, error) {
	var rec = record.Record{Id: id, Doc: doc}
	if existing != nil {
		rec.Version = existing.Version
		rec.VersionDate = existing.VersionDate
	}
	if err := l.store.SaveRecord(l.collection, rec); err != nil {
		return nil, err
	}
	savesTotal.WithLabelValues(l.collection, "suppressed").Inc()
	return &rec, nil
}

func (l *Log) saveNew(id string, doc record.Document, metadata any, createdAt *int64) (*record.Record, error) {
	var cs = record.ChangeSet{
		ParentId:   id,
		Version:    1,
		Operations: patch.Diff(record.Document{}, doc),
		Metadata:   metadata,
		CreatedAt:  createdAt,
	}
	if err := l.append(cs); err != nil {
		return nil, err
	}

	var version = 1
	var rec = record.Record{Id: id, Version: &version, VersionDate: createdAt, Doc: doc}
	return l.finish(rec, "new", cs)
}

// saveBackfill turns a record that predates versioning into a versioned
// one. The legacy content becomes version 1 so the incoming write lands
// on top of it instead of erasing it from history. When the legacy row
// was actually written is unknown, so version 1 carries no date.
func (l *Log) saveBackfill(id string, legacy record.Document, doc record.Document, metadata any, createdAt *int64) (*record.Record, error) {
	legacy, err := record.Normalize(legacy)
	if err != nil {
		return nil, err
	}

	var first = record.ChangeSet{
		ParentId:   id,
		Version:    1,
		Operations: patch.Diff(record.Document{}, legacy),
	}
	if err := l.append(first); err != nil {
		return nil, err
	}

	var second = record.ChangeSet{
		ParentId:   id,
		Version:    2,
		Operations: patch.Diff(legacy, doc),
		Metadata:   metadata,
		CreatedAt:  createdAt,
	}
	if err := l.append(second); err != nil {
		return nil, err
	}

	var version = 2
	var rec = record.Record{Id: id, Version: &version, VersionDate: createdAt, Doc: doc}
	return l.finish(rec, "backfill", first, second)
}

func (l *Log) saveVersioned(id string, current int, doc record.Document, metadata any, createdAt *int64) (*record.Record, error) {
	// Diff against the replayed snapshot rather than the live row, so a
	// manually patched row cannot smuggle undiffed state into history.
	before, _, err := l.snapshot(id, &current)
	if err != nil {
		return nil, err
	}

	var next = current + 1
	var cs = record.ChangeSet{
		ParentId:   id,
		Version:    next,
		Operations: patch.Diff(before, doc),
		Metadata:   metadata,
		CreatedAt:  createdAt,
	}
	if err := l.append(cs); err != nil {
		return nil, err
	}

	var rec = record.Record{Id: id, Version: &next, VersionDate: createdAt, Doc: doc}
	return l.finish(rec, "versioned", cs)
}

func (l *Log) append(cs record.ChangeSet) error {
	if err := l.store.AppendChangeSet(l.logId, cs); err != nil {
		if err.Error() == db.VersionAlreadyExistsError {
			savesTotal.WithLabelValues(l.collection, "conflict").Inc()
			return exception.NewVersionConflictError(cs.ParentId, cs.Version)
		}
		return err
	}
	return nil
}

func (l *Log) finish(rec record.Record, outcome string, changeSets ...record.ChangeSet) (*record.Record, error) {
	if err := l.store.SaveRecord(l.collection, rec); err != nil {
		return nil, err
	}
	savesTotal.WithLabelValues(l.collection, outcome).Inc()
	for i := range changeSets {
		l.hook.ExecuteChangeSetAppendedHooks(&events.ChangeSetAppendedContext{
			Collection: l.collection,
			LogId:      l.logId,
			Record:     &rec,
			ChangeSet:  &changeSets[i],
		})
	}
	return &rec, nil
}

// GetVersion reconstructs the record as it was at version. Valid versions
// run from 1 up to the record's current version.
func (l *Log) GetVersion(rec *record.Record, version int) (*record.Record, error) {
	var current = rec.CurrentVersion()
	if version < 1 || version > current {
		return nil, exception.NewInvalidVersionError(version, current)
	}

	doc, versionDate, err := l.snapshot(rec.Id, &version)
	if err != nil {
		return nil, err
	}
	return &record.Record{Id: rec.Id, Version: &version, VersionDate: versionDate, Doc: doc}, nil
}

// Record loads the live row.
func (l *Log) Record(id string) (*record.Record, error) {
	rec, err := l.store.GetRecord(l.collection, id)
	if err != nil {
		if err.Error() == db.RecordDoesNotExistError {
			return nil, exception.NewRecordNotFoundError(id)
		}
		return nil, err
	}
	return rec, nil
}

func (l *Log) RecordIds() ([]string, error) {
	return l.store.GetRecordIds(l.collection)
}

func (l *Log) ChangeSets(parentId string) ([]record.ChangeSet, error) {
	return l.store.GetChangeSets(l.logId, parentId, nil)
}

func (l *Log) VersionCount(parentId string) (int, error) {
	return l.store.CountChangeSets(l.logId, parentId)
}

// snapshot rebuilds the document at maxVersion by replaying the change-set
// log from the empty document. It also returns the CreatedAt of the last
// replayed change set. The log must be a contiguous run 1..maxVersion,
// anything else means the history is damaged and replaying it would
// silently produce the wrong document.
func (l *Log) snapshot(parentId string, maxVersion *int) (record.Document, *int64, error) {
	changeSets, err := l.store.GetChangeSets(l.logId, parentId, maxVersion)
	if err != nil {
		return nil, nil, err
	}
	if len(changeSets) == 0 {
		return nil, nil, exception.NewRecordNotFoundError(parentId)
	}

	var patches = make([]patch.Patch, 0, len(changeSets))
	for i, cs := range changeSets {
		if cs.Version != i+1 {
			return nil, nil, fmt.Errorf("change-set log for '%s' is broken: expected version %d, found %d", parentId, i+1, cs.Version)
		}
		patches = append(patches, cs.Operations)
	}
	if maxVersion != nil && len(changeSets) != *maxVersion {
		return nil, nil, fmt.Errorf("change-set log for '%s' is broken: version %d is missing", parentId, len(changeSets)+1)
	}

	doc, err := patch.Apply(record.Document{}, patch.Compose(patches))
	if err != nil {
		return nil, nil, err
	}

	replayLength.WithLabelValues(l.collection).Observe(float64(len(changeSets)))
	return doc, changeSets[len(changeSets)-1].CreatedAt, nil
}

// normalizeMetadata round trips metadata through JSON so the value a
// reader gets back is independent of the backing store.
func normalizeMetadata(metadata any) (any, error) {
	if metadata == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("change-set metadata is not serializable: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(encoded, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}
