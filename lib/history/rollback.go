package history

import (
	"fmt"

	"github.com/ether/revlog/lib/exception"
	"github.com/ether/revlog/lib/hooks/events"
	"github.com/ether/revlog/lib/models/record"
	"github.com/ether/revlog/lib/patch"
	"github.com/ether/revlog/lib/settings"
)

type RollbackResult struct {
	// Record is the state after the rollback, nil when the rollback removed
	// the record entirely.
	Record  *record.Record
	Deleted bool
}

// Rollback discards the record's newest version. Rolling back version 1
// removes the record and its change set, there is nothing older to fall
// back to. How the previous document is rebuilt depends on the configured
// strategy, see settings.RollbackStrategy for the tradeoff.
//
// The live row is restored before the log is trimmed. A trim that fails
// halfway leaves a correct row and a conflict on the next save, never a
// replay that silently drifts from the data.
func (l *Log) Rollback(rec *record.Record) (*RollbackResult, error) {
	var current = rec.CurrentVersion()
	if current == 0 {
		return nil, exception.NewNoPreviousVersionError(rec.Id)
	}

	if current == 1 {
		if err := l.store.RemoveRecord(l.collection, rec.Id); err != nil {
			return nil, err
		}
		if err := l.store.RemoveChangeSet(l.logId, rec.Id, 1); err != nil {
			return nil, err
		}
		rollbacksTotal.WithLabelValues(l.collection, "delete").Inc()
		l.hook.ExecuteRecordRolledBackHooks(&events.RecordRolledBackContext{
			Collection:     l.collection,
			LogId:          l.logId,
			RecordId:       rec.Id,
			RemovedVersion: 1,
			Deleted:        true,
		})
		return &RollbackResult{Deleted: true}, nil
	}

	var previous = current - 1
	var strategy = l.settings.Versions.RollbackStrategy

	doc, versionDate, err := l.previousDocument(rec, previous, strategy)
	if err != nil {
		return nil, err
	}

	var restored = record.Record{Id: rec.Id, Version: &previous, VersionDate: versionDate, Doc: doc}
	if err := l.store.SaveRecord(l.collection, restored); err != nil {
		return nil, err
	}
	if err := l.store.RemoveChangeSet(l.logId, rec.Id, current); err != nil {
		return nil, err
	}

	rollbacksTotal.WithLabelValues(l.collection, strategy.String()).Inc()
	l.hook.ExecuteRecordRolledBackHooks(&events.RecordRolledBackContext{
		Collection:     l.collection,
		LogId:          l.logId,
		RecordId:       rec.Id,
		RemovedVersion: current,
		NewVersion:     &previous,
	})
	return &RollbackResult{Record: &restored}, nil
}

func (l *Log) previousDocument(rec *record.Record, previous int, strategy settings.RollbackStrategy) (record.Document, *int64, error) {
	if strategy == settings.RollbackReplay {
		return l.snapshot(rec.Id, &previous)
	}

	// Patch strategy: reapply the change set that produced the previous
	// version onto the live document. One read instead of a full replay,
	// but fields that change set never touched keep their newest value.
	changeSets, err := l.store.GetChangeSets(l.logId, rec.Id, &previous)
	if err != nil {
		return nil, nil, err
	}
	if len(changeSets) == 0 {
		return nil, nil, exception.NewNoPreviousVersionError(rec.Id)
	}
	var last = changeSets[len(changeSets)-1]
	if last.Version != previous {
		return nil, nil, fmt.Errorf("change-set log for '%s' is broken: expected version %d, found %d", rec.Id, previous, last.Version)
	}

	doc, err := patch.Apply(rec.Doc, last.Operations)
	if err != nil {
		return nil, nil, err
	}
	return doc, last.CreatedAt, nil
}
