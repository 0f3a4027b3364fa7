package migration

import (
	"fmt"

	"github.com/ether/revlog/lib/db"
	"github.com/ether/revlog/lib/history"
	"github.com/ether/revlog/lib/models/record"
	"go.uber.org/zap"
)

type Migrator struct {
	legacyStore  Database
	newDataStore db.DataStore
	manager      *history.Manager
	backfill     bool
	logger       *zap.SugaredLogger
}

// NewMigrator imports records from a legacy key/value store. By default
// imported records carry no version, so their history starts the first
// time someone saves over them. With backfill enabled every record is
// saved through the history manager instead and comes out as version 1.
func NewMigrator(legacyStore Database, newDataStore db.DataStore, manager *history.Manager, backfill bool, logger *zap.SugaredLogger) *Migrator {
	return &Migrator{
		logger:       logger,
		legacyStore:  legacyStore,
		newDataStore: newDataStore,
		manager:      manager,
		backfill:     backfill,
	}
}

func (m *Migrator) MigrateRecords() (imported int, skipped int, err error) {
	m.logger.Info("Starting migration of records...")
	lastKey := ""
	for {
		records, scannedKey, err := m.legacyStore.GetNextRecords(lastKey, 100)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to get records: %v", err)
		}
		if scannedKey == "" {
			break
		}
		lastKey = scannedKey

		for _, rec := range records {
			m.logger.Debugf("Record: %s/%s", rec.Collection, rec.RecordId)

			_, err := m.newDataStore.GetRecord(rec.Collection, rec.RecordId)
			if err == nil {
				skipped++
				continue
			}
			if err.Error() != db.RecordDoesNotExistError {
				return imported, skipped, fmt.Errorf("failed to check record %s/%s: %v", rec.Collection, rec.RecordId, err)
			}

			if err := m.importRecord(rec); err != nil {
				return imported, skipped, fmt.Errorf("failed to save record %s/%s: %v", rec.Collection, rec.RecordId, err)
			}
			imported++
		}
	}
	m.logger.Infof("Finished migration of records. Imported %d, skipped %d already present.", imported, skipped)
	return imported, skipped, nil
}

func (m *Migrator) importRecord(rec LegacyRecord) error {
	doc, err := record.Normalize(rec.Doc)
	if err != nil {
		return err
	}
	// The key names the record, whatever the document body claims.
	doc["id"] = rec.RecordId

	if m.backfill {
		_, err := m.manager.Collection(rec.Collection).Save(doc, history.SaveOptions{})
		return err
	}

	return m.newDataStore.SaveRecord(rec.Collection, record.Record{Id: rec.RecordId, Doc: doc})
}
