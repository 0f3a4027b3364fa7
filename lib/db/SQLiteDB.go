package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/ether/revlog/lib/db/migrations"
	"github.com/ether/revlog/lib/models/record"
	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	path  string
	sqlDB *sql.DB
}

// ============== RECORD METHODS ==============

func (d SQLiteDB) GetRecord(collection string, id string) (*record.Record, error) {
	resultedSQL, args, err := sq.
		Select("id", "version", "version_date", "doc").
		From("record").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()

	if err != nil {
		return nil, err
	}

	row := d.sqlDB.QueryRow(resultedSQL, args...)

	rec, err := ReadToRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(RecordDoesNotExistError)
		}
		return nil, err
	}
	return rec, nil
}

func (d SQLiteDB) SaveRecord(collection string, rec record.Record) error {
	doc, err := json.Marshal(rec.Doc)
	if err != nil {
		return fmt.Errorf("error marshaling doc: %w", err)
	}

	resultedSQL, args, err := sq.
		Insert("record").
		Columns("collection", "id", "version", "version_date", "doc").
		Values(collection, rec.Id, rec.Version, rec.VersionDate, string(doc)).
		Suffix(`ON CONFLICT(collection, id) DO UPDATE SET
			version = excluded.version,
			version_date = excluded.version_date,
			doc = excluded.doc,
			updated_at = CURRENT_TIMESTAMP`).
		ToSql()

	if err != nil {
		return err
	}

	_, err = d.sqlDB.Exec(resultedSQL, args...)
	return err
}

func (d SQLiteDB) RemoveRecord(collection string, id string) error {
	resultedSQL, args, err := sq.
		Delete("record").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()

	if err != nil {
		return err
	}

	result, err := d.sqlDB.Exec(resultedSQL, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New(RecordDoesNotExistError)
	}
	return nil
}

func (d SQLiteDB) GetRecordIds(collection string) ([]string, error) {
	resultedSQL, args, err := sq.
		Select("id").
		From("record").
		Where(sq.Eq{"collection": collection}).
		OrderBy("id ASC").
		ToSql()

	if err != nil {
		return nil, err
	}

	rows, err := d.sqlDB.Query(resultedSQL, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recordIds = make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		recordIds = append(recordIds, id)
	}
	return recordIds, rows.Err()
}

// ============== CHANGE SET METHODS ==============

func (d SQLiteDB) AppendChangeSet(logId string, cs record.ChangeSet) error {
	operations, metadata, err := changeSetColumns(cs)
	if err != nil {
		return err
	}

	resultedSQL, args, err := sq.
		Insert("changeset").
		Columns("log_id", "parent_id", "version", "operations", "metadata", "created_at").
		Values(logId, cs.ParentId, cs.Version, operations, metadata, cs.CreatedAt).
		Suffix(`ON CONFLICT(log_id, parent_id, version) DO NOTHING`).
		ToSql()

	if err != nil {
		return err
	}

	result, err := d.sqlDB.Exec(resultedSQL, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New(VersionAlreadyExistsError)
	}
	return nil
}

func (d SQLiteDB) GetChangeSets(logId string, parentId string, maxVersion *int) ([]record.ChangeSet, error) {
	builder := sq.
		Select("parent_id", "version", "operations", "metadata", "created_at").
		From("changeset").
		Where(sq.Eq{"log_id": logId, "parent_id": parentId})

	if maxVersion != nil {
		builder = builder.Where(sq.LtOrEq{"version": *maxVersion})
	}

	resultedSQL, args, err := builder.OrderBy("version ASC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := d.sqlDB.Query(resultedSQL, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changeSets = make([]record.ChangeSet, 0)
	for rows.Next() {
		cs, err := ReadToChangeSet(rows)
		if err != nil {
			return nil, err
		}
		changeSets = append(changeSets, *cs)
	}
	return changeSets, rows.Err()
}

func (d SQLiteDB) CountChangeSets(logId string, parentId string) (int, error) {
	resultedSQL, args, err := sq.
		Select("COUNT(*)").
		From("changeset").
		Where(sq.Eq{"log_id": logId, "parent_id": parentId}).
		ToSql()

	if err != nil {
		return 0, err
	}

	var count int
	if err := d.sqlDB.QueryRow(resultedSQL, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (d SQLiteDB) RemoveChangeSet(logId string, parentId string, version int) error {
	resultedSQL, args, err := sq.
		Delete("changeset").
		Where(sq.Eq{"log_id": logId, "parent_id": parentId, "version": version}).
		ToSql()

	if err != nil {
		return err
	}

	result, err := d.sqlDB.Exec(resultedSQL, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New(ChangeSetDoesNotExistError)
	}
	return nil
}

func (d SQLiteDB) Ping() error {
	return d.sqlDB.Ping()
}

func (d SQLiteDB) Close() error {
	return d.sqlDB.Close()
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	if path == ":memory" {
		path = "file::memory:?cache=shared"
	}

	sqlDb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if strings.Contains(path, ":memory:") {
		sqlDb.SetMaxOpenConns(1)
	}

	if _, err = sqlDb.Exec("PRAGMA journal_mode = WAL"); err != nil {
		sqlDb.Close()
		return nil, err
	}
	if _, err = sqlDb.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		sqlDb.Close()
		return nil, err
	}
	if _, err = sqlDb.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDb.Close()
		return nil, err
	}

	migrationManager := migrations.NewMigrationManager(sqlDb, migrations.DialectSQLite)
	if err := migrationManager.Run(); err != nil {
		sqlDb.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteDB{
		path:  path,
		sqlDB: sqlDb,
	}, nil
}

var _ DataStore = (*SQLiteDB)(nil)
