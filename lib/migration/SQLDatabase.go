package migration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/ether/revlog/lib/models/record"
)

// SQLDatabase implements the Database interface for SQL-based key/value stores.
// The expected layout is a single table with a key column holding
// <collection>:<recordId> and a value column holding the document as JSON.
type SQLDatabase struct {
	db          *sql.DB
	tableName   string
	keyColumn   string
	valueColumn string
	placeholder func(n int) string // Returns placeholder like $1 or ? depending on driver
}

type DriverType int

const (
	DriverSQLite DriverType = iota
	DriverPostgres
)

// NewSQLDatabase creates a new SQLDatabase with the appropriate placeholder style
func NewSQLDatabase(db *sql.DB, driver DriverType) *SQLDatabase {
	s := &SQLDatabase{
		db:          db,
		tableName:   "store",
		keyColumn:   "key",
		valueColumn: "value",
	}

	switch driver {
	case DriverPostgres:
		s.placeholder = func(n int) string { return fmt.Sprintf("$%d", n) }
	case DriverSQLite:
		s.placeholder = func(n int) string { return "?" }
	}

	return s
}

func (s *SQLDatabase) Close() error {
	return s.db.Close()
}

// Key pattern: <collection>:<recordId>
var recordKeyRegex = regexp.MustCompile(`^([^:]+):([^:]+)$`)

func (s *SQLDatabase) GetNextRecords(lastKey string, limit int) ([]LegacyRecord, string, error) {
	var query string
	var args []interface{}

	if lastKey == "" {
		query = fmt.Sprintf(
			"SELECT %s, %s FROM %s ORDER BY %s ASC LIMIT %s",
			s.keyColumn, s.valueColumn, s.tableName,
			s.keyColumn, s.placeholder(1),
		)
		args = []interface{}{limit}
	} else {
		query = fmt.Sprintf(
			"SELECT %s, %s FROM %s WHERE %s > %s ORDER BY %s ASC LIMIT %s",
			s.keyColumn, s.valueColumn, s.tableName,
			s.keyColumn, s.placeholder(1),
			s.keyColumn, s.placeholder(2),
		)
		args = []interface{}{lastKey, limit}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var records []LegacyRecord
	var scannedKey string
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, "", fmt.Errorf("scan failed: %w", err)
		}
		scannedKey = key

		matches := recordKeyRegex.FindStringSubmatch(key)
		if matches == nil {
			continue // Skip auxiliary keys like counters or pad:xxx:revs:123
		}

		var doc record.Document
		if err := json.Unmarshal([]byte(value), &doc); err != nil {
			return nil, "", fmt.Errorf("failed to unmarshal record %s: %w", key, err)
		}

		records = append(records, LegacyRecord{
			Collection: matches[1],
			RecordId:   matches[2],
			Doc:        doc,
		})
	}

	return records, scannedKey, rows.Err()
}
