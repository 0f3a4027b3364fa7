package migrations

import (
	"database/sql"
)

// GetMigrations returns all available migrations
func GetMigrations() []Migration {
	return []Migration{
		migration001InitialSchema(),
	}
}

// migration001InitialSchema creates the record and changeset tables
func migration001InitialSchema() Migration {
	return Migration{
		Version:     1,
		Description: "Initial schema - create record and changeset tables",
		Up: func(db *sql.DB, dialect Dialect) error {
			var queries []string

			switch dialect {
			case DialectPostgres:
				queries = getPostgresInitialSchema()
			default:
				queries = getSQLiteInitialSchema()
			}

			for _, query := range queries {
				if _, err := db.Exec(query); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func getSQLiteInitialSchema() []string {
	return []string{
		// RECORD, the live row per collection. version is NULL for rows
		// written before versioning existed.
		`CREATE TABLE IF NOT EXISTS record (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			version INTEGER DEFAULT NULL,
			version_date INTEGER DEFAULT NULL,
			doc TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection, id)
		)`,

		// CHANGESET, the append-only history. The primary key doubles as
		// the optimistic concurrency guard on insert.
		`CREATE TABLE IF NOT EXISTS changeset (
			log_id TEXT NOT NULL,
			parent_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			operations TEXT NOT NULL,
			metadata TEXT DEFAULT NULL,
			created_at INTEGER DEFAULT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (log_id, parent_id, version)
		)`,
	}
}

func getPostgresInitialSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS record (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			version INTEGER DEFAULT NULL,
			version_date BIGINT DEFAULT NULL,
			doc TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection, id)
		)`,

		`CREATE TABLE IF NOT EXISTS changeset (
			log_id TEXT NOT NULL,
			parent_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			operations TEXT NOT NULL,
			metadata TEXT DEFAULT NULL,
			created_at BIGINT DEFAULT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (log_id, parent_id, version)
		)`,
	}
}
