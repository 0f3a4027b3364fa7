package migration

import (
	"testing"
)

func TestParseCLIArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		wantHost     string
		wantUser     string
		wantDatabase string
		wantType     string
		wantBackfill bool
		wantErr      bool
	}{
		{
			name:         "sqlite with database file",
			args:         []string{"-type", "sqlite", "-database", "legacy.db"},
			wantDatabase: "legacy.db",
			wantType:     "sqlite",
		},
		{
			name:         "postgres with explicit flags",
			args:         []string{"-host", "localhost:5432", "-username", "revlog", "-database", "legacy", "-type", "postgres"},
			wantHost:     "localhost:5432",
			wantUser:     "revlog",
			wantDatabase: "legacy",
			wantType:     "postgres",
		},
		{
			name:         "shorthand flags",
			args:         []string{"-h", "db.local", "-u", "admin", "-d", "old", "-t", "postgres"},
			wantHost:     "db.local",
			wantUser:     "admin",
			wantDatabase: "old",
			wantType:     "postgres",
		},
		{
			name:         "positional host",
			args:         []string{"db.local:5432", "-t", "postgres", "-u", "admin", "-d", "old"},
			wantHost:     "db.local:5432",
			wantUser:     "admin",
			wantDatabase: "old",
			wantType:     "postgres",
		},
		{
			name:         "backfill flag",
			args:         []string{"-type", "sqlite", "-database", "legacy.db", "-backfill"},
			wantDatabase: "legacy.db",
			wantType:     "sqlite",
			wantBackfill: true,
		},
		{
			name:    "missing type",
			args:    []string{"-database", "legacy.db"},
			wantErr: true,
		},
		{
			name:    "unsupported type",
			args:    []string{"-type", "oracle", "-database", "legacy"},
			wantErr: true,
		},
		{
			name:    "postgres without database",
			args:    []string{"-type", "postgres", "-host", "db.local", "-u", "admin"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, user, database, typ, backfill, err := parseCLIArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseCLIArgs() expected an error for %v", tt.args)
				}
				return
			}
			if err != nil {
				t.Errorf("parseCLIArgs() error = %v", err)
				return
			}
			if host != tt.wantHost {
				t.Errorf("host = %v, want %v", host, tt.wantHost)
			}
			if user != tt.wantUser {
				t.Errorf("user = %v, want %v", user, tt.wantUser)
			}
			if database != tt.wantDatabase {
				t.Errorf("database = %v, want %v", database, tt.wantDatabase)
			}
			if typ != tt.wantType {
				t.Errorf("type = %v, want %v", typ, tt.wantType)
			}
			if backfill != tt.wantBackfill {
				t.Errorf("backfill = %v, want %v", backfill, tt.wantBackfill)
			}
		})
	}
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name       string
		dbType     string
		host       string
		user       string
		password   string
		database   string
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{
			name:       "sqlite",
			dbType:     "sqlite",
			database:   "legacy.db",
			wantDriver: "sqlite",
			wantDSN:    "legacy.db",
		},
		{
			name:       "postgres with port",
			dbType:     "postgres",
			host:       "db.local:5433",
			user:       "revlog",
			password:   "secret",
			database:   "legacy",
			wantDriver: "postgres",
			wantDSN:    "host=db.local port=5433 user=revlog password=secret dbname=legacy sslmode=disable",
		},
		{
			name:       "postgres default port",
			dbType:     "postgres",
			host:       "db.local",
			user:       "revlog",
			password:   "secret",
			database:   "legacy",
			wantDriver: "postgres",
			wantDSN:    "host=db.local port=5432 user=revlog password=secret dbname=legacy sslmode=disable",
		},
		{
			name:    "sqlite without file",
			dbType:  "sqlite",
			wantErr: true,
		},
		{
			name:     "postgres without user",
			dbType:   "postgres",
			host:     "db.local",
			database: "legacy",
			wantErr:  true,
		},
		{
			name:    "unsupported type",
			dbType:  "oracle",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn, err := buildDSN(tt.dbType, tt.host, tt.user, tt.password, tt.database)
			if tt.wantErr {
				if err == nil {
					t.Errorf("buildDSN() expected an error")
				}
				return
			}
			if err != nil {
				t.Errorf("buildDSN() error = %v", err)
				return
			}
			if driver != tt.wantDriver {
				t.Errorf("driver = %v, want %v", driver, tt.wantDriver)
			}
			if dsn != tt.wantDSN {
				t.Errorf("dsn = %v, want %v", dsn, tt.wantDSN)
			}
		})
	}
}
