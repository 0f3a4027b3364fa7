package migration

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ether/revlog/lib/history"
	"github.com/ether/revlog/lib/hooks"
	settings2 "github.com/ether/revlog/lib/settings"
	"github.com/ether/revlog/lib/utils"
	"go.uber.org/zap"
)

const RevlogDbPassword = "REVLOG_DB_PASSWORD" // environment variable for the legacy database password

func RunFromCLI(logger *zap.SugaredLogger, args []string) {
	logger.Info("Import CLI called with args:", args)
	dbPassword := os.Getenv(RevlogDbPassword)

	host, user, database, typ, backfill, err := parseCLIArgs(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		logger.Fatal(err)
	}

	_, dsn, err := buildDSN(typ, host, user, dbPassword, database)
	if err != nil {
		logger.Fatal(err)
	}

	legacyStore, err := NewDB(dsn, typ)
	if err != nil {
		logger.Fatalf("Failed to connect to source database: %v", err)
	}
	defer legacyStore.Close()

	settings2.InitSettings(logger)
	var settings = settings2.Displayed

	dbToSaveTo, err := utils.GetDB(settings, logger)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		return
	}

	retrievedHooks := hooks.NewHook()
	manager, err := history.NewManager(dbToSaveTo, &settings, logger, &retrievedHooks)
	if err != nil {
		logger.Fatalf("Failed to prepare the history manager: %v", err)
	}

	migrator := NewMigrator(legacyStore, dbToSaveTo, manager, backfill, logger)
	if _, _, err := migrator.MigrateRecords(); err != nil {
		logger.Fatalf("Failed to migrate records: %v", err)
	}
}

func parseCLIArgs(
	args []string,
) (host, username, database, dbType string, backfill bool, err error) {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)

	// Flags
	fs.StringVar(&host, "host", "", "The database host to import from")
	fs.StringVar(&host, "h", "", "The database host to import from (shorthand)")

	fs.StringVar(&username, "username", "", "The username to use for authentication")
	fs.StringVar(&username, "u", "", "The username to use for authentication (shorthand)")

	fs.StringVar(&database, "database", "", "The database name to use")
	fs.StringVar(&database, "d", "", "The database name to use (shorthand)")

	fs.StringVar(
		&dbType,
		"type",
		"",
		"The database type: sqlite, postgres",
	)
	fs.StringVar(
		&dbType,
		"t",
		"",
		"The database type: sqlite, postgres (shorthand)",
	)

	fs.BoolVar(
		&backfill,
		"backfill",
		false,
		"Version every imported record immediately instead of on its next save",
	)

	// Positional host support
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		host = args[0]
		args = args[1:]
	}

	// Parse flags
	if err = fs.Parse(args); err != nil {
		return
	}

	// Validation
	switch dbType {
	case "sqlite", "postgres":
		// ok
	case "":
		err = fmt.Errorf("database type is required (--type)")
		return
	default:
		err = fmt.Errorf("unsupported database type: %s", dbType)
		return
	}

	if database == "" && dbType != "sqlite" {
		err = fmt.Errorf("database name is required for %s", dbType)
		return
	}

	return
}

func buildDSN(
	dbType string,
	host string,
	user string,
	password string,
	database string,
) (driver string, dsn string, err error) {
	switch dbType {
	case "sqlite":
		if database == "" {
			return "", "", fmt.Errorf("sqlite requires a database file path")
		}
		return "sqlite", database, nil

	case "postgres":
		if host == "" || user == "" || database == "" {
			return "", "", fmt.Errorf("postgres requires host, user, and database")
		}

		hostWithoutPort := host
		port := 5432
		if strings.Contains(host, ":") {
			parts := strings.Split(host, ":")
			hostWithoutPort = parts[0]
			fmt.Sscanf(parts[1], "%d", &port)
		}

		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			hostWithoutPort,
			port,
			user,
			password,
			database,
		)
		return "postgres", dsn, nil

	default:
		return "", "", fmt.Errorf("unsupported database type: %s", dbType)
	}
}
