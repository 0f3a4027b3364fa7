package settings

import (
	"strings"

	"github.com/spf13/viper"
)

type ConfigKey struct {
	Key         string
	Default     any
	Description string
}

const envPrefix = "REVLOG"

func EnvVar(key string) string {
	return envPrefix + "_" + strings.ToUpper(
		strings.ReplaceAll(key, ".", "_"),
	)
}

var Registry = []ConfigKey{
	// ---------------------------------------------------------------------
	// Core
	// ---------------------------------------------------------------------
	{Key: Title, Default: "Revlog", Description: "Application title"},
	{Key: IP, Default: "0.0.0.0", Description: "Bind address"},
	{Key: Port, Default: "9001", Description: "HTTP server port"},
	{Key: Loglevel, Default: "INFO", Description: "Log level"},
	{Key: TrustProxy, Default: false, Description: "Trust reverse proxy"},

	// ---------------------------------------------------------------------
	// Database
	// ---------------------------------------------------------------------
	{Key: DBType, Default: SQLITE, Description: "Database type"},
	{Key: DBSettingsHost, Default: nil, Description: "Database host"},
	{Key: DBSettingsUser, Default: nil, Description: "Database user"},
	{Key: DBSettingsPassword, Default: nil, Description: "Database password"},
	{Key: DBSettingsDatabase, Default: nil, Description: "Database name"},
	{Key: DBSettingsPort, Default: nil, Description: "Database port"},
	{
		Key:         DBSettingsFilename,
		Default:     "var/revlog.db",
		Description: "SQLite database filename",
	},
	{
		Key:         DBSettingsDirectory,
		Default:     "var/revlog",
		Description: "Pebble database directory",
	},

	// ---------------------------------------------------------------------
	// Versioning
	// ---------------------------------------------------------------------
	{
		Key:         VersionsCollectionSuffix,
		Default:     "_versions",
		Description: "Suffix of the change-set log backing a collection",
	},
	{
		Key:         VersionsTrackDates,
		Default:     true,
		Description: "Store a timestamp on every version",
	},
	{
		Key:         VersionsRollbackStrategy,
		Default:     RollbackPatch,
		Description: "Rollback strategy (patch or replay)",
	},
	{
		Key:         VersionsSnapshotCacheSize,
		Default:     128,
		Description: "Number of reconstructed snapshots kept in memory",
	},

	// ---------------------------------------------------------------------
	// Misc / runtime
	// ---------------------------------------------------------------------
	{Key: EnableMetrics, Default: true, Description: "Enable metrics"},
	{Key: ExposeVersion, Default: false, Description: "Expose version"},
	{
		Key:         SocketMaxMessageSize,
		Default:     50000,
		Description: "Max WebSocket message size in bytes",
	},
	{
		Key:         SocketRateLimitEnabled,
		Default:     true,
		Description: "Rate limit WebSocket messages per client",
	},
	{
		Key:         SocketRateLimitPoints,
		Default:     10,
		Description: "Messages allowed per rate limit window",
	},
	{
		Key:         SocketRateLimitDuration,
		Default:     1,
		Description: "Rate limit window in seconds",
	},
}

func ApplyRegistryDefaults() {
	for _, c := range Registry {
		viper.SetDefault(c.Key, c.Default)
	}
}
