package settings

// Viper keys of all supported settings. Nested keys use dot notation and
// map to environment variables via EnvVar ("versions.trackDates" becomes
// REVLOG_VERSIONS_TRACKDATES).
const (
	Title         = "title"
	IP            = "ip"
	Port          = "port"
	Loglevel      = "logLevel"
	TrustProxy    = "trustProxy"
	EnableMetrics = "enableMetrics"
	ExposeVersion = "exposeVersion"

	DBType              = "dbType"
	DBSettingsHost      = "dbSettings.host"
	DBSettingsPort      = "dbSettings.port"
	DBSettingsDatabase  = "dbSettings.database"
	DBSettingsUser      = "dbSettings.user"
	DBSettingsPassword  = "dbSettings.password"
	DBSettingsFilename  = "dbSettings.filename"
	DBSettingsDirectory = "dbSettings.directory"

	VersionsCollectionSuffix  = "versions.collectionSuffix"
	VersionsTrackDates        = "versions.trackDates"
	VersionsRollbackStrategy  = "versions.rollbackStrategy"
	VersionsSnapshotCacheSize = "versions.snapshotCacheSize"

	SocketMaxMessageSize    = "socket.maxMessageSize"
	SocketRateLimitEnabled  = "socket.rateLimit.enabled"
	SocketRateLimitPoints   = "socket.rateLimit.points"
	SocketRateLimitDuration = "socket.rateLimit.duration"
)
