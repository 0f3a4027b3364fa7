package settings

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

func ReadConfig(jsonStr string) (*Settings, error) {
	viper.SetConfigName("settings")
	viper.SetConfigType("json")

	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvPrefix("revlog")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if jsonStr != "" {
		if err := viper.ReadConfig(strings.NewReader(jsonStr)); err != nil {
			return nil, err
		}
	} else {
		if err := viper.ReadInConfig(); err != nil {
			var configFileNotFoundError viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFoundError) {
				return nil, err
			}
			// Datei nicht gefunden ist OK, fahre mit Defaults fort
		}
	}

	viper.SetDefault(Title, "Revlog")
	viper.SetDefault(IP, "0.0.0.0")
	viper.SetDefault(Port, "9001")
	viper.SetDefault(Loglevel, "INFO")
	viper.SetDefault(TrustProxy, false)
	viper.SetDefault(EnableMetrics, true)
	viper.SetDefault(ExposeVersion, false)

	viper.SetDefault(DBType, SQLITE)
	viper.SetDefault(DBSettingsHost, nil)
	viper.SetDefault(DBSettingsUser, nil)
	viper.SetDefault(DBSettingsPassword, nil)
	viper.SetDefault(DBSettingsDatabase, nil)
	viper.SetDefault(DBSettingsPort, nil)
	viper.SetDefault(DBSettingsFilename, "var/revlog.db")
	viper.SetDefault(DBSettingsDirectory, "var/revlog")

	viper.SetDefault(VersionsCollectionSuffix, "_versions")
	viper.SetDefault(VersionsTrackDates, true)
	viper.SetDefault(VersionsRollbackStrategy, RollbackPatch)
	viper.SetDefault(VersionsSnapshotCacheSize, 128)

	viper.SetDefault(SocketMaxMessageSize, 50000)
	viper.SetDefault(SocketRateLimitEnabled, true)
	viper.SetDefault(SocketRateLimitPoints, 10)
	viper.SetDefault(SocketRateLimitDuration, 1)

	dbTypeToUse, err := ParseDBType(viper.GetString(DBType))
	if err != nil {
		return nil, err
	}

	rollbackStrategy, err := ParseRollbackStrategy(viper.GetString(VersionsRollbackStrategy))
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Title: viper.GetString(Title),
		IP:    viper.GetString(IP),
		Port:  viper.GetString(Port),

		DBType: dbTypeToUse,
		DBSettings: &DBSettings{
			Host:      viper.GetString(DBSettingsHost),
			Port:      viper.GetString(DBSettingsPort),
			Database:  viper.GetString(DBSettingsDatabase),
			User:      viper.GetString(DBSettingsUser),
			Password:  viper.GetString(DBSettingsPassword),
			Filename:  viper.GetString(DBSettingsFilename),
			Directory: viper.GetString(DBSettingsDirectory),
		},

		EnableMetrics: viper.GetBool(EnableMetrics),
		ExposeVersion: viper.GetBool(ExposeVersion),
		TrustProxy:    viper.GetBool(TrustProxy),
		LogLevel:      viper.GetString(Loglevel),

		Versions: VersionSettings{
			CollectionSuffix:  viper.GetString(VersionsCollectionSuffix),
			TrackDates:        viper.GetBool(VersionsTrackDates),
			RollbackStrategy:  rollbackStrategy,
			SnapshotCacheSize: viper.GetInt(VersionsSnapshotCacheSize),
		},

		Socket: SocketSettings{
			MaxMessageSize: viper.GetInt64(SocketMaxMessageSize),
			RateLimit: RateLimitSettings{
				Enabled:  viper.GetBool(SocketRateLimitEnabled),
				Points:   viper.GetInt(SocketRateLimitPoints),
				Duration: viper.GetInt64(SocketRateLimitDuration),
			},
		},
	}

	return s, nil
}
