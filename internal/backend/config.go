package backend

import (
	"fmt"

	"kakeibo/internal/config"
	"kakeibo/internal/sheets/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Live:    LiveType(appConfig.LiveBackend),
		Archive: ArchiveType(appConfig.ArchiveBackend),

		LiveSeedFile:        appConfig.LiveSeedFile,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
		Credentials: google.Credentials{
			JSON: appConfig.GoogleServiceAccountJSON,
			File: appConfig.GoogleServiceAccountFile,
		},

		ArchiveFileID:   appConfig.ArchiveFileID,
		ArchiveFileName: appConfig.ArchiveFileName,
		ArchiveFolderID: appConfig.ArchiveFolderID,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		PostgresURL:  appConfig.PostgresURL,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Live.IsValid() {
		return fmt.Errorf("invalid live backend: %s", c.Live)
	}
	if !c.Archive.IsValid() {
		return fmt.Errorf("invalid archive backend: %s", c.Archive)
	}
	if c.Live == SheetsLive && c.GoogleSpreadsheetID == "" {
		return fmt.Errorf("Google Spreadsheet ID is required for sheets live backend")
	}
	if c.Archive.needsStore() && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for %s archive backend", c.Archive)
	}
	if c.Archive == PostgresArchive && c.PostgresURL == "" {
		return fmt.Errorf("Postgres URL is required for postgres archive backend")
	}
	return nil
}
