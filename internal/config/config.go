package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve in minimal containers

	"kakeibo/internal/log"
)

const (
	LiveSheets   = "sheets"
	LiveMemory   = "memory"
	ArchiveDrive = "drive"

	ArchiveSQLite   = "sqlite"
	ArchivePostgres = "postgres"
	ArchiveMemory   = "memory"
)

type Config struct {
	// HTTP Server
	Port           string
	TrustedProxies []string
	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogFormat string
	Timezone  string

	// LINE
	LineChannelSecret      string
	LineChannelAccessToken string
	LineAPIEndpoint        string

	// Live table
	LiveBackend  string
	LiveSeedFile string

	// Google
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Archive table
	ArchiveBackend  string
	ArchiveFileID   string
	ArchiveFileName string
	ArchiveFolderID string
	ArchiveInterval time.Duration
	ArchiveCacheTTL time.Duration

	// Database
	SQLiteDBPath string
	PostgresURL  string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		LogLevel:  getEnv("LOG_LEVEL", "INFO"),
		LogFormat: getEnv("LOG_FORMAT", log.FormatText),
		Timezone:  getEnv("TIMEZONE", "Asia/Tokyo"),

		LineChannelSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
		LineChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
		LineAPIEndpoint:        getEnv("LINE_API_ENDPOINT", ""),

		LiveBackend:  getEnv("LIVE_BACKEND", LiveSheets),
		LiveSeedFile: getEnv("LIVE_SEED_FILE", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Sheet1"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		ArchiveBackend:  getEnv("ARCHIVE_BACKEND", ArchiveDrive),
		ArchiveFileID:   getEnv("ARCHIVE_FILE_ID", ""),
		ArchiveFileName: getEnv("ARCHIVE_FILE_NAME", "kakeibo_archive.xlsx"),
		ArchiveFolderID: getEnv("ARCHIVE_FOLDER_ID", ""),
		ArchiveInterval: getEnvDuration("ARCHIVE_INTERVAL", 0),
		ArchiveCacheTTL: getEnvDuration("ARCHIVE_CACHE_TTL", time.Minute),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/kakeibo.db"),
		PostgresURL:  getEnv("POSTGRES_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "kakeibo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "archive_events"),
	}
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// NeedsGoogle reports whether any configured backend talks to Google APIs.
func (c *Config) NeedsGoogle() bool {
	return c.LiveBackend == LiveSheets || c.ArchiveBackend == ArchiveDrive
}

// NeedsSQLite reports whether the server opens the sqlite database: the
// Drive backend keeps its file id there and the sqlite backend its rows.
func (c *Config) NeedsSQLite() bool {
	return c.ArchiveBackend == ArchiveDrive || c.ArchiveBackend == ArchiveSQLite
}

// Validate checks the configuration of the webhook server and returns every
// problem in one error.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}
	errs = append(errs, c.validateCommon()...)

	if c.LineChannelSecret == "" {
		errs = append(errs, "LINE_CHANNEL_SECRET is required")
	}
	if c.LineChannelAccessToken == "" {
		errs = append(errs, "LINE_CHANNEL_ACCESS_TOKEN is required")
	}
	if c.LineAPIEndpoint != "" {
		if u, err := url.Parse(c.LineAPIEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid LINE API endpoint '%s'", c.LineAPIEndpoint))
		}
	}

	liveBackends := []string{LiveSheets, LiveMemory}
	if !slices.Contains(liveBackends, c.LiveBackend) {
		errs = append(errs, fmt.Sprintf("invalid live backend '%s': must be one of %v", c.LiveBackend, liveBackends))
	}
	archiveBackends := []string{ArchiveDrive, ArchiveSQLite, ArchivePostgres, ArchiveMemory}
	if !slices.Contains(archiveBackends, c.ArchiveBackend) {
		errs = append(errs, fmt.Sprintf("invalid archive backend '%s': must be one of %v", c.ArchiveBackend, archiveBackends))
	}

	if c.LiveBackend == LiveSheets {
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "GOOGLE_SPREADSHEET_ID is required when using sheets live backend")
		}
		if c.GoogleSheetName == "" {
			errs = append(errs, "GOOGLE_SHEET_NAME cannot be empty when using sheets live backend")
		}
	}
	if c.LiveBackend == LiveMemory && c.LiveSeedFile != "" {
		if _, err := os.Stat(c.LiveSeedFile); err != nil {
			errs = append(errs, fmt.Sprintf("live seed file is not readable: %s", c.LiveSeedFile))
		}
	}
	if c.NeedsGoogle() {
		errs = append(errs, c.validateGoogleCredentials()...)
	}

	if c.ArchiveBackend == ArchiveDrive && c.ArchiveFileID == "" && c.ArchiveFileName == "" {
		errs = append(errs, "ARCHIVE_FILE_NAME cannot be empty when no ARCHIVE_FILE_ID is set")
	}
	if c.ArchiveBackend == ArchivePostgres {
		if c.PostgresURL == "" {
			errs = append(errs, "POSTGRES_URL is required when using postgres archive backend")
		} else if u, err := url.Parse(c.PostgresURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errs = append(errs, "invalid POSTGRES_URL: must be a postgres:// URL")
		}
	}
	if c.NeedsSQLite() {
		errs = append(errs, c.validateSQLitePath()...)
	}

	if c.ArchiveInterval < 0 {
		errs = append(errs, fmt.Sprintf("invalid archive interval %v: must not be negative", c.ArchiveInterval))
	} else if c.ArchiveInterval > 0 && c.ArchiveInterval < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid archive interval %v: must be at least 1 minute", c.ArchiveInterval))
	}
	if c.ArchiveCacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid archive cache TTL %v: must not be negative", c.ArchiveCacheTTL))
	}
	if c.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	return combine(errs)
}

// ValidateWorker checks what the audit worker needs: the sqlite database and
// a broker to consume from.
func (c *Config) ValidateWorker() error {
	errs := c.validateCommon()
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required for the worker")
	}
	errs = append(errs, c.validateSQLitePath()...)
	return combine(errs)
}

func (c *Config) validateCommon() []string {
	var errs []string
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be DEBUG, INFO, WARN or ERROR", c.LogLevel))
	}
	if _, err := log.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}
	return errs
}

func (c *Config) validateGoogleCredentials() []string {
	if c.GoogleServiceAccountJSON != "" {
		return nil
	}
	file := c.GoogleServiceAccountFile
	if file == "" {
		file = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if file == "" {
		return []string{"one of GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_APPLICATION_CREDENTIALS must be provided"}
	}
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return []string{fmt.Sprintf("Google service account file does not exist: %s", file)}
	}
	return nil
}

func (c *Config) validateSQLitePath() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty"}
	}
	if c.SQLiteDBPath == ":memory:" {
		return nil
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func combine(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
