package backend

import (
	"context"

	"kakeibo/internal/amqp"
	"kakeibo/internal/sheets"
	"kakeibo/internal/sheets/google"
	"kakeibo/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Backend is the set of adapters the services run on.
type Backend struct {
	Live    sheets.LiveTable
	Archive sheets.ArchiveTable

	// Store is the sqlite database, nil when no backend needs it.
	Store *storage.SQLiteRepository
	// Events is nil when AMQP is not configured or unreachable.
	Events *amqp.Client

	ReadyChecks map[string]func(ctx context.Context) error
	Cleanup     CleanupFunc
}

// Config holds configuration for backend creation
type Config struct {
	Live    LiveType
	Archive ArchiveType

	// Live
	LiveSeedFile        string
	GoogleSpreadsheetID string
	GoogleSheetName     string
	Credentials         google.Credentials

	// Drive archive
	ArchiveFileID   string
	ArchiveFileName string
	ArchiveFolderID string

	SQLiteDBPath string
	PostgresURL  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// LiveType selects the live table implementation.
type LiveType string

const (
	SheetsLive LiveType = "sheets"
	MemoryLive LiveType = "memory"
)

func (t LiveType) IsValid() bool {
	return t == SheetsLive || t == MemoryLive
}

// ArchiveType selects the archive table implementation.
type ArchiveType string

const (
	DriveArchive    ArchiveType = "drive"
	SQLiteArchive   ArchiveType = "sqlite"
	PostgresArchive ArchiveType = "postgres"
	MemoryArchive   ArchiveType = "memory"
)

func (t ArchiveType) IsValid() bool {
	switch t {
	case DriveArchive, SQLiteArchive, PostgresArchive, MemoryArchive:
		return true
	default:
		return false
	}
}

// needsStore reports whether t keeps state in the sqlite database.
func (t ArchiveType) needsStore() bool {
	return t == DriveArchive || t == SQLiteArchive
}
