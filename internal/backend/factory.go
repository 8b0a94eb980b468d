package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/archive/drive"
	"kakeibo/internal/sheets"
	gsheet "kakeibo/internal/sheets/google"
	"kakeibo/internal/sheets/memory"
	"kakeibo/internal/storage"
	"kakeibo/internal/storage/postgres"
)

// Factory builds a Backend from configuration.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create opens every adapter named by config. On error anything already
// opened is closed again.
func (f *Factory) Create(ctx context.Context, config Config) (_ *Backend, err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	b := &Backend{ReadyChecks: map[string]func(context.Context) error{}}
	var closers []func() error
	defer func() {
		if err != nil {
			runClosers(closers)
		}
	}()

	if config.Archive.needsStore() {
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		closers = append(closers, repo.Close)
		b.Store = repo
		b.ReadyChecks["sqlite"] = repo.Ping
		f.logger.InfoContext(ctx, "Initialized SQLite store", "db_path", config.SQLiteDBPath)
	}

	if b.Live, err = f.createLive(ctx, config); err != nil {
		return nil, err
	}

	archive, closeArchive, err := f.createArchive(ctx, config, b)
	if err != nil {
		return nil, err
	}
	if closeArchive != nil {
		closers = append(closers, closeArchive)
	}
	b.Archive = archive

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without archive events", "error", err)
		} else {
			closers = append(closers, client.Close)
			b.Events = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	b.Cleanup = func() error { return runClosers(closers) }
	return b, nil
}

func (f *Factory) createLive(ctx context.Context, config Config) (sheets.LiveTable, error) {
	switch config.Live {
	case SheetsLive:
		cli, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID: config.GoogleSpreadsheetID,
			SheetName:     config.GoogleSheetName,
			Credentials:   config.Credentials,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets live table", "sheet", config.GoogleSheetName)
		return cli, nil
	case MemoryLive:
		if config.LiveSeedFile != "" {
			f.logger.InfoContext(ctx, "Initialized memory live table", "seed_file", config.LiveSeedFile)
			return memory.NewLiveFromFile(config.LiveSeedFile), nil
		}
		f.logger.InfoContext(ctx, "Initialized memory live table")
		return memory.NewLive(), nil
	default:
		return nil, fmt.Errorf("unsupported live backend: %s", config.Live)
	}
}

func (f *Factory) createArchive(ctx context.Context, config Config, b *Backend) (sheets.ArchiveTable, func() error, error) {
	switch config.Archive {
	case DriveArchive:
		a, err := drive.New(ctx, drive.Config{
			FileID:      config.ArchiveFileID,
			FileName:    config.ArchiveFileName,
			FolderID:    config.ArchiveFolderID,
			Credentials: config.Credentials,
		}, b.Store)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Drive archive: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Drive archive", "file_name", config.ArchiveFileName)
		return a, nil, nil
	case SQLiteArchive:
		return b.Store, nil, nil
	case PostgresArchive:
		a, err := postgres.New(ctx, postgres.Config{URL: config.PostgresURL}, f.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Postgres archive: %w", err)
		}
		b.ReadyChecks["postgres"] = a.Ping
		return a, func() error { a.Close(); return nil }, nil
	case MemoryArchive:
		f.logger.InfoContext(ctx, "Initialized memory archive")
		return memory.NewArchive(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported archive backend: %s", config.Archive)
	}
}

// runClosers closes in reverse opening order.
func runClosers(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
