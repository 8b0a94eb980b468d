package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"kakeibo/internal/core"
	ports "kakeibo/internal/sheets"

	_ "modernc.org/sqlite"
)

const settingArchiveFileID = "archive_file_id"

// ArchiveRef is returned by Append for the sqlite archive.
const ArchiveRef = "sqlite:archive_rows"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ports.ArchiveTable = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY between the server and scheduler.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("sqlite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ArchiveFileID returns the stored Drive archive id, or "" when none is set.
func (r *SQLiteRepository) ArchiveFileID(ctx context.Context) (string, error) {
	id, err := r.queries.GetSetting(ctx, settingArchiveFileID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", settingArchiveFileID, err)
	}
	return id, nil
}

func (r *SQLiteRepository) SetArchiveFileID(ctx context.Context, id string) error {
	if err := r.queries.UpsertSetting(ctx, settingArchiveFileID, id); err != nil {
		return fmt.Errorf("set setting %s: %w", settingArchiveFileID, err)
	}
	slog.InfoContext(ctx, "Archive file id persisted", "file_id", id)
	return nil
}

// Append inserts rows in a single transaction.
func (r *SQLiteRepository) Append(ctx context.Context, rows []core.RawRow) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	var lastID int64
	for _, row := range rows {
		lastID, err = q.InsertArchiveRow(ctx, InsertArchiveRowParams{
			Date:   row.Cell(0),
			Amount: row.Cell(1),
			Payer:  row.Cell(2),
		})
		if err != nil {
			return "", fmt.Errorf("insert archive row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit archive rows: %w", err)
	}

	slog.InfoContext(ctx, "Rows archived to SQLite", "count", len(rows), "last_id", lastID)
	return ArchiveRef, nil
}

// ReadAll returns the header followed by every archived row in insertion order.
func (r *SQLiteRepository) ReadAll(ctx context.Context) ([]core.RawRow, error) {
	items, err := r.queries.ListArchiveRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list archive rows: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]core.RawRow, 0, len(items)+1)
	out = append(out, append(core.RawRow(nil), core.ArchiveHeader...))
	for _, it := range items {
		out = append(out, core.RawRow{it.Date, it.Amount, it.Payer})
	}
	return out, nil
}

// RunRecord is one archive move as seen by the audit worker.
type RunRecord struct {
	EventID    string
	Moved      int
	Rejected   int
	ArchiveRef string
	Source     string
	OccurredAt time.Time
}

// RecordArchiveRun stores a run. It reports false when the event id was
// already recorded, so redelivered messages are harmless.
func (r *SQLiteRepository) RecordArchiveRun(ctx context.Context, run RunRecord) (bool, error) {
	n, err := r.queries.InsertArchiveRun(ctx, InsertArchiveRunParams{
		EventID:    run.EventID,
		Moved:      int64(run.Moved),
		Rejected:   int64(run.Rejected),
		ArchiveRef: run.ArchiveRef,
		Source:     run.Source,
		OccurredAt: run.OccurredAt,
	})
	if err != nil {
		return false, fmt.Errorf("insert archive run %s: %w", run.EventID, err)
	}
	return n > 0, nil
}

// RecentArchiveRuns lists the latest runs, newest first.
func (r *SQLiteRepository) RecentArchiveRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	items, err := r.queries.ListArchiveRuns(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list archive runs: %w", err)
	}
	out := make([]RunRecord, len(items))
	for i, it := range items {
		out[i] = RunRecord{
			EventID:    it.EventID,
			Moved:      int(it.Moved),
			Rejected:   int(it.Rejected),
			ArchiveRef: it.ArchiveRef,
			Source:     it.Source,
			OccurredAt: it.OccurredAt,
		}
	}
	return out, nil
}
