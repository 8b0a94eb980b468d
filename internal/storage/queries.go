package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// timeLayout sorts lexicographically in UTC.
const timeLayout = "2006-01-02 15:04:05.000000000"

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const getSetting = `SELECT value FROM settings WHERE key = ?`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, getSetting, key).Scan(&value)
	return value, err
}

const upsertSetting = `
INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, key, value)
	return err
}

const insertArchiveRow = `INSERT INTO archive_rows (date, amount, payer) VALUES (?, ?, ?)`

type InsertArchiveRowParams struct {
	Date   string
	Amount string
	Payer  string
}

func (q *Queries) InsertArchiveRow(ctx context.Context, arg InsertArchiveRowParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertArchiveRow, arg.Date, arg.Amount, arg.Payer)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listArchiveRows = `SELECT id, date, amount, payer FROM archive_rows ORDER BY id`

type ArchiveRow struct {
	ID     int64
	Date   string
	Amount string
	Payer  string
}

func (q *Queries) ListArchiveRows(ctx context.Context) ([]ArchiveRow, error) {
	rows, err := q.db.QueryContext(ctx, listArchiveRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ArchiveRow
	for rows.Next() {
		var i ArchiveRow
		if err := rows.Scan(&i.ID, &i.Date, &i.Amount, &i.Payer); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertArchiveRun = `
INSERT OR IGNORE INTO archive_runs (event_id, moved, rejected, archive_ref, source, occurred_at)
VALUES (?, ?, ?, ?, ?, ?)`

type InsertArchiveRunParams struct {
	EventID    string
	Moved      int64
	Rejected   int64
	ArchiveRef string
	Source     string
	OccurredAt time.Time
}

// InsertArchiveRun returns the number of inserted rows; 0 means the event was
// already recorded.
func (q *Queries) InsertArchiveRun(ctx context.Context, arg InsertArchiveRunParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertArchiveRun,
		arg.EventID, arg.Moved, arg.Rejected, arg.ArchiveRef, arg.Source, arg.OccurredAt.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listArchiveRuns = `
SELECT id, event_id, moved, rejected, archive_ref, source, occurred_at
FROM archive_runs ORDER BY occurred_at DESC, id DESC LIMIT ?`

type ArchiveRun struct {
	ID         int64
	EventID    string
	Moved      int64
	Rejected   int64
	ArchiveRef string
	Source     string
	OccurredAt time.Time
}

func (q *Queries) ListArchiveRuns(ctx context.Context, limit int64) ([]ArchiveRun, error) {
	rows, err := q.db.QueryContext(ctx, listArchiveRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ArchiveRun
	for rows.Next() {
		var i ArchiveRun
		var occurred string
		if err := rows.Scan(&i.ID, &i.EventID, &i.Moved, &i.Rejected, &i.ArchiveRef, &i.Source, &occurred); err != nil {
			return nil, err
		}
		if i.OccurredAt, err = time.Parse(timeLayout, occurred); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
