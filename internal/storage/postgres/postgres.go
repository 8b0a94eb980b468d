// Package postgres provides a PostgreSQL archive table.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kakeibo/internal/core"
	ports "kakeibo/internal/sheets"
)

//go:embed 001_create_archive_rows.sql
var migrationSQL string

// Ref is returned by Append.
const Ref = "postgres:archive_rows"

type Config struct {
	URL         string
	MaxPoolSize int
}

// Archive stores archived rows in a table; appends are native inserts.
type Archive struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ ports.ArchiveTable = (*Archive)(nil)

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("missing POSTGRES_URL")
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 4
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, migrationSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("connected to PostgreSQL archive", "host", poolConfig.ConnConfig.Host, "database", poolConfig.ConnConfig.Database)
	return &Archive{pool: pool, logger: logger}, nil
}

func (a *Archive) Close() {
	a.pool.Close()
}

func (a *Archive) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// Append inserts rows in one transaction using a batch.
func (a *Archive) Append(ctx context.Context, rows []core.RawRow) (string, error) {
	if len(rows) == 0 {
		return Ref, nil
	}
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`INSERT INTO archive_rows (date, amount, payer) VALUES ($1, $2, $3)`,
			r.Cell(0), r.Cell(1), r.Cell(2))
	}
	br := tx.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return "", fmt.Errorf("inserting archive row %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return "", fmt.Errorf("closing batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("committing archive rows: %w", err)
	}

	a.logger.Info("archived rows to PostgreSQL", "count", len(rows))
	return Ref, nil
}

// ReadAll returns the header followed by every row in insertion order.
func (a *Archive) ReadAll(ctx context.Context) ([]core.RawRow, error) {
	rows, err := a.pool.Query(ctx, `SELECT date, amount, payer FROM archive_rows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying archive rows: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.RawRow, error) {
		var date, amount, payer string
		if err := row.Scan(&date, &amount, &payer); err != nil {
			return nil, err
		}
		return core.RawRow{date, amount, payer}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning archive rows: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return append([]core.RawRow{append(core.RawRow(nil), core.ArchiveHeader...)}, out...), nil
}
