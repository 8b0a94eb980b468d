package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kakeibo/internal/cache"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/sheets"
)

const archiveCacheKey = "archive"

// Viewer runs reads that must not interleave with an archive move.
// *ArchiveService implements it.
type Viewer interface {
	View(fn func() error) error
}

// ExpenseService answers period totals over archived and live rows.
type ExpenseService struct {
	live    sheets.LiveTable
	archive sheets.ArchiveTable
	loc     *time.Location
	now     func() time.Time
	moves   Viewer

	cacheMu    sync.Mutex
	rows       cache.Cache[[]core.RawRow] // archive snapshot, may be nil
	generation uint64                     // bumped by InvalidateArchive
}

// NewExpenseService creates the query side. rowCache may be nil to always
// read the archive.
func NewExpenseService(live sheets.LiveTable, archive sheets.ArchiveTable, loc *time.Location, rowCache cache.Cache[[]core.RawRow]) *ExpenseService {
	if loc == nil {
		loc = time.UTC
	}
	return &ExpenseService{
		live:    live,
		archive: archive,
		loc:     loc,
		now:     time.Now,
		rows:    rowCache,
	}
}

// WithClock replaces the time source, for tests.
func (s *ExpenseService) WithClock(now func() time.Time) *ExpenseService {
	s.now = now
	return s
}

// WithMoves makes queries wait for in-flight archive moves.
func (s *ExpenseService) WithMoves(v Viewer) *ExpenseService {
	s.moves = v
	return s
}

// Location is the zone periods are resolved in.
func (s *ExpenseService) Location() *time.Location { return s.loc }

// SumPeriod totals every archived and not yet archived expense dated in the
// period named by tag.
func (s *ExpenseService) SumPeriod(ctx context.Context, tag core.PeriodTag) (core.PeriodTotal, error) {
	p, err := core.ResolvePeriod(tag, s.now(), s.loc)
	if err != nil {
		return core.PeriodTotal{}, err
	}

	var archived, live []core.RawRow
	err = s.view(func() error {
		var err error
		if archived, err = s.archiveRows(ctx); err != nil {
			return err
		}
		if live, err = s.live.ReadAll(ctx); err != nil {
			return fmt.Errorf("read live table: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.PeriodTotal{}, err
	}

	expenses := core.ParseRows(core.DataRows(archived), s.loc)
	expenses = append(expenses, core.ParseRows(core.DataRows(live), s.loc)...)
	total := core.SumExpenses(expenses, p)

	log.FromContext(ctx).DebugContext(ctx, "Period total computed",
		log.FieldPeriod, string(tag),
		log.FieldPeriodStart, p.Start,
		log.FieldPeriodEnd, p.End,
		log.FieldTotal, total.Total,
		log.FieldRows, total.Rows)
	return total, nil
}

// InvalidateArchive drops the cached archive snapshot. A read that started
// before the call will not store its result.
func (s *ExpenseService) InvalidateArchive() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	if s.rows != nil {
		s.rows.Delete(archiveCacheKey)
	}
}

func (s *ExpenseService) view(fn func() error) error {
	if s.moves == nil {
		return fn()
	}
	return s.moves.View(fn)
}

func (s *ExpenseService) archiveRows(ctx context.Context) ([]core.RawRow, error) {
	if s.rows == nil {
		rows, err := s.archive.ReadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}
		return rows, nil
	}

	s.cacheMu.Lock()
	rows, ok := s.rows.Get(archiveCacheKey)
	gen := s.generation
	s.cacheMu.Unlock()
	if ok {
		return rows, nil
	}

	rows, err := s.archive.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	s.cacheMu.Lock()
	if s.generation == gen {
		s.rows.Set(archiveCacheKey, rows)
	}
	s.cacheMu.Unlock()
	return rows, nil
}
