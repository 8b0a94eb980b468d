package services

import (
	"context"
	"fmt"
	"sync"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/sheets"
)

// Sources of an archive move, carried on events and in logs.
const (
	SourceWebhook   = "webhook"
	SourceScheduler = "scheduler"
)

// EventPublisher announces completed moves. *amqp.Client implements it.
type EventPublisher interface {
	PublishArchiveMoved(ctx context.Context, msg *amqp.ArchiveMovedMessage) error
}

// ArchiveService moves rows from the live table into the archive.
type ArchiveService struct {
	live    sheets.LiveTable
	archive sheets.ArchiveTable
	events  EventPublisher

	mu      sync.RWMutex // write-held for a whole move, read-held by View
	onMoved []func()
}

// NewArchiveService wires the mover. events may be nil.
func NewArchiveService(live sheets.LiveTable, archive sheets.ArchiveTable, events EventPublisher) *ArchiveService {
	return &ArchiveService{live: live, archive: archive, events: events}
}

// OnMoved registers fn to run after a move changed the archive. It runs
// after the live table was cleared, or failed to clear, and before the
// move releases its lock.
func (s *ArchiveService) OnMoved(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMoved = append(s.onMoved, fn)
}

// MoveToArchive reads the live table, appends valid rows to the archive and
// clears the live table. Rows missing a date or amount are reported in
// Rejected. When nothing is valid neither table is touched.
//
// The append and the clear are not atomic: if Clear fails the rows are
// already archived and a retry archives them again.
func (s *ArchiveService) MoveToArchive(ctx context.Context, source string) (core.MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := log.FromContext(ctx)

	rows, err := s.live.ReadAll(ctx)
	if err != nil {
		return core.MoveResult{}, fmt.Errorf("read live table: %w", err)
	}
	data := core.DataRows(rows)
	if len(data) == 0 {
		logger.DebugContext(ctx, "Live table has no data rows", log.FieldSource, source)
		return core.MoveResult{}, nil
	}

	var res core.MoveResult
	valid := make([]core.RawRow, 0, len(data))
	for i, r := range data {
		cells, err := r.ArchiveCells()
		if err != nil {
			// Sheet rows are 1-based and row 1 is the header.
			res.Rejected = append(res.Rejected, core.RejectedRow{Index: i + 2, Cells: r, Reason: err.Error()})
			continue
		}
		valid = append(valid, cells)
	}
	for _, rj := range res.Rejected {
		logger.WarnContext(ctx, "Live row rejected", "row", rj.Index, "reason", rj.Reason)
	}
	if len(valid) == 0 {
		return res, nil
	}

	ref, err := s.archive.Append(ctx, valid)
	if err != nil {
		return res, fmt.Errorf("append to archive: %w", err)
	}
	res.ArchiveRef = ref
	res.Moved = len(valid)

	clearErr := s.live.Clear(ctx)
	s.notifyMoved()
	if clearErr != nil {
		return res, fmt.Errorf("archived %d rows but failed to clear live table: %w", res.Moved, clearErr)
	}

	log.NewStructuredLogger(logger).LogArchiveMoved(ctx, source, res.Moved, len(res.Rejected), ref)
	s.publish(ctx, res, source)
	return res, nil
}

// View runs fn while no move is in progress, so reads inside fn see both
// tables either before or after a move, never in between.
func (s *ArchiveService) View(fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

func (s *ArchiveService) notifyMoved() {
	for _, fn := range s.onMoved {
		fn()
	}
}

func (s *ArchiveService) publish(ctx context.Context, res core.MoveResult, source string) {
	if s.events == nil {
		return
	}
	msg := amqp.NewArchiveMovedMessage(res, source)
	if err := s.events.PublishArchiveMoved(ctx, msg); err != nil {
		// The move already happened; the audit trail is best effort.
		log.FromContext(ctx).ErrorContext(ctx, "Failed to publish archive event",
			"event_id", msg.EventID, log.FieldError, err)
	}
}
