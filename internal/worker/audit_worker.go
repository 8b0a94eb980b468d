package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/storage"
)

// RunRecorder persists archive runs. *storage.SQLiteRepository implements it.
type RunRecorder interface {
	RecordArchiveRun(ctx context.Context, run storage.RunRecord) (bool, error)
}

// AuditWorker writes every archive event into the local audit log.
type AuditWorker struct {
	store RunRecorder
}

func NewAuditWorker(store RunRecorder) *AuditWorker {
	return &AuditWorker{store: store}
}

// HandleArchiveMoved records one event. Redelivered events are acknowledged
// without writing a second row.
func (w *AuditWorker) HandleArchiveMoved(ctx context.Context, msg *amqp.ArchiveMovedMessage) error {
	inserted, err := w.store.RecordArchiveRun(ctx, storage.RunRecord{
		EventID:    msg.EventID,
		Moved:      msg.Moved,
		Rejected:   msg.Rejected,
		ArchiveRef: msg.ArchiveRef,
		Source:     msg.Source,
		OccurredAt: msg.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("record archive run: %w", err)
	}
	if !inserted {
		slog.InfoContext(ctx, "Archive event already recorded", "event_id", msg.EventID)
		return nil
	}
	slog.InfoContext(ctx, "Archive run recorded",
		"event_id", msg.EventID,
		"moved", msg.Moved,
		"rejected", msg.Rejected,
		"source", msg.Source)
	return nil
}
