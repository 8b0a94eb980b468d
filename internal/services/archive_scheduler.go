package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kakeibo/internal/core"
)

// Mover is the part of ArchiveService the scheduler drives.
type Mover interface {
	MoveToArchive(ctx context.Context, source string) (core.MoveResult, error)
}

// ArchiveScheduler runs archive moves on a fixed interval.
type ArchiveScheduler struct {
	mover    Mover
	interval time.Duration

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewArchiveScheduler(mover Mover, interval time.Duration) *ArchiveScheduler {
	return &ArchiveScheduler{mover: mover, interval: interval}
}

// Start begins the loop. It returns an error if already running or if the
// interval is not positive.
func (s *ArchiveScheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("archive interval must be positive, got %v", s.interval)
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("archive scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Archive scheduler started", "interval", s.interval)
	return nil
}

// Stop signals the loop and waits for the current move to finish.
func (s *ArchiveScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Archive scheduler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Archive scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *ArchiveScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *ArchiveScheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *ArchiveScheduler) runOnce(ctx context.Context) {
	res, err := s.mover.MoveToArchive(ctx, SourceScheduler)
	if err != nil {
		slog.ErrorContext(ctx, "Scheduled archive move failed", "error", err)
		return
	}
	if res.Moved > 0 || len(res.Rejected) > 0 {
		slog.InfoContext(ctx, "Scheduled archive move finished", "moved", res.Moved, "rejected", len(res.Rejected))
	}
}
