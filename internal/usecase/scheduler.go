package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/ports"
)

const staleReason = "processing did not finish before the stale deadline"

// Sweeper wires the cron driver with the stale-document sweep.
type Sweeper struct {
	driver     ports.Scheduler
	store      ports.DocumentStore
	staleAfter time.Duration
	logger     *slog.Logger
}

// NewSweeper returns a helper to start/stop the recurring sweep.
func NewSweeper(driver ports.Scheduler, store ports.DocumentStore, staleAfter time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{driver: driver, store: store, staleAfter: staleAfter, logger: logger}
}

// Start registers the sweep with the provided scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.driver == nil || s.store == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.Sweep(ctx, trigger); err != nil {
			s.logger.Error("stale sweep failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// Sweep forces documents stuck in processing since before now-staleAfter to
// failed and returns how many were moved.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	if s.store == nil || s.staleAfter <= 0 {
		return 0, nil
	}

	stale, err := s.store.StaleDocuments(ctx, now.Add(-s.staleAfter))
	if err != nil {
		return 0, fmt.Errorf("load stale documents: %w", err)
	}

	swept := 0
	for _, doc := range stale {
		if doc.Status != domain.StatusProcessing {
			continue
		}
		status := domain.StatusFailed
		reason := staleReason
		moved, err := s.store.TransitionDocument(ctx, doc.ID, domain.StatusProcessing,
			domain.DocumentUpdate{Status: &status, Error: &reason})
		if err != nil {
			s.logger.Warn("fail stale document", "document_id", doc.ID, "error", err)
			continue
		}
		if moved {
			swept++
		}
	}

	if swept > 0 {
		s.logger.Info("swept stale documents", "count", swept)
	}
	return swept, nil
}
