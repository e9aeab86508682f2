package usecase

import (
	"context"
	"testing"
	"time"

	"DocumentClassifier/internal/domain"
)

type immediateScheduler struct {
	started bool
	stopped bool
	at      time.Time
}

func (s *immediateScheduler) Start(_ context.Context, job func(time.Time)) error {
	s.started = true
	job(s.at)
	return nil
}

func (s *immediateScheduler) Stop(context.Context) error {
	s.stopped = true
	return nil
}

func TestSweepFailsStaleDocuments(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	ctx := context.Background()
	staleID, _ := store.CreateDocument(ctx, domain.NewDocument{Title: "stuck"})
	freshID, _ := store.CreateDocument(ctx, domain.NewDocument{Title: "fresh"})
	doneID, _ := store.CreateDocument(ctx, domain.NewDocument{Title: "done"})

	now := time.Now()
	store.docs[staleID].CreatedAt = now.Add(-2 * time.Hour)
	store.docs[doneID].CreatedAt = now.Add(-2 * time.Hour)
	store.docs[doneID].Status = domain.StatusProcessed

	driver := &immediateScheduler{at: now}
	sweeper := NewSweeper(driver, store, 30*time.Minute, nil)
	if err := sweeper.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sweeper.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !driver.started || !driver.stopped {
		t.Fatal("expected driver to be started and stopped")
	}

	if got := store.docs[staleID]; got.Status != domain.StatusFailed || got.Error == "" {
		t.Fatalf("stale document not failed: %+v", got)
	}
	if store.docs[freshID].Status != domain.StatusProcessing {
		t.Fatal("fresh document must stay processing")
	}
	if store.docs[doneID].Status != domain.StatusProcessed {
		t.Fatal("terminal documents must not change")
	}

	swept, err := sweeper.Sweep(ctx, now)
	if err != nil || swept != 0 {
		t.Fatalf("second sweep = %d, %v; want 0, nil", swept, err)
	}
}

func TestSweepDisabled(t *testing.T) {
	t.Parallel()

	swept, err := NewSweeper(nil, newMemoryStore(), 0, nil).Sweep(context.Background(), time.Now())
	if err != nil || swept != 0 {
		t.Fatalf("disabled sweep = %d, %v", swept, err)
	}
	if err := NewSweeper(nil, nil, time.Minute, nil).Start(context.Background()); err != nil {
		t.Fatalf("start without driver: %v", err)
	}
}

func TestSweepKeepsDocumentsFinishedMeanwhile(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	ctx := context.Background()
	id, _ := store.CreateDocument(ctx, domain.NewDocument{Title: "slow"})

	now := time.Now()
	store.docs[id].CreatedAt = now.Add(-2 * time.Hour)

	processed := domain.StatusProcessed
	store.beforeTransition = func(docID string) {
		if err := store.UpdateDocument(ctx, docID, domain.DocumentUpdate{Status: &processed}); err != nil {
			t.Errorf("finish document: %v", err)
		}
	}

	swept, err := NewSweeper(nil, store, 30*time.Minute, nil).Sweep(ctx, now)
	if err != nil || swept != 0 {
		t.Fatalf("sweep = %d, %v; want 0, nil", swept, err)
	}
	if got := store.docs[id]; got.Status != domain.StatusProcessed || got.Error != "" {
		t.Fatalf("finished document was overwritten: %+v", got)
	}
}
