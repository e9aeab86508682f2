package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"DocumentClassifier/internal/classify"
	"DocumentClassifier/internal/domain"
)

// persist writes the classification onto the document and marks it processed.
// When the full write fails the status alone is forced to processed.
func (p *Pipeline) persist(ctx context.Context, doc domain.Document) domain.Outcome[domain.Document] {
	ctx = context.WithoutCancel(ctx)
	status := domain.StatusProcessed

	update := domain.DocumentUpdate{
		Status:                &status,
		ActionPoints:          doc.ActionPoints,
		DepartmentID:          &doc.DepartmentID,
		Priority:              &doc.Priority,
		CrossDepartment:       &doc.CrossDepartment,
		AffectedDepartmentIDs: doc.AffectedDepartmentIDs,
		Targeting:             doc.Targeting,
	}
	if doc.OriginalLanguage != "" {
		update.OriginalLanguage = &doc.OriginalLanguage
	}

	err := p.store.UpdateDocument(ctx, doc.ID, update)
	if err == nil {
		return domain.Ok(doc)
	}

	warning := fmt.Errorf("%w: update document %s: %v", domain.ErrPersistenceWarning, doc.ID, err)
	if ferr := p.store.UpdateDocument(ctx, doc.ID, domain.DocumentUpdate{Status: &status}); ferr != nil {
		warning = fmt.Errorf("%w; force status: %v", warning, ferr)
	}
	return domain.Degraded(doc, warning)
}

// summarize generates the summary in the background; failures are only logged.
func (p *Pipeline) summarize(ctx context.Context, id string, input classify.Input, title string, logger *slog.Logger) {
	ctx = context.WithoutCancel(ctx)
	p.background.Add(1)
	go func() {
		defer p.background.Done()

		summary, err := p.classifier.Summarize(ctx, input, title)
		if err != nil {
			logger.Warn("summary generation failed", "error", err)
			return
		}
		if err := p.store.UpdateDocument(ctx, id, domain.DocumentUpdate{Summary: &summary}); err != nil {
			logger.Warn("persist summary failed", "error", err)
		}
	}()
}

// notify resolves recipients through the visibility rule and delivers the
// notification. Empty or failed resolution, and a failed delivery, fall back
// to the primary department's members with a generic message.
func (p *Pipeline) notify(ctx context.Context, doc domain.Document) domain.Outcome[[]string] {
	if p.notifier == nil {
		return domain.Ok[[]string](nil)
	}

	recipients, err := p.recipients(ctx, doc)
	if err == nil && len(recipients) > 0 {
		sendErr := p.send(ctx, recipients, domain.Notification{
			Message: fmt.Sprintf("New %s priority document: %s", doc.Priority, doc.Title),
			Href:    p.opts.LinkPrefix + doc.ID,
		})
		if sendErr == nil {
			return domain.Ok(recipients)
		}
		err = sendErr
	}
	if err == nil {
		err = errors.New("no recipients resolved")
	}

	reason := fmt.Errorf("%w: %v", domain.ErrNotificationFailure, err)
	fallback, ferr := p.broadcast(ctx, doc)
	if ferr != nil {
		reason = fmt.Errorf("%w; fallback: %v", reason, ferr)
	}
	return domain.Degraded(fallback, reason)
}

func (p *Pipeline) recipients(ctx context.Context, doc domain.Document) ([]string, error) {
	if p.directory == nil {
		return nil, errors.New("directory is not configured")
	}
	users, err := p.directory.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return p.visibility.Recipients(doc, users), nil
}

// broadcast notifies every member of the primary department.
func (p *Pipeline) broadcast(ctx context.Context, doc domain.Document) ([]string, error) {
	if !p.opts.FallbackBroadcast {
		return nil, errors.New("fallback broadcast disabled")
	}
	if p.directory == nil || doc.DepartmentID == "" {
		return nil, errors.New("no primary department to broadcast to")
	}
	members, err := p.directory.DepartmentMembers(ctx, doc.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("department members: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	p.logger.Warn("broadcasting to primary department", "document_id", doc.ID, "department", doc.DepartmentID, "recipients", len(members))

	err = p.send(ctx, members, domain.Notification{
		Message: "A new document has been shared with your department",
		Href:    p.opts.LinkPrefix + doc.ID,
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (p *Pipeline) send(ctx context.Context, userIDs []string, n domain.Notification) error {
	ctx, cancel := withTimeout(ctx, p.opts.NotifyTimeout)
	defer cancel()
	if err := p.notifier.CreateBulkNotifications(ctx, userIDs, n); err != nil {
		return fmt.Errorf("create notifications: %w", err)
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
