package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/ports"
)

var _ ports.DocumentStore = (*Store)(nil)

var documentColumns = []string{
	"id", "title", "file_name", "mime_type", "source_url", "uploader_id", "parent_id",
	"status", "action_points", "department_id", "priority", "cross_department",
	"affected_department_ids", "targeting", "original_language", "summary", "error_message",
	"archive_stats", "created_at", "updated_at",
}

// CreateDocument inserts a new document in the processing state.
func (s *Store) CreateDocument(ctx context.Context, doc domain.NewDocument) (string, error) {
	id := uuid.NewString()
	now := s.now()

	query, args, err := s.builder.Insert("documents").
		Columns("id", "title", "file_name", "mime_type", "source_url", "uploader_id", "parent_id", "status", "created_at", "updated_at").
		Values(id, doc.Title, doc.FileName, doc.MimeType, doc.SourceURL, doc.UploaderID, doc.ParentID, string(domain.StatusProcessing), now, now).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

// UpdateDocument writes the non-nil fields of update.
func (s *Store) UpdateDocument(ctx context.Context, id string, update domain.DocumentUpdate) error {
	affected, err := s.update(ctx, sq.Eq{"id": id}, update)
	if err != nil {
		return fmt.Errorf("update document %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("update document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// TransitionDocument applies update only while the document is still in from.
// It reports whether the row was changed.
func (s *Store) TransitionDocument(ctx context.Context, id string, from domain.Status, update domain.DocumentUpdate) (bool, error) {
	affected, err := s.update(ctx, sq.Eq{"id": id, "status": string(from)}, update)
	if err != nil {
		return false, fmt.Errorf("transition document %s: %w", id, err)
	}
	return affected > 0, nil
}

func (s *Store) update(ctx context.Context, where sq.Eq, update domain.DocumentUpdate) (int64, error) {
	set, err := updateColumns(update)
	if err != nil {
		return 0, err
	}
	set["updated_at"] = s.now()

	query, args, err := s.builder.Update("documents").SetMap(set).Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetDocumentByID loads one document.
func (s *Store) GetDocumentByID(ctx context.Context, id string) (*domain.Document, error) {
	query, args, err := s.builder.Select(documentColumns...).From("documents").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select document %s: %w", id, err)
	}
	return &doc, nil
}

// GetAllDocuments lists documents, newest first.
func (s *Store) GetAllDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.queryDocuments(ctx, s.builder.Select(documentColumns...).From("documents").OrderBy("created_at DESC", "id"))
}

// StaleDocuments lists documents still processing whose last write is older than olderThan.
func (s *Store) StaleDocuments(ctx context.Context, olderThan time.Time) ([]domain.Document, error) {
	return s.queryDocuments(ctx, s.builder.Select(documentColumns...).From("documents").
		Where(sq.Eq{"status": string(domain.StatusProcessing)}).
		Where(sq.Lt{"updated_at": olderThan.UTC()}).
		OrderBy("updated_at"))
}

func (s *Store) queryDocuments(ctx context.Context, builder sq.SelectBuilder) ([]domain.Document, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var (
		doc                                     domain.Document
		status, priority, stats                 string
		actionPoints, cross, affected, targeted string
	)
	err := row.Scan(
		&doc.ID, &doc.Title, &doc.FileName, &doc.MimeType, &doc.SourceURL, &doc.UploaderID, &doc.ParentID,
		&status, &actionPoints, &doc.DepartmentID, &priority, &cross,
		&affected, &targeted, &doc.OriginalLanguage, &doc.Summary, &doc.Error,
		&stats, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return domain.Document{}, err
	}

	doc.Status = domain.Status(status)
	doc.Priority = domain.Priority(priority)

	if err := decodeJSON(actionPoints, &doc.ActionPoints); err != nil {
		return domain.Document{}, fmt.Errorf("action points: %w", err)
	}
	if err := decodeJSON(cross, &doc.CrossDepartment); err != nil {
		return domain.Document{}, fmt.Errorf("cross department: %w", err)
	}
	if err := decodeJSON(affected, &doc.AffectedDepartmentIDs); err != nil {
		return domain.Document{}, fmt.Errorf("affected departments: %w", err)
	}
	if targeted != "" {
		doc.Targeting = &domain.TargetingClassification{}
		if err := decodeJSON(targeted, doc.Targeting); err != nil {
			return domain.Document{}, fmt.Errorf("targeting: %w", err)
		}
	}
	if stats != "" {
		doc.Archive = &domain.ArchiveStats{}
		if err := decodeJSON(stats, doc.Archive); err != nil {
			return domain.Document{}, fmt.Errorf("archive stats: %w", err)
		}
	}

	return doc, nil
}

func updateColumns(u domain.DocumentUpdate) (map[string]any, error) {
	set := map[string]any{}

	if u.Status != nil {
		set["status"] = string(*u.Status)
	}
	if u.ActionPoints != nil {
		raw, err := json.Marshal(u.ActionPoints)
		if err != nil {
			return nil, fmt.Errorf("encode action points: %w", err)
		}
		set["action_points"] = string(raw)
	}
	if u.DepartmentID != nil {
		set["department_id"] = *u.DepartmentID
	}
	if u.Priority != nil {
		set["priority"] = string(*u.Priority)
	}
	if u.CrossDepartment != nil {
		raw, err := json.Marshal(u.CrossDepartment)
		if err != nil {
			return nil, fmt.Errorf("encode cross department: %w", err)
		}
		set["cross_department"] = string(raw)
	}
	if u.AffectedDepartmentIDs != nil {
		raw, err := json.Marshal(u.AffectedDepartmentIDs)
		if err != nil {
			return nil, fmt.Errorf("encode affected departments: %w", err)
		}
		set["affected_department_ids"] = string(raw)
	}
	if u.Targeting != nil {
		raw, err := json.Marshal(u.Targeting)
		if err != nil {
			return nil, fmt.Errorf("encode targeting: %w", err)
		}
		set["targeting"] = string(raw)
	}
	if u.OriginalLanguage != nil {
		set["original_language"] = *u.OriginalLanguage
	}
	if u.Summary != nil {
		set["summary"] = *u.Summary
	}
	if u.Error != nil {
		set["error_message"] = *u.Error
	}
	if u.Archive != nil {
		raw, err := json.Marshal(u.Archive)
		if err != nil {
			return nil, fmt.Errorf("encode archive stats: %w", err)
		}
		set["archive_stats"] = string(raw)
	}

	return set, nil
}

func decodeJSON(raw string, v any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}
