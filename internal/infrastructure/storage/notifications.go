package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/ports"
)

var _ ports.NotificationSink = (*Store)(nil)

// StoredNotification is a delivered notification row.
type StoredNotification struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	Message string `json:"message"`
	Href    string `json:"href"`
	Read    bool   `json:"read"`
}

// CreateBulkNotifications inserts one row per recipient in a single statement.
func (s *Store) CreateBulkNotifications(ctx context.Context, userIDs []string, n domain.Notification) error {
	if len(userIDs) == 0 {
		return nil
	}

	now := s.now()
	insert := s.builder.Insert("notifications").Columns("id", "user_id", "message", "href", "created_at")
	for _, userID := range userIDs {
		insert = insert.Values(uuid.NewString(), userID, n.Message, n.Href, now)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}

// NotificationsFor lists a user's notifications, newest first.
func (s *Store) NotificationsFor(ctx context.Context, userID string) ([]StoredNotification, error) {
	query, args, err := s.builder.Select("id", "user_id", "message", "href", "is_read").
		From("notifications").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []StoredNotification
	for rows.Next() {
		var n StoredNotification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Href, &n.Read); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
