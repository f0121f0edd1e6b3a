package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"finwatch/internal/core"

	"github.com/google/uuid"
)

const notificationColumns = `id, user_id, type, title, message, is_read, metadata, subject_id, created_at`

func scanNotification(s scanner) (core.Notification, error) {
	var (
		n        core.Notification
		isRead   int
		metadata sql.NullString
		created  int64
	)
	if err := s.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &isRead, &metadata, &n.SubjectID, &created); err != nil {
		return core.Notification{}, err
	}
	n.IsRead = isRead != 0
	n.CreatedAt = fromMillis(created)
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &n.Metadata); err != nil {
			return core.Notification{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return n, nil
}

// CreateNotification stores an unread notification. CreatedAt is kept when
// set so callers with an injected clock stay consistent with dedup windows.
func (r *SQLiteRepository) CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.IsRead = false

	var metadata sql.NullString
	if len(n.Metadata) > 0 {
		raw, err := json.Marshal(n.Metadata)
		if err != nil {
			return core.Notification{}, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, metadata, n.SubjectID, toMillis(n.CreatedAt))
	if err != nil {
		return core.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

// QueryNotifications returns one page of a user's notifications, newest
// first, with the unpaged total.
func (r *SQLiteRepository) QueryNotifications(ctx context.Context, userID string, f core.NotificationFilter, limit, offset int) ([]core.Notification, int64, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.Type != nil {
		where = append(where, "type = ?")
		args = append(args, string(*f.Type))
	}
	if f.IsRead != nil {
		where = append(where, "is_read = ?")
		args = append(args, boolInt(*f.IsRead))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	if limit <= 0 {
		limit = -1
	}
	pageArgs := append(append([]any(nil), args...), limit, offset)
	rows, err := r.db.QueryContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE `+clause+`
		ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// HasUnreadNotificationSince reports whether an unread notification of the
// given type about subjectID was created at or after since.
func (r *SQLiteRepository) HasUnreadNotificationSince(ctx context.Context, userID string, typ core.NotificationType, subjectID string, since time.Time) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT 1 FROM notifications
		WHERE user_id = ? AND type = ? AND subject_id = ? AND is_read = 0 AND created_at >= ?)`,
		userID, string(typ), subjectID, toMillis(since)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recent notification: %w", err)
	}
	return exists != 0, nil
}

// MarkNotificationRead flags one notification as read. It reports false when
// no notification with that id belongs to userID.
func (r *SQLiteRepository) MarkNotificationRead(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// MarkAllNotificationsRead returns how many notifications changed state.
func (r *SQLiteRepository) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}
