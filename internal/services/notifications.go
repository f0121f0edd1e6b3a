package services

import (
	"context"
	"fmt"
	"log/slog"

	"finwatch/internal/core"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AlertPublisher hands created notifications to an external delivery system.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, n core.Notification) error
}

// Notifications is the append-only alert log with read state.
type Notifications struct {
	store     NotificationStore
	publisher AlertPublisher
	now       Clock
}

// NewNotifications creates the store facade. publisher may be nil.
func NewNotifications(store NotificationStore, publisher AlertPublisher, now Clock) *Notifications {
	if now == nil {
		now = systemClock
	}
	return &Notifications{store: store, publisher: publisher, now: now}
}

// Create appends an unread notification and forwards it for delivery.
// Delivery failures are logged only.
func (s *Notifications) Create(ctx context.Context, n core.Notification) (core.Notification, error) {
	if n.UserID == "" {
		return core.Notification{}, fmt.Errorf("%w: notification user is required", core.ErrValidation)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}

	created, err := s.store.CreateNotification(ctx, n)
	if err != nil {
		return core.Notification{}, fmt.Errorf("create notification: %w", err)
	}

	slog.InfoContext(ctx, "Notification created",
		"notification_id", created.ID,
		"user_id", created.UserID,
		"notification_type", created.Type,
		"subject_id", created.SubjectID)

	if s.publisher != nil {
		if err := s.publisher.PublishAlert(ctx, created); err != nil {
			slog.ErrorContext(ctx, "Failed to publish notification",
				"notification_id", created.ID,
				"error", err)
		}
	}
	return created, nil
}

// Query returns one page of the user's notifications, newest first. Page
// numbers start at 1.
func (s *Notifications) Query(ctx context.Context, userID string, f core.NotificationFilter, page, pageSize int) (core.Page[core.Notification], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.store.QueryNotifications(ctx, userID, f, pageSize, (page-1)*pageSize)
	if err != nil {
		return core.Page[core.Notification]{}, fmt.Errorf("query notifications: %w", err)
	}
	if items == nil {
		items = []core.Notification{}
	}
	return core.Page[core.Notification]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *Notifications) MarkRead(ctx context.Context, id, userID string) error {
	ok, err := s.store.MarkNotificationRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("notification %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// MarkAllRead returns the number of notifications that were unread.
func (s *Notifications) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.store.MarkAllNotificationsRead(ctx, userID)
}

func (s *Notifications) CountUnread(ctx context.Context, userID string) (int64, error) {
	return s.store.CountUnreadNotifications(ctx, userID)
}
