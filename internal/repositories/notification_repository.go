package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"meetup-service/internal/models"
)

// NotificationRepository stores user-facing notifications created as side
// effects of messages and meetup transitions.
type NotificationRepository interface {
	Create(ctx context.Context, userID int, notifType, content string) (models.Notification, error)
	ListForUser(ctx context.Context, userID int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID int) error
	Delete(ctx context.Context, notificationID, userID int) error
}

// NotificationRepo is a sqlx-backed NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Create inserts a notification.
func (r *NotificationRepo) Create(ctx context.Context, userID int, notifType, content string) (models.Notification, error) {
	var notif models.Notification
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO notifications (user_id, type, content)
         VALUES ($1, $2, $3)
         RETURNING id, user_id, type, content, read, created_at`,
		userID, notifType, content,
	).StructScan(&notif)
	return notif, err
}

// ListForUser returns the user's notifications, newest first, capped at 100.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID int) ([]models.Notification, error) {
	var notifs []models.Notification
	err := r.db.SelectContext(ctx, &notifs,
		`SELECT id, user_id, type, content, read, created_at FROM notifications
         WHERE user_id = $1
         ORDER BY created_at DESC
         LIMIT 100`, userID)
	return notifs, err
}

// MarkRead flips read for the owner's notification. Idempotent; marking a
// missing or foreign notification is a silent no-op.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	return err
}

// Delete removes the owner's notification.
func (r *NotificationRepo) Delete(ctx context.Context, notificationID, userID int) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
