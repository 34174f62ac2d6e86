package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gitlab.com/yelinaung/subnest/internal/database"
	"gitlab.com/yelinaung/subnest/internal/models"
)

// NotificationRepository records outgoing notifications.
type NotificationRepository struct {
	db database.PGXDB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db database.PGXDB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateNotification inserts a notification record.
func (r *NotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.DeliveryStatus == "" {
		n.DeliveryStatus = models.DeliveryPending
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, related_id, related_type,
			channel, delivery_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))
		RETURNING created_at
	`, n.ID, n.UserID, n.Title, n.Message, string(n.Kind), n.RelatedID, nullString(n.RelatedType),
		string(n.Channel), n.DeliveryStatus, nullTime(n.CreatedAt),
	).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// UpdateDeliveryStatus records the outcome of a delivery attempt.
func (r *NotificationRepository) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status string, sentAt *time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET delivery_status = $2, sent_at = $3 WHERE id = $1
	`, id, status, sentAt)
	if err != nil {
		return fmt.Errorf("failed to update delivery status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update delivery status: %w", models.ErrNotFound)
	}
	return nil
}

// NotificationExistsOn reports whether a notification of kind about the
// related entity was created during the calendar day starting at day.
func (r *NotificationRepository) NotificationExistsOn(
	ctx context.Context,
	userID uuid.UUID,
	kind models.NotificationKind,
	relatedID uuid.UUID,
	day time.Time,
) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE user_id = $1 AND type = $2 AND related_id = $3
			  AND created_at >= $4 AND created_at < $5
		)
	`, userID, string(kind), relatedID, day, day.AddDate(0, 0, 1)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notification: %w", err)
	}
	return exists, nil
}

// ListPendingNotifications returns notifications still pending that were
// created before createdBefore, oldest first.
func (r *NotificationRepository) ListPendingNotifications(ctx context.Context, createdBefore time.Time) ([]models.Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, title, message, type, related_id, COALESCE(related_type, ''),
		       channel, delivery_status, is_read, sent_at, created_at
		FROM notifications
		WHERE delivery_status = 'pending' AND created_at < $1
		ORDER BY created_at, id
	`, createdBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		var kind, channel string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &kind, &n.RelatedID, &n.RelatedType,
			&channel, &n.DeliveryStatus, &n.IsRead, &n.SentAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Kind = models.NotificationKind(kind)
		n.Channel = models.Channel(channel)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, nil
}
