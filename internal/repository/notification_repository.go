package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/repository/common"
)

// NotificationRepository хранит доставленные пользователям события.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository создаёт экземпляр репозитория.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создаёт новое уведомление.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	query := `
		INSERT INTO notifications (id, user_id, type, payload, is_read)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	if err := common.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		notification.ID, notification.UserID, notification.Type, notification.Payload, notification.IsRead,
	).Scan(&notification.CreatedAt); err != nil {
		return fmt.Errorf("notification repository: create: %w", common.MapError(err))
	}
	return nil
}

// List возвращает уведомления пользователя с пагинацией.
func (r *NotificationRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT id, user_id, type, payload, is_read, created_at FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	notifications := make([]models.Notification, 0)
	if err := sqlx.SelectContext(ctx, common.Conn(ctx, r.db), &notifications, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("notification repository: list: %w", err)
	}
	return notifications, nil
}

// MarkAsRead отмечает уведомление пользователя как прочитанное.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	result, err := common.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("notification repository: mark as read: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("notification repository: mark as read: %w", ErrNotFound)
	}
	return nil
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	if _, err := common.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID); err != nil {
		return fmt.Errorf("notification repository: mark all as read: %w", err)
	}
	return nil
}

// CountUnread возвращает количество непрочитанных уведомлений пользователя.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, common.Conn(ctx, r.db), &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID); err != nil {
		return 0, fmt.Errorf("notification repository: count unread: %w", err)
	}
	return count, nil
}
