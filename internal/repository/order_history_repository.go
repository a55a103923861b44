package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/repository/common"
)

type OrderHistoryRepository struct {
	db *sqlx.DB
}

func NewOrderHistoryRepository(db *sqlx.DB) *OrderHistoryRepository {
	return &OrderHistoryRepository{db: db}
}

func (r *OrderHistoryRepository) Add(ctx context.Context, entry *models.OrderHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	err := common.Conn(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO order_history (id, order_id, user_id, action, old_status, new_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, entry.ID, entry.OrderID, entry.UserID, entry.Action, entry.OldStatus, entry.NewStatus).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("order history repository: add: %w", common.MapError(err))
	}
	return nil
}

func (r *OrderHistoryRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	history := make([]models.OrderHistory, 0)
	err := sqlx.SelectContext(ctx, common.Conn(ctx, r.db), &history, `
		SELECT id, order_id, user_id, action, old_status, new_status, created_at
		FROM order_history WHERE order_id = $1 ORDER BY created_at ASC
	`, orderID)
	return history, err
}
