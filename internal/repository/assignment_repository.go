package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/repository/common"
)

// AssignmentRepository хранит связь заказа с исполнителем, одна строка на заказ.
type AssignmentRepository struct {
	db *sqlx.DB
}

func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Upsert заменяет исполнителя заказа.
func (r *AssignmentRepository) Upsert(ctx context.Context, orderID, freelancerID uuid.UUID) (*models.Assignment, error) {
	var a models.Assignment
	err := sqlx.GetContext(ctx, common.Conn(ctx, r.db), &a, `
		INSERT INTO order_assignments (order_id, freelancer_id)
		VALUES ($1, $2)
		ON CONFLICT (order_id) DO UPDATE SET freelancer_id = EXCLUDED.freelancer_id, updated_at = NOW()
		RETURNING order_id, freelancer_id, created_at, updated_at
	`, orderID, freelancerID)
	if err != nil {
		return nil, fmt.Errorf("assignment repository: upsert: %w", common.MapError(err))
	}
	return &a, nil
}

// FreelancerFor возвращает исполнителя заказа; ok=false, если его нет.
func (r *AssignmentRepository) FreelancerFor(ctx context.Context, orderID uuid.UUID) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := sqlx.GetContext(ctx, common.Conn(ctx, r.db), &id,
		`SELECT freelancer_id FROM order_assignments WHERE order_id = $1`, orderID)
	if err != nil {
		err = common.MapError(err)
		if errors.Is(err, ErrNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("assignment repository: freelancer for: %w", err)
	}
	return id, true, nil
}

// OrdersFor возвращает заказы, где пользователь исполнитель.
func (r *AssignmentRepository) OrdersFor(ctx context.Context, freelancerID uuid.UUID) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	err := sqlx.SelectContext(ctx, common.Conn(ctx, r.db), &orders, `
		SELECT `+orderColumns+`
		FROM order_assignments a JOIN orders o ON o.id = a.order_id
		WHERE a.freelancer_id = $1
		ORDER BY a.updated_at DESC
	`, freelancerID)
	if err != nil {
		return nil, fmt.Errorf("assignment repository: orders for: %w", err)
	}
	return orders, nil
}

// Delete снимает исполнителя с заказа.
func (r *AssignmentRepository) Delete(ctx context.Context, orderID uuid.UUID) error {
	if _, err := common.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM order_assignments WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("assignment repository: delete: %w", err)
	}
	return nil
}
