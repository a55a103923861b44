package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/repository/common"
)

const disputeColumns = `id, order_id, initiator_id, reason, status, order_status_before, admin_id, admin_comment, resolved_at, created_at, updated_at`

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create открывает спор. Второй активный спор по заказу вернёт ErrAlreadyExists.
func (r *DisputeRepository) Create(ctx context.Context, dispute *models.Dispute) error {
	if dispute.ID == uuid.Nil {
		dispute.ID = uuid.New()
	}
	err := common.Conn(ctx, r.db).QueryRowxContext(ctx, `
		INSERT INTO disputes (id, order_id, initiator_id, reason, status, order_status_before)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, dispute.ID, dispute.OrderID, dispute.InitiatorID, dispute.Reason, dispute.Status, dispute.OrderStatusBefore,
	).Scan(&dispute.CreatedAt, &dispute.UpdatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: create: %w", common.MapError(err))
	}
	return nil
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return r.get(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
}

// GetForUpdate читает спор с блокировкой строки.
func (r *DisputeRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return r.get(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, id)
}

// ActiveForOrder возвращает открытый или рассматриваемый спор по заказу.
func (r *DisputeRepository) ActiveForOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	return r.get(ctx, `SELECT `+disputeColumns+` FROM disputes
		WHERE order_id = $1 AND status IN ('open', 'in_progress')`, orderID)
}

func (r *DisputeRepository) get(ctx context.Context, query string, arg any) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := sqlx.GetContext(ctx, common.Conn(ctx, r.db), &dispute, query, arg); err != nil {
		return nil, fmt.Errorf("dispute repository: get: %w", common.MapError(err))
	}
	return &dispute, nil
}

// Update сохраняет решение администратора.
func (r *DisputeRepository) Update(ctx context.Context, dispute *models.Dispute) error {
	err := common.Conn(ctx, r.db).QueryRowxContext(ctx, `
		UPDATE disputes
		SET status = $2, admin_id = $3, admin_comment = $4, resolved_at = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, dispute.ID, dispute.Status, dispute.AdminID, dispute.AdminComment, dispute.ResolvedAt).Scan(&dispute.UpdatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: update: %w", common.MapError(err))
	}
	return nil
}

// List возвращает страницу споров, новые сверху.
func (r *DisputeRepository) List(ctx context.Context, limit, offset int) ([]models.Dispute, int, error) {
	conn := common.Conn(ctx, r.db)

	var total int
	if err := sqlx.GetContext(ctx, conn, &total, `SELECT COUNT(*) FROM disputes`); err != nil {
		return nil, 0, fmt.Errorf("dispute repository: count: %w", err)
	}

	disputes := make([]models.Dispute, 0)
	if err := sqlx.SelectContext(ctx, conn, &disputes, `
		SELECT `+disputeColumns+` FROM disputes ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("dispute repository: list: %w", err)
	}
	return disputes, total, nil
}
