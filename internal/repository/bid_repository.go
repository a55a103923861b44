package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/repository/common"
)

const bidColumns = `b.id, b.order_id, b.freelancer_id, b.amount, b.comment, b.deadline, b.status, b.created_at, b.updated_at`

// BidRepository отвечает за отклики. Уникальность (order_id, freelancer_id)
// и единственный принятый отклик на заказ закреплены индексами.
type BidRepository struct {
	db *sqlx.DB
}

func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Create сохраняет отклик. Повтор от того же фрилансера вернёт ErrAlreadyExists.
func (r *BidRepository) Create(ctx context.Context, bid *models.Bid) error {
	if bid.ID == uuid.Nil {
		bid.ID = uuid.New()
	}
	query := `
		INSERT INTO bids (id, order_id, freelancer_id, amount, comment, deadline, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	if err := common.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		bid.ID, bid.OrderID, bid.FreelancerID, bid.Amount, bid.Comment, bid.Deadline, bid.Status,
	).Scan(&bid.CreatedAt, &bid.UpdatedAt); err != nil {
		return fmt.Errorf("bid repository: create: %w", common.MapError(err))
	}
	return nil
}

// GetByID возвращает отклик по идентификатору.
func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids b WHERE b.id = $1`
	if err := sqlx.GetContext(ctx, common.Conn(ctx, r.db), &bid, query, id); err != nil {
		return nil, fmt.Errorf("bid repository: get by id: %w", common.MapError(err))
	}
	return &bid, nil
}

// GetByOrderAndFreelancer возвращает отклик фрилансера на заказ.
func (r *BidRepository) GetByOrderAndFreelancer(ctx context.Context, orderID, freelancerID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids b WHERE b.order_id = $1 AND b.freelancer_id = $2`
	if err := sqlx.GetContext(ctx, common.Conn(ctx, r.db), &bid, query, orderID, freelancerID); err != nil {
		return nil, fmt.Errorf("bid repository: get by order and freelancer: %w", common.MapError(err))
	}
	return &bid, nil
}

type bidRow struct {
	models.Bid
	FreelancerName   string              `db:"freelancer_name"`
	FreelancerRole   valueobject.Role    `db:"freelancer_role"`
	FreelancerRating decimal.NullDecimal `db:"freelancer_rating"`
}

// ListByOrder возвращает все отклики на заказ вместе с авторами.
func (r *BidRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.BidWithFreelancer, error) {
	var rows []bidRow
	query := `
		SELECT ` + bidColumns + `, u.name AS freelancer_name, u.role AS freelancer_role, u.rating AS freelancer_rating
		FROM bids b JOIN users u ON u.id = b.freelancer_id
		WHERE b.order_id = $1
		ORDER BY b.created_at
	`
	if err := sqlx.SelectContext(ctx, common.Conn(ctx, r.db), &rows, query, orderID); err != nil {
		return nil, fmt.Errorf("bid repository: list by order: %w", err)
	}
	bids := make([]models.BidWithFreelancer, 0, len(rows))
	for _, row := range rows {
		bids = append(bids, models.BidWithFreelancer{
			Bid: row.Bid,
			Freelancer: models.PublicUser{
				ID: row.FreelancerID, Name: row.FreelancerName, Role: row.FreelancerRole, Rating: row.FreelancerRating,
			},
		})
	}
	return bids, nil
}

// ListByFreelancer возвращает отклики фрилансера, новые сверху.
func (r *BidRepository) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Bid, error) {
	bids := make([]models.Bid, 0)
	query := `SELECT ` + bidColumns + ` FROM bids b WHERE b.freelancer_id = $1 ORDER BY b.created_at DESC`
	if err := sqlx.SelectContext(ctx, common.Conn(ctx, r.db), &bids, query, freelancerID); err != nil {
		return nil, fmt.Errorf("bid repository: list by freelancer: %w", err)
	}
	return bids, nil
}

// CountByOrder количество откликов на заказ.
func (r *BidRepository) CountByOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, common.Conn(ctx, r.db), &count,
		`SELECT COUNT(*) FROM bids WHERE order_id = $1`, orderID); err != nil {
		return 0, fmt.Errorf("bid repository: count by order: %w", err)
	}
	return count, nil
}

// UpdateStatus меняет статус отклика.
func (r *BidRepository) UpdateStatus(ctx context.Context, bid *models.Bid) error {
	if err := common.Conn(ctx, r.db).QueryRowxContext(ctx, `
		UPDATE bids SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at
	`, bid.ID, bid.Status).Scan(&bid.UpdatedAt); err != nil {
		return fmt.Errorf("bid repository: update status: %w", common.MapError(err))
	}
	return nil
}

// RejectOthers отклоняет все ожидающие отклики заказа, кроме принятого.
func (r *BidRepository) RejectOthers(ctx context.Context, orderID, acceptedID uuid.UUID) ([]models.Bid, error) {
	rejected := make([]models.Bid, 0)
	query := `
		UPDATE bids b SET status = 'rejected', updated_at = NOW()
		WHERE b.order_id = $1 AND b.id <> $2 AND b.status = 'pending'
		RETURNING ` + bidColumns
	if err := sqlx.SelectContext(ctx, common.Conn(ctx, r.db), &rejected, query, orderID, acceptedID); err != nil {
		return nil, fmt.Errorf("bid repository: reject others: %w", common.MapError(err))
	}
	return rejected, nil
}
