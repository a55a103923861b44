package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/repository/common"
)

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create создаёт отзыв. Второй отзыв автора на заказ вернёт ErrAlreadyExists.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	query := `
		INSERT INTO reviews (id, order_id, author_id, target_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	if err := common.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		review.ID, review.OrderID, review.AuthorID, review.TargetID, review.Rating, review.Comment,
	).Scan(&review.CreatedAt); err != nil {
		return fmt.Errorf("review repository: create: %w", common.MapError(err))
	}
	return nil
}

// ExistsByOrderAndAuthor проверяет, оставлял ли пользователь отзыв на заказ.
func (r *ReviewRepository) ExistsByOrderAndAuthor(ctx context.Context, orderID, authorID uuid.UUID) (bool, error) {
	var exists bool
	if err := sqlx.GetContext(ctx, common.Conn(ctx, r.db), &exists,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE order_id = $1 AND author_id = $2)`, orderID, authorID); err != nil {
		return false, fmt.Errorf("review repository: exists: %w", err)
	}
	return exists, nil
}

// AverageRating среднее по всем отзывам о пользователе; Valid=false, если отзывов нет.
func (r *ReviewRepository) AverageRating(ctx context.Context, targetID uuid.UUID) (decimal.NullDecimal, error) {
	var avg decimal.NullDecimal
	if err := sqlx.GetContext(ctx, common.Conn(ctx, r.db), &avg,
		`SELECT AVG(rating)::numeric FROM reviews WHERE target_id = $1`, targetID); err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("review repository: average rating: %w", err)
	}
	return avg, nil
}

// ListByTarget возвращает отзывы о пользователе.
func (r *ReviewRepository) ListByTarget(ctx context.Context, targetID uuid.UUID) ([]models.Review, error) {
	reviews := make([]models.Review, 0)
	if err := sqlx.SelectContext(ctx, common.Conn(ctx, r.db), &reviews, `
		SELECT id, order_id, author_id, target_id, rating, comment, created_at
		FROM reviews WHERE target_id = $1 ORDER BY created_at DESC
	`, targetID); err != nil {
		return nil, fmt.Errorf("review repository: list by target: %w", err)
	}
	return reviews, nil
}
