package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/repository"
	"github.com/ignatzorin/freelance-market/internal/validation"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	ExistsByOrderAndAuthor(ctx context.Context, orderID, authorID uuid.UUID) (bool, error)
	AverageRating(ctx context.Context, targetID uuid.UUID) (decimal.NullDecimal, error)
	ListByTarget(ctx context.Context, targetID uuid.UUID) ([]models.Review, error)
}

type RatingWriter interface {
	UpdateRating(ctx context.Context, id uuid.UUID, rating decimal.NullDecimal) error
}

// ReviewService отзывы участников завершённых заказов и рейтинг пользователей.
type ReviewService struct {
	runner
	lifecycle
	repo  ReviewRepository
	users RatingWriter
}

// LeaveReviewRequest отзыв второй стороны заказа.
type LeaveReviewRequest struct {
	Rating  int     `json:"rating" validate:"gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

func NewReviewService(tx Transactor, orders OrderRepository, assignments *AssignmentService, repo ReviewRepository, users RatingWriter) *ReviewService {
	return &ReviewService{
		runner:    runner{tx: tx},
		lifecycle: lifecycle{orders: orders, assignments: assignments},
		repo:      repo,
		users:     users,
	}
}

// Leave оставляет отзыв о второй стороне завершённого заказа. Один отзыв на автора и заказ.
func (s *ReviewService) Leave(ctx context.Context, actor Actor, orderID uuid.UUID, req LeaveReviewRequest) (*models.Review, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var review *models.Review
	err := s.inTx(ctx, func(ctx context.Context, _ *effects) error {
		order, err := s.lockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		freelancerID, ok, err := s.assignee(ctx, order)
		if err != nil {
			return err
		}

		var targetID uuid.UUID
		switch {
		case order.IsOwnedBy(actor.ID):
			if !ok {
				return errNoAssignee
			}
			targetID = freelancerID
		case ok && freelancerID == actor.ID:
			targetID = order.ClientID
		default:
			return errNotParticipant
		}

		if order.Status != valueobject.OrderStatusCompleted {
			return apperror.New(apperror.ErrCodeInvalidState, "отзыв можно оставить только по завершённому заказу")
		}

		review, err = s.create(ctx, order, actor.ID, targetID, req.Rating, req.Comment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// create сохраняет отзыв и пересчитывает рейтинг адресата. Вызывается внутри транзакции.
func (s *ReviewService) create(ctx context.Context, order *models.Order, authorID, targetID uuid.UUID, rating int, comment *string) (*models.Review, error) {
	exists, err := s.repo.ExistsByOrderAndAuthor(ctx, order.ID, authorID)
	if err != nil {
		return nil, mapRepoError("review service: exists", err, nil)
	}
	if exists {
		return nil, errReviewExists
	}

	review := &models.Review{
		ID:       uuid.New(),
		OrderID:  order.ID,
		AuthorID: authorID,
		TargetID: targetID,
		Rating:   rating,
		Comment:  validation.SanitizeOptional(comment),
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, errReviewExists
		}
		return nil, mapRepoError("review service: create", err, nil)
	}

	if err := s.recalculate(ctx, targetID); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) recalculate(ctx context.Context, userID uuid.UUID) error {
	avg, err := s.repo.AverageRating(ctx, userID)
	if err != nil {
		return mapRepoError("review service: average", err, nil)
	}
	if avg.Valid {
		avg.Decimal = valueobject.RoundRating(avg.Decimal)
	}
	if err := s.users.UpdateRating(ctx, userID, avg); err != nil {
		return mapRepoError("review service: rating", err, apperror.ErrUserNotFound)
	}
	return nil
}

// ForUser отзывы о пользователе, новые сверху.
func (s *ReviewService) ForUser(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	reviews, err := s.repo.ListByTarget(ctx, userID)
	if err != nil {
		return nil, mapRepoError("review service: list", err, nil)
	}
	return reviews, nil
}
