package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

type AssignmentRepository interface {
	Upsert(ctx context.Context, orderID, freelancerID uuid.UUID) (*models.Assignment, error)
	FreelancerFor(ctx context.Context, orderID uuid.UUID) (uuid.UUID, bool, error)
	OrdersFor(ctx context.Context, freelancerID uuid.UUID) ([]models.Order, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
}

// AssignmentService связь заказа с выбранным исполнителем.
type AssignmentService struct {
	repo AssignmentRepository
}

func NewAssignmentService(repo AssignmentRepository) *AssignmentService {
	return &AssignmentService{repo: repo}
}

// Assign назначает исполнителя, повторный вызов перезаписывает связь.
func (s *AssignmentService) Assign(ctx context.Context, orderID, freelancerID uuid.UUID) error {
	if _, err := s.repo.Upsert(ctx, orderID, freelancerID); err != nil {
		return mapRepoError("assignment service: assign", err, apperror.ErrOrderNotFound)
	}
	return nil
}

// FreelancerFor возвращает исполнителя заказа, ok=false если его нет.
func (s *AssignmentService) FreelancerFor(ctx context.Context, orderID uuid.UUID) (uuid.UUID, bool, error) {
	id, ok, err := s.repo.FreelancerFor(ctx, orderID)
	if err != nil {
		return uuid.Nil, false, mapRepoError("assignment service: freelancer", err, nil)
	}
	return id, ok, nil
}

// OrdersFor заказы, в которых пользователь исполнитель.
func (s *AssignmentService) OrdersFor(ctx context.Context, actor Actor) ([]models.Order, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	orders, err := s.repo.OrdersFor(ctx, actor.ID)
	if err != nil {
		return nil, mapRepoError("assignment service: orders", err, nil)
	}
	return orders, nil
}

// Release снимает исполнителя с заказа.
func (s *AssignmentService) Release(ctx context.Context, orderID uuid.UUID) error {
	if err := s.repo.Delete(ctx, orderID); err != nil {
		return mapRepoError("assignment service: release", err, nil)
	}
	return nil
}
