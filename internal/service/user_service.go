package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

// UserService публичные профили и каталог фрилансеров.
type UserService struct {
	users       UserDirectory
	assignments AssignmentRepository
}

// FreelancerList страница каталога фрилансеров.
type FreelancerList struct {
	Freelancers []models.PublicUser `json:"freelancers"`
	Total       int                 `json:"total"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

func NewUserService(users UserDirectory, assignments AssignmentRepository) *UserService {
	return &UserService{users: users, assignments: assignments}
}

// Profile возвращает публичную карточку с рейтингом и числом завершённых заказов.
func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	user, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	orders, err := s.assigned(ctx, userID)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, o := range orders {
		if o.Status == valueobject.OrderStatusCompleted {
			completed++
		}
	}
	return &models.UserProfile{
		PublicUser:      user.Public(),
		CompletedOrders: completed,
		CreatedAt:       user.CreatedAt,
	}, nil
}

// Freelancers каталог фрилансеров. Заблокированные в него не попадают.
func (s *UserService) Freelancers(ctx context.Context, search string, limit, offset int) (*FreelancerList, error) {
	limit, offset = normalizePage(limit, offset)
	users, total, err := s.users.List(ctx, models.UserFilter{
		Search:        strings.TrimSpace(search),
		Role:          valueobject.RoleFreelancer,
		ExcludeBanned: true,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		return nil, mapRepoError("user service: freelancers", err, nil)
	}

	list := make([]models.PublicUser, 0, len(users))
	for i := range users {
		list = append(list, users[i].Public())
	}
	return &FreelancerList{Freelancers: list, Total: total, Limit: limit, Offset: offset}, nil
}

// FreelancerOrders заказы, в которых пользователь назначен исполнителем.
func (s *UserService) FreelancerOrders(ctx context.Context, freelancerID uuid.UUID) ([]models.Order, error) {
	if _, err := s.get(ctx, freelancerID); err != nil {
		return nil, err
	}
	return s.assigned(ctx, freelancerID)
}

func (s *UserService) get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError("user service: get", err, apperror.ErrUserNotFound)
	}
	return user, nil
}

func (s *UserService) assigned(ctx context.Context, freelancerID uuid.UUID) ([]models.Order, error) {
	orders, err := s.assignments.OrdersFor(ctx, freelancerID)
	if err != nil {
		return nil, mapRepoError("user service: assigned orders", err, nil)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}
