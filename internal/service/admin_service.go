package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/logger"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

type UserAdminRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role valueobject.Role) error
	SetBanned(ctx context.Context, id uuid.UUID, banned bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AdminService управление пользователями.
type AdminService struct {
	users UserAdminRepository
}

// UserList страница пользователей.
type UserList struct {
	Users  []models.User `json:"users"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user freelancer admin"`
}

type SetBannedRequest struct {
	Banned bool `json:"banned"`
}

func NewAdminService(users UserAdminRepository) *AdminService {
	return &AdminService{users: users}
}

func (s *AdminService) ListUsers(ctx context.Context, actor Actor, search string, limit, offset int) (*UserList, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	users, total, err := s.users.List(ctx, models.UserFilter{Search: strings.TrimSpace(search), Limit: limit, Offset: offset})
	if err != nil {
		return nil, mapRepoError("admin service: list users", err, nil)
	}
	return &UserList{Users: users, Total: total, Limit: limit, Offset: offset}, nil
}

// SetRole меняет роль пользователя. Свою роль администратор не меняет.
func (s *AdminService) SetRole(ctx context.Context, actor Actor, userID uuid.UUID, role valueobject.Role) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректная роль")
	}
	if userID == actor.ID {
		return nil, errSelfModeration
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, mapRepoError("admin service: set role", err, apperror.ErrUserNotFound)
	}
	logger.Log.WithFields(map[string]interface{}{
		"admin_id": actor.ID,
		"user_id":  userID,
		"role":     role,
	}).Info("admin service: роль изменена")
	return s.get(ctx, userID)
}

// SetBanned блокирует или разблокирует пользователя.
func (s *AdminService) SetBanned(ctx context.Context, actor Actor, userID uuid.UUID, banned bool) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if userID == actor.ID {
		return nil, errSelfModeration
	}
	if err := s.users.SetBanned(ctx, userID, banned); err != nil {
		return nil, mapRepoError("admin service: set banned", err, apperror.ErrUserNotFound)
	}
	logger.Log.WithFields(map[string]interface{}{
		"admin_id": actor.ID,
		"user_id":  userID,
		"banned":   banned,
	}).Info("admin service: статус блокировки изменён")
	return s.get(ctx, userID)
}

func (s *AdminService) DeleteUser(ctx context.Context, actor Actor, userID uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if userID == actor.ID {
		return errSelfModeration
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return mapRepoError("admin service: delete user", err, apperror.ErrUserNotFound)
	}
	logger.Log.WithFields(map[string]interface{}{
		"admin_id": actor.ID,
		"user_id":  userID,
	}).Warn("admin service: пользователь удалён")
	return nil
}

func (s *AdminService) get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError("admin service: get user", err, apperror.ErrUserNotFound)
	}
	return user, nil
}

func requireAdmin(actor Actor) error {
	if err := actor.ensureActive(); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return errAdminOnly
	}
	return nil
}
