package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/logger"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/repository"
	"github.com/ignatzorin/freelance-market/internal/validation"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AuthService инкапсулирует бизнес-логику регистрации и аутентификации.
type AuthService struct {
	repo         AuthRepository
	tokenManager *TokenManager
}

// RegisterRequest данные пользователя при регистрации. Администратора через регистрацию не создать.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,password"`
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=user freelancer"`
}

// LoginRequest данные для входа.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token *Token       `json:"token"`
}

func NewAuthService(repo AuthRepository, tokenManager *TokenManager) *AuthService {
	return &AuthService{
		repo:         repo,
		tokenManager: tokenManager,
	}
}

// Register создаёт пользователя и сразу выдаёт токен.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	role := valueobject.RoleUser
	if req.Role != "" {
		role = valueobject.Role(req.Role)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         validation.SanitizeText(req.Name),
		PasswordHash: string(passHash),
		Role:         role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, errEmailTaken
		}
		return nil, mapRepoError("auth service: register", err, nil)
	}

	logger.Log.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("auth service: пользователь зарегистрирован")

	return s.issue(user)
}

// Login проверяет учётные данные и возвращает токен.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, mapRepoError("auth service: login", err, nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}
	if user.Banned {
		return nil, apperror.ErrUserBanned
	}

	return s.issue(user)
}

// Authenticate разбирает токен и загружает пользователя. Роль и блокировка берутся из базы,
// а не из токена, чтобы изменения администратора действовали сразу.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Actor, error) {
	userID, _, err := s.tokenManager.ParseAccess(token)
	if err != nil {
		return Actor{}, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "недействительный токен")
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Actor{}, apperror.ErrUnauthorized
		}
		return Actor{}, mapRepoError("auth service: authenticate", err, nil)
	}
	return ActorFromUser(user), nil
}

// Me профиль текущего пользователя.
func (s *AuthService) Me(ctx context.Context, actor Actor) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, mapRepoError("auth service: me", err, apperror.ErrUserNotFound)
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokenManager.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: выпуск токена: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
