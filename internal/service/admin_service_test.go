package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/repository"
)

type mockUserAdminRepo struct {
	mock.Mock
}

func (m *mockUserAdminRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserAdminRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.User), args.Int(1), args.Error(2)
}

func (m *mockUserAdminRepo) UpdateRole(ctx context.Context, id uuid.UUID, role valueobject.Role) error {
	return m.Called(ctx, id, role).Error(0)
}

func (m *mockUserAdminRepo) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	return m.Called(ctx, id, banned).Error(0)
}

func (m *mockUserAdminRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func adminActor() Actor {
	return Actor{ID: uuid.New(), Role: valueobject.RoleAdmin}
}

func TestAdminService_SetRole(t *testing.T) {
	repo := new(mockUserAdminRepo)
	svc := NewAdminService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("UpdateRole", ctx, userID, valueobject.RoleFreelancer).Return(nil)
	repo.On("GetByID", ctx, userID).Return(&models.User{ID: userID, Role: valueobject.RoleFreelancer}, nil)

	user, err := svc.SetRole(ctx, adminActor(), userID, valueobject.RoleFreelancer)
	require.NoError(t, err)
	assert.Equal(t, valueobject.RoleFreelancer, user.Role)
	repo.AssertExpectations(t)
}

func TestAdminService_SetRole_Errors(t *testing.T) {
	repo := new(mockUserAdminRepo)
	svc := NewAdminService(repo)
	ctx := context.Background()
	admin := adminActor()

	_, err := svc.SetRole(ctx, Actor{ID: uuid.New(), Role: valueobject.RoleUser}, uuid.New(), valueobject.RoleAdmin)
	assert.ErrorIs(t, err, errAdminOnly)

	_, err = svc.SetRole(ctx, admin, uuid.New(), valueobject.Role("owner"))
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.SetRole(ctx, admin, admin.ID, valueobject.RoleUser)
	assert.ErrorIs(t, err, errSelfModeration)

	missing := uuid.New()
	repo.On("UpdateRole", ctx, missing, valueobject.RoleUser).Return(repository.ErrNotFound)
	_, err = svc.SetRole(ctx, admin, missing, valueobject.RoleUser)
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)

	banned := admin
	banned.Banned = true
	_, err = svc.SetRole(ctx, banned, uuid.New(), valueobject.RoleUser)
	assert.ErrorIs(t, err, apperror.ErrUserBanned)
}

func TestAdminService_SetBannedAndDelete(t *testing.T) {
	repo := new(mockUserAdminRepo)
	svc := NewAdminService(repo)
	ctx := context.Background()
	admin := adminActor()
	userID := uuid.New()

	repo.On("SetBanned", ctx, userID, true).Return(nil)
	repo.On("GetByID", ctx, userID).Return(&models.User{ID: userID, Banned: true}, nil)
	user, err := svc.SetBanned(ctx, admin, userID, true)
	require.NoError(t, err)
	assert.True(t, user.Banned)

	_, err = svc.SetBanned(ctx, admin, admin.ID, true)
	assert.ErrorIs(t, err, errSelfModeration)

	repo.On("Delete", ctx, userID).Return(nil)
	require.NoError(t, svc.DeleteUser(ctx, admin, userID))
	assert.ErrorIs(t, svc.DeleteUser(ctx, admin, admin.ID), errSelfModeration)

	repo.AssertExpectations(t)
}

func TestAdminService_ListUsers(t *testing.T) {
	repo := new(mockUserAdminRepo)
	svc := NewAdminService(repo)
	ctx := context.Background()

	users := []models.User{{ID: uuid.New(), Email: "a@example.com"}}
	repo.On("List", ctx, models.UserFilter{Search: "example", Limit: 100, Offset: 0}).Return(users, 1, nil)

	list, err := svc.ListUsers(ctx, adminActor(), "  example ", 500, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 100, list.Limit)
	assert.Len(t, list.Users, 1)
	repo.AssertExpectations(t)
}
