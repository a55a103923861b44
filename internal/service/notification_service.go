package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-market/internal/events"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// NotificationService сохраняет доменные события как уведомления получателей.
type NotificationService struct {
	repo NotificationRepository
}

// NotificationList уведомления и счётчик непрочитанных.
type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

func NewNotificationService(repo NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) Name() string { return "notifications" }

// Deliver пишет уведомление каждому получателю события.
func (s *NotificationService) Deliver(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("notification service: marshal payload: %w", err)
	}
	for _, userID := range event.Recipients {
		if err := s.repo.Create(ctx, &models.Notification{
			ID:      uuid.New(),
			UserID:  userID,
			Type:    string(event.Type),
			Payload: payload,
		}); err != nil {
			return fmt.Errorf("notification service: create: %w", err)
		}
	}
	return nil
}

func (s *NotificationService) List(ctx context.Context, actor Actor, limit, offset int, unreadOnly bool) (*NotificationList, error) {
	if err := actor.ensureActive(); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	items, err := s.repo.List(ctx, actor.ID, limit, offset, unreadOnly)
	if err != nil {
		return nil, mapRepoError("notification service: list", err, nil)
	}
	unread, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		return nil, mapRepoError("notification service: count", err, nil)
	}
	return &NotificationList{Notifications: items, Unread: unread}, nil
}

// MarkAsRead отмечает уведомление прочитанным. Чужое уведомление не найдётся.
func (s *NotificationService) MarkAsRead(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := actor.ensureActive(); err != nil {
		return err
	}
	if err := s.repo.MarkAsRead(ctx, id, actor.ID); err != nil {
		return mapRepoError("notification service: mark read", err,
			apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено"))
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, actor Actor) error {
	if err := actor.ensureActive(); err != nil {
		return err
	}
	if err := s.repo.MarkAllAsRead(ctx, actor.ID); err != nil {
		return mapRepoError("notification service: mark all", err, nil)
	}
	return nil
}
