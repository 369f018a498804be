package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/courtierpro/brokerage-backend/internal/models"
)

// NotificationRepository is the store contract used by the service.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// Pusher delivers a notification to live connections.
type Pusher interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// NotificationService persists in-app notifications and pushes them to
// connected clients.
type NotificationService struct {
	repo NotificationRepository
	hub  Pusher
}

// NewNotificationService creates the service.
func NewNotificationService(repo NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// SetHub wires the live-push hub.
func (s *NotificationService) SetHub(hub Pusher) {
	s.hub = hub
}

// Notify persists a notification for a user and pushes it when a hub is
// attached. The payload carries message keys plus parameters; clients
// localize on display.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, category, titleKey, messageKey string, params map[string]interface{}) error {
	payload := map[string]interface{}{
		"title_key":   titleKey,
		"message_key": messageKey,
		"params":      params,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notification service: marshal payload %w", err)
	}

	notification := &models.Notification{
		UserID:   userID,
		Category: category,
		Payload:  payloadBytes,
		IsRead:   false,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	if s.hub != nil {
		logSideEffect("notification service: ws push failed",
			s.hub.BroadcastToUser(userID, "notification", notification))
	}

	return nil
}

// ListNotifications returns a user's notifications.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead flags one notification as read, checking ownership.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if notification.UserID != userID {
		return fmt.Errorf("notification service: notification does not belong to this user")
	}

	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead flags all of a user's notifications as read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// CountUnread returns the user's unread notification count.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
