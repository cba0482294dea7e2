package service

import (
	"context"

	"campusmarket/internal/models"
	"campusmarket/internal/store"
	"campusmarket/internal/util"

	"go.uber.org/zap"
)

// NotificationService exposes the per-user notification feed. Rows are
// written by the stores inside business transactions; this service only
// reads and flips read flags.
type NotificationService struct {
	store  store.Store
	logger *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(st store.Store) *NotificationService {
	return &NotificationService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// List returns the actor's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.store.ListNotificationsByUser(ctx, userID)
}

// MarkRead flips one notification to read. Only the recipient may mark it.
func (s *NotificationService) MarkRead(ctx context.Context, actorID, notificationID string) error {
	notifications, err := s.store.ListNotificationsByUser(ctx, actorID)
	if err != nil {
		return err
	}
	for _, n := range notifications {
		if n.ID == notificationID {
			return s.store.MarkNotificationRead(ctx, notificationID)
		}
	}
	return models.ErrNotificationNotFound
}

// MarkAllRead flips every unread notification of the actor.
func (s *NotificationService) MarkAllRead(ctx context.Context, actorID string) error {
	return s.store.MarkAllNotificationsRead(ctx, actorID)
}
